// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// DeleteTargetType selects what a DeleteEntry removes.
type DeleteTargetType int

const (
	DeleteFiles DeleteTargetType = iota
	DeleteFilesAndSubdirs
	DeleteDirIfEmpty
)

// DeleteEntry is one filesystem path the installer (or, for the separate
// uninstall-delete-entry list, the uninstaller) removes. The same record
// layout backs both the "Delete entries" and "uninstall delete entries"
// lists in the Header's counts.
type DeleteEntry struct {
	ConditionData

	Name []byte

	Type DeleteTargetType

	WinVer WindowsVersionRange
}

// Load reads one DeleteEntry at v.
func (d *DeleteEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	if v.Value < loader.Pack(1, 3, 0, 0) {
		if _, err := binutil.ReadU32(r); err != nil {
			return err
		}
	}

	var err error
	if d.Name, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}

	if err := d.loadConditionData(r, v, warn); err != nil {
		return err
	}
	if err := d.WinVer.load(r, v); err != nil {
		return err
	}

	t, err := binutil.ReadStoredEnum(r, []DeleteTargetType{DeleteFiles, DeleteFilesAndSubdirs, DeleteDirIfEmpty}, warn)
	if err != nil {
		return err
	}
	d.Type = t

	return nil
}
