// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// DirectoryOptions are a DirectoryEntry's flag bits.
type DirectoryOptions struct {
	NeverUninstall        bool
	DeleteAfterInstall    bool
	AlwaysUninstall       bool
	SetNtfsCompression    bool
	UnsetNtfsCompression  bool
}

// DirectoryEntry is one directory the installer creates (or removes on
// uninstall), gated by the same component/task/language/check condition
// every other installed-item record carries.
type DirectoryEntry struct {
	ConditionData

	Name        []byte
	Permissions []byte

	Attributes uint32

	// Permission indexes into the Permission entry list, or -1.
	Permission int16

	WinVer WindowsVersionRange

	Options DirectoryOptions
}

// Load reads one DirectoryEntry at v.
func (d *DirectoryEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	if v.Value < loader.Pack(1, 3, 0, 0) {
		if _, err := binutil.ReadU32(r); err != nil { // uncompressed entry size, unused
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

	if v.Value >= loader.Pack(4, 0, 11, 0) && v.Value < loader.Pack(4, 1, 0, 0) {
		if d.Permissions, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(2, 0, 11, 0) {
		attrs, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		d.Attributes = attrs
	}

	if err := d.WinVer.load(r, v); err != nil {
		return err
	}

	if v.Value >= loader.Pack(4, 1, 0, 0) {
		perm, err := binutil.ReadS16(r)
		if err != nil {
			return err
		}
		d.Permission = perm
	} else {
		d.Permission = -1
	}

	switch {
	case v.Value >= loader.Pack(5, 2, 0, 0):
		set, err := binutil.ReadStoredFlags(r, 5, 0, warn)
		if err != nil {
			return err
		}
		d.setOptions(set)
	case v.Bits() != 16:
		set, err := binutil.ReadStoredFlags(r, 3, 0, warn)
		if err != nil {
			return err
		}
		d.setOptions(set)
	default:
		set, err := binutil.ReadStoredFlags(r, 3, 16, warn)
		if err != nil {
			return err
		}
		d.setOptions(set)
	}

	return nil
}

func (d *DirectoryEntry) setOptions(set []bool) {
	get := func(i int) bool { return i < len(set) && set[i] }
	d.Options.NeverUninstall = get(0)
	d.Options.DeleteAfterInstall = get(1)
	d.Options.AlwaysUninstall = get(2)
	d.Options.SetNtfsCompression = get(3)
	d.Options.UnsetNtfsCompression = get(4)
}
