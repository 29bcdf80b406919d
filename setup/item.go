// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// ConditionData is the component/task/language/check-script gating mixin
// shared by the Directory, File, Icon, Ini, Registry, Delete and Run
// records (Type, Component and Task store their own Languages and Check
// fields instead): a boolean expression over components,
// tasks, languages and an optional Pascal Script check function, each
// stored as the installer's raw encoded string (decoding them is left to
// the caller, same as every other text field in this package).
type ConditionData struct {
	Components []byte
	Tasks      []byte
	Languages  []byte
	Check      []byte

	AfterInstall  []byte
	BeforeInstall []byte
}

func (c *ConditionData) loadConditionData(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	var err error

	if v.Value >= loader.Pack(2, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(1, 3, 8, 0)) {
		if c.Components, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(2, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(1, 3, 17, 0)) {
		if c.Tasks, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(4, 0, 1, 0) {
		if c.Languages, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(1, 3, 24, 0)) {
		if c.Check, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(4, 1, 0, 0) {
		if c.AfterInstall, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
		if c.BeforeInstall, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	return nil
}

// loadVersionData reads the version-range mixin shared by the same set of
// record types.
func loadVersionData(r io.Reader, v loader.Version, winver *WindowsVersionRange) error {
	return winver.load(r, v)
}
