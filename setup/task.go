// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// TaskOptions are a TaskEntry's flag bits.
type TaskOptions struct {
	Exclusive        bool
	Unchecked        bool
	Restart          bool
	CheckedOnce      bool
	DontInheritCheck bool
}

// TaskEntry (introduced in 2.0.0) is one optional action the wizard's
// "Select Additional Tasks" page offers (e.g. "Create a desktop icon").
type TaskEntry struct {
	Name             []byte
	Description      []byte
	GroupDescription []byte
	Components       []byte
	Languages        []byte
	Check            []byte

	Level int32
	Used  bool

	WinVer WindowsVersionRange

	Options TaskOptions
}

// Load reads one TaskEntry at v.
func (t *TaskEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	var err error

	for _, dst := range []*[]byte{&t.Name, &t.Description, &t.GroupDescription, &t.Components} {
		if *dst, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(4, 0, 1, 0) {
		if t.Languages, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(1, 3, 24, 0)) {
		if t.Check, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(3, 0, 3, 0)) {
		level, err := binutil.ReadS32(r)
		if err != nil {
			return err
		}
		t.Level = level
	} else {
		t.Level = 0
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(3, 0, 4, 0)) {
		used, err := binutil.ReadBool(r)
		if err != nil {
			return err
		}
		t.Used = used
	} else {
		t.Used = true
	}

	if err := t.WinVer.load(r, v); err != nil {
		return err
	}

	fr := binutil.NewFlagReader(r, warn)
	t.Options.Exclusive = fr.Add()
	t.Options.Unchecked = fr.Add()
	if v.Value >= loader.Pack(2, 0, 5, 0) {
		t.Options.Restart = fr.Add()
	}
	if v.Value >= loader.Pack(2, 0, 6, 0) {
		t.Options.CheckedOnce = fr.Add()
	}
	if v.Value >= loader.Pack(4, 2, 3, 0) {
		t.Options.DontInheritCheck = fr.Add()
	}
	if err := fr.Finish(); err != nil {
		return err
	}

	return nil
}
