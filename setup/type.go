// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// SetupTypeKind is the built-in (non-custom) setup type a TypeEntry stands
// in for, when it is not a user-defined type.
type SetupTypeKind int

const (
	TypeUser SetupTypeKind = iota
	TypeDefaultFull
	TypeDefaultCompact
	TypeDefaultCustom
)

// TypeEntry (introduced in 2.0.0) is one "setup type" the wizard's
// component-selection page offers (e.g. "Full installation", "Compact
// installation", or a user-defined combination).
type TypeEntry struct {
	Name        []byte
	Description []byte
	Languages   []byte
	Check       []byte

	WinVer WindowsVersionRange

	CustomType bool
	Kind       SetupTypeKind

	Size uint64
}

// Load reads one TypeEntry with the given codepage-independent string
// fields already expected to be raw encoded bytes (decoding is left to the
// caller throughout this package).
func (t *TypeEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	var err error

	if t.Name, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if t.Description, err = binutil.ReadBinaryString(r); err != nil {
		return err
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

	if err := t.WinVer.load(r, v); err != nil {
		return err
	}

	fr := binutil.NewFlagReader(r, warn)
	t.CustomType = fr.Add()
	if err := fr.Finish(); err != nil {
		return err
	}

	if v.Value >= loader.Pack(4, 0, 3, 0) {
		kind, err := binutil.ReadStoredEnum(r, []SetupTypeKind{TypeUser, TypeDefaultFull, TypeDefaultCompact, TypeDefaultCustom}, warn)
		if err != nil {
			return err
		}
		t.Kind = kind
	} else {
		t.Kind = TypeUser
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) {
		size, err := binutil.ReadU64(r)
		if err != nil {
			return err
		}
		t.Size = size
	} else {
		size, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		t.Size = uint64(size)
	}

	return nil
}
