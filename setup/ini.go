// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// IniOptions are an IniEntry's flag bits.
type IniOptions struct {
	CreateKeyIfDoesntExist    bool
	UninsDeleteEntry          bool
	UninsDeleteEntireSection  bool
	UninsDeleteSectionIfEmpty bool
	HasValue                  bool
}

// IniEntry is one key the installer writes into an arbitrary .ini file.
type IniEntry struct {
	ConditionData

	IniFile []byte
	Section []byte
	Key     []byte
	Value   []byte

	WinVer WindowsVersionRange

	Options IniOptions
}

// Load reads one IniEntry at v.
func (ie *IniEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	if v.Value < loader.Pack(1, 3, 0, 0) {
		if _, err := binutil.ReadU32(r); err != nil {
			return err
		}
	}

	var err error
	if ie.IniFile, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if len(ie.IniFile) == 0 {
		ie.IniFile = []byte("{windows}/WIN.INI")
	}
	if ie.Section, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if ie.Key, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if ie.Value, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}

	if err := ie.loadConditionData(r, v, warn); err != nil {
		return err
	}
	if err := ie.WinVer.load(r, v); err != nil {
		return err
	}

	padBits := 0
	if v.Bits() == 16 {
		padBits = 16
	}
	set, err := binutil.ReadStoredFlags(r, 5, padBits, warn)
	if err != nil {
		return err
	}
	get := func(i int) bool { return i < len(set) && set[i] }
	ie.Options.CreateKeyIfDoesntExist = get(0)
	ie.Options.UninsDeleteEntry = get(1)
	ie.Options.UninsDeleteEntireSection = get(2)
	ie.Options.UninsDeleteSectionIfEmpty = get(3)
	ie.Options.HasValue = get(4)

	return nil
}
