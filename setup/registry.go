// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// RegistryHive is one of the abbreviated root hive names the format
// stores a registry entry under, derived by masking off the high bit
// every real HKEY_* constant carries.
type RegistryHive int

const (
	HKCR RegistryHive = iota
	HKCU
	HKLM
	HKU
	HKPD
	HKCC
	HKDD
	HiveUnset
)

// RegistryValueType is the Win32 registry value kind an entry writes.
type RegistryValueType int

const (
	RegNone RegistryValueType = iota
	RegString
	RegExpandString
	RegDWord
	RegBinary
	RegMultiString
	RegQWord
)

// RegistryOptions are a RegistryEntry's flag bits.
type RegistryOptions struct {
	CreateValueIfDoesntExist    bool
	UninsDeleteValue            bool
	UninsClearValue             bool
	UninsDeleteEntireKey        bool
	UninsDeleteEntireKeyIfEmpty bool
	PreserveStringType          bool
	DeleteKey                   bool
	DeleteValue                 bool
	NoError                     bool
	DontCreateKey               bool
	Bits32                      bool
	Bits64                      bool
}

// RegistryEntry is one Windows registry key or value the installer writes
// (and, depending on its flags, removes again on uninstall).
type RegistryEntry struct {
	ConditionData

	Key   []byte
	Name  []byte // empty means the key's (Default) value
	Value []byte

	Permissions []byte

	Hive RegistryHive

	// Permission indexes the Permission entry list, or -1.
	Permission int16

	Type RegistryValueType

	WinVer WindowsVersionRange

	Options RegistryOptions
}

// Load reads one RegistryEntry at v.
func (re *RegistryEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	if v.Value < loader.Pack(1, 3, 0, 0) {
		if _, err := binutil.ReadU32(r); err != nil {
			return err
		}
	}

	bits := v.Bits()

	var err error
	if re.Key, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if bits != 16 {
		if re.Name, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}
	if re.Value, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}

	if err := re.loadConditionData(r, v, warn); err != nil {
		return err
	}

	if v.Value >= loader.Pack(4, 0, 11, 0) && v.Value < loader.Pack(4, 1, 0, 0) {
		if re.Permissions, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if err := re.WinVer.load(r, v); err != nil {
		return err
	}

	if bits != 16 {
		raw, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		re.Hive = RegistryHive(raw &^ 0x80000000)
	} else {
		re.Hive = HiveUnset
	}

	if v.Value >= loader.Pack(4, 1, 0, 0) {
		perm, err := binutil.ReadS16(r)
		if err != nil {
			return err
		}
		re.Permission = perm
	} else {
		re.Permission = -1
	}

	switch {
	case v.Value >= loader.Pack(5, 2, 5, 0):
		t, err := binutil.ReadStoredEnum(r, []RegistryValueType{
			RegNone, RegString, RegExpandString, RegDWord, RegBinary, RegMultiString, RegQWord,
		}, warn)
		if err != nil {
			return err
		}
		re.Type = t
	case bits != 16:
		t, err := binutil.ReadStoredEnum(r, []RegistryValueType{
			RegNone, RegString, RegExpandString, RegDWord, RegBinary, RegMultiString,
		}, warn)
		if err != nil {
			return err
		}
		re.Type = t
	default:
		t, err := binutil.ReadStoredEnum(r, []RegistryValueType{RegNone, RegString}, warn)
		if err != nil {
			return err
		}
		re.Type = t
	}

	fr := binutil.NewFlagReaderBits(r, warn, bits)
	if bits != 16 {
		re.Options.CreateValueIfDoesntExist = fr.Add()
		re.Options.UninsDeleteValue = fr.Add()
	}
	re.Options.UninsClearValue = fr.Add()
	re.Options.UninsDeleteEntireKey = fr.Add()
	re.Options.UninsDeleteEntireKeyIfEmpty = fr.Add()
	if v.Value >= loader.Pack(1, 2, 6, 0) {
		re.Options.PreserveStringType = fr.Add()
	}
	if v.Value >= loader.Pack(1, 3, 9, 0) {
		re.Options.DeleteKey = fr.Add()
		re.Options.DeleteValue = fr.Add()
	}
	if v.Value >= loader.Pack(1, 3, 12, 0) {
		re.Options.NoError = fr.Add()
	}
	if v.Value >= loader.Pack(1, 3, 16, 0) {
		re.Options.DontCreateKey = fr.Add()
	}
	if v.Value >= loader.Pack(5, 1, 0, 0) {
		re.Options.Bits32 = fr.Add()
		re.Options.Bits64 = fr.Add()
	}
	if err := fr.Finish(); err != nil {
		return err
	}

	return nil
}
