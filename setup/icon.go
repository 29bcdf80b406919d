// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// CloseSetting controls whether an icon's target application is closed
// before the uninstaller removes files.
type CloseSetting int

const (
	CloseNoSetting CloseSetting = iota
	CloseOnExit
	DontCloseOnExit
)

// IconOptions are an IconEntry's flag bits.
type IconOptions struct {
	NeverUninstall                     bool
	RunMinimized                       bool // obsolete, pre-1.3.26
	CreateOnlyIfFileExists             bool
	UseAppPaths                        bool
	FolderShortcut                     bool
	ExcludeFromShowInNewInstall        bool
	PreventPinning                     bool
	HasAppUserModelToastActivatorCLSID bool
}

// IconEntry (introduced alongside the container format) is one Start Menu
// or desktop shortcut the installer creates.
type IconEntry struct {
	ConditionData

	Name                             []byte
	Filename                         []byte
	Parameters                       []byte
	WorkingDir                       []byte
	IconFile                         []byte
	Comment                          []byte
	AppUserModelID                   []byte
	AppUserModelToastActivatorCLSID []byte

	IconIndex int32

	ShowCommand int32

	CloseOnExit CloseSetting

	Hotkey uint16

	WinVer WindowsVersionRange

	Options IconOptions
}

// Load reads one IconEntry at v.
func (ic *IconEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	if v.Value < loader.Pack(1, 3, 0, 0) {
		if _, err := binutil.ReadU32(r); err != nil {
			return err
		}
	}

	var err error
	for _, dst := range []*[]byte{&ic.Name, &ic.Filename, &ic.Parameters, &ic.WorkingDir, &ic.IconFile, &ic.Comment} {
		if *dst, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if err := ic.loadConditionData(r, v, warn); err != nil {
		return err
	}

	if v.Value >= loader.Pack(5, 3, 5, 0) {
		if ic.AppUserModelID, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(6, 1, 0, 0) {
		var guid [16]byte
		if _, err := io.ReadFull(r, guid[:]); err != nil {
			return err
		}
		ic.AppUserModelToastActivatorCLSID = guid[:]
	}

	if err := ic.WinVer.load(r, v); err != nil {
		return err
	}

	iconIndex, err := binutil.ReadSizedInt32(r, v.Bits())
	if err != nil {
		return err
	}
	ic.IconIndex = iconIndex

	if v.Value >= loader.Pack(1, 3, 24, 0) {
		cmd, err := binutil.ReadS32(r)
		if err != nil {
			return err
		}
		ic.ShowCommand = cmd
	} else {
		ic.ShowCommand = 1
	}

	if v.Value >= loader.Pack(1, 3, 15, 0) {
		cs, err := binutil.ReadStoredEnum(r, []CloseSetting{CloseNoSetting, CloseOnExit, DontCloseOnExit}, warn)
		if err != nil {
			return err
		}
		ic.CloseOnExit = cs
	} else {
		ic.CloseOnExit = CloseNoSetting
	}

	if v.Value >= loader.Pack(2, 0, 7, 0) {
		hk, err := binutil.ReadU16(r)
		if err != nil {
			return err
		}
		ic.Hotkey = hk
	}

	fr := binutil.NewFlagReaderBits(r, warn, v.Bits())
	ic.Options.NeverUninstall = fr.Add()
	if v.Value < loader.Pack(1, 3, 26, 0) {
		ic.Options.RunMinimized = fr.Add()
	}
	ic.Options.CreateOnlyIfFileExists = fr.Add()
	if v.Bits() != 16 {
		ic.Options.UseAppPaths = fr.Add()
	}
	if v.Value >= loader.Pack(5, 0, 3, 0) {
		ic.Options.FolderShortcut = fr.Add()
	}
	if v.Value >= loader.Pack(5, 4, 2, 0) {
		ic.Options.ExcludeFromShowInNewInstall = fr.Add()
	}
	if v.Value >= loader.Pack(5, 5, 0, 0) {
		ic.Options.PreventPinning = fr.Add()
	}
	if v.Value >= loader.Pack(6, 1, 0, 0) {
		ic.Options.HasAppUserModelToastActivatorCLSID = fr.Add()
	}
	if err := fr.Finish(); err != nil {
		return err
	}

	return nil
}
