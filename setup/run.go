// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// WaitCondition controls whether the installer blocks while a Run entry's
// process executes.
type WaitCondition int

const (
	WaitUntilTerminated WaitCondition = iota
	NoWait
	WaitUntilIdle
)

// RunOptions are a RunEntry's flag bits.
type RunOptions struct {
	ShellExec          bool
	SkipIfDoesntExist  bool
	PostInstall        bool
	Unchecked          bool
	SkipIfSilent       bool
	SkipIfNotSilent    bool
	HideWizard         bool
	Bits32             bool
	Bits64             bool
	RunAsOriginalUser  bool
	DontLogParameters  bool
}

// RunEntry is one command the installer (or, for the separate
// uninstall-run-entry list, the uninstaller) executes. The same record
// layout backs both lists.
type RunEntry struct {
	ConditionData

	Name          []byte
	Parameters    []byte
	WorkingDir    []byte
	RunOnceID     []byte
	StatusMessage []byte
	Verb          []byte
	Description   []byte

	ShowCommand int32

	Wait WaitCondition

	WinVer WindowsVersionRange

	Options RunOptions
}

// Load reads one RunEntry at v.
func (re *RunEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	if v.Value < loader.Pack(1, 3, 0, 0) {
		if _, err := binutil.ReadU32(r); err != nil {
			return err
		}
	}

	var err error
	for _, dst := range []*[]byte{&re.Name, &re.Parameters, &re.WorkingDir} {
		if *dst, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(1, 3, 9, 0) {
		if re.RunOnceID, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}
	if v.Value >= loader.Pack(2, 0, 2, 0) {
		if re.StatusMessage, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}
	if v.Value >= loader.Pack(5, 1, 13, 0) {
		if re.Verb, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}
	if v.Value >= loader.Pack(2, 0, 0, 0) || v.IsISX() {
		if re.Description, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if err := re.loadConditionData(r, v, warn); err != nil {
		return err
	}
	if err := re.WinVer.load(r, v); err != nil {
		return err
	}

	if v.Value >= loader.Pack(1, 3, 24, 0) {
		cmd, err := binutil.ReadS32(r)
		if err != nil {
			return err
		}
		re.ShowCommand = cmd
	} else {
		re.ShowCommand = 0
	}

	wait, err := binutil.ReadStoredEnum(r, []WaitCondition{WaitUntilTerminated, NoWait, WaitUntilIdle}, warn)
	if err != nil {
		return err
	}
	re.Wait = wait

	fr := binutil.NewFlagReaderBits(r, warn, v.Bits())
	if v.Value >= loader.Pack(1, 2, 3, 0) {
		re.Options.ShellExec = fr.Add()
	}
	if v.Value >= loader.Pack(1, 3, 9, 0) || (v.IsISX() && v.Value >= loader.Pack(1, 3, 8, 0)) {
		re.Options.SkipIfDoesntExist = fr.Add()
	}
	if v.Value >= loader.Pack(2, 0, 0, 0) {
		re.Options.PostInstall = fr.Add()
		re.Options.Unchecked = fr.Add()
		re.Options.SkipIfSilent = fr.Add()
		re.Options.SkipIfNotSilent = fr.Add()
	}
	if v.Value >= loader.Pack(2, 0, 8, 0) {
		re.Options.HideWizard = fr.Add()
	}
	if v.Value >= loader.Pack(5, 1, 10, 0) {
		re.Options.Bits32 = fr.Add()
		re.Options.Bits64 = fr.Add()
	}
	if v.Value >= loader.Pack(5, 2, 0, 0) {
		re.Options.RunAsOriginalUser = fr.Add()
	}
	if v.Value >= loader.Pack(6, 1, 0, 0) {
		re.Options.DontLogParameters = fr.Add()
	}
	if err := fr.Finish(); err != nil {
		return err
	}

	return nil
}
