// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/checksum"
	"github.com/saferwall/innoextract/loader"
)

// FileEntryKind distinguishes a plain user file from the two special files
// the installer itself generates.
type FileEntryKind int

const (
	FileKindUser FileEntryKind = iota
	FileKindUninstExe
	FileKindRegSvrExe
)

// FileOptions are a FileEntry's flag bits.
type FileOptions struct {
	ConfirmOverwrite                   bool
	NeverUninstall                     bool
	RestartReplace                     bool
	DeleteAfterInstall                 bool
	RegisterServer                     bool
	RegisterTypeLib                    bool
	SharedFile                         bool
	IsReadmeFile                       bool // obsolete, pre-2.0.0
	CompareTimeStamp                   bool
	FontIsNotTrueType                  bool
	SkipIfSourceDoesntExist            bool
	OverwriteReadOnly                  bool
	OverwriteSameVersion               bool
	CustomDestName                     bool
	OnlyIfDestFileExists                bool
	NoRegError                         bool
	UninsRestartDelete                 bool
	OnlyIfDoesntExist                  bool
	IgnoreVersion                      bool
	PromptIfOlder                      bool
	DontCopy                           bool
	UninsRemoveReadOnly                bool
	RecurseSubDirsExternal             bool
	ReplaceSameVersionIfContentsDiffer bool
	DontVerifyChecksum                 bool
	UninsNoSharedFilePrompt            bool
	CreateAllSubDirs                   bool
	Bits32                             bool
	Bits64                             bool
	ExternalSizePreset                 bool
	SetNtfsCompression                 bool
	UnsetNtfsCompression               bool
	GacInstall                         bool
}

// legacyFileCopyMode is the pre-3.0.5 copy-mode enum that later versions
// folded directly into FileOptions.
type legacyFileCopyMode int

const (
	copyModeNormal legacyFileCopyMode = iota
	copyModeIfDoesntExist
	copyModeAlwaysOverwrite
	copyModeAlwaysSkipIfSameOrOlder
)

// FileEntry (introduced alongside the container format itself) is one file
// the installer copies onto the target system, or the uninstaller/regsvr
// helper executables it generates. Location indexes the DataEntry table
// that actually locates its bytes.
type FileEntry struct {
	ConditionData

	Source             []byte
	Destination        []byte
	InstallFontName    []byte
	StrongAssemblyName []byte

	// Location indexes the DataEntry list, or -1 for GacInstall-only
	// entries with no corresponding chunk of bytes.
	Location   uint32
	Attributes uint32

	// ExternalSize is the external-file size stored in the record; Load
	// reads it for every entry, whatever the entry's flags.
	ExternalSize uint64

	// Permission indexes the Permission entry list, or -1.
	Permission int16

	WinVer WindowsVersionRange

	Options FileOptions
	Kind    FileEntryKind

	// AdditionalLocations, Checksum and Size are populated only for the
	// GOG Galaxy multi-part file extension; standard installers leave
	// them zero.
	AdditionalLocations []uint32
	Checksum            checksum.Checksum
	Size                uint64
}

// Load reads one FileEntry at v.
func (f *FileEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	if v.Value < loader.Pack(1, 3, 0, 0) {
		if _, err := binutil.ReadU32(r); err != nil {
			return err
		}
	}

	var err error
	if f.Source, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if f.Destination, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if f.InstallFontName, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if v.Value >= loader.Pack(5, 2, 5, 0) {
		if f.StrongAssemblyName, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if err := f.loadConditionData(r, v, warn); err != nil {
		return err
	}
	if err := f.WinVer.load(r, v); err != nil {
		return err
	}

	bits := v.Bits()

	location, err := binutil.ReadSizedUint32(r, bits)
	if err != nil {
		return err
	}
	f.Location = location

	attrs, err := binutil.ReadSizedUint32(r, bits)
	if err != nil {
		return err
	}
	f.Attributes = attrs

	if v.Value >= loader.Pack(4, 0, 0, 0) {
		size, err := binutil.ReadU64(r)
		if err != nil {
			return err
		}
		f.ExternalSize = size
	} else {
		size, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		f.ExternalSize = uint64(size)
	}

	if v.Value < loader.Pack(3, 0, 5, 0) {
		mode, err := binutil.ReadStoredEnum(r, []legacyFileCopyMode{
			copyModeNormal, copyModeIfDoesntExist, copyModeAlwaysOverwrite, copyModeAlwaysSkipIfSameOrOlder,
		}, warn)
		if err != nil {
			return err
		}
		switch mode {
		case copyModeNormal:
			f.Options.PromptIfOlder = true
		case copyModeIfDoesntExist:
			f.Options.OnlyIfDoesntExist = true
			f.Options.PromptIfOlder = true
		case copyModeAlwaysOverwrite:
			f.Options.IgnoreVersion = true
			f.Options.PromptIfOlder = true
		case copyModeAlwaysSkipIfSameOrOlder:
		}
	}

	if v.Value >= loader.Pack(4, 1, 0, 0) {
		perm, err := binutil.ReadS16(r)
		if err != nil {
			return err
		}
		f.Permission = perm
	} else {
		f.Permission = -1
	}

	fr := binutil.NewFlagReaderBits(r, warn, bits)
	f.Options.ConfirmOverwrite = fr.Add()
	f.Options.NeverUninstall = fr.Add()
	f.Options.RestartReplace = fr.Add()
	f.Options.DeleteAfterInstall = fr.Add()
	if bits != 16 {
		f.Options.RegisterServer = fr.Add()
		f.Options.RegisterTypeLib = fr.Add()
		f.Options.SharedFile = fr.Add()
	}
	if v.Value < loader.Pack(2, 0, 0, 0) && !v.IsISX() {
		f.Options.IsReadmeFile = fr.Add()
	}
	f.Options.CompareTimeStamp = fr.Add()
	f.Options.FontIsNotTrueType = fr.Add()
	if v.Value >= loader.Pack(1, 2, 5, 0) {
		f.Options.SkipIfSourceDoesntExist = fr.Add()
	}
	if v.Value >= loader.Pack(1, 2, 6, 0) {
		f.Options.OverwriteReadOnly = fr.Add()
	}
	if v.Value >= loader.Pack(1, 3, 21, 0) {
		f.Options.OverwriteSameVersion = fr.Add()
		f.Options.CustomDestName = fr.Add()
	}
	if v.Value >= loader.Pack(1, 3, 25, 0) {
		f.Options.OnlyIfDestFileExists = fr.Add()
	}
	if v.Value >= loader.Pack(2, 0, 5, 0) {
		f.Options.NoRegError = fr.Add()
	}
	if v.Value >= loader.Pack(3, 0, 1, 0) {
		f.Options.UninsRestartDelete = fr.Add()
	}
	if v.Value >= loader.Pack(3, 0, 5, 0) {
		f.Options.OnlyIfDoesntExist = fr.Add()
		f.Options.IgnoreVersion = fr.Add()
		f.Options.PromptIfOlder = fr.Add()
	}
	if v.Value >= loader.Pack(4, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(3, 0, 6, 1)) {
		f.Options.DontCopy = fr.Add()
	}
	if v.Value >= loader.Pack(4, 0, 5, 0) {
		f.Options.UninsRemoveReadOnly = fr.Add()
	}
	if v.Value >= loader.Pack(4, 1, 8, 0) {
		f.Options.RecurseSubDirsExternal = fr.Add()
	}
	if v.Value >= loader.Pack(4, 2, 1, 0) {
		f.Options.ReplaceSameVersionIfContentsDiffer = fr.Add()
	}
	if v.Value >= loader.Pack(4, 2, 5, 0) {
		f.Options.DontVerifyChecksum = fr.Add()
	}
	if v.Value >= loader.Pack(5, 0, 3, 0) {
		f.Options.UninsNoSharedFilePrompt = fr.Add()
	}
	if v.Value >= loader.Pack(5, 1, 0, 0) {
		f.Options.CreateAllSubDirs = fr.Add()
	}
	if v.Value >= loader.Pack(5, 1, 2, 0) {
		f.Options.Bits32 = fr.Add()
		f.Options.Bits64 = fr.Add()
	}
	if v.Value >= loader.Pack(5, 2, 0, 0) {
		f.Options.ExternalSizePreset = fr.Add()
		f.Options.SetNtfsCompression = fr.Add()
		f.Options.UnsetNtfsCompression = fr.Add()
	}
	if v.Value >= loader.Pack(5, 2, 5, 0) {
		f.Options.GacInstall = fr.Add()
	}
	if err := fr.Finish(); err != nil {
		return err
	}

	if bits == 16 || v.Value >= loader.Pack(5, 0, 0, 0) {
		kind, err := binutil.ReadStoredEnum(r, []FileEntryKind{FileKindUser, FileKindUninstExe}, warn)
		if err != nil {
			return err
		}
		f.Kind = kind
	} else {
		kind, err := binutil.ReadStoredEnum(r, []FileEntryKind{FileKindUser, FileKindUninstExe, FileKindRegSvrExe}, warn)
		if err != nil {
			return err
		}
		f.Kind = kind
	}

	f.AdditionalLocations = nil
	f.Checksum = checksum.Checksum{}
	f.Size = 0

	return nil
}
