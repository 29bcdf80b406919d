// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package setup parses the header-block record stream: the Header record
// plus the Language/Message/Permission/Type/Component/Task/Directory/File/
// Icon/Ini/Registry/Delete/Run/Data lists that follow it, all gated on the
// setup data version identified by the loader package.
package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/checksum"
	"github.com/saferwall/innoextract/loader"
)

// InstallVerbosity controls how much of the wizard UI is shown.
type InstallVerbosity int

const (
	NormalInstallMode InstallVerbosity = iota
	SilentInstallMode
	VerySilentInstallMode
)

// LogMode controls how an existing uninstall log is treated.
type LogMode int

const (
	AppendLog LogMode = iota
	NewLog
	OverwriteLog
)

// Style selects the classic or modern wizard chrome.
type Style int

const (
	ClassicStyle Style = iota
	ModernStyle
)

// AutoBool is a tri-state yes/no/auto-detect setting.
type AutoBool int

const (
	Auto AutoBool = iota
	No
	Yes
)

// PrivilegeLevel is the minimum OS privilege the installer requests.
type PrivilegeLevel int

const (
	NoPrivileges PrivilegeLevel = iota
	PowerUserPrivileges
	AdminPrivileges
	LowestPrivileges
)

// LanguageDetectionMethod selects how the active UI language is chosen.
type LanguageDetectionMethod int

const (
	UILanguage LanguageDetectionMethod = iota
	LocaleLanguage
	NoLanguageDetection
)

// AlphaFormat describes how a wizard image's alpha channel is encoded.
type AlphaFormat int

const (
	AlphaIgnored AlphaFormat = iota
	AlphaDefined
	AlphaPremultiplied
)

// CompressionMethod is the algorithm used for the data-block streams, read
// from Header.Compression and applied by the stream package's chunk reader.
type CompressionMethod int

const (
	CompressionUnknown CompressionMethod = iota
	CompressionStored
	CompressionZlib
	CompressionBZip2
	CompressionLZMA1
	CompressionLZMA2
)

// Architecture is a CPU-architecture bitmask.
type Architecture uint8

const (
	ArchUnknown Architecture = 1 << iota
	ArchX86
	ArchAmd64
	ArchIA64
	ArchARM64
)

// PrivilegesRequiredOverride is the set of ways a silent install may
// override the declared PrivilegesRequired level.
type PrivilegesRequiredOverride uint8

const (
	OverrideCommandline PrivilegesRequiredOverride = 1 << iota
	OverrideDialog
)

// HeaderOptions are the on/off switches read out of the header's trailing
// flag bitfield. Which fields are actually present on disk depends on the
// setup data version; absent ones stay false, except AllowCancelDuringInstall
// and AllowNetworkDrive, which default to true, and AlwaysRestart and
// RestartIfNeededByRun, which 3.0.0-3.0.2 derive from a stored enum.
type HeaderOptions struct {
	DisableStartupPrompt        bool
	Uninstallable                bool
	CreateAppDir                  bool
	DisableDirPage               bool
	DisableDirExistsWarning      bool
	DisableProgramGroupPage      bool
	AllowNoIcons                  bool
	AlwaysRestart                 bool
	BackSolid                     bool
	AlwaysUsePersonalGroup        bool
	WindowVisible                 bool
	WindowShowCaption             bool
	WindowResizable               bool
	WindowStartMaximized          bool
	EnableDirDoesntExistWarning   bool
	DisableAppendDir              bool
	Password                      bool
	AllowRootDirectory            bool
	DisableFinishedPage           bool
	AdminPrivilegesRequired       bool
	AlwaysCreateUninstallIcon     bool
	OverwriteUninstRegEntries     bool
	ChangesAssociations           bool
	CreateUninstallRegKey         bool
	UsePreviousAppDir             bool
	BackColorHorizontal           bool
	UsePreviousGroup              bool
	UpdateUninstallLogAppName     bool
	UsePreviousSetupType          bool
	DisableReadyMemo              bool
	AlwaysShowComponentsList      bool
	FlatComponentsList            bool
	ShowComponentSizes            bool
	UsePreviousTasks              bool
	DisableReadyPage              bool
	AlwaysShowDirOnReadyPage      bool
	AlwaysShowGroupOnReadyPage    bool
	BzipUsed                      bool
	AllowUNCPath                  bool
	UserInfoPage                  bool
	UsePreviousUserInfo           bool
	UninstallRestartComputer      bool
	RestartIfNeededByRun          bool
	ShowTasksTreeLines            bool
	ShowLanguageDialog            bool
	DetectLanguageUsingLocale     bool
	AllowCancelDuringInstall      bool
	WizardImageStretch            bool
	AppendDefaultDirName          bool
	AppendDefaultGroupName        bool
	EncryptionUsed                bool
	ChangesEnvironment            bool
	ShowUndisplayableLanguages    bool
	SetupLogging                  bool
	SignedUninstaller             bool
	UsePreviousLanguage           bool
	DisableWelcomePage            bool
	CloseApplications             bool
	RestartApplications           bool
	AllowNetworkDrive             bool
	ForceCloseApplications        bool
	AppNameHasConsts              bool
	UsePreviousPrivileges         bool
	WizardResizable               bool
}

// Header is the first and only singleton record in the header block: global
// installer metadata, counts for every other record list, and the option
// flags everything else is gated on.
type Header struct {
	AppName                    []byte
	AppVersionedName           []byte
	AppID                      []byte
	AppCopyright               []byte
	AppPublisher               []byte
	AppPublisherURL            []byte
	AppSupportPhone            []byte
	AppSupportURL              []byte
	AppUpdatesURL              []byte
	AppVersion                 []byte
	DefaultDirName             []byte
	DefaultGroupName           []byte
	BaseFilename               []byte
	UninstallFilesDir          []byte
	UninstallName              []byte
	UninstallIcon              []byte
	AppMutex                   []byte
	DefaultUserName            []byte
	DefaultUserOrganisation    []byte
	DefaultSerial              []byte
	CompiledCode               []byte
	AppReadmeFile              []byte
	AppContact                 []byte
	AppComments                []byte
	AppModifyPath              []byte
	CreateUninstallRegistryKey []byte
	Uninstallable              []byte
	CloseApplicationsFilter    []byte
	SetupMutex                 []byte
	ChangesEnvironment         []byte
	ChangesAssociations        []byte
	LicenseText                []byte
	InfoBefore                 []byte
	InfoAfter                  []byte
	UninstallerSignature       []byte

	LeadBytes binutil.LeadByteSet

	LanguageCount              uint32
	MessageCount               uint32
	PermissionCount            uint32
	TypeCount                  uint32
	ComponentCount             uint32
	TaskCount                  uint32
	DirectoryCount             uint32
	FileCount                  uint32
	DataEntryCount             uint32
	IconCount                  uint32
	IniEntryCount              uint32
	RegistryEntryCount         uint32
	DeleteEntryCount           uint32
	UninstallDeleteEntryCount  uint32
	RunEntryCount              uint32
	UninstallRunEntryCount     uint32

	WinVersion WindowsVersion

	BackColor           uint32
	BackColor2          uint32
	ImageBackColor      uint32
	SmallImageBackColor uint32

	WizardStyle           Style
	WizardResizePercentX  uint32
	WizardResizePercentY  uint32
	ImageAlphaFormat      AlphaFormat

	Password     checksum.Checksum
	PasswordSalt []byte

	ExtraDiskSpaceRequired int64
	SlicesPerDisk          uint32

	InstallMode       InstallVerbosity
	UninstallLogMode  LogMode
	UninstallStyle    Style
	DirExistsWarning  AutoBool

	PrivilegesRequired                 PrivilegeLevel
	PrivilegesRequiredOverrideAllowed  PrivilegesRequiredOverride

	ShowLanguageDialog AutoBool
	LanguageDetection  LanguageDetectionMethod

	Compression CompressionMethod

	ArchitecturesAllowed               Architecture
	ArchitecturesInstalledIn64BitMode  Architecture

	SignedUninstallerOriginalSize     uint32
	SignedUninstallerHeaderChecksum   uint32

	DisableDirPage           AutoBool
	DisableProgramGroupPage  AutoBool

	UninstallDisplaySize uint64

	Options HeaderOptions
}

// Load reads the Header record. warn receives non-fatal diagnostics for
// out-of-range stored enum/flag values; it may be nil.
func (h *Header) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	bits := v.Bits()

	str := func(dst *[]byte) error {
		b, err := binutil.ReadBinaryString(r)
		if err != nil {
			return err
		}
		*dst = b
		return nil
	}
	strIf := func(cond bool, dst *[]byte) error {
		if !cond {
			*dst = nil
			return nil
		}
		return str(dst)
	}

	if v.Value < loader.Pack(1, 3, 0, 0) {
		if _, err := binutil.ReadU32(r); err != nil { // uncompressed header size, unused
			return err
		}
	}

	if err := str(&h.AppName); err != nil {
		return err
	}
	if err := str(&h.AppVersionedName); err != nil {
		return err
	}
	if err := strIf(v.Value >= loader.Pack(1, 3, 0, 0), &h.AppID); err != nil {
		return err
	}
	if err := str(&h.AppCopyright); err != nil {
		return err
	}
	if v.Value >= loader.Pack(1, 3, 0, 0) {
		if err := str(&h.AppPublisher); err != nil {
			return err
		}
		if err := str(&h.AppPublisherURL); err != nil {
			return err
		}
	}
	if err := strIf(v.Value >= loader.Pack(5, 1, 13, 0), &h.AppSupportPhone); err != nil {
		return err
	}
	if v.Value >= loader.Pack(1, 3, 0, 0) {
		if err := str(&h.AppSupportURL); err != nil {
			return err
		}
		if err := str(&h.AppUpdatesURL); err != nil {
			return err
		}
		if err := str(&h.AppVersion); err != nil {
			return err
		}
	}
	if err := str(&h.DefaultDirName); err != nil {
		return err
	}
	if err := str(&h.DefaultGroupName); err != nil {
		return err
	}
	if v.Value < loader.Pack(3, 0, 0, 0) {
		if _, err := binutil.ReadBinaryString(r); err != nil { // uninstall_icon_name, ANSI-only, dropped
			return err
		}
	}
	if err := str(&h.BaseFilename); err != nil {
		return err
	}
	if v.Value >= loader.Pack(1, 3, 0, 0) && v.Value < loader.Pack(5, 2, 5, 0) {
		if err := str(&h.LicenseText); err != nil {
			return err
		}
		if err := str(&h.InfoBefore); err != nil {
			return err
		}
		if err := str(&h.InfoAfter); err != nil {
			return err
		}
	}
	if err := strIf(v.Value >= loader.Pack(1, 3, 3, 0), &h.UninstallFilesDir); err != nil {
		return err
	}
	if v.Value >= loader.Pack(1, 3, 6, 0) {
		if err := str(&h.UninstallName); err != nil {
			return err
		}
		if err := str(&h.UninstallIcon); err != nil {
			return err
		}
	}
	if err := strIf(v.Value >= loader.Pack(1, 3, 14, 0), &h.AppMutex); err != nil {
		return err
	}
	if v.Value >= loader.Pack(3, 0, 0, 0) {
		if err := str(&h.DefaultUserName); err != nil {
			return err
		}
		if err := str(&h.DefaultUserOrganisation); err != nil {
			return err
		}
	}
	if err := strIf(v.Value >= loader.Pack(4, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(3, 0, 6, 1)), &h.DefaultSerial); err != nil {
		return err
	}
	compiledCodePre525 := (v.Value >= loader.Pack(4, 0, 0, 0) && v.Value < loader.Pack(5, 2, 5, 0)) ||
		(v.IsISX() && v.Value >= loader.Pack(1, 3, 24, 0))
	if err := strIf(compiledCodePre525, &h.CompiledCode); err != nil {
		return err
	}
	if v.Value >= loader.Pack(4, 2, 4, 0) {
		if err := str(&h.AppReadmeFile); err != nil {
			return err
		}
		if err := str(&h.AppContact); err != nil {
			return err
		}
		if err := str(&h.AppComments); err != nil {
			return err
		}
		if err := str(&h.AppModifyPath); err != nil {
			return err
		}
	}
	if err := strIf(v.Value >= loader.Pack(5, 3, 8, 0), &h.CreateUninstallRegistryKey); err != nil {
		return err
	}
	if err := strIf(v.Value >= loader.Pack(5, 3, 10, 0), &h.Uninstallable); err != nil {
		return err
	}
	if err := strIf(v.Value >= loader.Pack(5, 5, 0, 0), &h.CloseApplicationsFilter); err != nil {
		return err
	}
	if err := strIf(v.Value >= loader.Pack(5, 5, 6, 0), &h.SetupMutex); err != nil {
		return err
	}
	if v.Value >= loader.Pack(5, 6, 1, 0) {
		if err := str(&h.ChangesEnvironment); err != nil {
			return err
		}
		if err := str(&h.ChangesAssociations); err != nil {
			return err
		}
	}
	if v.Value >= loader.Pack(5, 2, 5, 0) {
		if err := str(&h.LicenseText); err != nil {
			return err
		}
		if err := str(&h.InfoBefore); err != nil {
			return err
		}
		if err := str(&h.InfoAfter); err != nil {
			return err
		}
	}
	if err := strIf(v.Value >= loader.Pack(5, 2, 1, 0) && v.Value < loader.Pack(5, 3, 10, 0), &h.UninstallerSignature); err != nil {
		return err
	}
	if v.Value >= loader.Pack(5, 2, 5, 0) {
		if err := str(&h.CompiledCode); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(2, 0, 6, 0) && !v.IsUnicode() {
		set, err := binutil.ReadStoredFlags(r, 256, 0, warn)
		if err != nil {
			return err
		}
		for i, on := range set {
			if on {
				h.LeadBytes.Set(byte(i))
			}
		}
	}

	switch {
	case v.Value >= loader.Pack(4, 0, 0, 0):
		n, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.LanguageCount = n
	case v.Value >= loader.Pack(2, 0, 1, 0):
		h.LanguageCount = 1
	}

	if v.Value >= loader.Pack(4, 2, 1, 0) {
		n, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.MessageCount = n
	}
	if v.Value >= loader.Pack(4, 1, 0, 0) {
		n, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.PermissionCount = n
	}
	if v.Value >= loader.Pack(2, 0, 0, 0) || v.IsISX() {
		n, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.TypeCount = n
		n, err = binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.ComponentCount = n
	}
	if v.Value >= loader.Pack(2, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(1, 3, 17, 0)) {
		n, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.TaskCount = n
	}

	counts := []*uint32{
		&h.DirectoryCount, &h.FileCount, &h.DataEntryCount, &h.IconCount,
		&h.IniEntryCount, &h.RegistryEntryCount, &h.DeleteEntryCount,
		&h.UninstallDeleteEntryCount, &h.RunEntryCount, &h.UninstallRunEntryCount,
	}
	for _, c := range counts {
		n, err := binutil.ReadSizedUint32(r, bits)
		if err != nil {
			return err
		}
		*c = n
	}

	var licenseSize, infoBeforeSize, infoAfterSize int32
	if v.Value < loader.Pack(1, 3, 0, 0) {
		n, err := binutil.ReadSizedUint32(r, bits)
		if err != nil {
			return err
		}
		licenseSize = int32(n)
		n, err = binutil.ReadSizedUint32(r, bits)
		if err != nil {
			return err
		}
		infoBeforeSize = int32(n)
		n, err = binutil.ReadSizedUint32(r, bits)
		if err != nil {
			return err
		}
		infoAfterSize = int32(n)
	}

	if err := h.WinVersion.load(r, v); err != nil {
		return err
	}

	if n, err := binutil.ReadU32(r); err != nil {
		return err
	} else {
		h.BackColor = n
	}
	if v.Value >= loader.Pack(1, 3, 3, 0) {
		n, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.BackColor2 = n
	}
	if v.Value < loader.Pack(5, 5, 7, 0) {
		n, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.ImageBackColor = n
	}
	if (v.Value >= loader.Pack(2, 0, 0, 0) && v.Value < loader.Pack(5, 0, 4, 0)) || v.IsISX() {
		n, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.SmallImageBackColor = n
	}

	if v.Value >= loader.Pack(6, 0, 0, 0) {
		style, err := binutil.ReadStoredEnum(r, []Style{ClassicStyle, ModernStyle}, warn)
		if err != nil {
			return err
		}
		h.WizardStyle = style
		x, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.WizardResizePercentX = x
		y, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.WizardResizePercentY = y
	} else {
		h.WizardStyle = ClassicStyle
	}

	if v.Value >= loader.Pack(5, 5, 7, 0) {
		af, err := binutil.ReadStoredEnum(r, []AlphaFormat{AlphaIgnored, AlphaDefined, AlphaPremultiplied}, warn)
		if err != nil {
			return err
		}
		h.ImageAlphaFormat = af
	}

	switch {
	case v.Value < loader.Pack(4, 2, 0, 0):
		sum, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.Password.Kind = checksum.CRC32
		putLE32(h.Password.Bytes[:4], sum)
	case v.Value < loader.Pack(5, 3, 9, 0):
		var b [16]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		h.Password.Kind = checksum.MD5
		copy(h.Password.Bytes[:16], b[:])
	default:
		var b [20]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		h.Password.Kind = checksum.SHA1
		copy(h.Password.Bytes[:20], b[:])
	}
	if v.Value >= loader.Pack(4, 2, 2, 0) {
		var salt [8]byte
		if _, err := io.ReadFull(r, salt[:]); err != nil {
			return err
		}
		h.PasswordSalt = append([]byte("PasswordCheckHash"), salt[:]...)
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) {
		sz, err := binutil.ReadS64(r)
		if err != nil {
			return err
		}
		h.ExtraDiskSpaceRequired = sz
		spd, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.SlicesPerDisk = spd
	} else {
		sz, err := binutil.ReadS32(r)
		if err != nil {
			return err
		}
		h.ExtraDiskSpaceRequired = int64(sz)
		h.SlicesPerDisk = 1
	}

	if (v.Value >= loader.Pack(2, 0, 0, 0) && v.Value < loader.Pack(5, 0, 0, 0)) ||
		(v.IsISX() && v.Value >= loader.Pack(1, 3, 4, 0)) {
		m, err := binutil.ReadStoredEnum(r, []InstallVerbosity{NormalInstallMode, SilentInstallMode, VerySilentInstallMode}, warn)
		if err != nil {
			return err
		}
		h.InstallMode = m
	}

	if v.Value >= loader.Pack(1, 3, 0, 0) {
		m, err := binutil.ReadStoredEnum(r, []LogMode{AppendLog, NewLog, OverwriteLog}, warn)
		if err != nil {
			return err
		}
		h.UninstallLogMode = m
	} else {
		h.UninstallLogMode = NewLog
	}

	switch {
	case v.Value >= loader.Pack(5, 0, 0, 0):
		h.UninstallStyle = ModernStyle
	case v.Value >= loader.Pack(2, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(1, 3, 13, 0)):
		s, err := binutil.ReadStoredEnum(r, []Style{ClassicStyle, ModernStyle}, warn)
		if err != nil {
			return err
		}
		h.UninstallStyle = s
	default:
		h.UninstallStyle = ClassicStyle
	}

	if v.Value >= loader.Pack(1, 3, 6, 0) {
		w, err := binutil.ReadStoredEnum(r, []AutoBool{Auto, No, Yes}, warn)
		if err != nil {
			return err
		}
		h.DirExistsWarning = w
	} else {
		h.DirExistsWarning = Auto
	}

	if v.IsISX() && v.Value >= loader.Pack(2, 0, 10, 0) && v.Value < loader.Pack(3, 0, 0, 0) {
		if _, err := binutil.ReadS32(r); err != nil { // code_line_offset, unused
			return err
		}
	}

	if v.Value >= loader.Pack(3, 0, 0, 0) && v.Value < loader.Pack(3, 0, 3, 0) {
		val, err := binutil.ReadStoredEnum(r, []AutoBool{Auto, No, Yes}, warn)
		if err != nil {
			return err
		}
		switch val {
		case Yes:
			h.Options.AlwaysRestart = true
		case Auto:
			h.Options.RestartIfNeededByRun = true
		}
	}

	if v.Value >= loader.Pack(5, 3, 7, 0) {
		p, err := binutil.ReadStoredEnum(r, []PrivilegeLevel{NoPrivileges, PowerUserPrivileges, AdminPrivileges, LowestPrivileges}, warn)
		if err != nil {
			return err
		}
		h.PrivilegesRequired = p
	} else if v.Value >= loader.Pack(3, 0, 4, 0) || (v.IsISX() && v.Value >= loader.Pack(3, 0, 3, 0)) {
		p, err := binutil.ReadStoredEnum(r, []PrivilegeLevel{NoPrivileges, PowerUserPrivileges, AdminPrivileges}, warn)
		if err != nil {
			return err
		}
		h.PrivilegesRequired = p
	}

	if v.Value >= loader.Pack(5, 7, 0, 0) {
		set, err := binutil.ReadStoredFlags(r, 2, 0, warn)
		if err != nil {
			return err
		}
		if set[0] {
			h.PrivilegesRequiredOverrideAllowed |= OverrideCommandline
		}
		if set[1] {
			h.PrivilegesRequiredOverrideAllowed |= OverrideDialog
		}
	}

	if v.Value >= loader.Pack(4, 0, 10, 0) {
		sld, err := binutil.ReadStoredEnum(r, []AutoBool{Yes, No, Auto}, warn)
		if err != nil {
			return err
		}
		h.ShowLanguageDialog = sld
		ld, err := binutil.ReadStoredEnum(r, []LanguageDetectionMethod{UILanguage, LocaleLanguage, NoLanguageDetection}, warn)
		if err != nil {
			return err
		}
		h.LanguageDetection = ld
	}

	switch {
	case v.Value >= loader.Pack(5, 3, 9, 0):
		c, err := binutil.ReadStoredEnum(r, []CompressionMethod{CompressionStored, CompressionZlib, CompressionBZip2, CompressionLZMA1, CompressionLZMA2}, warn)
		if err != nil {
			return err
		}
		h.Compression = c
	case v.Value >= loader.Pack(4, 2, 6, 0):
		c, err := binutil.ReadStoredEnum(r, []CompressionMethod{CompressionStored, CompressionZlib, CompressionBZip2, CompressionLZMA1}, warn)
		if err != nil {
			return err
		}
		h.Compression = c
	case v.Value >= loader.Pack(4, 2, 5, 0):
		c, err := binutil.ReadStoredEnum(r, []CompressionMethod{CompressionStored, CompressionBZip2, CompressionLZMA1}, warn)
		if err != nil {
			return err
		}
		h.Compression = c
	case v.Value >= loader.Pack(4, 1, 5, 0):
		c, err := binutil.ReadStoredEnum(r, []CompressionMethod{CompressionZlib, CompressionBZip2, CompressionLZMA1}, warn)
		if err != nil {
			return err
		}
		h.Compression = c
	}

	if v.Value >= loader.Pack(5, 6, 0, 0) {
		a, err := readArchitectures(r, 5, warn)
		if err != nil {
			return err
		}
		h.ArchitecturesAllowed = a
		a, err = readArchitectures(r, 5, warn)
		if err != nil {
			return err
		}
		h.ArchitecturesInstalledIn64BitMode = a
	} else if v.Value >= loader.Pack(5, 1, 0, 0) {
		a, err := readArchitectures(r, 4, warn)
		if err != nil {
			return err
		}
		h.ArchitecturesAllowed = a
		a, err = readArchitectures(r, 4, warn)
		if err != nil {
			return err
		}
		h.ArchitecturesInstalledIn64BitMode = a
	} else {
		h.ArchitecturesAllowed = ArchX86 | ArchAmd64 | ArchIA64
		h.ArchitecturesInstalledIn64BitMode = ArchX86 | ArchAmd64 | ArchIA64
	}

	if v.Value >= loader.Pack(5, 2, 1, 0) && v.Value < loader.Pack(5, 3, 10, 0) {
		sz, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.SignedUninstallerOriginalSize = sz
		sum, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.SignedUninstallerHeaderChecksum = sum
	}

	if v.Value >= loader.Pack(5, 3, 3, 0) {
		d1, err := binutil.ReadStoredEnum(r, []AutoBool{Auto, No, Yes}, warn)
		if err != nil {
			return err
		}
		h.DisableDirPage = d1
		d2, err := binutil.ReadStoredEnum(r, []AutoBool{Auto, No, Yes}, warn)
		if err != nil {
			return err
		}
		h.DisableProgramGroupPage = d2
	}

	switch {
	case v.Value >= loader.Pack(5, 5, 0, 0):
		sz, err := binutil.ReadU64(r)
		if err != nil {
			return err
		}
		h.UninstallDisplaySize = sz
	case v.Value >= loader.Pack(5, 3, 6, 0):
		sz, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		h.UninstallDisplaySize = uint64(sz)
	}

	if v.Value == loader.Pack(5, 4, 2, 1) || v.Value == loader.Pack(5, 5, 0, 1) {
		// A rare variant (reportedly BlackBox) reuses the 5.4.2/5.5.0
		// banner with one extra byte spliced in here; skip it.
		if _, err := binutil.ReadU8(r); err != nil {
			return err
		}
	}

	fr := binutil.NewFlagReader(r, warn)
	h.Options.DisableStartupPrompt = fr.Add()
	if v.Value < loader.Pack(5, 3, 10, 0) {
		h.Options.Uninstallable = fr.Add()
	}
	h.Options.CreateAppDir = fr.Add()
	if v.Value < loader.Pack(5, 3, 3, 0) {
		h.Options.DisableDirPage = fr.Add()
	}
	if v.Value < loader.Pack(1, 3, 6, 0) {
		h.Options.DisableDirExistsWarning = fr.Add()
	}
	if v.Value < loader.Pack(5, 3, 3, 0) {
		h.Options.DisableProgramGroupPage = fr.Add()
	}
	h.Options.AllowNoIcons = fr.Add()
	if v.Value < loader.Pack(3, 0, 0, 0) || v.Value >= loader.Pack(3, 0, 3, 0) {
		h.Options.AlwaysRestart = fr.Add()
	}
	if v.Value < loader.Pack(1, 3, 3, 0) {
		h.Options.BackSolid = fr.Add()
	}
	h.Options.AlwaysUsePersonalGroup = fr.Add()
	h.Options.WindowVisible = fr.Add()
	h.Options.WindowShowCaption = fr.Add()
	h.Options.WindowResizable = fr.Add()
	h.Options.WindowStartMaximized = fr.Add()
	h.Options.EnableDirDoesntExistWarning = fr.Add()
	if v.Value < loader.Pack(4, 1, 2, 0) {
		h.Options.DisableAppendDir = fr.Add()
	}
	h.Options.Password = fr.Add()
	if v.Value >= loader.Pack(1, 2, 6, 0) {
		h.Options.AllowRootDirectory = fr.Add()
	}
	if v.Value >= loader.Pack(1, 2, 14, 0) {
		h.Options.DisableFinishedPage = fr.Add()
	}
	if bits != 16 {
		if v.Value < loader.Pack(3, 0, 4, 0) {
			h.Options.AdminPrivilegesRequired = fr.Add()
		}
		if v.Value < loader.Pack(3, 0, 0, 0) {
			h.Options.AlwaysCreateUninstallIcon = fr.Add()
		}
		if v.Value < loader.Pack(1, 3, 6, 0) {
			h.Options.OverwriteUninstRegEntries = fr.Add()
		}
		if v.Value < loader.Pack(5, 6, 1, 0) {
			h.Options.ChangesAssociations = fr.Add()
		}
	}
	if v.Value >= loader.Pack(1, 3, 0, 0) && v.Value < loader.Pack(5, 3, 8, 0) {
		h.Options.CreateUninstallRegKey = fr.Add()
	}
	if v.Value >= loader.Pack(1, 3, 1, 0) {
		h.Options.UsePreviousAppDir = fr.Add()
	}
	if v.Value >= loader.Pack(1, 3, 3, 0) {
		h.Options.BackColorHorizontal = fr.Add()
	}
	if v.Value >= loader.Pack(1, 3, 10, 0) {
		h.Options.UsePreviousGroup = fr.Add()
	}
	if v.Value >= loader.Pack(1, 3, 20, 0) {
		h.Options.UpdateUninstallLogAppName = fr.Add()
	}
	if v.Value >= loader.Pack(2, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(1, 3, 10, 0)) {
		h.Options.UsePreviousSetupType = fr.Add()
	}
	if v.Value >= loader.Pack(2, 0, 0, 0) {
		h.Options.DisableReadyMemo = fr.Add()
		h.Options.AlwaysShowComponentsList = fr.Add()
		h.Options.FlatComponentsList = fr.Add()
		h.Options.ShowComponentSizes = fr.Add()
		h.Options.UsePreviousTasks = fr.Add()
		h.Options.DisableReadyPage = fr.Add()
	}
	if v.Value >= loader.Pack(2, 0, 7, 0) {
		h.Options.AlwaysShowDirOnReadyPage = fr.Add()
		h.Options.AlwaysShowGroupOnReadyPage = fr.Add()
	}
	if v.Value >= loader.Pack(2, 0, 17, 0) && v.Value < loader.Pack(4, 1, 5, 0) {
		h.Options.BzipUsed = fr.Add()
	}
	if v.Value >= loader.Pack(2, 0, 18, 0) {
		h.Options.AllowUNCPath = fr.Add()
	}
	if v.Value >= loader.Pack(3, 0, 0, 0) {
		h.Options.UserInfoPage = fr.Add()
		h.Options.UsePreviousUserInfo = fr.Add()
	}
	if v.Value >= loader.Pack(3, 0, 1, 0) {
		h.Options.UninstallRestartComputer = fr.Add()
	}
	if v.Value >= loader.Pack(3, 0, 3, 0) {
		h.Options.RestartIfNeededByRun = fr.Add()
	}
	if v.Value >= loader.Pack(4, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(3, 0, 3, 0)) {
		h.Options.ShowTasksTreeLines = fr.Add()
	}
	if v.Value >= loader.Pack(4, 0, 0, 0) && v.Value < loader.Pack(4, 0, 10, 0) {
		h.Options.ShowLanguageDialog = fr.Add()
	}
	if v.Value >= loader.Pack(4, 0, 1, 0) && v.Value < loader.Pack(4, 0, 10, 0) {
		h.Options.DetectLanguageUsingLocale = fr.Add()
	}
	if v.Value >= loader.Pack(4, 0, 9, 0) {
		h.Options.AllowCancelDuringInstall = fr.Add()
	} else {
		h.Options.AllowCancelDuringInstall = true
	}
	if v.Value >= loader.Pack(4, 1, 3, 0) {
		h.Options.WizardImageStretch = fr.Add()
	}
	if v.Value >= loader.Pack(4, 1, 8, 0) {
		h.Options.AppendDefaultDirName = fr.Add()
		h.Options.AppendDefaultGroupName = fr.Add()
	}
	if v.Value >= loader.Pack(4, 2, 2, 0) {
		h.Options.EncryptionUsed = fr.Add()
	}
	if v.Value >= loader.Pack(5, 0, 4, 0) && v.Value < loader.Pack(5, 6, 1, 0) {
		h.Options.ChangesEnvironment = fr.Add()
	}
	if v.Value >= loader.Pack(5, 1, 7, 0) && !v.IsUnicode() {
		h.Options.ShowUndisplayableLanguages = fr.Add()
	}
	if v.Value >= loader.Pack(5, 1, 13, 0) {
		h.Options.SetupLogging = fr.Add()
	}
	if v.Value >= loader.Pack(5, 2, 1, 0) {
		h.Options.SignedUninstaller = fr.Add()
	}
	if v.Value >= loader.Pack(5, 3, 8, 0) {
		h.Options.UsePreviousLanguage = fr.Add()
	}
	if v.Value >= loader.Pack(5, 3, 9, 0) {
		h.Options.DisableWelcomePage = fr.Add()
	}
	if v.Value >= loader.Pack(5, 5, 0, 0) {
		h.Options.CloseApplications = fr.Add()
		h.Options.RestartApplications = fr.Add()
		h.Options.AllowNetworkDrive = fr.Add()
	} else {
		h.Options.AllowNetworkDrive = true
	}
	if v.Value >= loader.Pack(5, 5, 7, 0) {
		h.Options.ForceCloseApplications = fr.Add()
	}
	if v.Value >= loader.Pack(6, 0, 0, 0) {
		h.Options.AppNameHasConsts = fr.Add()
		h.Options.UsePreviousPrivileges = fr.Add()
		h.Options.WizardResizable = fr.Add()
	}
	if err := fr.Finish(); err != nil {
		return err
	}

	if v.Value < loader.Pack(3, 0, 4, 0) {
		if h.Options.AdminPrivilegesRequired {
			h.PrivilegesRequired = AdminPrivileges
		} else {
			h.PrivilegesRequired = NoPrivileges
		}
	}
	if v.Value < loader.Pack(4, 0, 10, 0) {
		if h.Options.ShowLanguageDialog {
			h.ShowLanguageDialog = Yes
		} else {
			h.ShowLanguageDialog = No
		}
		if h.Options.DetectLanguageUsingLocale {
			h.LanguageDetection = LocaleLanguage
		} else {
			h.LanguageDetection = UILanguage
		}
	}
	if v.Value < loader.Pack(4, 1, 5, 0) {
		if h.Options.BzipUsed {
			h.Compression = CompressionBZip2
		} else {
			h.Compression = CompressionZlib
		}
	}
	if v.Value < loader.Pack(5, 3, 3, 0) {
		if h.Options.DisableDirPage {
			h.DisableDirPage = Yes
		} else {
			h.DisableDirPage = No
		}
		if h.Options.DisableProgramGroupPage {
			h.DisableProgramGroupPage = Yes
		} else {
			h.DisableProgramGroupPage = No
		}
	}

	if v.Value < loader.Pack(1, 3, 0, 0) {
		if licenseSize > 0 {
			b := make([]byte, licenseSize)
			if _, err := io.ReadFull(r, b); err != nil {
				return err
			}
			h.LicenseText = b
		}
		if infoBeforeSize > 0 {
			b := make([]byte, infoBeforeSize)
			if _, err := io.ReadFull(r, b); err != nil {
				return err
			}
			h.InfoBefore = b
		}
		if infoAfterSize > 0 {
			b := make([]byte, infoAfterSize)
			if _, err := io.ReadFull(r, b); err != nil {
				return err
			}
			h.InfoAfter = b
		}
	}

	return nil
}

func readArchitectures(r io.Reader, numFlags int, warn binutil.WarnFunc) (Architecture, error) {
	set, err := binutil.ReadStoredFlags(r, numFlags, 0, warn)
	if err != nil {
		return 0, err
	}
	var a Architecture
	bits := []Architecture{ArchUnknown, ArchX86, ArchAmd64, ArchIA64, ArchARM64}
	for i, on := range set {
		if on && i < len(bits) {
			a |= bits[i]
		}
	}
	return a, nil
}

func putLE32(dst []byte, v uint32) {
	dst[0] = byte(v)
	dst[1] = byte(v >> 8)
	dst[2] = byte(v >> 16)
	dst[3] = byte(v >> 24)
}
