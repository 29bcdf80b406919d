// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/saferwall/innoextract/checksum"
	"github.com/saferwall/innoextract/loader"
)

// headerV200Builder lays out a Header record exactly as version 2.0.0 (the
// non-Unicode, non-ISX, 32-bit banner) stores it, field by field in on-disk
// order, so the fixture doubles as a trace through Header.Load's version
// gates rather than a black box.
type headerV200Builder struct {
	buf bytes.Buffer
}

func (b *headerV200Builder) str(s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	b.buf.Write(n[:])
	b.buf.WriteString(s)
}

func (b *headerV200Builder) u8(v byte)   { b.buf.WriteByte(v) }
func (b *headerV200Builder) u16(v uint16) {
	var n [2]byte
	binary.LittleEndian.PutUint16(n[:], v)
	b.buf.Write(n[:])
}
func (b *headerV200Builder) u32(v uint32) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], v)
	b.buf.Write(n[:])
}
func (b *headerV200Builder) s32(v int32) { b.u32(uint32(v)) }

func buildHeaderV200(t *testing.T) []byte {
	t.Helper()
	var b headerV200Builder

	b.str("My App")          // AppName
	b.str("My App 1.0")      // AppVersionedName
	b.str("{MY-APP-GUID}")   // AppID
	b.str("(c) Acme")        // AppCopyright
	b.str("Acme Inc")        // AppPublisher
	b.str("https://acme.example") // AppPublisherURL
	b.str("https://acme.example/support") // AppSupportURL
	b.str("https://acme.example/updates") // AppUpdatesURL
	b.str("1.0")              // AppVersion
	b.str("{pf}\\My App")     // DefaultDirName
	b.str("My App")           // DefaultGroupName
	b.str("")                 // uninstall_icon_name, ANSI-only, dropped
	b.str("setup.exe")        // BaseFilename
	b.str("license text")     // LicenseText
	b.str("before text")      // InfoBefore
	b.str("after text")       // InfoAfter
	b.str("{app}")            // UninstallFilesDir
	b.str("My App Uninstall") // UninstallName
	b.str("{app}\\unins000.ico") // UninstallIcon
	b.str("MyAppMutex")       // AppMutex

	b.u32(2) // TypeCount
	b.u32(3) // ComponentCount
	b.u32(1) // TaskCount

	b.u32(4)  // DirectoryCount
	b.u32(5)  // FileCount
	b.u32(5)  // DataEntryCount
	b.u32(0)  // IconCount
	b.u32(0)  // IniEntryCount
	b.u32(0)  // RegistryEntryCount
	b.u32(0)  // DeleteEntryCount
	b.u32(0)  // UninstallDeleteEntryCount
	b.u32(0)  // RunEntryCount
	b.u32(0)  // UninstallRunEntryCount

	// WindowsVersion: Win{build,minor,major}, NT{build,minor,major}, service pack{minor,major}
	b.u16(0)  // Win.Build
	b.u8(0)   // Win.Minor
	b.u8(4)   // Win.Major
	b.u16(0)  // NT.Build
	b.u8(0)   // NT.Minor
	b.u8(4)   // NT.Major
	b.u8(0)   // NTServicePack.Minor
	b.u8(0)   // NTServicePack.Major

	b.u32(0x00112233) // BackColor
	b.u32(0x00445566)  // BackColor2
	b.u32(0x00778899)  // ImageBackColor
	b.u32(0x00AABBCC)  // SmallImageBackColor

	b.u32(0xDEADBEEF) // Password sum (CRC32-kind, pre-4.2.0 encoding)

	b.s32(1024) // ExtraDiskSpaceRequired

	b.u8(2) // InstallMode -> VerySilentInstallMode
	b.u8(1) // UninstallLogMode -> NewLog
	b.u8(1) // UninstallStyle -> ModernStyle
	b.u8(2) // DirExistsWarning -> Yes

	// Flag bytes, LSB-first bit order matching fr.Add() call order.
	b.u8(0x05) // byte1: DisableStartupPrompt(b0), CreateAppDir(b2)
	b.u8(0x03) // byte2: WindowVisible(b0), WindowShowCaption(b1)
	b.u8(0x02) // byte3: AdminPrivilegesRequired(b1)
	b.u8(0x00) // byte4: nothing set

	return b.buf.Bytes()
}

func TestHeaderLoadV200FieldsAndDerivedValues(t *testing.T) {
	raw := buildHeaderV200(t)
	v := loader.Version{Value: loader.Pack(2, 0, 0, 0)}

	var h Header
	if err := h.Load(bytes.NewReader(raw), v, nil); err != nil {
		t.Fatalf("Header.Load: %v", err)
	}

	if string(h.AppName) != "My App" {
		t.Errorf("AppName = %q, want %q", h.AppName, "My App")
	}
	if string(h.BaseFilename) != "setup.exe" {
		t.Errorf("BaseFilename = %q, want %q", h.BaseFilename, "setup.exe")
	}
	if h.TypeCount != 2 || h.ComponentCount != 3 || h.TaskCount != 1 {
		t.Errorf("counts = (%d,%d,%d), want (2,3,1)", h.TypeCount, h.ComponentCount, h.TaskCount)
	}
	if h.FileCount != 5 || h.DataEntryCount != 5 || h.DirectoryCount != 4 {
		t.Errorf("record counts = (%d,%d,%d), want (5,5,4)", h.FileCount, h.DataEntryCount, h.DirectoryCount)
	}
	if h.BackColor != 0x00112233 {
		t.Errorf("BackColor = %#x, want %#x", h.BackColor, 0x00112233)
	}
	if h.ExtraDiskSpaceRequired != 1024 {
		t.Errorf("ExtraDiskSpaceRequired = %d, want 1024", h.ExtraDiskSpaceRequired)
	}
	if h.SlicesPerDisk != 1 {
		t.Errorf("SlicesPerDisk = %d, want 1 (pre-4.0.0 default)", h.SlicesPerDisk)
	}

	if h.Password.Kind != checksum.CRC32 {
		t.Errorf("Password.Kind = %v, want CRC32 (pre-4.2.0 encoding)", h.Password.Kind)
	}
	wantSum := []byte{0xEF, 0xBE, 0xAD, 0xDE}
	if !bytes.Equal(h.Password.Bytes[:4], wantSum) {
		t.Errorf("Password.Bytes[:4] = %x, want %x", h.Password.Bytes[:4], wantSum)
	}

	if h.InstallMode != VerySilentInstallMode {
		t.Errorf("InstallMode = %v, want VerySilentInstallMode", h.InstallMode)
	}
	if h.UninstallLogMode != NewLog {
		t.Errorf("UninstallLogMode = %v, want NewLog", h.UninstallLogMode)
	}
	if h.UninstallStyle != ModernStyle {
		t.Errorf("UninstallStyle = %v, want ModernStyle", h.UninstallStyle)
	}
	if h.DirExistsWarning != Yes {
		t.Errorf("DirExistsWarning = %v, want Yes", h.DirExistsWarning)
	}

	if !h.Options.DisableStartupPrompt || !h.Options.CreateAppDir {
		t.Errorf("expected DisableStartupPrompt and CreateAppDir flags set")
	}
	if !h.Options.WindowVisible || !h.Options.WindowShowCaption {
		t.Errorf("expected WindowVisible and WindowShowCaption flags set")
	}
	if h.Options.DisableDirPage || h.Options.DisableProgramGroupPage {
		t.Errorf("expected DisableDirPage/DisableProgramGroupPage flags clear")
	}

	// Fields this version never stores on disk derive entirely from flags
	// and version gates rather than being read.
	if h.Compression != CompressionZlib {
		t.Errorf("Compression = %v, want CompressionZlib (derived default pre-4.1.5, BzipUsed unset)", h.Compression)
	}
	if h.ArchitecturesAllowed != ArchX86|ArchAmd64|ArchIA64 {
		t.Errorf("ArchitecturesAllowed = %v, want the pre-5.1.0 default mask", h.ArchitecturesAllowed)
	}
	if !h.Options.AdminPrivilegesRequired {
		t.Errorf("expected AdminPrivilegesRequired flag set")
	}
	if h.PrivilegesRequired != AdminPrivileges {
		t.Errorf("PrivilegesRequired = %v, want AdminPrivileges (derived from AdminPrivilegesRequired pre-3.0.4)", h.PrivilegesRequired)
	}
	if h.ShowLanguageDialog != No {
		t.Errorf("ShowLanguageDialog = %v, want No (derived default pre-4.0.10)", h.ShowLanguageDialog)
	}
	if h.LanguageDetection != UILanguage {
		t.Errorf("LanguageDetection = %v, want UILanguage (derived default pre-4.0.10)", h.LanguageDetection)
	}
	if h.DisableDirPage != No || h.DisableProgramGroupPage != No {
		t.Errorf("DisableDirPage/DisableProgramGroupPage = (%v,%v), want (No,No) (derived pre-5.3.3)", h.DisableDirPage, h.DisableProgramGroupPage)
	}
	if h.LanguageCount != 0 {
		t.Errorf("LanguageCount = %d, want 0 (2.0.0 is below 2.0.1, the first version with one implied language)", h.LanguageCount)
	}
}

func TestHeaderLoadRejectsTruncatedStream(t *testing.T) {
	raw := buildHeaderV200(t)
	v := loader.Version{Value: loader.Pack(2, 0, 0, 0)}

	var h Header
	err := h.Load(bytes.NewReader(raw[:len(raw)-20]), v, nil)
	if err == nil {
		t.Fatalf("expected an error loading a truncated header stream")
	}
}
