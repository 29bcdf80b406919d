// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/saferwall/innoextract/loader"
)

func strField(buf *bytes.Buffer, s string) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(s)))
	buf.Write(n[:])
	buf.WriteString(s)
}

func u64Field(buf *bytes.Buffer, v uint64) {
	var n [8]byte
	binary.LittleEndian.PutUint64(n[:], v)
	buf.Write(n[:])
}

func buildComponentV538(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	strField(&buf, "MainComp")               // Name
	strField(&buf, "Main application files") // Description
	strField(&buf, "full custom")            // Types
	strField(&buf, "en")                     // Languages (>=4.0.1)
	strField(&buf, "CheckFunc")               // Check (>=4.0.0)

	u64Field(&buf, 2048) // ExtraDiskSpaceRequired (>=4.0.0 -> u64)

	var level [4]byte
	binary.LittleEndian.PutUint32(level[:], 0) // Level = 0
	buf.Write(level[:])

	buf.WriteByte(1) // Used = true

	// WindowsVersionRange: Begin then End, each
	// {Win{build u16, minor u8, major u8}, NT{same}, ServicePack{minor u8, major u8}}.
	winVer := []byte{
		0, 0, 0, 4, // Win: build=0, minor=0, major=4
		0, 0, 0, 4, // NT: build=0, minor=0, major=4
		0, 0, // service pack minor, major
	}
	buf.Write(winVer) // Begin
	buf.Write(winVer) // End

	buf.WriteByte(0x09) // flags: Fixed(b0), Exclusive(b3)

	u64Field(&buf, 123456) // Size (>=4.0.0 -> u64)

	return buf.Bytes()
}

func TestComponentEntryLoadV538(t *testing.T) {
	raw := buildComponentV538(t)
	v := loader.Version{Value: loader.Pack(5, 3, 8, 0)}

	var c ComponentEntry
	if err := c.Load(bytes.NewReader(raw), v, nil); err != nil {
		t.Fatalf("ComponentEntry.Load: %v", err)
	}

	if string(c.Name) != "MainComp" {
		t.Errorf("Name = %q, want %q", c.Name, "MainComp")
	}
	if string(c.Languages) != "en" {
		t.Errorf("Languages = %q, want %q", c.Languages, "en")
	}
	if string(c.Check) != "CheckFunc" {
		t.Errorf("Check = %q, want %q", c.Check, "CheckFunc")
	}
	if c.ExtraDiskSpaceRequired != 2048 {
		t.Errorf("ExtraDiskSpaceRequired = %d, want 2048", c.ExtraDiskSpaceRequired)
	}
	if !c.Used {
		t.Errorf("Used = false, want true")
	}
	if !c.Options.Fixed {
		t.Errorf("expected Fixed flag set")
	}
	if c.Options.Restart {
		t.Errorf("expected Restart flag clear")
	}
	if !c.Options.Exclusive {
		t.Errorf("expected Exclusive flag set (version >= 3.0.8)")
	}
	if c.Options.DontInheritCheck {
		t.Errorf("expected DontInheritCheck flag clear")
	}
	if c.Size != 123456 {
		t.Errorf("Size = %d, want 123456", c.Size)
	}
}

func TestComponentEntryLoadPre400HasNoLanguagesOrCheck(t *testing.T) {
	var buf bytes.Buffer
	strField(&buf, "Comp1")
	strField(&buf, "desc")
	strField(&buf, "full")
	// No Languages (< 4.0.1), no Check (< 4.0.0, non-ISX).
	var size32 [4]byte
	binary.LittleEndian.PutUint32(size32[:], 512)
	buf.Write(size32[:]) // ExtraDiskSpaceRequired (< 4.0.0 -> u32)
	// No Level (< 4.0.0, non-ISX) -- stays 0.
	// No Used (< 4.0.0, non-ISX) -- stays true.
	winVer := []byte{0, 0, 0, 4, 0, 0, 0, 4, 0, 0}
	buf.Write(winVer)
	buf.Write(winVer)
	buf.WriteByte(0x00) // Fixed/Restart/DisableNoUninstallWarning all clear; no Exclusive (< 3.0.8), no DontInheritCheck (< 4.2.3)
	// No Size field: version is < 2.0.0, so neither the >=4.0.0 nor the
	// >=2.0.0 Size branch fires.

	v := loader.Version{Value: loader.Pack(1, 3, 24, 0)}
	var c ComponentEntry
	if err := c.Load(&buf, v, nil); err != nil {
		t.Fatalf("ComponentEntry.Load: %v", err)
	}

	if c.Languages != nil {
		t.Errorf("Languages = %q, want nil (not stored before 4.0.1)", c.Languages)
	}
	if c.Check != nil {
		t.Errorf("Check = %q, want nil (not stored before 4.0.0)", c.Check)
	}
	if c.Level != 0 {
		t.Errorf("Level = %d, want 0 (not stored before 4.0.0)", c.Level)
	}
	if !c.Used {
		t.Errorf("Used = false, want true (default before 4.0.0)")
	}
	if c.Size != 0 {
		t.Errorf("Size = %d, want 0 (not stored before 2.0.0)", c.Size)
	}
}
