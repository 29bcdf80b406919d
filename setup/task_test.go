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

func buildTaskV538(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer

	strField(&buf, "desktopicon")               // Name
	strField(&buf, "Create a &desktop shortcut") // Description
	strField(&buf, "Additional icons:")          // GroupDescription
	strField(&buf, "main")                       // Components

	strField(&buf, "en")         // Languages (>=4.0.1)
	strField(&buf, "CheckFunc")  // Check (>=4.0.0)

	var level [4]byte
	binary.LittleEndian.PutUint32(level[:], 7)
	buf.Write(level[:]) // Level (>=4.0.0 -> s32)

	buf.WriteByte(1) // Used = true

	winVer := []byte{0, 0, 0, 4, 0, 0, 0, 4, 0, 0}
	buf.Write(winVer) // Begin
	buf.Write(winVer) // End

	// flags: Exclusive(b0), Unchecked(b1), Restart(b2, >=2.0.5), CheckedOnce(b3, >=2.0.6), DontInheritCheck(b4, >=4.2.3)
	buf.WriteByte(0x0A) // Unchecked(b1)=1, CheckedOnce(b3)=1

	return buf.Bytes()
}

func TestTaskEntryLoadV538(t *testing.T) {
	raw := buildTaskV538(t)
	v := loader.Version{Value: loader.Pack(5, 3, 8, 0)}

	var e TaskEntry
	if err := e.Load(bytes.NewReader(raw), v, nil); err != nil {
		t.Fatalf("TaskEntry.Load: %v", err)
	}

	if string(e.Name) != "desktopicon" {
		t.Errorf("Name = %q, want %q", e.Name, "desktopicon")
	}
	if string(e.Components) != "main" {
		t.Errorf("Components = %q, want %q", e.Components, "main")
	}
	if string(e.Languages) != "en" {
		t.Errorf("Languages = %q, want %q", e.Languages, "en")
	}
	if string(e.Check) != "CheckFunc" {
		t.Errorf("Check = %q, want %q", e.Check, "CheckFunc")
	}
	if e.Level != 7 {
		t.Errorf("Level = %d, want 7", e.Level)
	}
	if !e.Used {
		t.Errorf("Used = false, want true")
	}
	if e.Options.Exclusive {
		t.Errorf("expected Exclusive flag clear")
	}
	if !e.Options.Unchecked {
		t.Errorf("expected Unchecked flag set")
	}
	if e.Options.Restart {
		t.Errorf("expected Restart flag clear")
	}
	if !e.Options.CheckedOnce {
		t.Errorf("expected CheckedOnce flag set")
	}
	if e.Options.DontInheritCheck {
		t.Errorf("expected DontInheritCheck flag clear")
	}
}

func TestTaskEntryLoadPre205HasNoRestartFlag(t *testing.T) {
	var buf bytes.Buffer
	strField(&buf, "task1")
	strField(&buf, "desc")
	strField(&buf, "group")
	strField(&buf, "comp")
	// No Languages (< 4.0.1), no Check (< 4.0.0, non-ISX).
	// No Level, no Used (both < 4.0.0, non-ISX) -- Level stays 0, Used stays true.
	winVer := []byte{0, 0, 0, 4, 0, 0, 0, 4, 0, 0}
	buf.Write(winVer)
	buf.Write(winVer)
	// flags: only Exclusive, Unchecked exist at 2.0.0 (< 2.0.5 Restart, < 2.0.6 CheckedOnce, < 4.2.3 DontInheritCheck).
	buf.WriteByte(0x01) // Exclusive set

	v := loader.Version{Value: loader.Pack(2, 0, 0, 0)}
	var e TaskEntry
	if err := e.Load(&buf, v, nil); err != nil {
		t.Fatalf("TaskEntry.Load: %v", err)
	}

	if e.Level != 0 {
		t.Errorf("Level = %d, want 0 (not stored before 4.0.0)", e.Level)
	}
	if !e.Used {
		t.Errorf("Used = false, want true (default before 4.0.0)")
	}
	if !e.Options.Exclusive {
		t.Errorf("expected Exclusive flag set")
	}
	if e.Options.Restart {
		t.Errorf("expected Restart flag clear (not stored before 2.0.5)")
	}
	if e.Options.CheckedOnce {
		t.Errorf("expected CheckedOnce flag clear (not stored before 2.0.6)")
	}
}
