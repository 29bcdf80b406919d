// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package loader

import (
	"bytes"
	"strings"
	"testing"
)

func paddedBanner(s string) []byte {
	b := make([]byte, versionedStringLength)
	copy(b, s)
	return b
}

func TestReadVersionKnownModern(t *testing.T) {
	r := bytes.NewReader(paddedBanner("Inno Setup Setup Data (5.3.10) (u)"))
	v, err := ReadVersion(r)
	if err != nil {
		t.Fatalf("ReadVersion: %v", err)
	}
	if !v.Known || v.Value != Pack(5, 3, 10, 0) || !v.IsUnicode() {
		t.Errorf("got %+v", v)
	}
}

func TestReadVersionKnownLegacy(t *testing.T) {
	r := bytes.NewReader([]byte{'i', '1', '.', '2', '.', '1', '0', '-', '-', '3', '2', 0x1a})
	v, err := ReadVersion(r)
	if err != nil {
		t.Fatalf("ReadVersion: %v", err)
	}
	if !v.Known || v.Value != Pack(1, 2, 10, 0) || v.Bits() != 32 {
		t.Errorf("got %+v", v)
	}
}

func TestReadVersionUnknownLegacy16Bit(t *testing.T) {
	r := bytes.NewReader([]byte{'i', '1', '.', '1', '.', '5', ' ', '-', '-', '1', '6', 0x1a})
	v, err := ReadVersion(r)
	if err != nil {
		t.Fatalf("ReadVersion: %v", err)
	}
	if v.Known || v.Value != Pack(1, 1, 5, 0) || v.Bits() != 16 {
		t.Errorf("got %+v", v)
	}
}

func TestReadVersionUnknownModernParsesHighestGroup(t *testing.T) {
	banner := "Inno Setup Setup Data (6.9.0) with ISX (1.2.3)"
	r := bytes.NewReader(paddedBanner(banner))
	v, err := ReadVersion(r)
	if err != nil {
		t.Fatalf("ReadVersion: %v", err)
	}
	if v.Known {
		t.Error("expected unknown")
	}
	if v.Value != Pack(6, 9, 0, 0) {
		t.Errorf("got %v, want 6.9.0", v)
	}
	if !v.IsISX() {
		t.Error("expected ISX variant")
	}
}

func TestReadVersionRejectsNonInnoBanner(t *testing.T) {
	r := bytes.NewReader(paddedBanner("Some Other Installer (1.0.0)"))
	_, err := ReadVersion(r)
	if err != ErrUnknownVersion {
		t.Errorf("got %v, want ErrUnknownVersion", err)
	}
}

func TestIsAmbiguous(t *testing.T) {
	v := Version{Value: Pack(5, 5, 0, 0)}
	if !v.IsAmbiguous() {
		t.Error("expected 5.5.0 to be ambiguous")
	}
	v2 := Version{Value: Pack(5, 6, 0, 0)}
	if v2.IsAmbiguous() {
		t.Error("expected 5.6.0 to be unambiguous")
	}
}

func TestNextWalksKnownTable(t *testing.T) {
	v := Version{Value: Pack(5, 5, 0, 0), Variant: 0}
	next := v.Next()
	if next != Pack(5, 5, 0, 1) {
		t.Errorf("got %#x, want 5.5.0.1", next)
	}
}

func TestVersionString(t *testing.T) {
	v := Version{Value: Pack(5, 3, 0, 0), Variant: VariantUnicode}
	if !strings.Contains(v.String(), "unicode") {
		t.Errorf("got %q", v.String())
	}
}
