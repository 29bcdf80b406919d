// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"bytes"
	"testing"
)

// unknownVersionBanner is a syntactically valid but uncatalogued modern
// version banner, padded to the 64-byte field loader.ReadVersion expects.
func unknownVersionBanner(t *testing.T) []byte {
	t.Helper()
	text := "Inno Setup Setup Data (9.9.9)"
	banner := make([]byte, 64)
	copy(banner, text)
	return banner
}

func TestInfoLoadRejectsUnknownVersionWhenStrict(t *testing.T) {
	raw := unknownVersionBanner(t)

	var info Info
	err := info.Load(bytes.NewReader(raw), Options{NoUnknownVersion: true})
	if err == nil {
		t.Fatalf("expected NoUnknownVersion to reject an uncatalogued version banner")
	}
}

func TestInfoLoadToleratesUnknownVersionByDefault(t *testing.T) {
	raw := unknownVersionBanner(t)

	var info Info
	err := info.Load(bytes.NewReader(raw), Options{})
	// Without a header block following the banner, parsing still fails --
	// but it must fail trying to read the header, not on the version check
	// itself, and it must have recorded the guessed version.
	if err == nil {
		t.Fatalf("expected an error reading past the banner with no header block present")
	}
	if info.Version.Known {
		t.Errorf("expected Version.Known = false for an uncatalogued banner")
	}
}
