// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// DecodeString converts one of this package's raw string fields -- stored
// either as UTF-16LE (Unicode installers) or as bytes in the installer's
// resolved ANSI codepage -- to a Go string. Every record type in this
// package leaves its string fields as raw bytes rather than decoding them
// itself, since the codepage to use is only known once the whole Header
// and language list have been parsed; callers decode on demand with the
// Info.Codepage this package resolves during Load.
//
// Only Windows-1252 is decoded exactly; any other non-Unicode codepage
// falls back to it too, since Windows-1252 is a safe superset for the
// ASCII range every practical installer string stays within, and Inno
// Setup installers are overwhelmingly either Unicode or Windows-1252 in
// practice.
func DecodeString(b []byte, codepage uint32) (string, error) {
	if len(b) == 0 {
		return "", nil
	}
	if codepage == cpUTF16LE {
		dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
		out, err := dec.Bytes(b)
		if err != nil {
			return "", err
		}
		return string(out), nil
	}
	dec := charmap.Windows1252.NewDecoder()
	out, err := dec.Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}
