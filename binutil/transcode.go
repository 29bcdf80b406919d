// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package binutil

import "io"

// Transcoder converts bytes in some single- or double-byte codepage into
// UTF-8. Full codepage transcoding is left to an external collaborator —
// this package only declares the boundary and a couple of trivial built-ins
// (ASCII and UTF-16LE, which are not really "transcoding" so much as a fixed
// reinterpretation) so callers aren't forced to bring one in for the
// Unicode-variant case.
type Transcoder interface {
	// ToUTF8 decodes b (in the transcoder's codepage) to UTF-8.
	ToUTF8(b []byte) (string, error)
}

// ASCIITranscoder passes bytes through unchanged; used when no real
// codepage is known yet (e.g. before the Language vector has been read).
type ASCIITranscoder struct{}

// ToUTF8 implements Transcoder.
func (ASCIITranscoder) ToUTF8(b []byte) (string, error) { return string(b), nil }

// ReadEncodedString reads a length-prefixed binary string and decodes it
// via t. It takes no lead-byte set: any lead-byte handling is up to the
// Transcoder itself.
func ReadEncodedString(r io.Reader, t Transcoder) (string, error) {
	raw, err := ReadBinaryString(r)
	if err != nil {
		return "", err
	}
	if len(raw) == 0 {
		return "", nil
	}
	return t.ToUTF8(raw)
}

// LeadByteSet is the 256-bit set of lead-byte values for a double-byte
// codepage, stored as two uint64 halves would be wasteful to index; a plain
// bool array is simplest and this is rebuilt at most once per Language
// record.
type LeadByteSet [256]bool

// Set marks b as a lead byte.
func (s *LeadByteSet) Set(b byte) { s[b] = true }

// Contains reports whether b is a lead byte.
func (s LeadByteSet) Contains(b byte) bool { return s[b] }
