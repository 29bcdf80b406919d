// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package binutil

import (
	"io"
	"math/bits"
)

// WarnFunc receives a message for an out-of-range stored enum index or
// stored flag bit; passed in rather than imported so binutil stays
// dependency-free.
type WarnFunc func(format string, args ...interface{})

// ReadStoredEnum reads one byte and maps it through table. An index outside
// table's range is a non-fatal record-parser-level warning: warn is called
// and the zero value of T is returned instead of failing the whole parse.
func ReadStoredEnum[T any](r io.Reader, table []T, warn WarnFunc) (T, error) {
	var zero T
	idx, err := ReadU8(r)
	if err != nil {
		return zero, err
	}
	if int(idx) >= len(table) {
		if warn != nil {
			warn("stored enum index %d out of range (table has %d entries), using default", idx, len(table))
		}
		return zero, nil
	}
	return table[idx], nil
}

// ReadStoredFlags reads ceil(numFlags/8) bytes (rounded up to a 4th byte
// for a 3-byte bitfield, unless padBits==16, matching the on-disk historical
// layout) and returns numFlags booleans, one per flag, true where its bit
// was set. Bits beyond numFlags are warned about and ignored.
func ReadStoredFlags(r io.Reader, numFlags int, padBits int, warn WarnFunc) ([]bool, error) {
	nbytes := (numFlags + 7) / 8
	if nbytes == 3 && padBits != 16 {
		nbytes = 4
	}
	raw := make([]byte, nbytes)
	if _, err := io.ReadFull(r, raw); err != nil {
		return nil, wrap(err)
	}

	set := make([]bool, numFlags)
	for i := 0; i < numFlags; i++ {
		byteIdx := i / 8
		bitIdx := uint(i % 8)
		if byteIdx >= len(raw) {
			continue
		}
		if raw[byteIdx]&(1<<bitIdx) != 0 {
			set[i] = true
		}
	}

	// Detect set bits beyond numFlags (within the bytes actually read).
	for byteIdx, b := range raw {
		base := byteIdx * 8
		if base >= numFlags {
			if b != 0 && warn != nil {
				warn("stored flags: bits set beyond known flag count in byte %d", byteIdx)
			}
			continue
		}
		maxBit := numFlags - base
		if maxBit >= 8 {
			continue
		}
		overflow := b &^ byte(1<<uint(maxBit)-1)
		if overflow != 0 && warn != nil {
			warn("stored flags: bit(s) %v set beyond known flag count", bits.TrailingZeros8(overflow))
		}
	}

	return set, nil
}

// FlagReader is the incremental variant used when the set of historically
// stored flags depends on version: callers repeatedly call Add() in
// on-disk bit order (each wrapped in its own version gate by the caller),
// and the reader lazily pulls bytes from r as bits are consumed.
type FlagReader struct {
	r        io.Reader
	warn     WarnFunc
	padBits  int
	cur      byte
	bitPos   int
	nbits    int
	nbytes   int
	results  []bool
	err      error
}

// NewFlagReader starts an incremental stored-flags read over r, using the
// default 32-bit padding rule (a 3-byte run of flags is padded to 4 bytes).
func NewFlagReader(r io.Reader, warn WarnFunc) *FlagReader {
	return NewFlagReaderBits(r, warn, 32)
}

// NewFlagReaderBits is NewFlagReader with an explicit target bitness: on
// 16-bit builds a 3-byte run of flags is not padded, matching the on-disk
// layout file_entry's flag set uses.
func NewFlagReaderBits(r io.Reader, warn WarnFunc, bits int) *FlagReader {
	return &FlagReader{r: r, warn: warn, padBits: bits, bitPos: 8}
}

// Add consumes the next on-disk bit and reports whether it was set. Once an
// error has occurred all further calls return false.
func (fr *FlagReader) Add() bool {
	if fr.err != nil {
		return false
	}
	if fr.bitPos == 8 {
		b, err := ReadU8(fr.r)
		if err != nil {
			fr.err = err
			return false
		}
		fr.cur = b
		fr.bitPos = 0
		fr.nbytes++
	}
	set := fr.cur&(1<<uint(fr.bitPos)) != 0
	fr.bitPos++
	fr.nbits++
	fr.results = append(fr.results, set)
	return set
}

// Err returns the first error encountered while pulling bytes.
func (fr *FlagReader) Err() error { return fr.err }

// Finish reports any trailing bits beyond what Add was asked to decode —
// those would indicate a version-gate bug in the caller, not attacker
// input, so it is only a warning — and consumes the historical pad byte
// when exactly 3 bytes of flags were read on a 32-bit-padded target (Inno
// Setup pads a 3-byte bitfield out to 4 bytes).
func (fr *FlagReader) Finish() error {
	if fr.err != nil {
		return fr.err
	}
	if fr.bitPos != 0 && fr.bitPos != 8 {
		remaining := fr.cur >> uint(fr.bitPos)
		if remaining != 0 && fr.warn != nil {
			fr.warn("stored flag reader: unread bits remaining in final byte")
		}
	}
	if fr.nbytes == 3 && fr.padBits == 32 {
		if _, err := ReadU8(fr.r); err != nil {
			return err
		}
	}
	return nil
}
