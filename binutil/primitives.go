// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package binutil provides the version-independent fixed-width and
// length-prefixed readers every other package builds on: little-endian
// integers, booleans, length-prefixed binary strings, stored enums and
// stored flag bitsets. None of these perform read-ahead beyond what is
// requested, since callers rely on streams that cannot be seeked back on.
package binutil

import (
	"errors"
	"fmt"
	"io"
)

// ErrShortRead is returned when a stream ends before a declared length is
// fully consumed. Per the container's invariant, this is always fatal to
// the caller — a length-prefixed field cannot be partially read.
var ErrShortRead = errors.New("binutil: unexpected end of stream")

// binaryStringChunkSize bounds how much memory load_binary_string buffers
// at once while draining a declared-length payload.
const binaryStringChunkSize = 10 * 1024

// ReadU8 reads one byte.
func ReadU8(r io.Reader) (uint8, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, wrap(err)
	}
	return b[0], nil
}

// ReadS8 reads one signed byte.
func ReadS8(r io.Reader) (int8, error) {
	v, err := ReadU8(r)
	return int8(v), err
}

// ReadU16 reads a little-endian uint16.
func ReadU16(r io.Reader) (uint16, error) {
	var b [2]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, wrap(err)
	}
	return uint16(b[0]) | uint16(b[1])<<8, nil
}

// ReadS16 reads a little-endian int16.
func ReadS16(r io.Reader) (int16, error) {
	v, err := ReadU16(r)
	return int16(v), err
}

// ReadU32 reads a little-endian uint32.
func ReadU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, wrap(err)
	}
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24, nil
}

// ReadS32 reads a little-endian int32.
func ReadS32(r io.Reader) (int32, error) {
	v, err := ReadU32(r)
	return int32(v), err
}

// ReadU64 reads a little-endian uint64.
func ReadU64(r io.Reader) (uint64, error) {
	var b [8]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, wrap(err)
	}
	var v uint64
	for i := 7; i >= 0; i-- {
		v = v<<8 | uint64(b[i])
	}
	return v, nil
}

// ReadS64 reads a little-endian int64.
func ReadS64(r io.Reader) (int64, error) {
	v, err := ReadU64(r)
	return int64(v), err
}

// ReadSizedUint32 reads a count or size field whose width depends on the
// target's bitness: 16-bit Inno Setup builds store these as a uint16,
// zero-extended, while 32-bit builds store the full uint32.
func ReadSizedUint32(r io.Reader, bits int) (uint32, error) {
	if bits == 16 {
		v, err := ReadU16(r)
		return uint32(v), err
	}
	return ReadU32(r)
}

// ReadSizedInt32 is the signed equivalent of ReadSizedUint32: a 16-bit
// build stores the value as a sign-extended int16.
func ReadSizedInt32(r io.Reader, bits int) (int32, error) {
	if bits == 16 {
		v, err := ReadS16(r)
		return int32(v), err
	}
	return ReadS32(r)
}

// ReadBool reads one byte; any non-zero value is true.
func ReadBool(r io.Reader) (bool, error) {
	v, err := ReadU8(r)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func wrap(err error) error {
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return ErrShortRead
	}
	return fmt.Errorf("binutil: %w", err)
}

// ReadBinaryString reads a u32 length prefix followed by that many raw
// bytes, copied in bounded chunks so a corrupt or hostile length field
// cannot force an unbounded allocation.
func ReadBinaryString(r io.Reader) ([]byte, error) {
	n, err := ReadU32(r)
	if err != nil {
		return nil, err
	}
	buf := make([]byte, 0, min64(uint64(n), binaryStringChunkSize))
	remaining := uint64(n)
	chunk := make([]byte, binaryStringChunkSize)
	for remaining > 0 {
		want := chunk
		if remaining < uint64(len(chunk)) {
			want = chunk[:remaining]
		}
		if _, err := io.ReadFull(r, want); err != nil {
			return nil, wrap(err)
		}
		buf = append(buf, want...)
		remaining -= uint64(len(want))
	}
	return buf, nil
}

func min64(a, b uint64) uint64 {
	if a < b {
		return a
	}
	return b
}
