// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package stream implements the three nested layers the container format
// reads installer payload through: a checksummed/compressed header-block
// stream (this file) carrying the setup headers and data entries, a chunk
// stream decompressing and decrypting one slice span at a time, and a file
// stream that limits, un-filters and verifies the bytes belonging to one
// recovered file.
package stream

import (
	"encoding/binary"
	"fmt"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/ulikunitz/xz/lzma"

	"github.com/saferwall/innoextract/checksum"
	"github.com/saferwall/innoextract/loader"
)

// headerBlockCompression is the tiny, fixed three-way compression scheme
// the checksummed header-block wrapper uses for the setup-header and
// data-entry streams. It predates, and is independent of, the richer
// CompressionMethod the chunk stream applies to the actual payload data.
type headerBlockCompression int

const (
	headerBlockStored headerBlockCompression = iota
	headerBlockZlib
	headerBlockLZMA1
)

// BlockError reports a problem with a header-block stream: a truncated
// sub-block, a CRC32 mismatch, or a malformed LZMA1 header.
type BlockError struct{ msg string }

func (e *BlockError) Error() string { return e.msg }

func blockErrorf(format string, args ...interface{}) error {
	return &BlockError{msg: fmt.Sprintf(format, args...)}
}

// NewHeaderBlockReader wraps base -- positioned directly at the start of a
// header-block stream -- and returns a reader for the decompressed,
// CRC32-verified bytes it contains. Two such streams follow each other in
// every installer: the first carries the main setup headers, the second
// the data entries.
func NewHeaderBlockReader(base io.Reader, v loader.Version) (io.Reader, error) {
	expectedCRC, err := readLEU32(base)
	if err != nil {
		return nil, err
	}

	var fields []byte
	readU32 := func() (uint32, error) {
		var b [4]byte
		if _, err := io.ReadFull(base, b[:]); err != nil {
			return 0, err
		}
		fields = append(fields, b[:]...)
		return binary.LittleEndian.Uint32(b[:]), nil
	}
	readU8 := func() (uint8, error) {
		var b [1]byte
		if _, err := io.ReadFull(base, b[:]); err != nil {
			return 0, err
		}
		fields = append(fields, b[:]...)
		return b[0], nil
	}

	var storedSize uint64
	var compression headerBlockCompression

	if v.Value >= loader.Pack(4, 0, 9, 0) {
		size, err := readU32()
		if err != nil {
			return nil, err
		}
		compressed, err := readU8()
		if err != nil {
			return nil, err
		}
		storedSize = uint64(size)
		switch {
		case compressed == 0:
			compression = headerBlockStored
		case v.Value >= loader.Pack(4, 1, 6, 0):
			compression = headerBlockLZMA1
		default:
			compression = headerBlockZlib
		}
	} else {
		compressedSize, err := readU32()
		if err != nil {
			return nil, err
		}
		uncompressedSize, err := readU32()
		if err != nil {
			return nil, err
		}
		if compressedSize == 0xFFFFFFFF {
			storedSize = uint64(uncompressedSize)
			compression = headerBlockStored
		} else {
			storedSize = uint64(compressedSize)
			compression = headerBlockZlib
		}
		// Each 4KiB (or partial, trailing) sub-block is preceded by its own
		// CRC32, folded into the size of the window we read from base.
		storedSize += ceilDiv(storedSize, 4096) * 4
	}

	if checksum.CRC32Of(fields) != expectedCRC {
		return nil, blockErrorf("header block CRC32 mismatch")
	}

	windowed := io.LimitReader(base, int64(storedSize))
	filtered := &blockFilterReader{src: windowed}

	switch compression {
	case headerBlockStored:
		return filtered, nil
	case headerBlockZlib:
		zr, err := zlib.NewReader(filtered)
		if err != nil {
			return nil, blockErrorf("invalid zlib header block: %v", err)
		}
		return zr, nil
	case headerBlockLZMA1:
		return newInnoLZMA1Reader(filtered)
	default:
		return nil, blockErrorf("unsupported header block compression")
	}
}

func ceilDiv(a, b uint64) uint64 { return (a + b - 1) / b }

func readLEU32(r io.Reader) (uint32, error) {
	var b [4]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b[:]), nil
}

// blockFilterReader strips and verifies the per-sub-block CRC32 a
// header-block stream interleaves with its (still possibly compressed)
// payload: a little-endian uint32 CRC32 followed by up to 4096 bytes,
// repeated until the underlying window is exhausted.
type blockFilterReader struct {
	src    io.Reader
	buf    [4096]byte
	pos    int
	length int
	err    error
}

func (b *blockFilterReader) Read(p []byte) (int, error) {
	n := 0
	for len(p) > 0 {
		if b.pos == b.length {
			if b.err != nil {
				return n, b.err
			}
			if !b.fill() {
				if n > 0 {
					return n, nil
				}
				return 0, b.err
			}
		}
		c := copy(p, b.buf[b.pos:b.length])
		b.pos += c
		p = p[c:]
		n += c
	}
	return n, nil
}

func (b *blockFilterReader) fill() bool {
	var crcBuf [4]byte
	if _, err := io.ReadFull(b.src, crcBuf[:]); err != nil {
		if err == io.EOF {
			b.err = io.EOF
		} else {
			b.err = blockErrorf("unexpected header block end: %v", err)
		}
		return false
	}
	expected := binary.LittleEndian.Uint32(crcBuf[:])

	n, err := io.ReadFull(b.src, b.buf[:])
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		b.err = blockErrorf("unexpected header block end: %v", err)
		return false
	}

	if checksum.CRC32Of(b.buf[:n]) != expected {
		b.err = blockErrorf("header block CRC32 mismatch")
		return false
	}

	b.pos, b.length = 0, n
	return true
}

// newInnoLZMA1Reader decodes the abbreviated LZMA1 stream header the
// container uses for header blocks: a one-byte (lc, lp, pb) properties
// triplet followed by a little-endian uint32 dictionary size, with no
// uncompressed-size field -- the stream simply runs to EOF.
func newInnoLZMA1Reader(r io.Reader) (io.Reader, error) {
	var hdr [5]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		return nil, blockErrorf("truncated LZMA1 header: %v", err)
	}

	rawProps := hdr[0]
	if rawProps > 9*5*5 {
		return nil, blockErrorf("invalid LZMA1 properties byte 0x%02x", rawProps)
	}
	pb := int(rawProps) / (9 * 5)
	lp := (int(rawProps) % (9 * 5)) / 9
	lc := int(rawProps) % 9

	dictSize := uint32(hdr[1]) | uint32(hdr[2])<<8 | uint32(hdr[3])<<16 | uint32(hdr[4])<<24
	if dictSize > 1<<28 {
		return nil, blockErrorf("LZMA1 dictionary size too large: %d", dictSize)
	}
	if dictSize < lzma.MinDictCap {
		dictSize = lzma.MinDictCap
	}

	props, err := lzma.NewProperties(lc, lp, pb)
	if err != nil {
		return nil, blockErrorf("invalid LZMA1 properties: %v", err)
	}

	cfg := lzma.ReaderConfig{
		DictCap:      int(dictSize),
		Properties:   &props,
		SizeInHeader: false,
		EOSMarker:    true,
	}
	return cfg.NewReader(r)
}
