// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package loader locates the Inno Setup bootstrap inside a probed
// executable and parses it into an Offsets record: the pointers to the
// embedded stub executable, the header-block stream and the data stream.
package loader

import (
	"bytes"
	"encoding/binary"
	"io"

	"github.com/saferwall/innoextract/checksum"
	"github.com/saferwall/innoextract/log"
	"github.com/saferwall/innoextract/probe"
)

const (
	setupLoaderHeaderOffset = 0x30
	setupLoaderHeaderMagic  = 0x6f6e6e49 // "Inno", little-endian
	resourceNameInstaller   = 11111
)

// setupLoaderVersion records which known 12-byte bootstrap marker maps to
// which minimum Inno Setup release; the version determines which of the
// optional fields below are present on disk.
type setupLoaderVersion struct {
	magic   [12]byte
	version uint32 // packed (a,b,c,d), see version.Pack
}

// knownBootstrapMarkers are every historical bootstrap-block signature
// innoextract has ever seen, in the order they were introduced.
var knownBootstrapMarkers = []setupLoaderVersion{
	{[12]byte{'r', 'D', 'l', 'P', 't', 'S', '0', '2', 0x87, 'e', 'V', 'x'}, pack(1, 2, 10, 0)},
	{[12]byte{'r', 'D', 'l', 'P', 't', 'S', '0', '4', 0x87, 'e', 'V', 'x'}, pack(4, 0, 0, 0)},
	{[12]byte{'r', 'D', 'l', 'P', 't', 'S', '0', '5', 0x87, 'e', 'V', 'x'}, pack(4, 0, 3, 0)},
	{[12]byte{'r', 'D', 'l', 'P', 't', 'S', '0', '6', 0x87, 'e', 'V', 'x'}, pack(4, 0, 10, 0)},
	{[12]byte{'r', 'D', 'l', 'P', 't', 'S', '0', '7', 0x87, 'e', 'V', 'x'}, pack(4, 1, 6, 0)},
	{[12]byte{'r', 'D', 'l', 'P', 't', 'S', 0xcd, 0xe6, 0xd7, '{', 0x0b, '*'}, pack(5, 1, 5, 0)},
	{[12]byte{'n', 'S', '5', 'W', '7', 'd', 'T', 0x83, 0xaa, 0x1b, 0x0f, 'j'}, pack(5, 1, 5, 0)},
}

func pack(a, b, c, d uint32) uint32 {
	return a<<24 | b<<16 | c<<8 | d
}

// versionUnknown is used when no bootstrap marker matched: the newest known
// schema is assumed, a "not fatal, log and continue" policy.
const versionUnknown = ^uint32(0)

// Offsets are the six pointers recovered from the bootstrap block.
// Zero fields are sentinel absences: no embedded stub, no external
// messages, data living entirely in external slices.
type Offsets struct {
	FoundMagic          bool
	ExeOffset           uint32
	ExeCompressedSize   uint32
	ExeUncompressedSize uint32
	ExeChecksum         checksum.Checksum
	MessageOffset       uint32
	HeaderOffset        uint32
	DataOffset          uint32
}

// ReaderAt is the seekable byte source offsets are read from: the probed
// executable, accessed directly over its backing bytes.
type ReaderAt interface {
	io.ReaderAt
}

// Load locates and parses the bootstrap block from an executable, trying
// the fixed-offset strategy first, then the named PE resource, and finally
// falling back to "this must be an external setup-0.bin" with every offset
// zeroed.
func Load(f *probe.File, logger *log.Helper) Offsets {
	if logger == nil {
		logger = log.Default()
	}

	if off, ok := loadFromFixedOffset(f, logger); ok {
		return off
	}
	if off, ok := loadFromResource(f, logger); ok {
		return off
	}
	return Offsets{}
}

func loadFromFixedOffset(f *probe.File, logger *log.Helper) (Offsets, bool) {
	data := f.Data()
	if uint64(setupLoaderHeaderOffset)+12 > uint64(len(data)) {
		return Offsets{}, false
	}
	section := data[setupLoaderHeaderOffset:]
	magic := binary.LittleEndian.Uint32(section)
	if magic != setupLoaderHeaderMagic {
		return Offsets{}, false
	}

	tableOffset := binary.LittleEndian.Uint32(section[4:])
	notTableOffset := binary.LittleEndian.Uint32(section[8:])
	if tableOffset != ^notTableOffset {
		logger.Debugf("loader: header offset checksum mismatch: %#x != ~%#x", notTableOffset, tableOffset)
		return Offsets{}, false
	}

	return loadOffsetsAt(data, tableOffset, logger)
}

func loadFromResource(f *probe.File, logger *log.Helper) (Offsets, bool) {
	res, ok := f.FindResource(probe.RTRCData, resourceNameInstaller)
	if !ok {
		return Offsets{}, false
	}
	return loadOffsetsAt(f.Data(), res.Offset, logger)
}

// loadOffsetsAt parses the bootstrap block's version-gated fields starting
// at pos, with a rolling CRC-32 covering the 12-byte marker and every field
// after it up to (but not including) the trailing checksum field itself,
// except the pre-4.0.0 message offset, which is not summed.
func loadOffsetsAt(data []byte, pos uint32, logger *log.Helper) (Offsets, bool) {
	if uint64(pos)+12 > uint64(len(data)) {
		return Offsets{}, false
	}
	marker := data[pos : pos+12]

	version := versionUnknown
	for _, known := range knownBootstrapMarkers {
		if bytes.Equal(marker, known.magic[:]) {
			version = known.version
			break
		}
	}
	if version == versionUnknown {
		logger.Warnf("loader: unexpected setup loader magic: % x", marker)
	}

	r := bytes.NewReader(data[pos+12:])
	rolling := checksum.NewHasher(checksum.CRC32)
	rolling.Update(marker)

	read32 := func() (uint32, bool) {
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, false
		}
		rolling.Update(b[:])
		return binary.LittleEndian.Uint32(b[:]), true
	}
	read32NoSum := func() (uint32, bool) {
		var b [4]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, false
		}
		return binary.LittleEndian.Uint32(b[:]), true
	}

	var off Offsets
	off.FoundMagic = true

	if version >= pack(5, 1, 5, 0) {
		revision, ok := read32()
		if !ok {
			return Offsets{}, false
		}
		if revision != 1 {
			logger.Warnf("loader: unexpected setup loader revision: %d", revision)
		}
	}

	if _, ok := read32(); !ok { // total_size, unused
		return Offsets{}, false
	}

	exeOffset, ok := read32()
	if !ok {
		return Offsets{}, false
	}
	off.ExeOffset = exeOffset

	if version < pack(4, 1, 6, 0) {
		size, ok := read32()
		if !ok {
			return Offsets{}, false
		}
		off.ExeCompressedSize = size
	}

	exeUncompressedSize, ok := read32()
	if !ok {
		return Offsets{}, false
	}
	off.ExeUncompressedSize = exeUncompressedSize

	sum, ok := read32()
	if !ok {
		return Offsets{}, false
	}
	if version >= pack(4, 0, 3, 0) {
		off.ExeChecksum = checksum.Checksum{Kind: checksum.CRC32}
	} else {
		off.ExeChecksum = checksum.Checksum{Kind: checksum.Adler32}
	}
	binary.LittleEndian.PutUint32(off.ExeChecksum.Bytes[:4], sum)

	if version < pack(4, 0, 0, 0) {
		msgOffset, ok := read32NoSum()
		if !ok {
			return Offsets{}, false
		}
		off.MessageOffset = msgOffset
	}

	headerOffset, ok := read32()
	if !ok {
		return Offsets{}, false
	}
	off.HeaderOffset = headerOffset

	dataOffset, ok := read32()
	if !ok {
		return Offsets{}, false
	}
	off.DataOffset = dataOffset

	if version >= pack(4, 0, 10, 0) {
		expected, ok := read32NoSum()
		if !ok {
			return Offsets{}, false
		}
		if !bytes.Equal(rolling.Finalize().Bytes[:4], leBytes(expected)) {
			logger.Warnf("loader: setup loader checksum mismatch")
		}
	}

	return off, true
}

func leBytes(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}
