// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/checksum"
	"github.com/saferwall/innoextract/loader"
)

// Encryption identifies how a chunk's compressed bytes are encrypted, if at
// all, before the stream package's chunk reader can decompress them.
type Encryption int

const (
	Plaintext Encryption = iota
	ARC4MD5
	ARC4SHA1
)

// Filter identifies which pre-compression instruction-pointer transform, if
// any, the file reader must reverse on decompressed bytes.
type Filter int

const (
	NoFilter Filter = iota
	InstructionFilter4108
	InstructionFilter5200
	InstructionFilter5309
)

// ChunkLocation is where one data entry's bytes live within the slice
// sequence: which slice(s) the chunk spans, its offset and size, and how it
// is compressed/encrypted. Multiple file entries commonly share one chunk
// (solid compression), so this is deliberately its own value rather than a
// File field.
type ChunkLocation struct {
	FirstSlice uint32
	LastSlice  uint32

	Offset     uint32
	SortOffset uint32
	Size       uint64

	Compression CompressionMethod
	Encryption  Encryption
}

// FileLocation is where one data entry's decompressed bytes live within its
// chunk, plus the filter needed to reverse the compiler's pre-compression
// transform and the checksum to verify against once extracted.
type FileLocation struct {
	Offset   uint64
	Size     uint64
	Checksum checksum.Checksum
	Filter   Filter
}

// DataEntryOptions are the data entry's flag bits.
type DataEntryOptions struct {
	VersionInfoValid         bool
	VersionInfoNotValid      bool
	TimestampInUTC           bool
	IsUninstallerExe         bool
	CallInstructionOptimized bool
	Touch                    bool
	ChunkEncrypted           bool
	ChunkCompressed          bool
	SolidBreak               bool
	Sign                     bool
	SignOnce                 bool
	BZipped                  bool // obsolete, pre-4.0.1
}

// DataEntry (component F, data.cpp's data_entry) locates and describes one
// file's content: which chunk it lives in, its timestamp and version
// resource, and the flags needed to decompress/decrypt/verify it.
type DataEntry struct {
	Chunk ChunkLocation
	File  FileLocation

	UncompressedSize uint64

	Timestamp     int64 // Unix seconds
	TimestampNsec uint32

	FileVersion uint64

	Options DataEntryOptions
}

// filetimeEpochOffset is the number of 100ns intervals between the Win32
// FILETIME epoch (1601-01-01) and the Unix epoch (1970-01-01).
const filetimeEpochOffset = 0x19DB1DED53E8000

// Load reads one DataEntry, given the already-parsed Header (for its
// declared compression method) and the identified version.
func (d *DataEntry) Load(r io.Reader, h *Header, v loader.Version, warn binutil.WarnFunc) error {
	bits := v.Bits()

	firstSlice, err := binutil.ReadSizedUint32(r, bits)
	if err != nil {
		return err
	}
	lastSlice, err := binutil.ReadSizedUint32(r, bits)
	if err != nil {
		return err
	}
	if v.Value < loader.Pack(4, 0, 0, 0) {
		if firstSlice < 1 || lastSlice < 1 {
			if warn != nil {
				warn("setup: unexpected slice number %d to %d", firstSlice, lastSlice)
			}
		} else {
			firstSlice--
			lastSlice--
		}
	}
	d.Chunk.FirstSlice = firstSlice
	d.Chunk.LastSlice = lastSlice

	offset, err := binutil.ReadU32(r)
	if err != nil {
		return err
	}
	d.Chunk.Offset = offset
	d.Chunk.SortOffset = offset

	if v.Value >= loader.Pack(4, 0, 1, 0) {
		off, err := binutil.ReadU64(r)
		if err != nil {
			return err
		}
		d.File.Offset = off
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) {
		sz, err := binutil.ReadU64(r)
		if err != nil {
			return err
		}
		d.File.Size = sz
		csz, err := binutil.ReadU64(r)
		if err != nil {
			return err
		}
		d.Chunk.Size = csz
	} else {
		sz, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		d.File.Size = uint64(sz)
		csz, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		d.Chunk.Size = uint64(csz)
	}
	d.UncompressedSize = d.File.Size

	switch {
	case v.Value >= loader.Pack(5, 3, 9, 0):
		var b [20]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		d.File.Checksum = checksum.Checksum{Kind: checksum.SHA1}
		copy(d.File.Checksum.Bytes[:20], b[:])
	case v.Value >= loader.Pack(4, 2, 0, 0):
		var b [16]byte
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return err
		}
		d.File.Checksum = checksum.Checksum{Kind: checksum.MD5}
		copy(d.File.Checksum.Bytes[:16], b[:])
	case v.Value >= loader.Pack(4, 0, 1, 0):
		sum, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		d.File.Checksum = checksum.Checksum{Kind: checksum.CRC32}
		putLE32(d.File.Checksum.Bytes[:4], sum)
	default:
		sum, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		d.File.Checksum = checksum.Checksum{Kind: checksum.Adler32}
		putLE32(d.File.Checksum.Bytes[:4], sum)
	}

	if bits == 16 {
		timeField, err := binutil.ReadU16(r)
		if err != nil {
			return err
		}
		dateField, err := binutil.ReadU16(r)
		if err != nil {
			return err
		}
		d.Timestamp = dosDateTimeToUnix(dateField, timeField)
		d.TimestampNsec = 0
	} else {
		filetime, err := binutil.ReadS64(r)
		if err != nil {
			return err
		}
		if filetime < filetimeEpochOffset && warn != nil {
			warn("setup: unexpected filetime %d", filetime)
		}
		filetime -= filetimeEpochOffset
		d.Timestamp = filetime / 10000000
		d.TimestampNsec = uint32(filetime%10000000) * 100
	}

	msWord, err := binutil.ReadU32(r)
	if err != nil {
		return err
	}
	lsWord, err := binutil.ReadU32(r)
	if err != nil {
		return err
	}
	d.FileVersion = uint64(msWord)<<32 | uint64(lsWord)

	fr := binutil.NewFlagReader(r, warn)
	d.Options.VersionInfoValid = fr.Add()
	d.Options.VersionInfoNotValid = fr.Add()
	if v.Value >= loader.Pack(2, 0, 17, 0) && v.Value < loader.Pack(4, 0, 1, 0) {
		d.Options.BZipped = fr.Add()
	}
	if v.Value >= loader.Pack(4, 0, 10, 0) {
		d.Options.TimestampInUTC = fr.Add()
	}
	if v.Value >= loader.Pack(4, 1, 0, 0) {
		d.Options.IsUninstallerExe = fr.Add()
	}
	if v.Value >= loader.Pack(4, 1, 8, 0) {
		d.Options.CallInstructionOptimized = fr.Add()
	}
	if v.Value >= loader.Pack(4, 2, 0, 0) {
		d.Options.Touch = fr.Add()
	}
	if v.Value >= loader.Pack(4, 2, 2, 0) {
		d.Options.ChunkEncrypted = fr.Add()
	}
	if v.Value >= loader.Pack(4, 2, 5, 0) {
		d.Options.ChunkCompressed = fr.Add()
	} else {
		d.Options.ChunkCompressed = true
	}
	if v.Value >= loader.Pack(5, 1, 13, 0) {
		d.Options.SolidBreak = fr.Add()
	}
	if v.Value >= loader.Pack(5, 5, 7, 0) {
		d.Options.Sign = fr.Add()
		d.Options.SignOnce = fr.Add()
	}
	if err := fr.Finish(); err != nil {
		return err
	}

	if d.Options.ChunkCompressed {
		d.Chunk.Compression = h.Compression
	} else {
		d.Chunk.Compression = CompressionStored
	}
	if d.Options.BZipped {
		d.Options.ChunkCompressed = true
		d.Chunk.Compression = CompressionBZip2
	}

	if d.Options.ChunkEncrypted {
		if v.Value >= loader.Pack(5, 3, 9, 0) {
			d.Chunk.Encryption = ARC4SHA1
		} else {
			d.Chunk.Encryption = ARC4MD5
		}
	} else {
		d.Chunk.Encryption = Plaintext
	}

	if d.Options.CallInstructionOptimized {
		switch {
		case v.Value < loader.Pack(5, 2, 0, 0):
			d.File.Filter = InstructionFilter4108
		case v.Value < loader.Pack(5, 3, 9, 0):
			d.File.Filter = InstructionFilter5200
		default:
			d.File.Filter = InstructionFilter5309
		}
	} else {
		d.File.Filter = NoFilter
	}

	return nil
}

// dosDateTimeToUnix converts a 16-bit FAT/DOS date and time pair, as used
// by 16-bit Inno Setup builds, to Unix seconds (UTC).
func dosDateTimeToUnix(date, t uint16) int64 {
	sec := int((t & 0x1f) * 2)
	min := int((t >> 5) & 0x3f)
	hour := int((t >> 11) & 0x1f)
	day := int(date & 0x1f)
	month := int((date>>5)&0xf) - 1
	year := int((date>>9)&0x7f) + 1980

	return unixFromYMD(year, month, day, hour, min, sec)
}

// unixFromYMD converts a civil calendar date/time to Unix seconds, using
// Howard Hinnant's days_from_civil algorithm to avoid pulling in time.Time
// purely to compute a days-since-epoch count.
func unixFromYMD(year, month, day, hour, min, sec int) int64 {
	y := int64(year)
	if month <= 1 { // month is zero-based here (0 = January)
		y--
	}
	m := int64(month) + 1
	era := y
	if era < 0 {
		era -= 399
	}
	era /= 400
	yoe := y - era*400
	mp := (m + 9) % 12
	doy := (153*mp+2)/5 + int64(day) - 1
	doe := yoe*365 + yoe/4 - yoe/100 + doy
	days := era*146097 + doe - 719468

	return days*86400 + int64(hour)*3600 + int64(min)*60 + int64(sec)
}
