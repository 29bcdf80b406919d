// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package probe

import (
	"bytes"
	"encoding/binary"
)

const (
	// rtVersion is the VERSION resource type.
	rtVersion = 16

	// vsFixedFileInfoSignature is VS_FIXEDFILEINFO's magic 'key' value.
	vsFixedFileInfoSignature uint32 = 0xFEEF04BD
)

// FixedFileInfo mirrors the fields of VS_FIXEDFILEINFO this package
// actually uses: the packed product/file version quad.
type FixedFileInfo struct {
	FileVersionMS    uint32
	FileVersionLS    uint32
	ProductVersionMS uint32
	ProductVersionLS uint32
}

// FileVersion reads the VS_FIXEDFILEINFO structure out of the image's
// VERSION resource, if present. The structure is preceded by a
// variable-length Unicode "VS_VERSION_INFO" key and padding, so this scans
// forward for the well-known 0xFEEF04BD signature instead of computing an
// exact offset — exactly what the original implementation does, since the
// padding before the signature varies by toolchain.
func (f *File) FileVersion() (FixedFileInfo, bool) {
	res, ok := f.FindResource(rtVersion, 1)
	if !ok {
		return FixedFileInfo{}, false
	}
	if uint64(res.Offset)+uint64(res.Size) > uint64(len(f.data)) {
		return FixedFileInfo{}, false
	}
	blob := f.data[res.Offset : res.Offset+res.Size]

	idx := bytes.Index(blob, leUint32Bytes(vsFixedFileInfoSignature))
	if idx < 0 || idx+16 > len(blob) {
		return FixedFileInfo{}, false
	}
	// Signature, StructVersion, then the two version quads.
	if idx+4+4+16 > len(blob) {
		return FixedFileInfo{}, false
	}
	r := blob[idx+8:]
	return FixedFileInfo{
		FileVersionMS:    binary.LittleEndian.Uint32(r[0:4]),
		FileVersionLS:    binary.LittleEndian.Uint32(r[4:8]),
		ProductVersionMS: binary.LittleEndian.Uint32(r[8:12]),
		ProductVersionLS: binary.LittleEndian.Uint32(r[12:16]),
	}, true
}

func leUint32Bytes(v uint32) []byte {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	return b[:]
}
