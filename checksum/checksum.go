// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package checksum implements the four integrity primitives the container
// format uses across its history (Adler-32, CRC-32, MD5, SHA-1) behind one
// polymorphic Hasher, plus the tagged Checksum sum type records carry.
//
// The hash algorithms themselves are treated as black-box byte-stream
// transforms: this package is a thin adapter over the stdlib hash
// implementations, not a reimplementation.
package checksum

import (
	"crypto/md5"
	"crypto/sha1"
	"hash"
	"hash/adler32"
	"hash/crc32"
)

// Kind tags which algorithm (if any) a Checksum holds.
type Kind int

// Kinds, in the order the on-disk format introduced them.
const (
	None Kind = iota
	Adler32
	CRC32
	MD5
	SHA1
)

func (k Kind) String() string {
	switch k {
	case None:
		return "none"
	case Adler32:
		return "adler32"
	case CRC32:
		return "crc32"
	case MD5:
		return "md5"
	case SHA1:
		return "sha1"
	default:
		return "unknown"
	}
}

// Size returns the byte length of the hash payload for this kind.
func (k Kind) Size() int {
	switch k {
	case Adler32, CRC32:
		return 4
	case MD5:
		return 16
	case SHA1:
		return 20
	default:
		return 0
	}
}

// Checksum is the tagged sum every record carries: exactly one of
// {None, Adler32, CRC32, MD5, SHA1}, with the byte length of Bytes fixed
// by Kind.
type Checksum struct {
	Kind  Kind
	Bytes [20]byte // only Kind.Size() leading bytes are meaningful
}

// Equal compares tag first, then the tag-appropriate bytes.
func (c Checksum) Equal(o Checksum) bool {
	if c.Kind != o.Kind {
		return false
	}
	n := c.Kind.Size()
	for i := 0; i < n; i++ {
		if c.Bytes[i] != o.Bytes[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether the checksum is the None tag.
func (c Checksum) IsZero() bool { return c.Kind == None }

// Hasher is a polymorphic value over the four algorithms: Init/Update/
// Finalize produces a tagged Checksum.
type Hasher struct {
	kind Kind
	h    hash.Hash
	a32  uint32 // not used: the Adler-32 state lives in h like every other kind
}

// NewHasher constructs a Hasher for kind. NewHasher(None) is valid and
// always finalizes to the zero Checksum — useful for "no checksum
// configured" call sites that still want to run through the same code path.
func NewHasher(kind Kind) *Hasher {
	hh := &Hasher{kind: kind}
	switch kind {
	case Adler32:
		hh.h = adler32.New()
	case CRC32:
		hh.h = crc32.NewIEEE()
	case MD5:
		hh.h = md5.New()
	case SHA1:
		hh.h = sha1.New()
	}
	return hh
}

// Update feeds more bytes into the running hash.
func (hh *Hasher) Update(p []byte) {
	if hh.h == nil {
		return
	}
	hh.h.Write(p)
}

// Finalize returns the accumulated Checksum. The Hasher must not be reused
// afterward.
func (hh *Hasher) Finalize() Checksum {
	c := Checksum{Kind: hh.kind}
	if hh.h == nil {
		return c
	}
	sum := hh.h.Sum(nil)
	copy(c.Bytes[:], sum)
	return c
}

// CRC32Of is a convenience one-shot helper used by the header-block reader
// for its outer-header and sub-block CRC checks.
func CRC32Of(p []byte) uint32 { return crc32.ChecksumIEEE(p) }

// Adler32Of is the one-shot equivalent for Adler-32.
func Adler32Of(p []byte) uint32 { return adler32.Checksum(p) }
