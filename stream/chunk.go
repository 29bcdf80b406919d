// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stream

import (
	"compress/bzip2"
	"crypto/md5"
	"crypto/rc4"
	"crypto/sha1"
	"io"

	"github.com/klauspost/compress/zlib"
	"github.com/ulikunitz/xz/lzma"

	"github.com/saferwall/innoextract/errs"
	"github.com/saferwall/innoextract/setup"
)

// chunkMagic is the 4-byte tag every chunk's decrypted/decompressed payload
// begins with; decrypting with the wrong password still produces bytes,
// but they won't start with this, so it doubles as the password check.
var chunkMagic = [4]byte{'z', 'l', 'b', 0x1a}

// NewChunkReader positions slices at loc's first slice/offset and returns a
// reader over its decrypted, decompressed bytes, restricted to loc.Size
// compressed bytes. password and salt are only consulted when loc.Encryption
// is not Plaintext; salt is the installer's Header.PasswordSalt (the literal
// "PasswordCheckHash" plus the on-disk random bytes) -- an empty password
// against an encrypted chunk always fails the magic check below.
func NewChunkReader(slices *SliceReader, loc setup.ChunkLocation, password string, salt []byte) (io.Reader, error) {
	ok, err := slices.Seek(int(loc.FirstSlice), loc.Offset)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.Newf(errs.IoError, "stream.chunk", "", "chunk offset %d is past the end of slice %d", loc.Offset, loc.FirstSlice)
	}

	restricted := io.LimitReader(slices, int64(loc.Size))

	var plain io.Reader = restricted
	if loc.Encryption != setup.Plaintext {
		plain, err = newARC4Reader(restricted, loc.Encryption, password, salt)
		if err != nil {
			return nil, err
		}
	}

	decompressed, err := newCompressionReader(plain, loc.Compression)
	if err != nil {
		return nil, err
	}

	if loc.Encryption != setup.Plaintext {
		var magic [4]byte
		if _, err := io.ReadFull(decompressed, magic[:]); err != nil {
			return nil, errs.Newf(errs.EncryptionError, "stream.chunk", "", "could not read chunk magic, wrong password? %v", err)
		}
		if magic != chunkMagic {
			return nil, errs.Newf(errs.EncryptionError, "stream.chunk", "", "chunk magic mismatch, wrong password")
		}
	}

	return decompressed, nil
}

// newARC4Reader derives the RC4 key the same way the installer's own
// password check does: hash(salt || password), truncated to 16 bytes. salt
// is the installer's Header.PasswordSalt, already carrying its
// "PasswordCheckHash" prefix -- there is no universal constant here, every
// installer mixes in its own random 8 bytes.
func newARC4Reader(r io.Reader, enc setup.Encryption, password string, salt []byte) (io.Reader, error) {
	salted := append(append([]byte{}, salt...), []byte(password)...)

	var key []byte
	switch enc {
	case setup.ARC4MD5:
		sum := md5.Sum(salted)
		key = sum[:]
	case setup.ARC4SHA1:
		sum := sha1.Sum(salted)
		key = sum[:16]
	default:
		return nil, errs.Newf(errs.UnsupportedError, "stream.chunk", "", "unknown chunk encryption %v", enc)
	}

	c, err := rc4.NewCipher(key)
	if err != nil {
		return nil, errs.New(errs.EncryptionError, "stream.chunk", "", err)
	}
	return &cipherReader{src: r, stream: c}, nil
}

// cipherReader streams r through an RC4 keystream, since crypto/rc4
// exposes XORKeyStream rather than an io.Reader wrapper.
type cipherReader struct {
	src    io.Reader
	stream *rc4.Cipher
}

func (c *cipherReader) Read(p []byte) (int, error) {
	n, err := c.src.Read(p)
	if n > 0 {
		c.stream.XORKeyStream(p[:n], p[:n])
	}
	return n, err
}

func newCompressionReader(r io.Reader, method setup.CompressionMethod) (io.Reader, error) {
	switch method {
	case setup.CompressionStored:
		return r, nil
	case setup.CompressionZlib:
		zr, err := zlib.NewReader(r)
		if err != nil {
			return nil, errs.Newf(errs.FormatError, "stream.chunk", "", "invalid zlib chunk: %v", err)
		}
		return zr, nil
	case setup.CompressionBZip2:
		return bzip2.NewReader(r), nil
	case setup.CompressionLZMA1:
		return newChunkLZMA1Reader(r)
	case setup.CompressionLZMA2:
		return newChunkLZMA2Reader(r)
	default:
		return nil, errs.Newf(errs.UnsupportedError, "stream.chunk", "", "unknown chunk compression method %v", method)
	}
}

// newChunkLZMA1Reader reads the same trimmed 5-byte Inno LZMA1 header the
// header-block stream uses, this time directly off the (already decrypted)
// chunk body rather than a size-windowed sub-block reader.
func newChunkLZMA1Reader(r io.Reader) (io.Reader, error) {
	return newInnoLZMA1Reader(r)
}

// newChunkLZMA2Reader decodes the raw LZMA2 stream Inno Setup 5.4+ uses for
// "lzma2" compression: a one-byte dictionary-size exponent, then the LZMA2
// chunk sequence itself.
func newChunkLZMA2Reader(r io.Reader) (io.Reader, error) {
	var b [1]byte
	if _, err := io.ReadFull(r, b[:]); err != nil {
		return nil, errs.Newf(errs.FormatError, "stream.chunk", "", "truncated LZMA2 header: %v", err)
	}
	dictSize, err := lzma2DictSize(b[0])
	if err != nil {
		return nil, err
	}
	cfg := lzma.Reader2Config{DictCap: int(dictSize)}
	return cfg.NewReader2(r)
}

func lzma2DictSize(prop byte) (uint32, error) {
	if prop > 40 {
		return 0, errs.Newf(errs.FormatError, "stream.chunk", "", "invalid LZMA2 dictionary size byte 0x%02x", prop)
	}
	if prop == 40 {
		return 0xFFFFFFFF, nil
	}
	mantissa := uint32(2 | (uint32(prop) & 1))
	return mantissa << (uint(prop)/2 + 11), nil
}
