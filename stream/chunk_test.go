// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"compress/zlib"
	"crypto/md5"
	"crypto/rc4"
	"io"
	"testing"

	"github.com/saferwall/innoextract/setup"
)

func embeddedSlices(t *testing.T, data []byte) *SliceReader {
	t.Helper()
	sr, err := NewEmbeddedSliceReader(bytes.NewReader(data), 0)
	if err != nil {
		t.Fatalf("NewEmbeddedSliceReader: %v", err)
	}
	return sr
}

func TestNewChunkReaderStoredPlaintext(t *testing.T) {
	payload := []byte("plaintext, uncompressed chunk body")
	loc := setup.ChunkLocation{
		Compression: setup.CompressionStored,
		Encryption:  setup.Plaintext,
		Size:        uint64(len(payload)),
	}

	r, err := NewChunkReader(embeddedSlices(t, payload), loc, "", nil)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestNewChunkReaderZlib(t *testing.T) {
	plain := []byte("this chunk body is zlib compressed, as most Inno Setup payloads are")
	var buf bytes.Buffer
	zw := zlib.NewWriter(&buf)
	if _, err := zw.Write(plain); err != nil {
		t.Fatalf("zlib write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zlib close: %v", err)
	}
	compressed := buf.Bytes()

	loc := setup.ChunkLocation{
		Compression: setup.CompressionZlib,
		Encryption:  setup.Plaintext,
		Size:        uint64(len(compressed)),
	}

	r, err := NewChunkReader(embeddedSlices(t, compressed), loc, "", nil)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(plain) {
		t.Errorf("got %q, want %q", got, plain)
	}
}

// testPasswordSalt is a stand-in for Header.PasswordSalt: the
// "PasswordCheckHash" literal plus 8 on-disk random bytes, exactly the shape
// setup.Header.Load builds.
var testPasswordSalt = append([]byte("PasswordCheckHash"), []byte{1, 2, 3, 4, 5, 6, 7, 8}...)

// encryptARC4MD5 builds the ciphertext NewChunkReader(..., ARC4MD5, password,
// salt) expects: chunkMagic prepended to plain, then RC4'd with the same
// salt-then-MD5 key derivation the production reader uses.
func encryptARC4MD5(t *testing.T, plain []byte, password string, salt []byte) []byte {
	t.Helper()
	salted := append(append([]byte{}, salt...), []byte(password)...)
	key := md5.Sum(salted)
	c, err := rc4.NewCipher(key[:])
	if err != nil {
		t.Fatalf("rc4.NewCipher: %v", err)
	}
	src := append(append([]byte{}, chunkMagic[:]...), plain...)
	out := make([]byte, len(src))
	c.XORKeyStream(out, src)
	return out
}

func TestNewChunkReaderEncryptedWithCorrectPassword(t *testing.T) {
	plain := []byte("secret installer payload")
	cipher := encryptARC4MD5(t, plain, "hunter2", testPasswordSalt)

	loc := setup.ChunkLocation{
		Compression: setup.CompressionStored,
		Encryption:  setup.ARC4MD5,
		Size:        uint64(len(cipher)),
	}

	r, err := NewChunkReader(embeddedSlices(t, cipher), loc, "hunter2", testPasswordSalt)
	if err != nil {
		t.Fatalf("NewChunkReader: %v", err)
	}
	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(plain) {
		t.Errorf("got %q, want %q", got, plain)
	}
}

func TestNewChunkReaderEncryptedWithWrongPasswordFailsMagicCheck(t *testing.T) {
	cipher := encryptARC4MD5(t, []byte("secret"), "hunter2", testPasswordSalt)

	loc := setup.ChunkLocation{
		Compression: setup.CompressionStored,
		Encryption:  setup.ARC4MD5,
		Size:        uint64(len(cipher)),
	}

	_, err := NewChunkReader(embeddedSlices(t, cipher), loc, "wrong password", testPasswordSalt)
	if err == nil {
		t.Fatalf("expected a chunk magic mismatch error with the wrong password")
	}
}

func TestNewChunkReaderEncryptedWithWrongSaltFailsMagicCheck(t *testing.T) {
	cipher := encryptARC4MD5(t, []byte("secret"), "hunter2", testPasswordSalt)

	loc := setup.ChunkLocation{
		Compression: setup.CompressionStored,
		Encryption:  setup.ARC4MD5,
		Size:        uint64(len(cipher)),
	}

	otherSalt := append([]byte("PasswordCheckHash"), []byte{8, 7, 6, 5, 4, 3, 2, 1}...)
	_, err := NewChunkReader(embeddedSlices(t, cipher), loc, "hunter2", otherSalt)
	if err == nil {
		t.Fatalf("expected a chunk magic mismatch error with the wrong installer salt")
	}
}
