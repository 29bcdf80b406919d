// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/saferwall/innoextract/checksum"
	"github.com/saferwall/innoextract/loader"
)

// buildStoredHeaderBlock lays out the on-disk bytes for a >=4.0.9 stored
// (uncompressed) header-block stream: the outer fields CRC32, the declared
// window size and compressed flag, then payload framed into the inner
// blockFilterReader's CRC32-prefixed sub-blocks.
func buildStoredHeaderBlock(payload []byte) []byte {
	var framed bytes.Buffer
	for len(payload) > 0 {
		n := len(payload)
		if n > 4096 {
			n = 4096
		}
		block := payload[:n]
		payload = payload[n:]

		var crcBuf [4]byte
		binary.LittleEndian.PutUint32(crcBuf[:], checksum.CRC32Of(block))
		framed.Write(crcBuf[:])
		framed.Write(block)
	}

	var fields bytes.Buffer
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(framed.Len()))
	fields.Write(sizeBuf[:])
	fields.WriteByte(0) // compressed = 0 -> stored

	var out bytes.Buffer
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], checksum.CRC32Of(fields.Bytes()))
	out.Write(crcBuf[:])
	out.Write(fields.Bytes())
	out.Write(framed.Bytes())
	return out.Bytes()
}

func TestNewHeaderBlockReaderStoredRoundTrips(t *testing.T) {
	payload := []byte("this is the decompressed header block content")
	raw := buildStoredHeaderBlock(payload)

	v := loader.Version{Value: loader.Pack(4, 0, 9, 0)}
	r, err := NewHeaderBlockReader(bytes.NewReader(raw), v)
	if err != nil {
		t.Fatalf("NewHeaderBlockReader: %v", err)
	}

	got, err := io.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != string(payload) {
		t.Errorf("got %q, want %q", got, payload)
	}
}

func TestNewHeaderBlockReaderRejectsBadOuterCRC(t *testing.T) {
	raw := buildStoredHeaderBlock([]byte("whatever"))
	raw[0] ^= 0xFF // corrupt the outer fields CRC32

	v := loader.Version{Value: loader.Pack(4, 0, 9, 0)}
	_, err := NewHeaderBlockReader(bytes.NewReader(raw), v)
	if err == nil {
		t.Fatalf("expected a CRC32 mismatch error")
	}
}

func TestNewHeaderBlockReaderRejectsCorruptedSubBlockPayload(t *testing.T) {
	raw := buildStoredHeaderBlock([]byte("whatever"))
	// Flip a payload byte inside the first framed sub-block (after the
	// 9-byte outer CRC32 + size + compressed-flag header, and that
	// sub-block's own 4-byte CRC32), so it no longer matches its CRC32.
	raw[9+4] ^= 0xFF

	v := loader.Version{Value: loader.Pack(4, 0, 9, 0)}
	r, err := NewHeaderBlockReader(bytes.NewReader(raw), v)
	if err != nil {
		t.Fatalf("NewHeaderBlockReader: %v", err)
	}
	if _, err := io.ReadAll(r); err == nil {
		t.Errorf("expected a sub-block CRC32 mismatch while reading")
	}
}
