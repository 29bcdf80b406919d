// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stream

import (
	"bytes"
	"encoding/binary"
	"io"
	"io/fs"
	"testing"
)

func TestSliceFilenameSingleSlicePerDisk(t *testing.T) {
	name, err := SliceFilename("setup", 0, 1)
	if err != nil {
		t.Fatalf("SliceFilename: %v", err)
	}
	if name != "setup-1.bin" {
		t.Errorf("got %q, want %q", name, "setup-1.bin")
	}
}

func TestSliceFilenameMultipleSlicesPerDisk(t *testing.T) {
	name, err := SliceFilename("setup", 3, 2)
	if err != nil {
		t.Fatalf("SliceFilename: %v", err)
	}
	// slice 3 (0-based), 2 slices per disk -> disk 2, letter 'b'.
	if name != "setup-2b.bin" {
		t.Errorf("got %q, want %q", name, "setup-2b.bin")
	}
}

func TestSliceFilenameRejectsNonPositiveSlicesPerDisk(t *testing.T) {
	if _, err := SliceFilename("setup", 0, 0); err == nil {
		t.Errorf("expected an error for slicesPerDisk == 0")
	}
}

func TestEmbeddedSliceReaderReadsAndSeeksWithinOneSlice(t *testing.T) {
	data := []byte("0123456789abcdefghij")
	sr, err := NewEmbeddedSliceReader(bytes.NewReader(data), 4)
	if err != nil {
		t.Fatalf("NewEmbeddedSliceReader: %v", err)
	}

	got := make([]byte, len(data)-4)
	if _, err := io.ReadFull(sr, got); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(got) != string(data[4:]) {
		t.Errorf("got %q, want %q", got, data[4:])
	}
}

func TestEmbeddedSliceReaderSeekPastEndReportsFalse(t *testing.T) {
	data := []byte("short")
	sr, err := NewEmbeddedSliceReader(bytes.NewReader(data), 0)
	if err != nil {
		t.Fatalf("NewEmbeddedSliceReader: %v", err)
	}
	ok, err := sr.Seek(0, 1000)
	if err != nil {
		t.Fatalf("Seek: %v", err)
	}
	if ok {
		t.Errorf("expected Seek past the slice's declared size to report false")
	}
}

// memSliceOpener is an in-memory SliceOpener for exercising the external
// (multi-file) slice path without touching a real filesystem.
type memSliceOpener struct {
	files map[string][]byte
}

func (m memSliceOpener) Open(path string) (io.ReadSeekCloser, error) {
	b, ok := m.files[path]
	if !ok {
		return nil, fs.ErrNotExist
	}
	return &memSliceFile{Reader: bytes.NewReader(b)}, nil
}

func (m memSliceOpener) ReadDir(dir string) ([]string, error) {
	names := make([]string, 0, len(m.files))
	for name := range m.files {
		names = append(names, name[len(dir)+1:])
	}
	return names, nil
}

type memSliceFile struct{ *bytes.Reader }

func (memSliceFile) Close() error { return nil }

func buildSliceFile(body []byte) []byte {
	var buf bytes.Buffer
	buf.Write(slice32Magic[:])
	var sizeBuf [4]byte
	binary.LittleEndian.PutUint32(sizeBuf[:], uint32(sliceHeaderSize+len(body)))
	buf.Write(sizeBuf[:])
	buf.Write(body)
	return buf.Bytes()
}

func TestExternalSliceReaderCrossesSliceBoundary(t *testing.T) {
	opener := memSliceOpener{files: map[string][]byte{
		"/out/setup-1.bin": buildSliceFile([]byte("first-")),
		"/out/setup-2.bin": buildSliceFile([]byte("second")),
	}}
	sr := NewExternalSliceReader(opener, "/out", "setup", "", 1)

	got := make([]byte, len("first-second"))
	if _, err := io.ReadFull(sr, got); err != nil {
		t.Fatalf("ReadFull: %v", err)
	}
	if string(got) != "first-second" {
		t.Errorf("got %q, want %q", got, "first-second")
	}
}

func TestExternalSliceReaderRejectsBadMagic(t *testing.T) {
	opener := memSliceOpener{files: map[string][]byte{
		"/out/setup-1.bin": []byte("not a slice file at all........"),
	}}
	sr := NewExternalSliceReader(opener, "/out", "setup", "", 1)

	if _, err := sr.Read(make([]byte, 4)); err == nil {
		t.Errorf("expected an error reading a slice with a bad magic")
	}
}
