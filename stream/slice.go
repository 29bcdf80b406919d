// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package stream

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"github.com/saferwall/innoextract/errs"
)

var (
	slice16Magic = [8]byte{'i', 'd', 's', 'k', 'a', '1', '6', 0x1a}
	slice32Magic = [8]byte{'i', 'd', 's', 'k', 'a', '3', '2', 0x1a}
)

const sliceHeaderSize = 12 // 8-byte magic + little-endian uint32 size

// SliceOpener abstracts opening an external slice file and listing its
// directory, the two filesystem operations SliceReader needs to locate a
// slice by name -- tests can substitute an in-memory filesystem instead of
// touching the real one.
type SliceOpener interface {
	Open(path string) (io.ReadSeekCloser, error)
	ReadDir(dir string) ([]string, error)
}

type osSliceOpener struct{}

func (osSliceOpener) Open(path string) (io.ReadSeekCloser, error) { return os.Open(path) }

func (osSliceOpener) ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, len(entries))
	for i, e := range entries {
		names[i] = e.Name()
	}
	return names, nil
}

// SliceReader presents the, possibly multi-file, body of an installer as
// one seekable byte stream addressed by (slice index, offset within
// slice). An embedded installer has exactly one slice, backed directly by
// the installer executable starting at its data offset; a split installer
// has one slice per basename-N.bin/basename-NL.bin file on disk, opened on
// demand and closed as soon as the reader moves past it.
type SliceReader struct {
	embedded   bool
	base       io.ReadSeeker
	dataOffset uint32

	opener        SliceOpener
	dir           string
	baseFile      string
	baseFile2     string
	slicesPerDisk int

	currentSlice int
	sliceSize    uint32
	pos          uint32
	cur          io.ReadSeekCloser
}

// NewEmbeddedSliceReader builds the single-slice reader for an installer
// whose payload is appended to its own executable. The slice runs from
// dataOffset to the end of base, as measured by Seek(0, io.SeekEnd); the
// reader seeks freely on base.
func NewEmbeddedSliceReader(base io.ReadSeeker, dataOffset uint32) (*SliceReader, error) {
	end, err := base.Seek(0, io.SeekEnd)
	if err != nil {
		return nil, errs.New(errs.IoError, "stream.slice", "", err)
	}
	avail := end - int64(dataOffset)
	if avail < 0 {
		avail = 0
	}
	if avail > math.MaxInt32 {
		avail = math.MaxInt32
	}
	if _, err := base.Seek(int64(dataOffset), io.SeekStart); err != nil {
		return nil, errs.New(errs.IoError, "stream.slice", "", err)
	}
	return &SliceReader{
		embedded:   true,
		base:       base,
		dataOffset: dataOffset,
		sliceSize:  uint32(avail),
	}, nil
}

// NewExternalSliceReader builds a reader for a split installer: slice N is
// looked up first as baseFile (falling back to baseFile2, e.g. "embedded"
// vs. "disk" basenames), then case-insensitively among dir's entries.
// opener defaults to the real filesystem when nil.
func NewExternalSliceReader(opener SliceOpener, dir, baseFile, baseFile2 string, slicesPerDisk int) *SliceReader {
	if opener == nil {
		opener = osSliceOpener{}
	}
	return &SliceReader{
		opener:        opener,
		dir:           dir,
		baseFile:      baseFile,
		baseFile2:     baseFile2,
		slicesPerDisk: slicesPerDisk,
		currentSlice:  -1,
	}
}

// SliceFilename returns the on-disk name of the slice'th slice of basename,
// following Inno's single-letter disk-spanning scheme: slicesPerDisk == 1
// gives "basename-N.bin"; larger values give "basename-Ma.bin",
// "basename-Mb.bin", ... within disk M.
func SliceFilename(basename string, slice, slicesPerDisk int) (string, error) {
	if slicesPerDisk <= 0 {
		return "", errs.Newf(errs.FormatError, "stream.slice", "", "slices per disk must be positive, got %d", slicesPerDisk)
	}
	if slicesPerDisk == 1 {
		return fmt.Sprintf("%s-%d.bin", basename, slice+1), nil
	}
	disk := slice/slicesPerDisk + 1
	letter := byte('a' + slice%slicesPerDisk)
	return fmt.Sprintf("%s-%d%c.bin", basename, disk, letter), nil
}

func (s *SliceReader) isOpen() bool {
	if s.embedded {
		return true
	}
	return s.cur != nil
}

// seekSlice makes slice the active slice, opening it if it wasn't already.
func (s *SliceReader) seekSlice(slice int) error {
	if slice == s.currentSlice && s.isOpen() {
		return nil
	}
	if s.embedded {
		return errs.Newf(errs.FormatError, "stream.slice", "", "cannot change slices in a single-file setup")
	}
	return s.openSlice(slice)
}

// openSlice closes the currently open external slice file, if any, and
// opens the given slice index by trying, in order: baseFile's exact name,
// baseFile2's exact name, then a case-insensitive directory scan for
// either. A name that exists but fails magic/size validation is a fatal
// error; a name that simply doesn't exist falls through to the next
// candidate.
func (s *SliceReader) openSlice(slice int) error {
	s.currentSlice = slice
	if s.cur != nil {
		s.cur.Close()
		s.cur = nil
	}

	name, err := SliceFilename(s.baseFile, slice, s.slicesPerDisk)
	if err != nil {
		return err
	}
	name2 := ""
	if s.baseFile2 != "" {
		name2, err = SliceFilename(s.baseFile2, slice, s.slicesPerDisk)
		if err != nil {
			return err
		}
		if name2 == name {
			name2 = ""
		}
	}

	try := func(path string) (bool, error) {
		f, sz, existed, err := s.tryOpen(path)
		if err != nil || !existed {
			return false, err
		}
		s.cur, s.sliceSize = f, sz
		return true, nil
	}

	if ok, err := try(filepath.Join(s.dir, name)); err != nil || ok {
		return err
	}
	if name2 != "" {
		if ok, err := try(filepath.Join(s.dir, name2)); err != nil || ok {
			return err
		}
	}
	if ok, err := s.tryOpenCaseInsensitive(name, try); err != nil || ok {
		return err
	}
	if name2 != "" {
		if ok, err := s.tryOpenCaseInsensitive(name2, try); err != nil || ok {
			return err
		}
	}

	msg := fmt.Sprintf("could not find slice %d (%s", slice, name)
	if name2 != "" {
		msg += " or " + name2
	}
	msg += ") in " + s.dir
	return errs.New(errs.IoError, "stream.slice", "", errors.New(msg))
}

func (s *SliceReader) tryOpenCaseInsensitive(name string, try func(path string) (bool, error)) (bool, error) {
	names, err := s.opener.ReadDir(s.dir)
	if err != nil {
		return false, nil
	}
	for _, actual := range names {
		if !strings.EqualFold(actual, name) {
			continue
		}
		if ok, err := try(filepath.Join(s.dir, actual)); err != nil || ok {
			return ok, err
		}
	}
	return false, nil
}

// tryOpen attempts to open path as a slice file. existed is false, with a
// nil error, when path simply doesn't exist -- the caller should try its
// next candidate name. A non-nil error means path exists but is not a
// valid slice file, which is always fatal.
func (s *SliceReader) tryOpen(path string) (io.ReadSeekCloser, uint32, bool, error) {
	f, err := s.opener.Open(path)
	if err != nil {
		return nil, 0, false, nil
	}

	var magic [8]byte
	if _, err := io.ReadFull(f, magic[:]); err != nil {
		f.Close()
		return nil, 0, true, errs.Newf(errs.FormatError, "stream.slice", "", "could not read slice magic in %q: %v", path, err)
	}
	if magic != slice16Magic && magic != slice32Magic {
		f.Close()
		return nil, 0, true, errs.Newf(errs.FormatError, "stream.slice", "", "not a slice file: %q", path)
	}

	size, err := readLEU32(f)
	if err != nil {
		f.Close()
		return nil, 0, true, errs.Newf(errs.FormatError, "stream.slice", "", "could not read slice size in %q: %v", path, err)
	}
	fileSize, err := f.Seek(0, io.SeekEnd)
	if err != nil {
		f.Close()
		return nil, 0, true, errs.New(errs.IoError, "stream.slice", "", err)
	}
	if int64(size) < sliceHeaderSize {
		f.Close()
		return nil, 0, true, errs.Newf(errs.FormatError, "stream.slice", "", "bad slice size in %q: %d", path, size)
	}
	if int64(size) > fileSize {
		f.Close()
		return nil, 0, true, errs.Newf(errs.FormatError, "stream.slice", "", "truncated slice %q: declares %d bytes, has %d", path, size, fileSize)
	}
	if _, err := f.Seek(sliceHeaderSize, io.SeekStart); err != nil {
		f.Close()
		return nil, 0, true, errs.New(errs.IoError, "stream.slice", "", err)
	}
	return f, size - sliceHeaderSize, true, nil
}

func (s *SliceReader) reader() io.Reader {
	if s.embedded {
		return s.base
	}
	return s.cur
}

// advanceSlice moves to the next slice after the current one is
// exhausted, resetting the within-slice position.
func (s *SliceReader) advanceSlice() error {
	if s.embedded {
		return errs.Newf(errs.FormatError, "stream.slice", "", "cannot change slices in a single-file setup")
	}
	if err := s.openSlice(s.currentSlice + 1); err != nil {
		return err
	}
	s.pos = 0
	return nil
}

// Seek positions the reader at offset bytes into the given slice, opening
// it (closing the previous external slice, if any) if it isn't already
// active. It reports false, with no error, when offset lies beyond the
// slice's declared size.
func (s *SliceReader) Seek(slice int, offset uint32) (bool, error) {
	if err := s.seekSlice(slice); err != nil {
		return false, err
	}
	if offset > s.sliceSize {
		return false, nil
	}
	var err error
	if s.embedded {
		_, err = s.base.Seek(int64(s.dataOffset)+int64(offset), io.SeekStart)
	} else {
		_, err = s.cur.Seek(sliceHeaderSize+int64(offset), io.SeekStart)
	}
	if err != nil {
		return false, errs.New(errs.IoError, "stream.slice", "", err)
	}
	s.pos = offset
	return true, nil
}

// Read implements io.Reader, transparently crossing slice boundaries: once
// the current slice is exhausted it opens the next one and keeps reading,
// unless this is the single-slice embedded case, in which case running off
// the end of the slice is an error.
func (s *SliceReader) Read(buf []byte) (int, error) {
	if s.currentSlice < 0 {
		if err := s.seekSlice(0); err != nil {
			return 0, err
		}
	}

	total := 0
	for len(buf) > 0 {
		remaining := s.sliceSize - s.pos
		if remaining == 0 {
			if err := s.advanceSlice(); err != nil {
				return total, err
			}
			remaining = s.sliceSize - s.pos
			if remaining == 0 {
				break
			}
		}
		want := remaining
		if uint32(len(buf)) < want {
			want = uint32(len(buf))
		}
		n, err := io.ReadFull(s.reader(), buf[:want])
		if n > 0 {
			total += n
			s.pos += uint32(n)
			buf = buf[n:]
		}
		if err != nil {
			if total == 0 {
				return 0, errs.New(errs.IoError, "stream.slice", "", err)
			}
			return total, nil
		}
	}
	if total == 0 {
		return 0, io.EOF
	}
	return total, nil
}

// CurrentSlice reports the index of the slice the next read will come
// from. An external reader reports -1 before the first read or seek; an
// embedded reader always reports 0.
func (s *SliceReader) CurrentSlice() int { return s.currentSlice }
