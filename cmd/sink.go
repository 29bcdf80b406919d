// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/saferwall/innoextract/extract"
)

// fsSinkFactory opens recovered files rooted at Dir, creating parent
// directories as needed the way the original's create_directories does
// before opening each destination.
type fsSinkFactory struct {
	Dir string
}

// resolve turns a plan path (forward-slash separated, as filenames.Map
// produces it) into a path under Dir, rejecting any ".."/"." segment so a
// malicious installer's FileEntry.Destination can't escape the requested
// extraction directory.
func (f fsSinkFactory) resolve(path string) string {
	parts := strings.Split(path, "/")
	for i, p := range parts {
		parts[i] = sanitizeComponent(p)
	}
	return filepath.Join(f.Dir, filepath.Join(parts...))
}

func (f fsSinkFactory) Open(path string, flags extract.OpenFlags) (extract.OutputSink, error) {
	full := f.resolve(path)
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return nil, err
	}

	openFlags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !flags.Overwrite {
		openFlags |= os.O_EXCL
	}
	fh, err := os.OpenFile(full, openFlags, 0o644)
	if err != nil {
		return nil, err
	}
	return &fsSink{f: fh}, nil
}

type fsSink struct {
	f *os.File
}

func (s *fsSink) Write(p []byte) (int, error) { return s.f.Write(p) }

func (s *fsSink) Seek(offset int64) error {
	_, err := s.f.Seek(offset, io.SeekStart)
	return err
}

func (s *fsSink) Close() error { return s.f.Close() }

func (s *fsSink) SetTimes(sec int64, nsec uint32) error {
	t := time.Unix(sec, int64(nsec))
	return os.Chtimes(s.f.Name(), t, t)
}

// fsExistingFileProbe answers extract.ExistingFileProbe by stat-ing
// directly under Dir; version information for an already-extracted file
// isn't recoverable from a plain stat, so every existing path reports
// version 0: a planned file with a non-zero version always overwrites it,
// and a version-0 planned file goes through the same-version flags and then
// the collision policy.
type fsExistingFileProbe struct {
	Dir string
}

func (p fsExistingFileProbe) Stat(path string) (uint64, bool) {
	full := filepath.Join(p.Dir, filepath.FromSlash(path))
	if _, err := os.Stat(full); err != nil {
		return 0, false
	}
	return 0, true
}

// sanitizeComponent mirrors the original CLI's handling of a user-supplied
// --destdir to prevent the filename map from writing outside the requested
// output tree: any path that climbs out via ".." is sanitized to
// "_" so an installer can't escape the extraction directory.
func sanitizeComponent(name string) string {
	if name == ".." || name == "." || name == "" {
		return "_"
	}
	return strings.ReplaceAll(name, "\x00", "_")
}
