// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package extract drives the end-to-end recovery of an installer's
// payload: it turns a parsed setup.Info plus the installer's slices into
// a concrete set of files, reading each through the stream package's
// chunk/file readers and handing the result to caller-supplied
// collaborators. The driver never touches the filesystem, a terminal, or
// a clock directly -- every external effect goes through one of the
// interfaces below, so the same driver serves a CLI, a GUI, or a test
// double equally well.
package extract

// OpenFlags tells a SinkFactory how the collision resolver already decided
// to open a destination.
type OpenFlags struct {
	// Overwrite is true when an existing file at this path should be
	// replaced rather than treated as an error.
	Overwrite bool
}

// OutputSink is the destination for one recovered file's bytes, kept open
// across every chunk that contributes to it (solid-compressed files are
// commonly split across many chunks; GOG Galaxy multi-part files are split
// across many data entries, each its own chunk span).
type OutputSink interface {
	Write(p []byte) (int, error)
	Seek(offset int64) error
	Close() error

	// SetTimes applies the data entry's recorded modification time once
	// the sink's content is final. sec is Unix seconds, nsec the
	// remaining nanoseconds.
	SetTimes(sec int64, nsec uint32) error
}

// SinkFactory opens an OutputSink for a destination path the driver has
// already resolved (placeholders expanded, collisions decided).
type SinkFactory interface {
	Open(path string, flags OpenFlags) (OutputSink, error)
}

// ProgressSink reports extraction progress and lets the caller request
// cancellation; the driver polls Cancelled between files and between
// 80 KiB copy blocks, never in the middle of one.
type ProgressSink interface {
	SetTotal(bytes int64)
	Advance(bytes int64)
	Cancelled() bool
}

// PasswordProvider supplies the password for an encrypted chunk. Get
// returns ok == false when no password is available (not merely empty),
// distinguishing "don't have one" from "it's blank".
type PasswordProvider interface {
	Get() (password string, ok bool)
}

// nullProgress is the ProgressSink a Driver falls back to when the caller
// doesn't care about progress reporting or cancellation.
type nullProgress struct{}

func (nullProgress) SetTotal(int64)  {}
func (nullProgress) Advance(int64)   {}
func (nullProgress) Cancelled() bool { return false }
