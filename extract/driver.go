// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package extract

import (
	"fmt"
	"io"

	"github.com/saferwall/innoextract/checksum"
	"github.com/saferwall/innoextract/errs"
	"github.com/saferwall/innoextract/log"
	"github.com/saferwall/innoextract/setup"
	"github.com/saferwall/innoextract/stream"
)

// copyBlockSize is the unit the driver copies recovered bytes in, and the
// granularity at which it polls ProgressSink.Cancelled.
const copyBlockSize = 80 * 1024

// ExistingFileProbe lets the driver learn about a file already present at
// a destination path before deciding whether a new one should replace it.
// A nil probe tells the driver no destination ever collides, so every
// planned file is written outright -- appropriate for extracting into an
// empty directory, or whenever the caller has already cleared collisions
// itself.
type ExistingFileProbe interface {
	Stat(path string) (version uint64, exists bool)
}

// Driver runs the extraction pipeline against one already parsed Info and
// its slices, writing recovered files through a caller-supplied
// SinkFactory and never touching the filesystem itself.
type Driver struct {
	Info   *setup.Info
	Slices *stream.SliceReader

	Sinks     SinkFactory
	Progress  ProgressSink
	Passwords PasswordProvider
	Probe     ExistingFileProbe
	Logger    *log.Helper

	// Policy is the fallback collision policy ResolveCollision applies
	// once a planned file's own flags don't already settle the question.
	Policy CollisionPolicy

	// FailOnChecksumMismatch turns a per-file hash mismatch from a warning
	// into a fatal error -- set for integrity-test mode, left false for
	// plain extraction.
	FailOnChecksumMismatch bool

	// RequirePasswordCheck verifies the supplied password against
	// Info.Header.Password before any chunk is decrypted, turning a wrong
	// password into an immediate EncryptionError instead of deferring to
	// the per-chunk magic check.
	RequirePasswordCheck bool
}

// openSink bundles the live OutputSink for one in-progress planned file
// with what's needed to finish it once its last chain link is read.
type openSink struct {
	sink      OutputSink
	verifiers []*stream.FileReader // one per chain link, checked only on the final link
	skipped   bool
}

// Run executes plan against d.Slices, grouping by chunk and reading each
// chunk exactly once regardless of how many planned files draw from it.
func (d *Driver) Run(plan []PlannedFile) error {
	progress := d.Progress
	if progress == nil {
		progress = nullProgress{}
	}

	if err := d.checkPassword(); err != nil {
		return err
	}

	var total int64
	for _, pf := range plan {
		for _, link := range pf.Chain {
			total += int64(d.Info.DataEntries[link.dataIdx].File.Size)
		}
	}
	progress.SetTotal(total)

	groups := GroupByChunk(d.Info, plan)
	open := make(map[string]*openSink)

	for _, group := range groups {
		if progress.Cancelled() {
			return nil
		}
		if err := d.runChunk(group, plan, open, progress); err != nil {
			return err
		}
	}
	return nil
}

// checkPassword validates the supplied password against the installer's
// stored password hash before any chunk is decrypted. It is a no-op unless
// RequirePasswordCheck is set, the installer is password-protected, and a
// password was actually supplied.
func (d *Driver) checkPassword() error {
	if !d.RequirePasswordCheck || !d.Info.Header.Options.Password {
		return nil
	}
	if d.Passwords == nil {
		return nil
	}
	password, ok := d.Passwords.Get()
	if !ok {
		return nil
	}

	h := checksum.NewHasher(d.Info.Header.Password.Kind)
	h.Update(d.Info.Header.PasswordSalt)
	h.Update([]byte(password))
	if !h.Finalize().Equal(d.Info.Header.Password) {
		return errs.Newf(errs.EncryptionError, "extract", "", "incorrect password provided")
	}
	return nil
}

func (d *Driver) runChunk(group chunkGroup, plan []PlannedFile, open map[string]*openSink, progress ProgressSink) error {
	password := ""
	if group.loc.Encryption != setup.Plaintext {
		if d.Passwords == nil {
			return errs.Newf(errs.EncryptionError, "extract", "", "installer is password-protected but no password was supplied")
		}
		pw, ok := d.Passwords.Get()
		if !ok {
			return errs.Newf(errs.EncryptionError, "extract", "", "installer is password-protected but no password was supplied")
		}
		password = pw
	}

	chunkReader, err := stream.NewChunkReader(d.Slices, group.loc, password, d.Info.Header.PasswordSalt)
	if err != nil {
		return err
	}

	var chunkPos uint64
	for _, item := range group.items {
		if progress.Cancelled() {
			return nil
		}

		entry := d.Info.DataEntries[item.dataIdx]
		if entry.File.Offset < chunkPos {
			return errs.Newf(errs.FormatError, "extract", "", "data entry %d overlaps the previous one in its chunk", item.dataIdx)
		}
		if entry.File.Offset > chunkPos {
			if err := stream.DiscardChunkBytes(chunkReader, entry.File.Offset-chunkPos); err != nil {
				return err
			}
		}
		chunkPos = entry.File.Offset + entry.File.Size

		pf := plan[item.fileIdx]
		link := pf.Chain[item.linkIdx]

		os, err := d.sinkFor(pf, open)
		if err != nil {
			return err
		}

		fr := stream.NewFileReader(chunkReader, entry.File)
		if !os.skipped {
			if err := d.copyTo(os.sink, fr, progress); err != nil {
				return err
			}
		} else if _, err := io.Copy(io.Discard, fr); err != nil {
			return errs.New(errs.IoError, "extract", "", err)
		}
		os.verifiers = append(os.verifiers, fr)

		if link.final {
			delete(open, pf.Path)
			if !os.skipped {
				if err := d.finishSink(pf, os); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

func (d *Driver) sinkFor(pf PlannedFile, open map[string]*openSink) (*openSink, error) {
	if os, ok := open[pf.Path]; ok {
		return os, nil
	}

	decision := DecisionOverwrite
	if d.Probe != nil {
		existingVersion, exists := d.Probe.Stat(pf.Path)
		if exists {
			decision = ResolveCollision(d.Policy, CollisionInfo{
				ExistingVersion: existingVersion,
				NewVersion:      pf.Version,
				Flags: CollisionFlags{
					PromptIfOlder:                      pf.Options.PromptIfOlder,
					OverwriteSameVersion:                pf.Options.OverwriteSameVersion,
					ReplaceSameVersionIfContentsDiffer:  pf.Options.ReplaceSameVersionIfContentsDiffer,
				},
			})
		}
	}

	switch decision {
	case DecisionError:
		return nil, errs.Newf(errs.IoError, "extract", "", "destination already exists: %s", pf.Path)
	case DecisionSkip:
		os := &openSink{skipped: true}
		open[pf.Path] = os
		return os, nil
	case DecisionRename:
		path, err := d.renamedPath(pf.Path)
		if err != nil {
			return nil, err
		}
		sink, err := d.Sinks.Open(path, OpenFlags{})
		if err != nil {
			return nil, errs.New(errs.IoError, "extract", "", err)
		}
		os := &openSink{sink: sink}
		open[pf.Path] = os
		return os, nil
	default:
		sink, err := d.Sinks.Open(pf.Path, OpenFlags{Overwrite: true})
		if err != nil {
			return nil, errs.New(errs.IoError, "extract", "", err)
		}
		os := &openSink{sink: sink}
		open[pf.Path] = os
		return os, nil
	}
}

func (d *Driver) renamedPath(path string) (string, error) {
	for i := 1; i <= 1000; i++ {
		candidate := fmt.Sprintf("%s (%d)", path, i)
		if d.Probe == nil {
			return candidate, nil
		}
		if _, exists := d.Probe.Stat(candidate); !exists {
			return candidate, nil
		}
	}
	return "", errs.Newf(errs.IoError, "extract", "", "could not find a free name for %s", path)
}

func (d *Driver) copyTo(sink OutputSink, r io.Reader, progress ProgressSink) error {
	buf := make([]byte, copyBlockSize)
	for {
		if progress.Cancelled() {
			return nil
		}
		n, err := r.Read(buf)
		if n > 0 {
			if _, werr := sink.Write(buf[:n]); werr != nil {
				return errs.New(errs.IoError, "extract", "", werr)
			}
			progress.Advance(int64(n))
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return errs.New(errs.IoError, "extract", "", err)
		}
	}
}

func (d *Driver) finishSink(pf PlannedFile, os *openSink) error {
	ok := true
	for _, v := range os.verifiers {
		if !v.Verify() {
			ok = false
		}
	}
	if !ok {
		msg := fmt.Sprintf("checksum mismatch for %s", pf.Path)
		if d.FailOnChecksumMismatch {
			os.sink.Close()
			return errs.Newf(errs.ChecksumError, "extract", "", "%s", msg)
		}
		if d.Logger != nil {
			d.Logger.Warnf("%s", msg)
		}
	}

	if err := os.sink.SetTimes(pf.Timestamp, pf.TimestampNsec); err != nil {
		os.sink.Close()
		return errs.New(errs.IoError, "extract", "", err)
	}
	if err := os.sink.Close(); err != nil {
		return errs.New(errs.IoError, "extract", "", err)
	}
	return nil
}
