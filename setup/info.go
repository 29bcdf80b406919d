// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"fmt"
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/errs"
	"github.com/saferwall/innoextract/loader"
	"github.com/saferwall/innoextract/stream"
)

// Options controls how Info.Load interprets an ambiguous or otherwise
// unusual installer; the zero value reproduces the original, permissive
// behavior.
type Options struct {
	// ForceCodepage overrides the codepage used to interpret non-Unicode
	// string fields; 0 lets it be inferred from the installer's language
	// list.
	ForceCodepage uint32

	// NoUnknownVersion rejects an installer whose version string did not
	// match any known stamp instead of attempting to parse it as the
	// nearest neighbor.
	NoUnknownVersion bool
}

// Info is the fully parsed header block of one installer: the detected
// version, the resolved codepage for non-Unicode string fields, the
// singleton Header record, and every variable-length record list the
// Header's counts describe.
type Info struct {
	Version  loader.Version
	Codepage uint32

	Header Header

	Languages              []LanguageEntry
	Messages               []MessageEntry
	Permissions            []PermissionEntry
	Types                  []TypeEntry
	Components             []ComponentEntry
	Tasks                  []TaskEntry
	Directories            []DirectoryEntry
	Files                  []FileEntry
	Icons                  []IconEntry
	IniEntries             []IniEntry
	RegistryEntries        []RegistryEntry
	DeleteEntries          []DeleteEntry
	UninstallDeleteEntries []DeleteEntry
	RunEntries             []RunEntry
	UninstallRunEntries    []RunEntry

	DataEntries []DataEntry

	// WizardImages/WizardImagesSmall are the installer-UI banner bitmaps,
	// present for every version; WizardImagesSmall additionally requires
	// 2.0.0+ or an ISX build.
	WizardImages      [][]byte
	WizardImagesSmall [][]byte

	// DecompressorDLL/DecryptDLL are embedded helper-DLL payloads some
	// older or encrypted installers carry alongside the header block.
	DecompressorDLL []byte
	DecryptDLL      []byte

	// Warnings accumulates the non-fatal diagnostics emitted while parsing
	// the version that was ultimately accepted.
	Warnings []string
}

// Load detects the setup data version at the front of r and parses the
// complete header block that follows it, retrying with neighboring known
// versions when the detected version is itself ambiguous in the historical
// record. r must be positioned at the loader offset table's header_offset
// and support seeking, since a failed attempt rewinds and retries.
func (info *Info) Load(r io.ReadSeeker, opts Options) error {
	v, err := loader.ReadVersion(r)
	if err != nil {
		return err
	}
	info.Version = v

	if !v.Known && opts.NoUnknownVersion {
		return errs.Newf(errs.FormatError, "setup.info", v.String(), "unrecognized setup data version")
	}

	listedVersion := v.Value
	ambiguous := !v.Known || v.IsAmbiguous()

	start, err := r.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}

	parsedWithoutErrors := false
	var lastErr error

	for {
		var warnings []string
		warn := func(format string, args ...interface{}) {
			warnings = append(warnings, fmt.Sprintf(format, args...))
		}

		loadErr := info.tryLoad(r, opts.ForceCodepage, warn)
		if loadErr == nil && len(warnings) == 0 {
			info.Warnings = nil
			return nil
		}

		if loadErr == nil {
			// Parsed cleanly except for warnings: remember it as the best
			// candidate so far, but keep looking for a version that parses
			// without any complaint at all.
			if !parsedWithoutErrors {
				listedVersion = info.Version.Value
				parsedWithoutErrors = true
			}
		} else {
			lastErr = loadErr
		}

		if _, err := r.Seek(start, io.SeekStart); err != nil {
			return err
		}

		next := info.Version.Next()
		if !ambiguous || next == 0 {
			if info.Version.Value != listedVersion {
				// Rewind to the best candidate seen and report its results.
				info.Version.Value = listedVersion
				var warn2 []string
				err := info.tryLoad(r, opts.ForceCodepage, func(format string, args ...interface{}) {
					warn2 = append(warn2, fmt.Sprintf(format, args...))
				})
				if err != nil {
					return err
				}
				info.Warnings = warn2
				return nil
			}
			if parsedWithoutErrors {
				info.Warnings = warnings
				return nil
			}
			if lastErr != nil {
				return lastErr
			}
			return fmt.Errorf("setup: unable to parse headers for version %s", info.Version.String())
		}

		info.Version.Value = next
		ambiguous = info.Version.IsAmbiguous()
	}
}

// tryLoad parses the two header-block streams for info.Version. It fills in
// info's fields as it goes, so on error info may hold part of this
// attempt's records; Load then rewinds and retries or returns the error.
func (info *Info) tryLoad(r io.ReadSeeker, forceCodepage uint32, warn binutil.WarnFunc) error {
	v := info.Version

	primary, err := stream.NewHeaderBlockReader(r, v)
	if err != nil {
		return err
	}

	if err := info.Header.Load(primary, v, warn); err != nil {
		return err
	}

	languages := make([]LanguageEntry, info.Header.LanguageCount)
	for i := range languages {
		if err := languages[i].Load(primary, v, warn); err != nil {
			return err
		}
	}
	info.Languages = languages

	switch {
	case v.IsUnicode():
		info.Codepage = cpUTF16LE
	case forceCodepage != 0:
		info.Codepage = forceCodepage
	case len(languages) == 0:
		info.Codepage = cpWindows1252
	default:
		// Non-Unicode installers have no single defined codepage; guess one
		// from the available languages, preferring Windows-1252 if any
		// language uses it.
		info.Codepage = languages[0].Codepage
		for _, l := range languages {
			if l.Codepage == cpWindows1252 {
				info.Codepage = cpWindows1252
				break
			}
		}
	}
	for i := range info.Languages {
		info.Languages[i].ResolveName()
	}

	if v.Value < loader.Pack(4, 0, 0, 0) {
		if err := info.loadWizardAndDecompressor(primary, warn); err != nil {
			return err
		}
	}

	if err := loadEntryList(primary, int(info.Header.MessageCount), &info.Messages, func(e *MessageEntry) error {
		return e.Load(primary, len(info.Languages), warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.PermissionCount), &info.Permissions, func(e *PermissionEntry) error {
		return e.Load(primary)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.TypeCount), &info.Types, func(e *TypeEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.ComponentCount), &info.Components, func(e *ComponentEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.TaskCount), &info.Tasks, func(e *TaskEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.DirectoryCount), &info.Directories, func(e *DirectoryEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.FileCount), &info.Files, func(e *FileEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.IconCount), &info.Icons, func(e *IconEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.IniEntryCount), &info.IniEntries, func(e *IniEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.RegistryEntryCount), &info.RegistryEntries, func(e *RegistryEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.DeleteEntryCount), &info.DeleteEntries, func(e *DeleteEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.UninstallDeleteEntryCount), &info.UninstallDeleteEntries, func(e *DeleteEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.RunEntryCount), &info.RunEntries, func(e *RunEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}
	if err := loadEntryList(primary, int(info.Header.UninstallRunEntryCount), &info.UninstallRunEntries, func(e *RunEntry) error {
		return e.Load(primary, v, warn)
	}); err != nil {
		return err
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) {
		if err := info.loadWizardAndDecompressor(primary, warn); err != nil {
			return err
		}
	}

	if err := checkStreamExhausted(primary); err != nil {
		return fmt.Errorf("unknown data at end of primary header stream: %w", err)
	}

	secondary, err := stream.NewHeaderBlockReader(r, v)
	if err != nil {
		return err
	}

	if err := loadEntryList(secondary, int(info.Header.DataEntryCount), &info.DataEntries, func(e *DataEntry) error {
		return e.Load(secondary, &info.Header, v, warn)
	}); err != nil {
		return err
	}

	if err := checkStreamExhausted(secondary); err != nil {
		return fmt.Errorf("unknown data at end of secondary header stream: %w", err)
	}

	return nil
}

// loadEntryList allocates *out to count elements and loads each with fn, in
// order -- the shared shape every record list in the header block follows.
func loadEntryList[T any](r io.Reader, count int, out *[]T, fn func(*T) error) error {
	list := make([]T, count)
	for i := range list {
		if err := fn(&list[i]); err != nil {
			return err
		}
	}
	*out = list
	return nil
}

// loadWizardAndDecompressor reads the installer-UI banner bitmaps and the
// optional embedded decompressor/decrypt helper DLLs. Versions before
// 4.0.0 store this block before the installed-item record lists; 4.0.0 and
// later store it after.
func (info *Info) loadWizardAndDecompressor(r io.Reader, warn binutil.WarnFunc) error {
	v := info.Version

	loadImages := func() ([][]byte, error) {
		count := 1
		if v.Value >= loader.Pack(5, 6, 0, 0) {
			n, err := binutil.ReadU32(r)
			if err != nil {
				return nil, err
			}
			count = int(n)
		}
		images := make([][]byte, count)
		for i := range images {
			b, err := binutil.ReadBinaryString(r)
			if err != nil {
				return nil, err
			}
			images[i] = b
		}
		if v.Value < loader.Pack(5, 6, 0, 0) && len(images) > 0 && len(images[0]) == 0 {
			images = nil
		}
		return images, nil
	}

	images, err := loadImages()
	if err != nil {
		return err
	}
	info.WizardImages = images

	if v.Value >= loader.Pack(2, 0, 0, 0) || v.IsISX() {
		small, err := loadImages()
		if err != nil {
			return err
		}
		info.WizardImagesSmall = small
	}

	info.DecompressorDLL = nil
	switch {
	case info.Header.Compression == CompressionBZip2,
		info.Header.Compression == CompressionLZMA1 && v.Value == loader.Pack(4, 1, 5, 0),
		info.Header.Compression == CompressionZlib && v.Value >= loader.Pack(4, 2, 6, 0):
		dll, err := binutil.ReadBinaryString(r)
		if err != nil {
			return err
		}
		info.DecompressorDLL = dll
	}

	info.DecryptDLL = nil
	if info.Header.Options.EncryptionUsed {
		dll, err := binutil.ReadBinaryString(r)
		if err != nil {
			return err
		}
		info.DecryptDLL = dll
	}

	return nil
}

// checkStreamExhausted reports an error if r has any bytes left to read.
func checkStreamExhausted(r io.Reader) error {
	var b [1]byte
	n, err := r.Read(b[:])
	if n > 0 {
		return fmt.Errorf("trailing data")
	}
	if err != nil && err != io.EOF {
		return err
	}
	return nil
}
