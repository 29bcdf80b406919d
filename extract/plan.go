// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package extract

import (
	"sort"

	"github.com/saferwall/innoextract/expression"
	"github.com/saferwall/innoextract/filenames"
	"github.com/saferwall/innoextract/setup"
)

// noLocation is the sentinel FileEntry.Location value for a record with no
// corresponding DataEntry (GacInstall-only registrations).
const noLocation = 0xFFFFFFFF

// Options is the top-level configuration a caller builds once per
// installer and threads through loading, planning, and extraction: which
// files a Plan covers, and the strict-mode checks applied before that (an
// unrecognized version or a wrong password normally only produce warnings
// or a deferred failure; these turn them fatal up front).
type Options struct {
	// Component, if non-empty, is the single component identifier treated
	// as selected; files whose Components condition doesn't evaluate to
	// true under it are skipped. Empty means "every component".
	Component string
	// Task is the equivalent single-identifier filter for Tasks.
	Task string

	// NoUnknownVersion rejects an installer whose version string matched
	// no known stamp instead of parsing it as the nearest neighbor; passed
	// to setup.Info.Load as setup.Options.NoUnknownVersion.
	NoUnknownVersion bool
	// RequirePasswordCheck rejects a wrong password with EncryptionError
	// before any chunk is decrypted, instead of deferring to the per-chunk
	// magic check; passed to Driver.RequirePasswordCheck.
	RequirePasswordCheck bool
}

// chainLink is one data entry contributing bytes to a planned file, in
// the order its bytes concatenate into the final output.
type chainLink struct {
	dataIdx int
	final   bool
}

// PlannedFile is one destination the driver will (re)create: its expanded
// path and the ordered chain of data entries whose decompressed bytes
// concatenate to produce it. Every ordinary file has a chain of length 1;
// only the GOG Galaxy multi-part file extension chains more than one.
type PlannedFile struct {
	Path  string
	Chain []chainLink

	Options   setup.FileOptions
	Timestamp int64
	TimestampNsec uint32
	Version   uint64
}

// BuildPlan expands every selected FileEntry's destination path and
// resolves its chain of data entries. fm must already carry the
// placeholder substitutions ({app}, {sys}, ...) the caller's install
// location and constants provide.
func BuildPlan(info *setup.Info, fm *filenames.Map, opts Options) ([]PlannedFile, error) {
	plan := make([]PlannedFile, 0, len(info.Files))

	for _, f := range info.Files {
		if f.Location == noLocation {
			continue
		}
		if !matchesSelection(f.Components, opts.Component, info.Codepage) {
			continue
		}
		if !matchesSelection(f.Tasks, opts.Task, info.Codepage) {
			continue
		}

		dest, err := setup.DecodeString(f.Destination, info.Codepage)
		if err != nil {
			return nil, err
		}

		chain := make([]chainLink, 0, 1+len(f.AdditionalLocations))
		chain = append(chain, chainLink{dataIdx: int(f.Location)})
		for _, idx := range f.AdditionalLocations {
			chain = append(chain, chainLink{dataIdx: int(idx)})
		}
		chain[len(chain)-1].final = true

		last := info.DataEntries[chain[len(chain)-1].dataIdx]
		plan = append(plan, PlannedFile{
			Path:          fm.Convert(dest),
			Chain:         chain,
			Options:       f.Options,
			Timestamp:     last.Timestamp,
			TimestampNsec: last.TimestampNsec,
			Version:       last.FileVersion,
		})
	}

	return plan, nil
}

// matchesSelection reports whether a record's raw condition field (e.g.
// FileEntry.Components) admits selection, given a single selected
// identifier. An empty condition, or no selection filter at all, always
// matches.
func matchesSelection(condition []byte, selected string, codepage uint32) bool {
	if len(condition) == 0 || selected == "" {
		return true
	}
	expr, err := setup.DecodeString(condition, codepage)
	if err != nil {
		return true
	}
	result, _ := expression.Match(selected, expr)
	return result
}

// chunkGroup is every planned chain link whose data entry shares one
// ChunkLocation, ordered the way the driver must read them: ascending by
// the file's offset within the chunk.
type chunkGroup struct {
	loc   setup.ChunkLocation
	items []groupItem
}

type groupItem struct {
	fileIdx  int // index into the Plan slice
	linkIdx  int // index into PlannedFile.Chain
	dataIdx  int
}

// GroupByChunk partitions plan's data-entry references by the chunk they
// live in, in the on-disk order the driver must visit them: chunks
// ascending by (first_slice, offset), and, within a chunk, entries
// ascending by their file offset.
func GroupByChunk(info *setup.Info, plan []PlannedFile) []chunkGroup {
	groups := make(map[setup.ChunkLocation][]groupItem)
	for fi, pf := range plan {
		for li, link := range pf.Chain {
			loc := info.DataEntries[link.dataIdx].Chunk
			groups[loc] = append(groups[loc], groupItem{fileIdx: fi, linkIdx: li, dataIdx: link.dataIdx})
		}
	}

	ordered := make([]chunkGroup, 0, len(groups))
	for loc, items := range groups {
		sort.Slice(items, func(i, j int) bool {
			return info.DataEntries[items[i].dataIdx].File.Offset < info.DataEntries[items[j].dataIdx].File.Offset
		})
		ordered = append(ordered, chunkGroup{loc: loc, items: items})
	}
	sort.Slice(ordered, func(i, j int) bool {
		a, b := ordered[i].loc, ordered[j].loc
		if a.FirstSlice != b.FirstSlice {
			return a.FirstSlice < b.FirstSlice
		}
		return a.SortOffset < b.SortOffset
	})
	return ordered
}
