// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package filenames expands the "{app}\docs\readme.txt" style placeholder
// paths the installer's directory/file/icon records store into plain,
// forward-slash-separated, platform-neutral paths.
package filenames

import "strings"

// Map resolves "{key}" placeholders within a stored path to their runtime
// values -- install directory, common-files folder, and so on -- supplied
// by the caller (they come from outside the container format itself: the
// installer's [Setup] section, constants, and the user's chosen install
// location).
type Map struct {
	values map[string]string

	// Lowercase additionally folds every literal (non-substituted)
	// character to lowercase, matching the installer's "create case
	// insensitive directory names" behavior on systems where it applies.
	Lowercase bool
}

// NewMap builds a Map from a set of already-resolved key/value pairs. Keys
// are matched case-insensitively, so callers may pass them in any case.
func NewMap(values map[string]string, lowercase bool) *Map {
	m := &Map{values: make(map[string]string, len(values)), Lowercase: lowercase}
	for k, v := range values {
		m.values[strings.ToLower(k)] = v
	}
	return m
}

func (m *Map) lookup(key string) string {
	if v, ok := m.values[key]; ok {
		return v
	}
	return key
}

// Convert expands name's "{key}" placeholders and returns the equivalent
// forward-slash path. A "{" with no matching "}" is dropped (along with
// the placeholder braces -- there is no literal "{" in the result), and an
// unknown key substitutes its own name verbatim; both mirror the installer's
// own parser rather than failing the whole path.
func (m *Map) Convert(name string) string {
	var segments []string
	var buffer strings.Builder
	start := 0

	flushLiteral := func(segment string) {
		if m.Lowercase {
			segment = strings.ToLower(segment)
		}
		buffer.WriteString(segment)
	}

	for {
		pos := strings.IndexAny(name[start:], "{\\")
		if pos < 0 {
			flushLiteral(name[start:])
			segments = append(segments, buffer.String())
			buffer.Reset()
			break
		}
		pos += start

		if name[pos] == '\\' {
			flushLiteral(name[start:pos])
			segments = append(segments, buffer.String())
			buffer.Reset()
			start = pos + 1
			continue
		}

		flushLiteral(name[start:pos])

		end := strings.IndexByte(name[pos+1:], '}')
		if end < 0 {
			start = pos + 1
			continue
		}
		end += pos + 1

		key := strings.ToLower(name[pos+1 : end])
		buffer.WriteString(m.lookup(key))
		start = end + 1
	}

	return strings.Join(segments, "/")
}
