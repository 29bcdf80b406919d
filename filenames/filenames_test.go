// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package filenames

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestConvertPlainPath(t *testing.T) {
	m := NewMap(nil, false)
	require.Equal(t, "docs/readme.txt", m.Convert(`docs\readme.txt`))
}

func TestConvertSubstitutesKnownKey(t *testing.T) {
	m := NewMap(map[string]string{"app": "install"}, false)
	require.Equal(t, "install/bin/tool.exe", m.Convert(`{app}\bin\tool.exe`))
}

func TestConvertUnknownKeyFallsBackToItself(t *testing.T) {
	m := NewMap(nil, false)
	require.Equal(t, "app/docs", m.Convert(`{app}\docs`))
}

func TestConvertKeyLookupIsCaseInsensitive(t *testing.T) {
	m := NewMap(map[string]string{"APP": "install"}, false)
	require.Equal(t, "install/x", m.Convert(`{App}\x`))
}

func TestConvertLowercaseFoldsLiteralText(t *testing.T) {
	m := NewMap(map[string]string{"app": "Install"}, true)
	require.Equal(t, "Install/docs/readme.txt", m.Convert(`{app}\Docs\ReadMe.TXT`))
}

func TestConvertUnterminatedBraceDropsOnlyTheBrace(t *testing.T) {
	m := NewMap(nil, false)
	// The original parser drops just the stray "{" and keeps scanning the
	// rest of the string normally -- it does not discard everything after
	// the unterminated brace.
	require.Equal(t, "abcxyz/def", m.Convert(`abc{xyz\def`))
}

func TestConvertEmptyName(t *testing.T) {
	m := NewMap(nil, false)
	require.Equal(t, "", m.Convert(""))
}
