// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package errs

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorMessageIncludesVersionWhenSet(t *testing.T) {
	err := New(FormatError, "setup.file", "5.5.7", errors.New("bad flag byte"))
	msg := err.Error()
	require.Contains(t, msg, "5.5.7")
	require.Contains(t, msg, "setup.file")
	require.Contains(t, msg, "bad flag byte")
}

func TestErrorMessageOmitsVersionWhenEmpty(t *testing.T) {
	err := New(IoError, "stream.slice", "", errors.New("short read"))
	require.NotContains(t, err.Error(), "()")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := New(ChecksumError, "stream.file", "", cause)
	require.ErrorIs(t, err, cause)
}

func TestNewf(t *testing.T) {
	err := Newf(VersionError, "loader", "", "unsupported variant %d", 7)
	require.Contains(t, err.Error(), "unsupported variant 7")
	require.Equal(t, VersionError, err.Kind)
}

func TestKindString(t *testing.T) {
	kinds := []Kind{IoError, FormatError, ChecksumError, VersionError, EncryptionError, UnsupportedError}
	seen := make(map[string]bool)
	for _, k := range kinds {
		s := k.String()
		require.NotEmpty(t, s, "kind %d", k)
		require.False(t, seen[s], "kind %d reuses String() %q", k, s)
		seen[s] = true
	}
}
