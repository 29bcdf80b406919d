// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
)

// MessageEntry (introduced in 4.2.1) is one custom localized message: a
// name and a value encoded in the codepage of the language it targets, or
// -1 to mean "every language not otherwise overridden".
type MessageEntry struct {
	Name  []byte
	Value []byte

	// Language indexes into the Info's language list, or -1 for the
	// default/any-language message.
	Language int32
}

// Load reads one MessageEntry. numLanguages is the number of entries in
// the already-parsed Language vector, needed to validate Language's range
// the same way the installer itself does: an out-of-range index clears the
// value rather than failing the whole read.
func (m *MessageEntry) Load(r io.Reader, numLanguages int, warn binutil.WarnFunc) error {
	var err error
	if m.Name, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if m.Value, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}

	language, err := binutil.ReadS32(r)
	if err != nil {
		return err
	}
	m.Language = language

	if language >= 0 && int(language) >= numLanguages {
		if numLanguages > 0 && warn != nil {
			warn("setup: language index out of bounds: %d", language)
		}
		m.Value = nil
	}

	return nil
}
