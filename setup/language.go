// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"
	"sort"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// windowsCodepage is a Windows language ID paired with its default ANSI
// codepage; the table omits Unicode-only languages and languages that use
// the default Windows-1252 codepage.
type windowsCodepage struct {
	LanguageID uint16
	Codepage   uint32
}

// windowsLanguageCodepages is sorted by LanguageID for defaultCodepageForLanguage's
// binary search.
var windowsLanguageCodepages = []windowsCodepage{
	{0x0401, cpWindows1256}, {0x0402, cpWindows1251}, {0x0404, cpBig5},
	{0x0405, cpWindows1250}, {0x0408, cpWindows1253}, {0x040d, cpWindows1255},
	{0x040e, cpWindows1250}, {0x0411, cpShiftJIS}, {0x0412, cpUHC},
	{0x0415, cpWindows1250}, {0x0418, cpWindows1250}, {0x0419, cpWindows1251},
	{0x041a, cpWindows1250}, {0x041b, cpWindows1250}, {0x041c, cpWindows1250},
	{0x041e, cpWindows874}, {0x041f, cpWindows1254}, {0x0420, cpWindows1256},
	{0x0422, cpWindows1251}, {0x0423, cpWindows1251}, {0x0424, cpWindows1250},
	{0x0425, cpWindows1257}, {0x0426, cpWindows1257}, {0x0427, cpWindows1257},
	{0x0429, cpWindows1256}, {0x042a, cpWindows1258}, {0x042c, cpWindows1254},
	{0x042f, cpWindows1251}, {0x043f, cpWindows1251}, {0x0440, cpWindows1251},
	{0x0443, cpWindows1254}, {0x0444, cpWindows1251}, {0x0450, cpWindows1251},
	{0x0492, cpISO8859_14}, {0x0801, cpWindows1256}, {0x0804, cpGBK},
	{0x081a, cpWindows1250}, {0x082c, cpWindows1251}, {0x0843, cpWindows1251},
	{0x0c01, cpWindows1256}, {0x0c04, cpBig5}, {0x0c1a, cpWindows1251},
	{0x1001, cpWindows1256}, {0x1004, cpGBK}, {0x1401, cpWindows1256},
	{0x1404, cpBig5}, {0x1801, cpWindows1256}, {0x1c01, cpWindows1256},
	{0x2001, cpWindows1256}, {0x2401, cpWindows1256}, {0x2801, cpWindows1256},
	{0x2c01, cpWindows1256}, {0x3001, cpWindows1256}, {0x3401, cpWindows1256},
	{0x3801, cpWindows1256}, {0x3c01, cpWindows1256}, {0x4001, cpWindows1256},
}

// Codepage identifiers used by defaultCodepageForLanguage. These are the
// well-known Windows codepage numbers, not a reimplementation of any
// transcoding: actual byte decoding is left to the caller, same as every
// other text field in this package.
const (
	cpWindows1250 = 1250
	cpWindows1251 = 1251
	cpWindows1252 = 1252
	cpWindows1253 = 1253
	cpWindows1254 = 1254
	cpWindows1255 = 1255
	cpWindows1256 = 1256
	cpWindows1257 = 1257
	cpWindows1258 = 1258
	cpWindows874  = 874
	cpShiftJIS    = 932
	cpGBK         = 936
	cpUHC         = 949
	cpBig5        = 950
	cpISO8859_14  = 28604
	cpUTF16LE     = 1200
)

func defaultCodepageForLanguage(language uint32) uint32 {
	i := sort.Search(len(windowsLanguageCodepages), func(i int) bool {
		return uint32(windowsLanguageCodepages[i].LanguageID) >= language
	})
	if i < len(windowsLanguageCodepages) && uint32(windowsLanguageCodepages[i].LanguageID) == language {
		return windowsLanguageCodepages[i].Codepage
	}
	return cpWindows1252
}

// LanguageEntry (introduced in 2.0.1) describes one UI translation: its
// display name and fonts, optional embedded license/info text, and the
// codepage its other strings for this language are encoded in.
type LanguageEntry struct {
	Name            []byte
	LanguageName    []byte
	DialogFont      []byte
	TitleFont       []byte
	WelcomeFont     []byte
	CopyrightFont   []byte
	Data            []byte
	LicenseText     []byte
	InfoBefore      []byte
	InfoAfter       []byte

	LanguageID uint32
	Codepage   uint32

	DialogFontSize            uint32
	DialogFontStandardHeight  uint32
	TitleFontSize             uint32
	WelcomeFontSize           uint32
	CopyrightFontSize         uint32

	RightToLeft bool
}

// Load reads one LanguageEntry at v.
func (l *LanguageEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	var err error

	if v.Value >= loader.Pack(4, 0, 0, 0) {
		if l.Name, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if l.LanguageName, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}

	if v.Value == loader.Pack(5, 5, 7, 1) {
		if _, err = binutil.ReadBinaryString(r); err != nil { // unused, skipped
			return err
		}
	}

	for _, dst := range []*[]byte{&l.DialogFont, &l.TitleFont, &l.WelcomeFont, &l.CopyrightFont} {
		if *dst, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) {
		if l.Data, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(4, 0, 1, 0) {
		for _, dst := range []*[]byte{&l.LicenseText, &l.InfoBefore, &l.InfoAfter} {
			if *dst, err = binutil.ReadBinaryString(r); err != nil {
				return err
			}
		}
	}

	languageID, err := binutil.ReadU32(r)
	if err != nil {
		return err
	}
	l.LanguageID = languageID

	switch {
	case v.Value < loader.Pack(4, 2, 2, 0):
		l.Codepage = defaultCodepageForLanguage(languageID)
	case !v.IsUnicode():
		cp, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		if cp == 0 {
			cp = cpWindows1252
		}
		l.Codepage = cp
	default:
		if v.Value < loader.Pack(5, 3, 0, 0) {
			if _, err := binutil.ReadU32(r); err != nil { // unused
				return err
			}
		}
		l.Codepage = cpUTF16LE
	}

	if l.DialogFontSize, err = binutil.ReadU32(r); err != nil {
		return err
	}

	if v.Value < loader.Pack(4, 1, 0, 0) {
		if l.DialogFontStandardHeight, err = binutil.ReadU32(r); err != nil {
			return err
		}
	}

	if l.TitleFontSize, err = binutil.ReadU32(r); err != nil {
		return err
	}
	if l.WelcomeFontSize, err = binutil.ReadU32(r); err != nil {
		return err
	}
	if l.CopyrightFontSize, err = binutil.ReadU32(r); err != nil {
		return err
	}

	if v.Value == loader.Pack(5, 5, 7, 1) {
		if _, err := binutil.ReadU32(r); err != nil { // always 8 or 9?
			return err
		}
	}

	if v.Value >= loader.Pack(5, 2, 3, 0) {
		if l.RightToLeft, err = binutil.ReadBool(r); err != nil {
			return err
		}
	}

	return nil
}

// ResolveName defaults Name to "default" when the installer left it empty,
// matching the one piece of language_entry::decode that survives without a
// transcoder: everything else it does is codepage decoding, left to the
// caller.
func (l *LanguageEntry) ResolveName() {
	if len(l.Name) == 0 {
		l.Name = []byte("default")
	}
}
