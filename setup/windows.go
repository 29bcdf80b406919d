// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// WindowsVersionData is one (major, minor, build) triple: either the
// minimum Windows release or the minimum NT kernel release a header
// requires.
type WindowsVersionData struct {
	Major uint32
	Minor uint32
	Build uint32
}

func (d *WindowsVersionData) load(r io.Reader, v loader.Version) error {
	d.Build = 0
	if v.Value >= loader.Pack(1, 3, 19, 0) {
		build, err := binutil.ReadU16(r)
		if err != nil {
			return err
		}
		d.Build = uint32(build)
	}
	minor, err := binutil.ReadU8(r)
	if err != nil {
		return err
	}
	major, err := binutil.ReadU8(r)
	if err != nil {
		return err
	}
	d.Minor, d.Major = uint32(minor), uint32(major)
	return nil
}

// ServicePack is an NT service pack level, (major, minor).
type ServicePack struct {
	Major uint32
	Minor uint32
}

// WindowsVersion is the minimum Windows and NT kernel versions, plus the
// minimum NT service pack, that a header declares as its system
// requirement.
type WindowsVersion struct {
	Win          WindowsVersionData
	NT           WindowsVersionData
	NTServicePack ServicePack
}

func (w *WindowsVersion) load(r io.Reader, v loader.Version) error {
	if err := w.Win.load(r, v); err != nil {
		return err
	}
	if err := w.NT.load(r, v); err != nil {
		return err
	}
	if v.Value >= loader.Pack(1, 3, 19, 0) {
		minor, err := binutil.ReadU8(r)
		if err != nil {
			return err
		}
		major, err := binutil.ReadU8(r)
		if err != nil {
			return err
		}
		w.NTServicePack = ServicePack{Major: uint32(major), Minor: uint32(minor)}
	}
	return nil
}

// WindowsVersionRange is the [begin, end) bound some Directory/File/Icon/Run
// records carry (component J: "minimum and maximum version" gating,
// supplemented from the original implementation — the distilled spec omits
// this range entirely but every installed-file record in the wild carries
// one, even when it is the always-true zero value).
type WindowsVersionRange struct {
	Begin WindowsVersion
	End   WindowsVersion
}

func (r *WindowsVersionRange) load(rd io.Reader, v loader.Version) error {
	if err := r.Begin.load(rd, v); err != nil {
		return err
	}
	return r.End.load(rd, v)
}
