// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
	"github.com/saferwall/innoextract/loader"
)

// ComponentOptions are a ComponentEntry's flag bits. Which bits actually
// exist on disk depends on the installer version; see ComponentEntry.Load.
type ComponentOptions struct {
	Fixed                     bool
	Restart                   bool
	DisableNoUninstallWarning bool
	Exclusive                 bool
	DontInheritCheck          bool
}

// ComponentEntry (introduced in 2.0.0) is one selectable install
// component: a named, optionally nested unit of files/tasks the wizard's
// component page lets the user include or exclude.
type ComponentEntry struct {
	Name        []byte
	Description []byte
	Types       []byte
	Languages   []byte
	Check       []byte

	ExtraDiskSpaceRequired uint64

	Level int32
	Used  bool

	WinVer WindowsVersionRange

	Options ComponentOptions

	Size uint64
}

// Load reads one ComponentEntry at v.
func (c *ComponentEntry) Load(r io.Reader, v loader.Version, warn binutil.WarnFunc) error {
	var err error

	if c.Name, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if c.Description, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}
	if c.Types, err = binutil.ReadBinaryString(r); err != nil {
		return err
	}

	if v.Value >= loader.Pack(4, 0, 1, 0) {
		if c.Languages, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(1, 3, 24, 0)) {
		if c.Check, err = binutil.ReadBinaryString(r); err != nil {
			return err
		}
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) {
		size, err := binutil.ReadU64(r)
		if err != nil {
			return err
		}
		c.ExtraDiskSpaceRequired = size
	} else {
		size, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		c.ExtraDiskSpaceRequired = uint64(size)
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(3, 0, 3, 0)) {
		level, err := binutil.ReadS32(r)
		if err != nil {
			return err
		}
		c.Level = level
	} else {
		c.Level = 0
	}

	if v.Value >= loader.Pack(4, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(3, 0, 4, 0)) {
		used, err := binutil.ReadBool(r)
		if err != nil {
			return err
		}
		c.Used = used
	} else {
		c.Used = true
	}

	if err := c.WinVer.load(r, v); err != nil {
		return err
	}

	fr := binutil.NewFlagReader(r, warn)
	c.Options.Fixed = fr.Add()
	c.Options.Restart = fr.Add()
	c.Options.DisableNoUninstallWarning = fr.Add()
	if v.Value >= loader.Pack(3, 0, 8, 0) || (v.IsISX() && v.Value >= loader.Pack(3, 0, 6, 1)) {
		c.Options.Exclusive = fr.Add()
	}
	if v.Value >= loader.Pack(4, 2, 3, 0) {
		c.Options.DontInheritCheck = fr.Add()
	}
	if err := fr.Finish(); err != nil {
		return err
	}

	switch {
	case v.Value >= loader.Pack(4, 0, 0, 0):
		size, err := binutil.ReadU64(r)
		if err != nil {
			return err
		}
		c.Size = size
	case v.Value >= loader.Pack(2, 0, 0, 0) || (v.IsISX() && v.Value >= loader.Pack(1, 3, 24, 0)):
		size, err := binutil.ReadU32(r)
		if err != nil {
			return err
		}
		c.Size = uint64(size)
	}

	return nil
}
