// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package setup

import (
	"io"

	"github.com/saferwall/innoextract/binutil"
)

// PermissionEntry (introduced in 4.1.0) holds one raw serialized
// TGrantPermissionEntry array; the ACL format itself is an external
// collaborator's concern, so this is stored verbatim.
type PermissionEntry struct {
	Permissions []byte
}

// Load reads one PermissionEntry. The format carries no version-gated
// fields at all, so it does not need a loader.Version.
func (p *PermissionEntry) Load(r io.Reader) error {
	var err error
	p.Permissions, err = binutil.ReadBinaryString(r)
	return err
}
