// Copyright 2018 Saferwall. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

// Package errs defines the structured error type every package in this
// module wraps its sentinel errors in: a Kind classifying the failure, a
// message, and the component/version it was detected in, so a caller can
// both errors.Is against a stable sentinel and errors.As for the
// structured fields.
package errs

import "fmt"

// Kind classifies a failure the way a caller needs to react to it.
type Kind int

// The distinct failure categories a caller can branch on.
const (
	IoError Kind = iota
	FormatError
	ChecksumError
	VersionError
	EncryptionError
	UnsupportedError
)

func (k Kind) String() string {
	switch k {
	case IoError:
		return "io"
	case FormatError:
		return "format"
	case ChecksumError:
		return "checksum"
	case VersionError:
		return "version"
	case EncryptionError:
		return "encryption"
	case UnsupportedError:
		return "unsupported"
	default:
		return "unknown"
	}
}

// Error is the structured value every package-level sentinel gets wrapped
// in before it crosses a package boundary: a Kind, the component that
// detected it, the setup data version in play (empty if not yet known),
// and the underlying cause.
type Error struct {
	Kind      Kind
	Component string
	Version   string
	Err       error
}

func (e *Error) Error() string {
	if e.Version != "" {
		return fmt.Sprintf("%s: %s (version %s): %v", e.Component, e.Kind, e.Version, e.Err)
	}
	return fmt.Sprintf("%s: %s: %v", e.Component, e.Kind, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// New builds an Error. version may be empty when the failure predates
// version detection (e.g. a bootstrap or slice I/O error).
func New(kind Kind, component string, version string, err error) *Error {
	return &Error{Kind: kind, Component: component, Version: version, Err: err}
}

// Newf is New with a formatted message wrapped in errors via fmt.Errorf.
func Newf(kind Kind, component string, version string, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Component: component, Version: version, Err: fmt.Errorf(format, args...)}
}
