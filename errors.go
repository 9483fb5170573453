// errors.go
package diem

import (
	"fmt"

	"github.com/diem-pm/diem/pkg/core"
)

// Re-export the domain sentinels so callers can match errors without
// importing pkg/core.
var (
	ErrNoProvider         = core.ErrNoProvider
	ErrInvalidReference   = core.ErrInvalidReference
	ErrProviderNotFound   = core.ErrProviderNotFound
	ErrPackageNotFound    = core.ErrPackageNotFound
	ErrPackageInfo        = core.ErrPackageInfo
	ErrInvalidPackage     = core.ErrInvalidPackage
	ErrBinaryExists       = core.ErrBinaryExists
	ErrChecksumMismatch   = core.ErrChecksumMismatch
	ErrScriptFailed       = core.ErrScriptFailed
	ErrInstallLocked      = core.ErrInstallLocked
	ErrUnsupportedVersion = core.ErrUnsupportedVersion
	ErrInconsistentState  = core.ErrInconsistentState
)

// Error wraps an error with the operation and package it concerns
type Error struct {
	Op      string // Operation that failed
	Package string // Package reference if applicable
	Err     error  // Underlying error
}

func (e *Error) Error() string {
	if e.Package != "" {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Package, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}
