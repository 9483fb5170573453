// pkg/core/errors.go
package core

import "errors"

var (
	// ErrNoProvider indicates a bare package reference with no default provider configured
	ErrNoProvider = errors.New("no provider given and no default provider configured")

	// ErrInvalidReference indicates a malformed package reference
	ErrInvalidReference = errors.New("invalid package reference")

	// ErrProviderNotFound indicates the provider is not trusted or has no shared directory
	ErrProviderNotFound = errors.New("provider not found")

	// ErrPackageNotFound indicates the package was not found
	ErrPackageNotFound = errors.New("package not found")

	// ErrPackageInfo indicates a missing or invalid package.json
	ErrPackageInfo = errors.New("invalid package info")

	// ErrInvalidPackage indicates the package descriptor failed validation
	ErrInvalidPackage = errors.New("invalid package")

	// ErrBinaryExists indicates a conflicting symlink in the binaries directory
	ErrBinaryExists = errors.New("binary already exists")

	// ErrChecksumMismatch indicates a SHA256 verification failure
	ErrChecksumMismatch = errors.New("checksum mismatch")

	// ErrScriptFailed indicates the install script exited non-zero or wrote to stderr
	ErrScriptFailed = errors.New("install script failed")

	// ErrInstallLocked indicates another installation of the same package is in progress
	ErrInstallLocked = errors.New("installation already in progress")

	// ErrUnsupportedVersion indicates a version string with non-numeric segments
	ErrUnsupportedVersion = errors.New("unsupported version format")

	// ErrInconsistentState indicates a failed rollback; manual intervention required
	ErrInconsistentState = errors.New("inconsistent state, manual intervention required")
)
