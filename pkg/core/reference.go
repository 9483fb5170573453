// pkg/core/reference.go
package core

import (
	"fmt"
	"strings"
)

// Reference identifies a package, optionally qualified by provider.
type Reference struct {
	Provider string
	Name     string
}

// ParseReference parses a raw reference of the form "provider:name" or
// "name". A bare name falls back to defaultProvider; with no default
// configured the parse fails. More than one colon is rejected.
func ParseReference(raw, defaultProvider string) (Reference, error) {
	parts := strings.Split(raw, ":")

	switch len(parts) {
	case 1:
		if parts[0] == "" {
			return Reference{}, fmt.Errorf("%w: empty reference", ErrInvalidReference)
		}
		if defaultProvider == "" {
			return Reference{}, fmt.Errorf("parsing %q: %w", raw, ErrNoProvider)
		}
		return Reference{Provider: defaultProvider, Name: parts[0]}, nil
	case 2:
		if parts[0] == "" || parts[1] == "" {
			return Reference{}, fmt.Errorf("%w: %q", ErrInvalidReference, raw)
		}
		return Reference{Provider: parts[0], Name: parts[1]}, nil
	default:
		return Reference{}, fmt.Errorf("%w: %q has more than one ':'", ErrInvalidReference, raw)
	}
}

// Key returns the database key for the reference: "provider:name", or
// the bare name for unqualified packages.
func (r Reference) Key() string {
	if r.Provider == "" {
		return r.Name
	}
	return r.Provider + ":" + r.Name
}

// DirName returns the install directory name: "provider_name", or the
// bare name for unqualified packages.
func (r Reference) DirName() string {
	if r.Provider == "" {
		return r.Name
	}
	return r.Provider + "_" + r.Name
}

func (r Reference) String() string {
	return r.Key()
}
