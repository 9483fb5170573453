// pkg/core/package.go
package core

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// PackageInfoFile is the descriptor file name inside a package's
// directory.
const PackageInfoFile = "package.json"

// Package is the descriptor persisted as package.json in a provider's
// shared directory and recorded in the package database on install.
type Package struct {
	Name          string   `json:"name"`
	Version       string   `json:"version"`
	Provider      string   `json:"provider,omitempty"`
	Description   string   `json:"description,omitempty"`
	Binaries      []string `json:"binaries"`
	InstallScript string   `json:"installScript,omitempty"`
	URL           string   `json:"url,omitempty"`
	Checksum      string   `json:"checksum,omitempty"`
}

// ParsePackage parses and validates a package.json document.
func ParsePackage(data []byte) (*Package, error) {
	var pkg Package
	if err := json.Unmarshal(data, &pkg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPackageInfo, err)
	}
	if err := pkg.Validate(); err != nil {
		return nil, err
	}
	return &pkg, nil
}

// Validate checks the full set of recognized fields and constraints.
func (p *Package) Validate() error {
	if p.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidPackage)
	}
	if !validName(p.Name) {
		return fmt.Errorf("%w: name %q may only contain alphanumerics, '-', '_' and '.'", ErrInvalidPackage, p.Name)
	}
	if p.Version == "" {
		return fmt.Errorf("%w: version is required", ErrInvalidPackage)
	}
	for _, bin := range p.Binaries {
		if bin == "" {
			return fmt.Errorf("%w: empty binary path", ErrInvalidPackage)
		}
		if path.IsAbs(bin) || strings.Contains(bin, "..") {
			return fmt.Errorf("%w: binary path %q must be relative to the package directory", ErrInvalidPackage, bin)
		}
	}
	return nil
}

// Marshal renders the descriptor as indented JSON suitable for
// writing to package.json.
func (p *Package) Marshal() ([]byte, error) {
	return json.MarshalIndent(p, "", "  ")
}

// Reference returns the package's reference as derived from its
// descriptor fields.
func (p *Package) Reference() Reference {
	return Reference{Provider: p.Provider, Name: p.Name}
}

func validName(name string) bool {
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '-' || r == '_' || r == '.':
		default:
			return false
		}
	}
	return true
}
