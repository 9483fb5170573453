// Package publish turns a local project into a package under the
// user's own provider directory, so other users can install it with a
// "<login>:<name>" reference.
package publish

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"

	"github.com/diem-pm/diem/pkg/core"
	"github.com/diem-pm/diem/pkg/fsutil"
)

// Manifest is the publish descriptor a project keeps at its root,
// conventionally named diem.toml.
type Manifest struct {
	Name          string   `toml:"name"`
	Version       string   `toml:"version"`
	Description   string   `toml:"description,omitempty"`
	Binaries      []string `toml:"binaries"`
	Files         []string `toml:"files"`
	InstallScript string   `toml:"install_script,omitempty"`
}

// LoadManifest reads and validates a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	var manifest Manifest
	if _, err := toml.DecodeFile(path, &manifest); err != nil {
		return nil, fmt.Errorf("parsing manifest %s: %w", path, err)
	}
	if err := manifest.Validate(filepath.Dir(path)); err != nil {
		return nil, err
	}
	return &manifest, nil
}

// Validate checks the manifest fields and that every listed file
// exists relative to projectDir.
func (m *Manifest) Validate(projectDir string) error {
	if m.Name == "" {
		return fmt.Errorf("%w: manifest has no name", core.ErrInvalidPackage)
	}
	for _, r := range m.Name {
		valid := r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' ||
			r >= '0' && r <= '9' || r == '-' || r == '_'
		if !valid {
			return fmt.Errorf("%w: invalid character %q in name %q", core.ErrInvalidPackage, r, m.Name)
		}
	}

	if m.Version == "" {
		return fmt.Errorf("%w: manifest has no version", core.ErrInvalidPackage)
	}
	if _, err := core.CompareVersions(m.Version, m.Version); err != nil {
		return fmt.Errorf("%w: version %q is not dotted-numeric", core.ErrInvalidPackage, m.Version)
	}

	if len(m.Files) == 0 {
		return fmt.Errorf("%w: manifest lists no files", core.ErrInvalidPackage)
	}

	for _, file := range append(append([]string{}, m.Files...), m.Binaries...) {
		if filepath.IsAbs(file) || strings.Contains(file, "..") {
			return fmt.Errorf("%w: path %q must be relative and stay inside the project", core.ErrInvalidPackage, file)
		}
	}
	for _, file := range m.Files {
		if !fsutil.Exists(filepath.Join(projectDir, file)) {
			return fmt.Errorf("%w: listed file %q does not exist", core.ErrInvalidPackage, file)
		}
	}

	return nil
}

// Package converts the manifest into the descriptor written alongside
// the published files.
func (m *Manifest) Package(provider string) *core.Package {
	return &core.Package{
		Name:          m.Name,
		Version:       m.Version,
		Provider:      provider,
		Description:   m.Description,
		Binaries:      m.Binaries,
		InstallScript: m.InstallScript,
	}
}

// Publisher copies manifest files into the user's provider directory.
type Publisher struct {
	// SharedRoot is the shared volume holding provider directories.
	SharedRoot string

	// Username is the publishing user's login; the package lands under
	// <SharedRoot>/<Username>/<name>.
	Username string

	// Logger defaults to a no-op logger.
	Logger *zap.SugaredLogger
}

// NewPublisher creates a Publisher for the given user.
func NewPublisher(sharedRoot, username string, logger *zap.SugaredLogger) *Publisher {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Publisher{SharedRoot: sharedRoot, Username: username, Logger: logger}
}

// Publish copies the manifest's files from projectDir into the user's
// provider directory and writes the package descriptor. An existing
// published version is replaced.
func (p *Publisher) Publish(manifest *Manifest, projectDir string) (string, error) {
	if err := manifest.Validate(projectDir); err != nil {
		return "", err
	}

	targetDir := filepath.Join(p.SharedRoot, p.Username, manifest.Name)
	p.Logger.Infof("Publishing %s %s to %s", manifest.Name, manifest.Version, targetDir)

	if err := os.RemoveAll(targetDir); err != nil {
		return "", fmt.Errorf("clearing %s: %w", targetDir, err)
	}
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", fmt.Errorf("creating %s: %w", targetDir, err)
	}

	for _, file := range manifest.Files {
		source := filepath.Join(projectDir, file)
		dest := filepath.Join(targetDir, file)

		info, err := os.Lstat(source)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", source, err)
		}

		if info.IsDir() {
			err = fsutil.CopyDir(source, dest)
		} else {
			if mkErr := os.MkdirAll(filepath.Dir(dest), 0755); mkErr != nil {
				return "", fmt.Errorf("creating %s: %w", filepath.Dir(dest), mkErr)
			}
			err = fsutil.CopyFile(source, dest)
		}
		if err != nil {
			return "", fmt.Errorf("copying %s: %w", file, err)
		}
	}

	pkg := manifest.Package(p.Username)
	descriptor, err := pkg.Marshal()
	if err != nil {
		return "", fmt.Errorf("encoding descriptor: %w", err)
	}
	if err := os.WriteFile(filepath.Join(targetDir, core.PackageInfoFile), descriptor, 0644); err != nil {
		return "", fmt.Errorf("writing descriptor: %w", err)
	}

	p.Logger.Infof("Published %s:%s %s", p.Username, manifest.Name, manifest.Version)
	return targetDir, nil
}
