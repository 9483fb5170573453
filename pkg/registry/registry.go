// pkg/registry/registry.go
package registry

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/diem-pm/diem/pkg/core"
)

// Config is the persisted provider registry: the usernames whose
// shared-storage subtrees are trusted as package sources.
type Config struct {
	Providers       []string `json:"providers"`
	DefaultProvider string   `json:"defaultProvider,omitempty"`
}

// Manager resolves package references against trusted provider
// directories under the shared root and maintains the registry config.
type Manager struct {
	config     Config
	configPath string
	sharedRoot string
	logger     *zap.SugaredLogger
}

// NewManager loads the registry config at configPath, creating an
// empty one on first run.
func NewManager(configPath, sharedRoot string, logger *zap.SugaredLogger) (*Manager, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	m := &Manager{
		configPath: configPath,
		sharedRoot: sharedRoot,
		logger:     logger,
	}

	if err := m.loadOrCreateConfig(); err != nil {
		return nil, err
	}

	return m, nil
}

// Providers returns the trusted provider usernames.
func (m *Manager) Providers() []string {
	out := make([]string, len(m.config.Providers))
	copy(out, m.config.Providers)
	return out
}

// DefaultProvider returns the configured default provider, or "".
func (m *Manager) DefaultProvider() string {
	return m.config.DefaultProvider
}

// ParseReference parses a raw reference using the configured default
// provider for unqualified names.
func (m *Manager) ParseReference(raw string) (core.Reference, error) {
	return core.ParseReference(raw, m.config.DefaultProvider)
}

// AddProvider trusts a provider after verifying its shared directory
// exists. Adding an already-trusted provider is a no-op.
func (m *Manager) AddProvider(username string) error {
	if m.hasProvider(username) {
		m.logger.Warnf("Provider %s already configured", username)
		return nil
	}

	providerPath := filepath.Join(m.sharedRoot, username)
	info, err := os.Stat(providerPath)
	if err != nil || !info.IsDir() {
		return fmt.Errorf("%w: no directory at %s", core.ErrProviderNotFound, providerPath)
	}

	m.config.Providers = append(m.config.Providers, username)
	if err := m.saveConfig(); err != nil {
		return err
	}

	m.logger.Infof("Added provider %s", username)
	return nil
}

// RemoveProvider removes a provider from the trusted list, clearing
// the default provider if it pointed at the removed one.
func (m *Manager) RemoveProvider(username string) error {
	for i, p := range m.config.Providers {
		if p != username {
			continue
		}

		m.config.Providers = append(m.config.Providers[:i], m.config.Providers[i+1:]...)
		if m.config.DefaultProvider == username {
			m.config.DefaultProvider = ""
		}

		if err := m.saveConfig(); err != nil {
			return err
		}
		m.logger.Infof("Removed provider %s", username)
		return nil
	}

	return fmt.Errorf("%w: %s", core.ErrProviderNotFound, username)
}

// SetDefaultProvider marks an already-trusted provider as the default
// for unqualified references.
func (m *Manager) SetDefaultProvider(username string) error {
	if !m.hasProvider(username) {
		return fmt.Errorf("%w: %s is not a configured provider", core.ErrProviderNotFound, username)
	}

	m.config.DefaultProvider = username
	if err := m.saveConfig(); err != nil {
		return err
	}

	m.logger.Infof("Set default provider %s", username)
	return nil
}

// ResolveLocation resolves a reference to the package directory under
// the provider's shared subtree.
func (m *Manager) ResolveLocation(ref core.Reference) (string, error) {
	if !m.hasProvider(ref.Provider) {
		return "", fmt.Errorf("%w: %s", core.ErrProviderNotFound, ref.Provider)
	}

	packagePath := filepath.Join(m.sharedRoot, ref.Provider, ref.Name)
	info, err := os.Stat(packagePath)
	if err != nil || !info.IsDir() {
		return "", fmt.Errorf("%w: %s has no package at %s", core.ErrPackageNotFound, ref.Provider, packagePath)
	}

	return packagePath, nil
}

// PackageInfoFromPath reads and validates the package.json descriptor
// inside a package directory.
func (m *Manager) PackageInfoFromPath(path string) (*core.Package, error) {
	descriptorPath := filepath.Join(path, core.PackageInfoFile)

	data, err := os.ReadFile(descriptorPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %s: %v", core.ErrPackageInfo, descriptorPath, err)
	}

	pkg, err := core.ParsePackage(data)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", descriptorPath, err)
	}

	return pkg, nil
}

// ListPackages enumerates the packages of one provider, or of all
// trusted providers when provider is empty. Directories with a missing
// or invalid package.json are skipped and logged; partial results are
// returned.
func (m *Manager) ListPackages(provider string) ([]*core.Package, error) {
	providers := m.config.Providers
	if provider != "" {
		if !m.hasProvider(provider) {
			return nil, fmt.Errorf("%w: %s", core.ErrProviderNotFound, provider)
		}
		providers = []string{provider}
	}

	var packages []*core.Package
	for _, name := range providers {
		providerPath := filepath.Join(m.sharedRoot, name)

		entries, err := os.ReadDir(providerPath)
		if err != nil {
			m.logger.Warnf("Skipping provider %s: %v", name, err)
			continue
		}

		for _, entry := range entries {
			if !entry.IsDir() {
				continue
			}

			pkg, err := m.PackageInfoFromPath(filepath.Join(providerPath, entry.Name()))
			if err != nil {
				m.logger.Debugf("Skipping %s/%s: %v", name, entry.Name(), err)
				continue
			}

			if pkg.Provider == "" {
				pkg.Provider = name
			}
			packages = append(packages, pkg)
		}
	}

	sort.Slice(packages, func(i, j int) bool {
		if packages[i].Provider != packages[j].Provider {
			return packages[i].Provider < packages[j].Provider
		}
		return packages[i].Name < packages[j].Name
	})

	return packages, nil
}

// SearchPackages returns the packages whose name contains the query,
// case-insensitively.
func (m *Manager) SearchPackages(query string) ([]*core.Package, error) {
	all, err := m.ListPackages("")
	if err != nil {
		return nil, err
	}

	query = strings.ToLower(query)
	var results []*core.Package
	for _, pkg := range all {
		if strings.Contains(strings.ToLower(pkg.Name), query) {
			results = append(results, pkg)
		}
	}

	return results, nil
}

func (m *Manager) hasProvider(username string) bool {
	for _, p := range m.config.Providers {
		if p == username {
			return true
		}
	}
	return false
}

func (m *Manager) saveConfig() error {
	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := json.MarshalIndent(&m.config, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling registry config: %w", err)
	}

	if err := os.WriteFile(m.configPath, data, 0644); err != nil {
		return fmt.Errorf("writing registry config: %w", err)
	}

	return nil
}

func (m *Manager) loadOrCreateConfig() error {
	data, err := os.ReadFile(m.configPath)
	if err != nil {
		if os.IsNotExist(err) {
			m.config = Config{}
			return m.saveConfig()
		}
		return fmt.Errorf("reading registry config: %w", err)
	}

	if err := json.Unmarshal(data, &m.config); err != nil {
		return fmt.Errorf("parsing registry config %s: %w", m.configPath, err)
	}

	return nil
}
