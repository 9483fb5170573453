// pkg/core/config.go
package core

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds diem configuration
type Config struct {
	PackageRoot  string `yaml:"package_root"`  // persistent package storage (quota-limited shared fs)
	BinariesPath string `yaml:"binaries_path"` // personal bin directory holding symlinks
	SharedRoot   string `yaml:"shared_root"`   // root of per-user shared storage (provider subtrees)
	ScratchRoot  string `yaml:"scratch_root"`  // fast, size-limited scratch storage
	TempDir      string `yaml:"temp_dir"`      // downloads, install scripts, lock files
	LogLevel     string `yaml:"log_level"`
}

// DefaultConfig returns a configuration for the current user's
// shared-storage layout.
func DefaultConfig() *Config {
	user := currentUsername()
	home, err := os.UserHomeDir()
	if err != nil {
		home = filepath.Join("/sgoinfre", user)
	}

	return &Config{
		PackageRoot:  filepath.Join("/sgoinfre", user, "packages"),
		BinariesPath: filepath.Join(home, "bin"),
		SharedRoot:   "/sgoinfre",
		ScratchRoot:  filepath.Join("/goinfre", user),
		TempDir:      filepath.Join(home, ".cache", "diem"),
		LogLevel:     "info",
	}
}

// LoadConfig loads configuration from file, falling back to defaults
// for a missing file or unset fields.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return DefaultConfig(), nil
		}
		path = filepath.Join(dir, "config.yaml")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	return cfg, nil
}

// SaveConfig saves configuration to file
func SaveConfig(cfg *Config, path string) error {
	if path == "" {
		dir, err := ConfigDir()
		if err != nil {
			return err
		}
		path = filepath.Join(dir, "config.yaml")
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// ConfigDir returns the diem config directory ($HOME/.config/diem).
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}
	return filepath.Join(home, ".config", "diem"), nil
}

// RegistryConfigPath returns the provider registry location inside the
// config directory.
func RegistryConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "registry.json"), nil
}

// DatabasePath returns the package database location inside the
// persistent package root.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.PackageRoot, "packages.json")
}

// MirrorRoot returns the fast-scratch mirror directory that sync
// populates.
func (c *Config) MirrorRoot() string {
	return filepath.Join(c.ScratchRoot, "packages")
}

// EnsureDirectories creates the directories diem operates on.
func (c *Config) EnsureDirectories() error {
	for _, dir := range []string{c.PackageRoot, c.BinariesPath, c.ScratchRoot, c.TempDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	return nil
}

func currentUsername() string {
	if user := os.Getenv("USER"); user != "" {
		return user
	}
	if user := os.Getenv("USERNAME"); user != "" {
		return user
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Base(home)
	}
	return "unknown"
}

// Username reports the current user, used as the name of the user's
// own provider subtree when publishing.
func Username() string {
	return currentUsername()
}
