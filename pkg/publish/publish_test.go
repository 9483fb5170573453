// pkg/publish/publish_test.go
package publish

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diem-pm/diem/pkg/core"
)

func testManifest() *Manifest {
	return &Manifest{
		Name:     "mytool",
		Version:  "1.0.0",
		Binaries: []string{"bin/mytool"},
		Files:    []string{"bin", "README.md"},
	}
}

func testProject(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bin", "mytool"), []byte("#!/bin/sh"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("docs"), 0644))
	return dir
}

func TestLoadManifest(t *testing.T) {
	dir := testProject(t)
	content := `
name = "mytool"
version = "1.0.0"
description = "My little tool"
binaries = ["bin/mytool"]
files = ["bin", "README.md"]
`
	path := filepath.Join(dir, "diem.toml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	manifest, err := LoadManifest(path)
	require.NoError(t, err)
	assert.Equal(t, "mytool", manifest.Name)
	assert.Equal(t, "1.0.0", manifest.Version)
	assert.Equal(t, []string{"bin/mytool"}, manifest.Binaries)
}

func TestLoadManifestInvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "diem.toml")
	require.NoError(t, os.WriteFile(path, []byte("name = [broken"), 0644))

	_, err := LoadManifest(path)
	assert.Error(t, err)
}

func TestManifestValidate(t *testing.T) {
	projectDir := testProject(t)

	t.Run("valid", func(t *testing.T) {
		assert.NoError(t, testManifest().Validate(projectDir))
	})

	t.Run("missing name", func(t *testing.T) {
		m := testManifest()
		m.Name = ""
		assert.ErrorIs(t, m.Validate(projectDir), core.ErrInvalidPackage)
	})

	t.Run("bad name characters", func(t *testing.T) {
		m := testManifest()
		m.Name = "my tool!"
		assert.ErrorIs(t, m.Validate(projectDir), core.ErrInvalidPackage)
	})

	t.Run("non-numeric version", func(t *testing.T) {
		m := testManifest()
		m.Version = "1.0-beta"
		assert.ErrorIs(t, m.Validate(projectDir), core.ErrInvalidPackage)
	})

	t.Run("no files", func(t *testing.T) {
		m := testManifest()
		m.Files = nil
		assert.ErrorIs(t, m.Validate(projectDir), core.ErrInvalidPackage)
	})

	t.Run("absolute file path", func(t *testing.T) {
		m := testManifest()
		m.Files = []string{"/etc/passwd"}
		assert.ErrorIs(t, m.Validate(projectDir), core.ErrInvalidPackage)
	})

	t.Run("file escaping the project", func(t *testing.T) {
		m := testManifest()
		m.Files = []string{"../outside"}
		assert.ErrorIs(t, m.Validate(projectDir), core.ErrInvalidPackage)
	})

	t.Run("listed file missing", func(t *testing.T) {
		m := testManifest()
		m.Files = []string{"bin", "CHANGELOG.md"}
		assert.ErrorIs(t, m.Validate(projectDir), core.ErrInvalidPackage)
	})
}

func TestPublish(t *testing.T) {
	projectDir := testProject(t)
	sharedRoot := t.TempDir()

	publisher := NewPublisher(sharedRoot, "alice", nil)
	target, err := publisher.Publish(testManifest(), projectDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(sharedRoot, "alice", "mytool"), target)

	// Files copied.
	assert.FileExists(t, filepath.Join(target, "bin", "mytool"))
	assert.FileExists(t, filepath.Join(target, "README.md"))

	// Descriptor written with the publisher as provider.
	data, err := os.ReadFile(filepath.Join(target, core.PackageInfoFile))
	require.NoError(t, err)

	pkg, err := core.ParsePackage(data)
	require.NoError(t, err)
	assert.Equal(t, "mytool", pkg.Name)
	assert.Equal(t, "alice", pkg.Provider)
	assert.Equal(t, []string{"bin/mytool"}, pkg.Binaries)
}

func TestPublishReplacesPreviousVersion(t *testing.T) {
	projectDir := testProject(t)
	sharedRoot := t.TempDir()
	publisher := NewPublisher(sharedRoot, "alice", nil)

	_, err := publisher.Publish(testManifest(), projectDir)
	require.NoError(t, err)

	// Leftover from the previous publish that the new one doesn't ship.
	stale := filepath.Join(sharedRoot, "alice", "mytool", "old-file")
	require.NoError(t, os.WriteFile(stale, []byte("stale"), 0644))

	m := testManifest()
	m.Version = "1.1.0"
	target, err := publisher.Publish(m, projectDir)
	require.NoError(t, err)

	assert.NoFileExists(t, stale)

	data, err := os.ReadFile(filepath.Join(target, core.PackageInfoFile))
	require.NoError(t, err)
	pkg, err := core.ParsePackage(data)
	require.NoError(t, err)
	assert.Equal(t, "1.1.0", pkg.Version)
}
