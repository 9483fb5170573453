// pkg/installer/installer_test.go
package installer

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/diem-pm/diem/pkg/core"
	"github.com/diem-pm/diem/pkg/database"
)

// testEnv wires an Installer over temp directories.
type testEnv struct {
	installer *Installer
	db        *database.Store
	config    *Config
	sourceDir string
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	root := t.TempDir()
	cfg := &Config{
		PackageRoot:  filepath.Join(root, "packages"),
		BinariesPath: filepath.Join(root, "bin"),
		MirrorRoot:   filepath.Join(root, "mirror"),
		TempDir:      filepath.Join(root, "tmp"),
	}
	for _, dir := range []string{cfg.PackageRoot, cfg.BinariesPath, cfg.MirrorRoot, cfg.TempDir} {
		require.NoError(t, os.MkdirAll(dir, 0755))
	}

	db := database.New(filepath.Join(cfg.PackageRoot, "packages.json"), nil)

	sourceDir := filepath.Join(root, "source")
	require.NoError(t, os.MkdirAll(filepath.Join(sourceDir, "bin"), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(sourceDir, "bin", "eza"), []byte("#!/bin/sh\necho eza"), 0755))

	return &testEnv{
		installer: New(cfg, db, nil),
		db:        db,
		config:    cfg,
		sourceDir: sourceDir,
	}
}

func testPackage() *core.Package {
	return &core.Package{
		Name:     "eza",
		Version:  "0.18.0",
		Binaries: []string{"bin/eza"},
	}
}

var testRef = core.Reference{Provider: "alice", Name: "eza"}

func TestInstallFromDirectory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.installer.Install(ctx, testPackage(), testRef, env.sourceDir, false))

	// Content landed in the package root under provider_name.
	packageDir := filepath.Join(env.config.PackageRoot, "alice_eza")
	assert.FileExists(t, filepath.Join(packageDir, "bin", "eza"))

	// Symlink points into the package directory.
	link := filepath.Join(env.config.BinariesPath, "eza")
	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(packageDir, "bin", "eza"), target)

	// Database records the install.
	rec, err := env.db.Get(testRef)
	require.NoError(t, err)
	assert.Equal(t, "0.18.0", rec.Version)
	assert.Equal(t, "alice", rec.Provider)
	assert.Equal(t, env.sourceDir, rec.InstalledFrom)
	assert.False(t, rec.InstalledAt.IsZero())
}

func TestInstallConflictingBinary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Something else owns ~/bin/eza already.
	link := filepath.Join(env.config.BinariesPath, "eza")
	require.NoError(t, os.WriteFile(link, []byte("other"), 0755))

	err := env.installer.Install(ctx, testPackage(), testRef, env.sourceDir, false)
	assert.ErrorIs(t, err, core.ErrBinaryExists)

	// The conflicting file is untouched.
	data, err := os.ReadFile(link)
	require.NoError(t, err)
	assert.Equal(t, "other", string(data))
}

func TestInstallForceReplacesBinary(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	link := filepath.Join(env.config.BinariesPath, "eza")
	require.NoError(t, os.WriteFile(link, []byte("other"), 0755))

	require.NoError(t, env.installer.Install(ctx, testPackage(), testRef, env.sourceDir, true))

	target, err := os.Readlink(link)
	require.NoError(t, err)
	assert.Contains(t, target, "alice_eza")
}

func TestInstallRunsInstallScript(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pkg := testPackage()
	pkg.InstallScript = "touch configured"

	require.NoError(t, env.installer.Install(ctx, pkg, testRef, env.sourceDir, false))

	// The script ran with the package directory as working directory.
	assert.FileExists(t, filepath.Join(env.config.PackageRoot, "alice_eza", "configured"))
}

func TestInstallScriptFailureAborts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pkg := testPackage()
	pkg.InstallScript = "exit 1"

	err := env.installer.Install(ctx, pkg, testRef, env.sourceDir, false)
	assert.ErrorIs(t, err, core.ErrScriptFailed)

	// No symlink, no database record.
	assert.NoFileExists(t, filepath.Join(env.config.BinariesPath, "eza"))
	_, err = env.db.Get(testRef)
	assert.ErrorIs(t, err, core.ErrPackageNotFound)
}

func TestInstallScriptStderrFails(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pkg := testPackage()
	pkg.InstallScript = "echo warning >&2"

	err := env.installer.Install(ctx, pkg, testRef, env.sourceDir, false)
	assert.ErrorIs(t, err, core.ErrScriptFailed)
}

func TestInstallNoContentSource(t *testing.T) {
	env := newTestEnv(t)

	err := env.installer.Install(context.Background(), testPackage(), testRef, "", false)
	assert.ErrorIs(t, err, core.ErrInvalidPackage)
}

func TestInstallLockHeld(t *testing.T) {
	env := newTestEnv(t)

	lockPath := filepath.Join(env.config.TempDir, "alice_eza.lock")
	require.NoError(t, os.WriteFile(lockPath, []byte("12345"), 0644))

	err := env.installer.Install(context.Background(), testPackage(), testRef, env.sourceDir, false)
	assert.ErrorIs(t, err, core.ErrInstallLocked)
}

func TestInstallReleasesLock(t *testing.T) {
	env := newTestEnv(t)

	require.NoError(t, env.installer.Install(context.Background(), testPackage(), testRef, env.sourceDir, false))
	assert.NoFileExists(t, filepath.Join(env.config.TempDir, "alice_eza.lock"))

	// A second install of the same package is possible.
	require.NoError(t, env.installer.Install(context.Background(), testPackage(), testRef, env.sourceDir, true))
}

func TestUninstall(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.installer.Install(ctx, testPackage(), testRef, env.sourceDir, false))

	// Simulate a synced mirror copy.
	mirrorDir := filepath.Join(env.config.MirrorRoot, "alice_eza")
	require.NoError(t, os.MkdirAll(mirrorDir, 0755))

	require.NoError(t, env.installer.Uninstall(testRef))

	assert.NoFileExists(t, filepath.Join(env.config.BinariesPath, "eza"))
	assert.NoDirExists(t, filepath.Join(env.config.PackageRoot, "alice_eza"))
	assert.NoDirExists(t, mirrorDir)

	_, err := env.db.Get(testRef)
	assert.ErrorIs(t, err, core.ErrPackageNotFound)
}

func TestUninstallNotInstalled(t *testing.T) {
	env := newTestEnv(t)

	err := env.installer.Uninstall(testRef)
	assert.ErrorIs(t, err, core.ErrPackageNotFound)
}
