// pkg/installer/installer.go
package installer

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/diem-pm/diem/pkg/archive"
	"github.com/diem-pm/diem/pkg/core"
	"github.com/diem-pm/diem/pkg/database"
	"github.com/diem-pm/diem/pkg/fetch"
	"github.com/diem-pm/diem/pkg/fsutil"
)

// Install installs a package into the persistent package root and
// links its binaries. Content comes from sourceDir when the package
// was resolved against a provider directory, otherwise from the
// package's asset URL. A step failing aborts the whole operation;
// partially materialized directories are left behind for inspection.
func (i *Installer) Install(ctx context.Context, pkg *core.Package, ref core.Reference, sourceDir string, force bool) error {
	log := i.config.Logger

	lock, err := i.acquireLock(ref)
	if err != nil {
		return err
	}
	defer lock.release()

	log.Infof("Installing %s %s", ref, pkg.Version)

	targetDir := i.packageDir(ref)
	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return fmt.Errorf("creating package directory: %w", err)
	}

	// Step 1: materialize content
	installedFrom := sourceDir
	switch {
	case sourceDir != "":
		log.Debugf("Copying %s -> %s", sourceDir, targetDir)
		if err := fsutil.CopyDir(sourceDir, targetDir); err != nil {
			return fmt.Errorf("copying package content: %w", err)
		}
	case pkg.URL != "":
		installedFrom = pkg.URL
		if err := i.downloadAndExtract(ctx, pkg, targetDir); err != nil {
			return err
		}
	default:
		return fmt.Errorf("%w: %s has no content source", core.ErrInvalidPackage, ref)
	}

	// Step 2: install script
	if pkg.InstallScript != "" {
		log.Debugf("Running install script for %s", ref)
		if err := i.runInstallScript(ctx, pkg.InstallScript, targetDir); err != nil {
			return err
		}
	}

	// Step 3: symlinks
	if err := i.createSymlinks(pkg.Binaries, targetDir, force); err != nil {
		return err
	}

	// Step 4: record in the database
	record := &database.Record{
		Package:       *pkg,
		InstalledFrom: installedFrom,
		InstalledAt:   time.Now().UTC(),
	}
	record.Provider = ref.Provider
	if err := i.db.Put(record); err != nil {
		return fmt.Errorf("recording installation: %w", err)
	}

	log.Infof("Installed %s %s", ref, pkg.Version)
	return nil
}

// downloadAndExtract fetches the package asset into the temp
// directory, verifies its checksum when one is declared, and unpacks
// it into targetDir.
func (i *Installer) downloadAndExtract(ctx context.Context, pkg *core.Package, targetDir string) error {
	if i.downloader == nil {
		return fmt.Errorf("no downloader configured for remote package %s", pkg.Name)
	}

	archivePath := filepath.Join(i.config.TempDir, assetFileName(pkg))

	written, err := i.downloader.DownloadFile(ctx, pkg.URL, archivePath)
	if err != nil {
		return fmt.Errorf("downloading %s: %w", pkg.URL, err)
	}
	defer os.Remove(archivePath)
	i.config.Logger.Debugf("Downloaded %d bytes to %s", written, archivePath)

	if pkg.Checksum != "" {
		if err := fetch.VerifyChecksum(archivePath, pkg.Checksum); err != nil {
			return err
		}
		i.config.Logger.Debugf("Checksum verified for %s", pkg.Name)
	}

	if err := archive.Extract(archivePath, targetDir); err != nil {
		return fmt.Errorf("extracting %s: %w", archivePath, err)
	}

	return nil
}

// assetFileName derives a local archive name from the asset URL so the
// extractor can pick the right decompressor, falling back to .tar.gz
// when the URL gives no usable name.
func assetFileName(pkg *core.Package) string {
	if u, err := url.Parse(pkg.URL); err == nil {
		if base := path.Base(u.Path); base != "." && base != "/" && base != "" {
			return base
		}
	}
	return pkg.Name + ".tar.gz"
}
