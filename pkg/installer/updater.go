// pkg/installer/updater.go
package installer

import (
	"context"
	"fmt"
	"os"

	"github.com/diem-pm/diem/pkg/core"
	"github.com/diem-pm/diem/pkg/database"
	"github.com/diem-pm/diem/pkg/fsutil"
)

// Update replaces an installed package with a new version. The current
// install is backed up first; any failure while installing the new
// version rolls the package directory, database record and symlinks
// back to their prior state. A failed rollback surfaces
// ErrInconsistentState and requires manual intervention.
func (i *Installer) Update(ctx context.Context, ref core.Reference, newPkg *core.Package, sourceDir string, force bool) error {
	log := i.config.Logger

	current, err := i.db.Get(ref)
	if err != nil {
		return err
	}

	cmp, err := core.CompareVersions(current.Version, newPkg.Version)
	if err != nil {
		return fmt.Errorf("comparing versions of %s: %w", ref, err)
	}
	if cmp == 0 && !force {
		log.Infof("%s is already at version %s", ref, current.Version)
		return nil
	}

	log.Infof("Updating %s: %s -> %s", ref, current.Version, newPkg.Version)

	packageDir := i.packageDir(ref)
	backupDir := packageDir + ".backup_" + current.Version

	// Step 1: back up the current install
	if fsutil.Exists(packageDir) {
		if err := fsutil.CopyDir(packageDir, backupDir); err != nil {
			return fmt.Errorf("creating backup: %w", err)
		}
		log.Debugf("Created backup at %s", backupDir)
	}

	// Step 2: clear the old install; its symlinks go too so the new
	// version doesn't trip over them
	i.removeSymlinks(current.Binaries)
	if err := os.RemoveAll(packageDir); err != nil {
		if rbErr := i.rollback(ref, current, nil, backupDir); rbErr != nil {
			return fmt.Errorf("%w: clearing old install of %s failed (%v) and rollback failed: %v",
				core.ErrInconsistentState, ref, err, rbErr)
		}
		return fmt.Errorf("removing old install: %w", err)
	}

	// Step 3: install the new version
	if err := i.Install(ctx, newPkg, ref, sourceDir, force); err != nil {
		if rbErr := i.rollback(ref, current, newPkg.Binaries, backupDir); rbErr != nil {
			return fmt.Errorf("%w: update of %s failed (%v) and rollback failed: %v",
				core.ErrInconsistentState, ref, err, rbErr)
		}
		log.Warnf("Update of %s failed, previous version %s restored", ref, current.Version)
		return fmt.Errorf("updating %s: %w", ref, err)
	}

	// Step 4: drop the backup
	if err := os.RemoveAll(backupDir); err != nil {
		log.Warnf("Failed to remove backup %s: %v", backupDir, err)
	}

	log.Infof("Updated %s to %s", ref, newPkg.Version)
	return nil
}

// rollback deletes whatever the failed install left behind, restores
// the package directory from the backup, re-creates the old symlinks
// and puts the old database record back.
func (i *Installer) rollback(ref core.Reference, oldRecord *database.Record, newBinaries []string, backupDir string) error {
	packageDir := i.packageDir(ref)

	// Drop symlinks the failed install may have created before they
	// dangle into the removed directory.
	i.removeSymlinks(newBinaries)

	if err := os.RemoveAll(packageDir); err != nil {
		return fmt.Errorf("removing partial install: %w", err)
	}

	if fsutil.Exists(backupDir) {
		if err := fsutil.CopyDir(backupDir, packageDir); err != nil {
			return fmt.Errorf("restoring backup: %w", err)
		}
		if err := os.RemoveAll(backupDir); err != nil {
			i.config.Logger.Warnf("Failed to remove backup %s after restore: %v", backupDir, err)
		}
	}

	if err := i.createSymlinks(oldRecord.Binaries, packageDir, true); err != nil {
		return fmt.Errorf("restoring symlinks: %w", err)
	}

	if err := i.db.Put(oldRecord); err != nil {
		return fmt.Errorf("restoring database record: %w", err)
	}

	i.config.Logger.Debugf("Rolled %s back to %s", ref, oldRecord.Version)
	return nil
}
