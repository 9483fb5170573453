// pkg/installer/uninstaller.go
package installer

import (
	"fmt"
	"os"

	"github.com/diem-pm/diem/pkg/core"
)

// Uninstall removes a package's symlinks, its persistent directory,
// its fast-scratch mirror, and its database record. Filesystem removal
// failures are logged and the remaining steps still run, so a partial
// uninstall is possible; the database record is only deleted at the
// end so a failed uninstall can be retried.
func (i *Installer) Uninstall(ref core.Reference) error {
	log := i.config.Logger

	record, err := i.db.Get(ref)
	if err != nil {
		return err
	}

	log.Infof("Uninstalling %s %s", ref, record.Version)

	i.removeSymlinks(record.Binaries)

	packageDir := i.packageDir(ref)
	if err := os.RemoveAll(packageDir); err != nil {
		log.Warnf("Failed to remove %s: %v", packageDir, err)
	}

	mirrorDir := i.mirrorDir(ref)
	if err := os.RemoveAll(mirrorDir); err != nil {
		log.Warnf("Failed to remove mirror %s: %v", mirrorDir, err)
	}

	if err := i.db.Delete(ref); err != nil {
		return fmt.Errorf("removing database record: %w", err)
	}

	log.Infof("Uninstalled %s", ref)
	return nil
}
