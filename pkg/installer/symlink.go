// pkg/installer/symlink.go
package installer

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/diem-pm/diem/pkg/core"
)

// createSymlinks links each declared binary into the personal bin
// directory and marks the target executable. An existing same-named
// link fails the whole operation unless force is set.
func (i *Installer) createSymlinks(binaries []string, packageDir string, force bool) error {
	for _, binary := range binaries {
		source := filepath.Join(packageDir, binary)
		link := filepath.Join(i.config.BinariesPath, filepath.Base(binary))

		if _, err := os.Lstat(link); err == nil {
			if !force {
				return fmt.Errorf("%w: %s", core.ErrBinaryExists, filepath.Base(binary))
			}
			if err := os.Remove(link); err != nil {
				return fmt.Errorf("removing existing symlink %s: %w", link, err)
			}
		}

		if err := os.Symlink(source, link); err != nil {
			return fmt.Errorf("creating symlink %s: %w", link, err)
		}

		if err := os.Chmod(source, 0755); err != nil {
			return fmt.Errorf("marking %s executable: %w", source, err)
		}

		i.config.Logger.Debugf("Linked %s -> %s", link, source)
	}

	return nil
}

// removeSymlinks removes the binaries' symlinks from the personal bin
// directory. Missing links are tolerated; removal failures are logged
// and the remaining links are still attempted.
func (i *Installer) removeSymlinks(binaries []string) {
	for _, binary := range binaries {
		link := filepath.Join(i.config.BinariesPath, filepath.Base(binary))

		if _, err := os.Lstat(link); err != nil {
			continue
		}

		if err := os.Remove(link); err != nil {
			i.config.Logger.Warnf("Failed to remove symlink %s: %v", link, err)
			continue
		}

		i.config.Logger.Debugf("Removed symlink %s", link)
	}
}
