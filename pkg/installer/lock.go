// pkg/installer/lock.go
package installer

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/diem-pm/diem/pkg/core"
)

// installLock is a per-reference lock file preventing two installs of
// the same package from interleaving. It does not protect the package
// database itself.
type installLock struct {
	path string
}

func (i *Installer) acquireLock(ref core.Reference) (*installLock, error) {
	if err := os.MkdirAll(i.config.TempDir, 0755); err != nil {
		return nil, fmt.Errorf("creating temp directory: %w", err)
	}

	lockPath := filepath.Join(i.config.TempDir, ref.DirName()+".lock")

	f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("%w: %s", core.ErrInstallLocked, ref)
		}
		return nil, fmt.Errorf("creating lock file: %w", err)
	}

	f.WriteString(strconv.Itoa(os.Getpid()))
	f.Close()

	return &installLock{path: lockPath}, nil
}

func (l *installLock) release() {
	os.Remove(l.path)
}
