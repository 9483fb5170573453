// pkg/installer/script.go
package installer

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/diem-pm/diem/pkg/core"
)

// runInstallScript executes a package's install script with the
// working directory set to the package directory. The environment is
// scrubbed to a minimal PATH/HOME/TMPDIR; this is not a sandbox, the
// script runs with the user's full privileges.
func (i *Installer) runInstallScript(ctx context.Context, script, packageDir string) error {
	scriptFile, err := os.CreateTemp(i.config.TempDir, "install-*.sh")
	if err != nil {
		return fmt.Errorf("creating script file: %w", err)
	}
	scriptPath := scriptFile.Name()
	defer os.Remove(scriptPath)

	if _, err := scriptFile.WriteString(script); err != nil {
		scriptFile.Close()
		return fmt.Errorf("writing script file: %w", err)
	}
	scriptFile.Close()

	if err := os.Chmod(scriptPath, 0755); err != nil {
		return fmt.Errorf("marking script executable: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, i.config.ScriptTimeout)
	defer cancel()

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, "bash", scriptPath)
	cmd.Dir = packageDir
	cmd.Env = []string{
		"PATH=/usr/local/bin:/usr/bin:/bin",
		"HOME=" + packageDir,
		"TMPDIR=" + i.config.TempDir,
	}
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	i.config.Logger.Debugf("Running install script in %s", packageDir)

	if err := cmd.Run(); err != nil {
		return fmt.Errorf("%w: %v: %s", core.ErrScriptFailed, err, stderr.String())
	}
	if stderr.Len() > 0 {
		return fmt.Errorf("%w: script wrote to stderr: %s", core.ErrScriptFailed, stderr.String())
	}

	if stdout.Len() > 0 {
		i.config.Logger.Debugf("Install script output: %s", stdout.String())
	}

	return nil
}

func (i *Installer) packageDir(ref core.Reference) string {
	return filepath.Join(i.config.PackageRoot, ref.DirName())
}

func (i *Installer) mirrorDir(ref core.Reference) string {
	return filepath.Join(i.config.MirrorRoot, ref.DirName())
}
