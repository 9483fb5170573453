// internal/cli/install.go
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var installForce bool

var installCmd = &cobra.Command{
	Use:   "install [reference...]",
	Short: "Install one or more packages",
	Long: `Install packages from trusted provider directories or from a
direct URL.

A reference is "provider:name"; a bare name uses the default provider.

Examples:
  diem install alice:eza
  diem install eza
  diem install https://example.com/pkgs/eza-0.18.0.tar.gz
  diem install alice:eza bob:bat --force`,
	Args: cobra.MinimumNArgs(1),
	RunE: runInstall,
}

func init() {
	installCmd.Flags().BoolVarP(&installForce, "force", "f", false, "replace conflicting binaries in ~/bin")
}

func runInstall(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	manager, err := newManager()
	if err != nil {
		return err
	}

	var failed bool
	for _, ref := range args {
		if err := manager.Install(ctx, ref, installForce); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
			failed = true
			continue
		}
		fmt.Printf("%s Installed %s\n", successStyle.Render("✓"), ref)
	}

	if failed {
		return fmt.Errorf("some packages failed to install")
	}
	return nil
}
