// internal/cli/uninstall.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var uninstallCmd = &cobra.Command{
	Use:   "uninstall [reference...]",
	Short: "Uninstall one or more packages",
	Long: `Remove installed packages: their symlinks, their directories on
persistent and scratch storage, and their database records.`,
	Aliases: []string{"remove"},
	Args:    cobra.MinimumNArgs(1),
	RunE:    runUninstall,
}

func runUninstall(cmd *cobra.Command, args []string) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	var failed bool
	for _, ref := range args {
		if err := manager.Uninstall(ref); err != nil {
			fmt.Fprintf(os.Stderr, "%s %v\n", errorStyle.Render("✗"), err)
			failed = true
			continue
		}
		fmt.Printf("%s Uninstalled %s\n", successStyle.Render("✓"), ref)
	}

	if failed {
		return fmt.Errorf("some packages failed to uninstall")
	}
	return nil
}
