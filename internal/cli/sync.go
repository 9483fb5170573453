// internal/cli/sync.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild the fast-scratch mirror",
	Long: `Copy every installed package onto the fast scratch volume and point
the binary symlinks at the copies. Scratch storage is wiped between
sessions, so run this after logging in.`,
	RunE: runSync,
}

func runSync(cmd *cobra.Command, args []string) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	if err := manager.Sync(); err != nil {
		return err
	}

	fmt.Printf("%s Mirror synced\n", successStyle.Render("✓"))
	return nil
}
