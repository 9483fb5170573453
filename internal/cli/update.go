// internal/cli/update.go
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var updateForce bool

var updateCmd = &cobra.Command{
	Use:   "update [reference]",
	Short: "Update installed packages",
	Long: `Update one installed package, or every installed package when no
reference is given. A failed update restores the previous version.

Examples:
  diem update
  diem update alice:eza
  diem update alice:eza --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: runUpdate,
}

func init() {
	updateCmd.Flags().BoolVarP(&updateForce, "force", "f", false, "reinstall even when already at the offered version")
}

func runUpdate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	manager, err := newManager()
	if err != nil {
		return err
	}

	if len(args) == 1 {
		if err := manager.Update(ctx, args[0], updateForce); err != nil {
			return err
		}
		fmt.Printf("%s Updated %s\n", successStyle.Render("✓"), args[0])
		return nil
	}

	results, err := manager.UpdateAll(ctx, updateForce)
	if err != nil {
		return err
	}

	var failed bool
	for _, result := range results {
		switch {
		case result.Err != nil:
			fmt.Fprintf(os.Stderr, "%s %s: %v\n", errorStyle.Render("✗"), result.Reference, result.Err)
			failed = true
		case result.Updated:
			fmt.Printf("%s %s %s -> %s\n", successStyle.Render("✓"), result.Reference, result.OldVersion, result.NewVersion)
		default:
			fmt.Printf("%s %s already at %s\n", dimStyle.Render("-"), result.Reference, result.OldVersion)
		}
	}

	if failed {
		return fmt.Errorf("some packages failed to update")
	}
	return nil
}
