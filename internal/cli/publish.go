// internal/cli/publish.go
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var publishCmd = &cobra.Command{
	Use:   "publish [project-dir]",
	Short: "Publish a project as a package",
	Long: `Copy the files listed in the project's diem.toml into your own
provider directory so other users can install it.

Examples:
  diem publish
  diem publish ~/projects/mytool`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPublish,
}

func runPublish(cmd *cobra.Command, args []string) error {
	projectDir := "."
	if len(args) == 1 {
		projectDir = args[0]
	}
	if _, err := os.Stat(projectDir); err != nil {
		return fmt.Errorf("project directory: %w", err)
	}

	manager, err := newManager()
	if err != nil {
		return err
	}

	target, err := manager.Publish(projectDir)
	if err != nil {
		return err
	}

	fmt.Printf("%s Published to %s\n", successStyle.Render("✓"), target)
	return nil
}
