// internal/cli/list.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	listAvailable bool
	listProvider  string
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List installed packages",
	Long: `List installed packages, or the packages trusted providers offer
with --available.

Examples:
  diem list
  diem list --available
  diem list --available --provider alice`,
	RunE: runList,
}

func init() {
	listCmd.Flags().BoolVarP(&listAvailable, "available", "a", false, "list packages offered by trusted providers")
	listCmd.Flags().StringVarP(&listProvider, "provider", "p", "", "restrict --available to one provider")
}

func runList(cmd *cobra.Command, args []string) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	if listAvailable {
		packages, err := manager.ListAvailable(listProvider)
		if err != nil {
			return err
		}

		if len(packages) == 0 {
			fmt.Println("No packages available")
			return nil
		}

		fmt.Println(titleStyle.Render("Available packages:"))
		for _, pkg := range packages {
			line := fmt.Sprintf("  %s:%s %s", pkg.Provider, pkg.Name, pkg.Version)
			if pkg.Description != "" {
				line += dimStyle.Render("  " + pkg.Description)
			}
			fmt.Println(line)
		}
		return nil
	}

	records, err := manager.ListInstalled()
	if err != nil {
		return err
	}

	if len(records) == 0 {
		fmt.Println("No packages installed")
		return nil
	}

	fmt.Println(titleStyle.Render("Installed packages:"))
	for _, rec := range records {
		fmt.Printf("  %s %s%s\n", rec.Reference().Key(), rec.Version,
			dimStyle.Render("  installed "+rec.InstalledAt.Format("2006-01-02")))
	}

	return nil
}
