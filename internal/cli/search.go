// internal/cli/search.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var searchCmd = &cobra.Command{
	Use:   "search [query]",
	Short: "Search packages offered by trusted providers",
	Long:  `Find available packages whose name contains the query, case-insensitively.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runSearch,
}

func runSearch(cmd *cobra.Command, args []string) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	packages, err := manager.Search(args[0])
	if err != nil {
		return err
	}

	if len(packages) == 0 {
		fmt.Printf("No packages matching %q\n", args[0])
		return nil
	}

	for _, pkg := range packages {
		line := fmt.Sprintf("%s:%s %s", pkg.Provider, pkg.Name, pkg.Version)
		if pkg.Description != "" {
			line += dimStyle.Render("  " + pkg.Description)
		}
		fmt.Println(line)
	}

	return nil
}
