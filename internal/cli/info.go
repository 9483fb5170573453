// internal/cli/info.go
package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var infoCmd = &cobra.Command{
	Use:   "info [reference]",
	Short: "Show information about a package",
	Long: `Display the descriptor a provider offers for a package, and the
installed version when the package is installed.`,
	Args: cobra.ExactArgs(1),
	RunE: runInfo,
}

func runInfo(cmd *cobra.Command, args []string) error {
	manager, err := newManager()
	if err != nil {
		return err
	}

	available, installed, err := manager.Info(args[0])
	if err != nil {
		return err
	}

	pkg := available
	if pkg == nil {
		pkg = &installed.Package
	}

	fmt.Printf("%s %s:%s\n", titleStyle.Render("Package:"), pkg.Provider, pkg.Name)
	fmt.Printf("Version: %s\n", pkg.Version)
	if pkg.Description != "" {
		fmt.Printf("Description: %s\n", pkg.Description)
	}
	if len(pkg.Binaries) > 0 {
		fmt.Printf("Binaries: %s\n", strings.Join(pkg.Binaries, ", "))
	}
	if pkg.URL != "" {
		fmt.Printf("Asset: %s\n", pkg.URL)
	}

	switch {
	case installed == nil:
		fmt.Println(dimStyle.Render("Not installed"))
	case available != nil && installed.Version != available.Version:
		fmt.Printf("Installed: %s %s\n", installed.Version,
			dimStyle.Render("(update available)"))
	default:
		fmt.Printf("Installed: %s\n", installed.Version)
	}

	return nil
}
