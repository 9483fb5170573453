// internal/cli/provider.go
package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var providerCmd = &cobra.Command{
	Use:   "provider",
	Short: "Manage trusted providers",
	Long: `Manage the providers whose shared directories are trusted as
package sources.`,
}

var providerAddCmd = &cobra.Command{
	Use:   "add [username]",
	Short: "Trust a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newManager()
		if err != nil {
			return err
		}
		if err := manager.Registry().AddProvider(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Added provider %s\n", successStyle.Render("✓"), args[0])
		return nil
	},
}

var providerRemoveCmd = &cobra.Command{
	Use:   "remove [username]",
	Short: "Stop trusting a provider",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newManager()
		if err != nil {
			return err
		}
		if err := manager.Registry().RemoveProvider(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Removed provider %s\n", successStyle.Render("✓"), args[0])
		return nil
	},
}

var providerDefaultCmd = &cobra.Command{
	Use:   "default [username]",
	Short: "Set the default provider for bare package names",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newManager()
		if err != nil {
			return err
		}
		if err := manager.Registry().SetDefaultProvider(args[0]); err != nil {
			return err
		}
		fmt.Printf("%s Default provider is now %s\n", successStyle.Render("✓"), args[0])
		return nil
	},
}

var providerListCmd = &cobra.Command{
	Use:   "list",
	Short: "List trusted providers",
	RunE: func(cmd *cobra.Command, args []string) error {
		manager, err := newManager()
		if err != nil {
			return err
		}

		reg := manager.Registry()
		providers := reg.Providers()
		if len(providers) == 0 {
			fmt.Println("No providers configured")
			return nil
		}

		fmt.Println(titleStyle.Render("Trusted providers:"))
		for _, provider := range providers {
			marker := " "
			if provider == reg.DefaultProvider() {
				marker = "*"
			}
			fmt.Printf("  %s %s\n", marker, provider)
		}
		if reg.DefaultProvider() != "" {
			fmt.Println(dimStyle.Render("* = default provider"))
		}

		return nil
	},
}

func init() {
	providerCmd.AddCommand(providerAddCmd)
	providerCmd.AddCommand(providerRemoveCmd)
	providerCmd.AddCommand(providerDefaultCmd)
	providerCmd.AddCommand(providerListCmd)
}
