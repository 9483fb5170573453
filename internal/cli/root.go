// internal/cli/root.go
package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	diem "github.com/diem-pm/diem"
	"github.com/diem-pm/diem/internal/logging"
	"github.com/diem-pm/diem/pkg/core"
)

var (
	cfgFile string
	debug   bool
	config  *core.Config
	logger  *zap.SugaredLogger
)

// Output styles shared by the commands.
var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("2"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("1"))
	titleStyle   = lipgloss.NewStyle().Bold(true)
	dimStyle     = lipgloss.NewStyle().Faint(true)
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "diem",
	Short: "Personal Package Manager",
	Long: `diem - Personal Package Manager

Install packages into your own shared-storage space from directories
other users publish, without root and without touching the system
package manager.`,
	Version: "0.1.0",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println(banner())
		cmd.Help()
	},
}

// banner renders the startup header shown when diem runs bare.
func banner() string {
	title := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("6")).
		Render("diem")
	return title + dimStyle.Render(" - personal package manager for shared storage")
}

// Execute executes the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.config/diem/config.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	// Add commands
	rootCmd.AddCommand(installCmd)
	rootCmd.AddCommand(uninstallCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(searchCmd)
	rootCmd.AddCommand(infoCmd)
	rootCmd.AddCommand(providerCmd)
	rootCmd.AddCommand(syncCmd)
	rootCmd.AddCommand(publishCmd)
	rootCmd.AddCommand(versionCmd)
}

func initConfig() {
	var err error
	config, err = core.LoadConfig(cfgFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
		config = core.DefaultConfig()
	}

	logger, err = logging.New(config.LogLevel, debug)
	if err != nil {
		logger = logging.Nop()
	}
}

// newManager builds the package manager over the loaded config.
func newManager() (*diem.Manager, error) {
	return diem.NewManager(config, logger)
}
