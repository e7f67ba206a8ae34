package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "hostprep",
		Short: "Hostprep - distro-agnostic host provisioning",
		Long: `Hostprep provisions a fresh Linux host with a curated package set,
working the same way on Debian-, Alpine- and RHEL-family systems.

Features:
  - Host identification via os-release
  - Package-name mapping across distro families
  - Bounded retries with repair-and-refresh between attempts
  - Prompt-gated optional packages and a dotfiles clone
  - A persisted report for every run, however it ends
  - SQLite-backed run history`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newProvisionCommand(version))
	rootCmd.AddCommand(newDetectCommand())
	rootCmd.AddCommand(newMappingsCommand())
	rootCmd.AddCommand(newRunsCommand())

	return rootCmd
}
