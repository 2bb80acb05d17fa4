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
		Use:   "orgforge",
		Short: "OrgForge - Composite workspace provisioning",
		Long: `OrgForge provisions composite collaboration resources (workspaces,
channels, memberships) against a remote admin API that only exposes
single-resource operations.

Features:
  - Dependency-ordered provisioning plans
  - Automatic compensating rollback on failure
  - Retry with backoff for a rate-limited API
  - Reusable provisioning templates
  - Local audit trail of every run`,
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	// Add subcommands
	rootCmd.AddCommand(newProvisionCommand())
	rootCmd.AddCommand(newWorkspaceCommand())
	rootCmd.AddCommand(newChannelCommand())
	rootCmd.AddCommand(newMemberCommand())
	rootCmd.AddCommand(newTemplateCommand())
	rootCmd.AddCommand(newAuditCommand())

	return rootCmd
}
