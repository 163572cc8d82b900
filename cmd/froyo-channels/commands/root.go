package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/openfroyo/channels/pkg/channels"
)

var (
	// Global flags
	configPath string
	verbose    bool
	jsonOutput bool
)

// Exit codes returned by ExitCode.
const (
	ExitFailure    = 1
	ExitInvalid    = 2
	ExitDenied     = 3
	ExitNoSolution = 4
)

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

// ExitCode maps a command error to the process exit status.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case channels.IsPolicyDenied(err):
		return ExitDenied
	case channels.IsNoSolution(err):
		return ExitNoSolution
	case channels.IsUnknownChannel(err), channels.IsNotProposed(err),
		channels.CodeOf(err) == channels.ErrCodeValidation:
		return ExitInvalid
	default:
		return ExitFailure
	}
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "froyo-channels",
		Short: "Manage APT software channels",
		Long: `froyo-channels enables and disables APT software channels.

A channel is a named group of sources.list entries with dependencies,
conflicts and provided virtual names. Enabling or disabling a channel
resolves every other change it requires, checks the resulting plan
against policy and applies it to the apt sources.

Features:
  - Channel catalog in YAML or CUE
  - Dependency, conflict and provider resolution
  - Rego policies for plans and component changes
  - Operation history in SQLite
  - Prometheus metrics and OpenTelemetry traces`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage: true,
	}

	// Persistent flags available to all commands
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	rootCmd.AddCommand(newListCommand())
	rootCmd.AddCommand(newShowCommand())
	rootCmd.AddCommand(newBlockersCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newEnableCommand())
	rootCmd.AddCommand(newDisableCommand())
	rootCmd.AddCommand(newComponentCommand())
	rootCmd.AddCommand(newHistoryCommand())
	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newWatchCommand())

	return rootCmd
}
