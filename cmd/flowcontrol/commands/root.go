// Package commands implements the flowcontrol CLI's cobra commands.
package commands

import (
	"github.com/spf13/cobra"
)

// NewRootCmd builds the root command with every subcommand registered.
// --config is required by every subcommand — it is the one thing that
// locates both the deployment (for start) and the running instance (for
// every other command, which talks to it over the bus).
func NewRootCmd(version string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "flowcontrol",
		Short: "FlowController - dependency- and time-driven job orchestrator",
		Long: `FlowController runs a declarative set of jobs, firing them on a cron
schedule or once their dependencies complete, and tracks every state
transition in an append-only ledger so restarts recover cleanly.

Examples:
  flowcontrol start --config ./deployment.yaml
  flowcontrol list --config ./deployment.yaml
  flowcontrol status --config ./deployment.yaml
  flowcontrol trigger nightly_export --config ./deployment.yaml`,
		Version: version,
	}

	rootCmd.AddCommand(
		newStartCmd(),
		newListCmd(),
		newStatusCmd(),
		newTriggerCmd(),
		newActionCmd(),
		newLogsCmd(),
	)

	rootCmd.PersistentFlags().StringP("config", "c", "", "path to the deployment configuration file")
	rootCmd.MarkPersistentFlagRequired("config")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "enable debug logging")

	return rootCmd
}
