package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newActionCmd forces a job directly to an arbitrary state, distinct
// from trigger which always moves a job to PENDING.
func newActionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "action",
		Short: "Force a job to a specific state",
		RunE:  runAction,
	}
	cmd.Flags().String("job-name", "", "job to act on")
	cmd.Flags().String("new-state", "", "state to move the job to: IDLE, PENDING, RUNNING, SUCCESS, FAILURE")
	cmd.Flags().String("reason", "requested via CLI action", "reason recorded alongside the ledger row")
	cmd.MarkFlagRequired("job-name")
	cmd.MarkFlagRequired("new-state")
	return cmd
}

func runAction(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	jobName, _ := cmd.Flags().GetString("job-name")
	newState, _ := cmd.Flags().GetString("new-state")
	reason, _ := cmd.Flags().GetString("reason")

	_, err := request(context.Background(), configPath, "change_job_state", map[string]any{
		"job_name": jobName, "new_state": newState, "reason": reason,
	})
	if err != nil {
		return err
	}
	fmt.Printf("%s -> %s\n", jobName, newState)
	return nil
}
