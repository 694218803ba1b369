package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newTriggerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <job_name>",
		Short: "Move a job straight to PENDING, bypassing its dependencies and cron",
		Args:  cobra.ExactArgs(1),
		RunE:  runTrigger,
	}
}

func runTrigger(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	jobName := args[0]

	_, err := request(context.Background(), configPath, "trigger_job", map[string]any{"job_name": jobName})
	if err != nil {
		return err
	}
	fmt.Printf("%s triggered\n", jobName)
	return nil
}
