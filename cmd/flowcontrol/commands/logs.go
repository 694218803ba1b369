package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// newLogsCmd fetches a character range of today's log for one job,
// using the same slice syntax the daemon parses.
func newLogsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "logs <job_name>",
		Short: "Fetch a slice of today's log for a job",
		Args:  cobra.ExactArgs(1),
		RunE:  runLogs,
	}
	cmd.Flags().String("range", "", `character range as a Python slice, e.g. "-4000:" for the last 4000 characters`)
	return cmd
}

func runLogs(cmd *cobra.Command, args []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	jobName := args[0]
	rangeSpec, _ := cmd.Flags().GetString("range")

	resp, err := request(context.Background(), configPath, "request_log_chunk", map[string]any{
		"job_name": jobName, "log_range": rangeSpec,
	})
	if err != nil {
		return err
	}
	chunk, _ := resp["log"].(string)
	fmt.Println(chunk)
	return nil
}
