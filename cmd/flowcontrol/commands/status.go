package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show a colorized view of every job's current state",
		RunE:  runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	resp, err := request(context.Background(), configPath, "request_config", nil)
	if err != nil {
		return err
	}
	snap, err := decodeSnapshot(resp)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n\n", snap.Title, snap.UID)
	for _, j := range snap.Jobs {
		label := stateStyle(j.State).Render(fmt.Sprintf("%-8s", j.State))
		schedule := ""
		if j.Cron != "" {
			schedule = "cron: " + j.Cron
			if j.NextCronFireTime != "" {
				schedule += " (next " + j.NextCronFireTime + ")"
			}
		}
		fmt.Printf("  %s  %-30s %s\n", label, j.Name, schedule)
	}
	return nil
}
