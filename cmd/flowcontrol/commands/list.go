package commands

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every job declared in the running deployment",
		RunE:  runList,
	}
}

func runList(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")

	resp, err := request(context.Background(), configPath, "request_config", nil)
	if err != nil {
		return err
	}

	snap, err := decodeSnapshot(resp)
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s)\n", snap.Title, snap.UID)
	for _, j := range snap.Jobs {
		fmt.Printf("  %-30s %s\n", j.Name, stateStyle(j.State).Render(j.State))
	}
	return nil
}

// decodeSnapshot round-trips the response payload through JSON into a
// snapshot struct, since bus payloads travel as map[string]any.
func decodeSnapshot(resp map[string]any) (*snapshotView, error) {
	raw, ok := resp["config"]
	if !ok {
		return nil, fmt.Errorf("request_config: response missing config")
	}
	b, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var snap snapshotView
	if err := json.Unmarshal(b, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

type snapshotView struct {
	UID   string          `json:"uid"`
	Title string          `json:"title"`
	Jobs  []jobSnapshotView `json:"jobs"`
}

type jobSnapshotView struct {
	Name             string `json:"name"`
	State            string `json:"state"`
	Cron             string `json:"cron,omitempty"`
	NextCronFireTime string `json:"next_cron_fire_time,omitempty"`
}
