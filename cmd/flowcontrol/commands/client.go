package commands

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus/wsbus"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/config"
)

const requestTimeout = 10 * time.Second

// connectToDeployment reads the deployment file at configPath just far
// enough to learn its UID and bus endpoint, then opens a short-lived
// bus client under a throwaway name so the CLI can address the running
// daemon directly: every command but start talks to an already-running
// instance over the bus, never the registry directly.
func connectToDeployment(ctx context.Context, configPath string) (*wsbus.Client, string, error) {
	d, err := config.NewFileSource(configPath).Load(ctx)
	if err != nil {
		return nil, "", fmt.Errorf("reading deployment config: %w", err)
	}

	serverAddr := stripScheme(d.SMQServer)
	name := "cli." + bus.NewMessageID()
	client := wsbus.NewClient(serverAddr, name, nil, nil, nil, nil, slog.New(slog.DiscardHandler))
	if err := client.Start(ctx); err != nil {
		return nil, "", fmt.Errorf("connecting to bus at %s: %w", serverAddr, err)
	}
	return client, d.UID, nil
}

func stripScheme(endpoint string) string {
	for _, scheme := range []string{"http://", "https://", "ws://", "wss://"} {
		if len(endpoint) >= len(scheme) && endpoint[:len(scheme)] == scheme {
			return endpoint[len(scheme):]
		}
	}
	return endpoint
}

// request sends kind with payload to the deployment's UID and waits for
// a response, returning an error if the response carries a non-empty
// "error" message.
func request(ctx context.Context, configPath, kind string, payload map[string]any) (map[string]any, error) {
	client, uid, err := connectToDeployment(ctx, configPath)
	if err != nil {
		return nil, err
	}
	defer client.Stop()

	msg := client.ConstructMessage(kind, uid, payload)
	resp, err := client.SendMessage(ctx, msg, requestTimeout)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	if errMsg, ok := resp["error"].(string); ok && errMsg != "" {
		return nil, fmt.Errorf("%s: %s", kind, errMsg)
	}
	return resp, nil
}
