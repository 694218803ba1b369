package wsbus

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus"
)

// queryDirectory fetches the broker's peer directory over plain HTTP.
// This deliberately bypasses the websocket message path: directory
// listing is a broker-side concern (who has ever registered), not
// something any particular peer can answer about itself.
func queryDirectory(ctx context.Context, serverAddr string) (map[string]bus.ClientInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("http://%s/peers", serverAddr), nil)
	if err != nil {
		return nil, err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wsbus: query directory: %w", err)
	}
	defer resp.Body.Close()

	var raw map[string]directoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("wsbus: decode directory response: %w", err)
	}

	out := make(map[string]bus.ClientInfo, len(raw))
	for name, entry := range raw {
		out[name] = bus.ClientInfo{Classifications: entry.Classifications, Tag: entry.Tag}
	}
	return out, nil
}
