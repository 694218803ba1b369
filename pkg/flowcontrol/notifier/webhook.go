package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/bwmarrin/discordgo"
)

// WebhookSink delivers a chat notification to a webhook URL. Discord
// webhook URLs (the platform's own "/api/webhooks/{id}/{token}" shape)
// are delivered through discordgo's WebhookExecute so Discord's richer
// delivery semantics (rate-limit handling, retry) apply; any other URL
// is POSTed a generic {"text": ...} JSON body, which is what Slack's
// incoming-webhook format and most chat platforms expect.
type WebhookSink struct {
	httpClient *http.Client
	logger     *slog.Logger
}

// NewWebhookSink builds a WebhookSink.
func NewWebhookSink(logger *slog.Logger) *WebhookSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookSink{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger.With("component", "notifier-webhook"),
	}
}

var discordWebhookRE = regexp.MustCompile(`/api/webhooks/(\d+)/([A-Za-z0-9_-]+)`)

// Send posts text to webhookURL. An empty URL silently skips delivery
// (spec §4.7).
func (s *WebhookSink) Send(ctx context.Context, webhookURL, text string) {
	if webhookURL == "" {
		return
	}

	if m := discordWebhookRE.FindStringSubmatch(webhookURL); m != nil {
		s.sendDiscord(m[1], m[2], text)
		return
	}
	s.sendGeneric(ctx, webhookURL, text)
}

func (s *WebhookSink) sendDiscord(webhookID, token, text string) {
	dg, err := discordgo.New("")
	if err != nil {
		s.logger.Warn("notifier: failed to build discord session", "error", err)
		return
	}
	dg.Client = s.httpClient

	if _, err := dg.WebhookExecute(webhookID, token, false, &discordgo.WebhookParams{Content: text}); err != nil {
		s.logger.Warn("notifier: discord webhook delivery failed", "error", err)
	}
}

func (s *WebhookSink) sendGeneric(ctx context.Context, webhookURL, text string) {
	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		s.logger.Warn("notifier: failed to marshal webhook payload", "error", err)
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, webhookURL, bytes.NewReader(body))
	if err != nil {
		s.logger.Warn("notifier: failed to build webhook request", "error", err)
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		s.logger.Warn("notifier: webhook delivery failed", "url", webhookURL, "error", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		s.logger.Warn("notifier: webhook returned non-2xx", "url", webhookURL, "status", fmt.Sprint(resp.StatusCode))
	}
}
