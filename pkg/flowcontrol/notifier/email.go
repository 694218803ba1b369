package notifier

import (
	"context"
	"fmt"
	"log/slog"
	"net/smtp"
	"os"
	"strings"

	"github.com/zalando/go-keyring"
)

const (
	keyringService = "flowcontrol"
	keyringSMTPKey = "smtp_password"
)

// EmailSink delivers notifications via SMTP on localhost. Credentials
// resolve through a priority chain: OS keyring, then the
// FLOWCONTROL_SMTP_PASSWORD environment variable (which may itself come
// from a .env file loaded at startup), then no auth at all (many local
// relay MTAs don't require it).
type EmailSink struct {
	sender string
	logger *slog.Logger
}

// NewEmailSink builds an EmailSink using sender as the From address.
func NewEmailSink(sender string, logger *slog.Logger) *EmailSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmailSink{sender: sender, logger: logger.With("component", "notifier-email")}
}

// Send delivers subject/body to the comma-separated recipients string.
// An empty recipients list silently skips delivery (spec §4.7).
func (s *EmailSink) Send(_ context.Context, recipients, subject, body string) {
	if strings.TrimSpace(recipients) == "" {
		return
	}
	to := splitAddresses(recipients)
	if len(to) == 0 {
		return
	}

	msg := buildMessage(s.sender, to, subject, body)

	var auth smtp.Auth
	if password := resolveSMTPPassword(); password != "" {
		auth = smtp.PlainAuth("", s.sender, password, "localhost")
	}

	if err := smtp.SendMail("localhost:25", auth, s.sender, to, msg); err != nil {
		s.logger.Warn("notifier: failed to send email", "recipients", recipients, "error", err)
	}
}

func resolveSMTPPassword() string {
	if v, err := keyring.Get(keyringService, keyringSMTPKey); err == nil && v != "" {
		return v
	}
	return os.Getenv("FLOWCONTROL_SMTP_PASSWORD")
}

func splitAddresses(recipients string) []string {
	parts := strings.Split(recipients, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func buildMessage(from string, to []string, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(to, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("\r\n")
	b.WriteString(body)
	return []byte(b.String())
}
