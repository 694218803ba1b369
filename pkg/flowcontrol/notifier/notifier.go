// Package notifier implements the fire-and-forget success/failure
// announcement sinks (e-mail, chat webhook). Both are best-effort: any
// delivery failure is logged and never affects job state, per spec §7.
package notifier

import (
	"context"
	"log/slog"
)

// Notifier delivers a notification to whichever sinks a job configured.
// It never returns an error to the caller — failures are logged inside.
type Notifier struct {
	email  *EmailSink
	webhook *WebhookSink
	logger *slog.Logger
}

// New builds a Notifier. sender is the "From" address used for e-mail
// (spec's deployment-wide email_sender).
func New(sender string, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{
		email:   NewEmailSink(sender, logger),
		webhook: NewWebhookSink(logger),
		logger:  logger.With("component", "notifier"),
	}
}

// NotifySuccess delivers a success announcement to the recipients/webhook
// a job was configured with (already defaulted from deployment-wide
// values by the time they reach here). body is the job's captured output.
func (n *Notifier) NotifySuccess(ctx context.Context, jobName, recipients, webhook, body string) {
	subject := "Job Succeeded: " + jobName
	n.email.Send(ctx, recipients, subject, body)
	n.webhook.Send(ctx, webhook, subject)
}

// NotifyFailure delivers a failure announcement.
func (n *Notifier) NotifyFailure(ctx context.Context, jobName, recipients, webhook, body string) {
	subject := "Job Failed: " + jobName
	n.email.Send(ctx, recipients, subject, body)
	n.webhook.Send(ctx, webhook, subject)
}
