package config

// Overrides holds command-line override values. A nil pointer field
// means "not supplied" and is ignored, matching the original's
// "override entries with null value are ignored" rule — Go has no
// optional-string distinct from "", so every field is a *string.
type Overrides struct {
	SMQServer              *string
	LedgerDir              *string
	JobLogsDir             *string
	EmailSender            *string
	SuccessEmailRecipients *string
	FailureEmailRecipients *string
	SuccessSlackWebhook    *string
	FailureSlackWebhook    *string
}

// Apply merges non-nil override values into the deployment in place.
func (o Overrides) Apply(d *Deployment) {
	if o.SMQServer != nil {
		d.SMQServer = normalizeBusEndpoint(*o.SMQServer)
	}
	if o.LedgerDir != nil {
		d.LedgerDir = *o.LedgerDir
	}
	if o.JobLogsDir != nil {
		d.JobLogsDir = *o.JobLogsDir
	}
	if o.EmailSender != nil {
		d.EmailSender = *o.EmailSender
	}
	if o.SuccessEmailRecipients != nil {
		d.DefaultSuccessEmailRecipients = *o.SuccessEmailRecipients
	}
	if o.FailureEmailRecipients != nil {
		d.DefaultFailureEmailRecipients = *o.FailureEmailRecipients
	}
	if o.SuccessSlackWebhook != nil {
		d.DefaultSuccessSlackWebhook = *o.SuccessSlackWebhook
	}
	if o.FailureSlackWebhook != nil {
		d.DefaultFailureSlackWebhook = *o.FailureSlackWebhook
	}
}
