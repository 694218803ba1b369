package registry

import "time"

// JobSnapshot is a job rendered for transmission over the bus: state is
// its string name rather than the job.State sum type, so non-core
// payload encoders (the CLI, the web front-end) never need to know the
// enum (spec §4.5, request_config).
type JobSnapshot struct {
	Name                   string         `json:"name"`
	State                  string         `json:"state"`
	Depends                []string       `json:"depends,omitempty"`
	Cron                   string         `json:"cron,omitempty"`
	RunCmd                 string         `json:"run_cmd,omitempty"`
	SuccessEmailRecipients string         `json:"success_email_recipients,omitempty"`
	FailureEmailRecipients string         `json:"failure_email_recipients,omitempty"`
	SuccessSlackWebhook    string         `json:"success_slack_webhook,omitempty"`
	FailureSlackWebhook    string         `json:"failure_slack_webhook,omitempty"`
	NextCronFireTime       *time.Time     `json:"next_cron_fire_time,omitempty"`
	Presentation           map[string]any `json:"presentation,omitempty"`
}

// Snapshot is the deep-copied configuration view returned by
// request_config.
type Snapshot struct {
	UID          string        `json:"uid"`
	Title        string        `json:"title"`
	LogoFilename string        `json:"logo_filename"`
	Jobs         []JobSnapshot `json:"jobs"`
}

// Snapshot returns a deep copy of the current configuration, in
// declaration order, with every job's state rendered as its name.
func (r *Registry) Snapshot() Snapshot {
	r.mu.RLock()
	defer r.mu.RUnlock()

	s := Snapshot{UID: r.deployment.UID, Title: r.deployment.Title, LogoFilename: r.deployment.LogoFilename}
	for _, j := range r.deployment.Jobs {
		js := JobSnapshot{
			Name:                   j.Name,
			State:                  j.State.String(),
			Cron:                   j.Cron,
			RunCmd:                 j.RunCmd,
			SuccessEmailRecipients: j.SuccessEmailRecipients,
			FailureEmailRecipients: j.FailureEmailRecipients,
			SuccessSlackWebhook:    j.SuccessSlackWebhook,
			FailureSlackWebhook:    j.FailureSlackWebhook,
		}
		if j.HasCron() && !j.NextCronFireTime.IsZero() {
			t := j.NextCronFireTime
			js.NextCronFireTime = &t
		}
		if j.Depends != nil {
			js.Depends = append([]string(nil), j.Depends...)
		}
		if j.Presentation != nil {
			js.Presentation = make(map[string]any, len(j.Presentation))
			for k, v := range j.Presentation {
				js.Presentation[k] = v
			}
		}
		s.Jobs = append(s.Jobs, js)
	}
	return s
}
