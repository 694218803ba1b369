package job

import "time"

// Job is one declared unit of work in a deployment. Jobs are either
// cron-fired, dependency-gated, or purely manual (no cron, no depends).
type Job struct {
	Name  string `yaml:"name" json:"name"`
	State State  `yaml:"-" json:"state"`

	Depends []string `yaml:"depends,omitempty" json:"depends,omitempty"`
	Cron    string   `yaml:"cron,omitempty" json:"cron,omitempty"`
	RunCmd  string   `yaml:"run_cmd,omitempty" json:"run_cmd,omitempty"`

	SuccessEmailRecipients string `yaml:"success_email_recipients,omitempty" json:"success_email_recipients,omitempty"`
	FailureEmailRecipients string `yaml:"failure_email_recipients,omitempty" json:"failure_email_recipients,omitempty"`
	SuccessSlackWebhook    string `yaml:"success_slack_webhook,omitempty" json:"success_slack_webhook,omitempty"`
	FailureSlackWebhook    string `yaml:"failure_slack_webhook,omitempty" json:"failure_slack_webhook,omitempty"`

	// NextCronFireTime is only meaningful when Cron is set. Zero value
	// means "not yet computed" (set during Registry.Reload).
	NextCronFireTime time.Time `yaml:"-" json:"next_cron_fire_time,omitempty"`

	// Presentation holds opaque, core-agnostic attributes (x/y offsets,
	// width, text_prefix, ...) from the configuration source. The core
	// never reads these; they pass through unchanged into snapshots for
	// the web front-end.
	Presentation map[string]any `yaml:",inline" json:"presentation,omitempty"`
}

// Clone deep-copies a Job so registry snapshots can be handed to
// observers without risking a torn read under concurrent mutation.
func (j *Job) Clone() *Job {
	cp := *j
	if j.Depends != nil {
		cp.Depends = append([]string(nil), j.Depends...)
	}
	if j.Presentation != nil {
		cp.Presentation = make(map[string]any, len(j.Presentation))
		for k, v := range j.Presentation {
			cp.Presentation[k] = v
		}
	}
	return &cp
}

// HasCron reports whether the job is time-fired.
func (j *Job) HasCron() bool {
	return j.Cron != ""
}

// HasDepends reports whether the job is dependency-gated.
func (j *Job) HasDepends() bool {
	return len(j.Depends) > 0
}
