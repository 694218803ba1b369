// Package config loads and validates a deployment's declarative
// configuration: the bus endpoint, ledger/log directories, notification
// defaults, and the ordered set of declared jobs.
package config

import (
	"fmt"
	"path/filepath"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/job"
)

// Deployment is the parsed, validated, path-resolved configuration for
// one orchestrator instance.
type Deployment struct {
	UID          string
	Title        string
	LogoFilename string

	// ConfigDir is the directory containing the configuration file. It
	// is also the child process cwd for every job's run_cmd.
	ConfigDir string

	LedgerDir  string
	JobLogsDir string
	SMQServer  string

	EmailSender                    string
	DefaultSuccessEmailRecipients  string
	DefaultFailureEmailRecipients  string
	DefaultSuccessSlackWebhook     string
	DefaultFailureSlackWebhook     string

	// Jobs is ordered by declaration order in the source file; this is
	// the tie-break order the scheduler uses when several jobs become
	// ready in the same iteration.
	Jobs []*job.Job
}

// requiredKeys lists the configuration keys the external configuration
// source must supply.
var requiredKeys = []string{"title", "uid", "logo_filename", "jobs", "ledger_dir", "job_logs_dir", "smq_server"}

// rawDeployment mirrors the on-disk/on-wire shape of a deployment before
// path resolution and default inheritance.
type rawDeployment struct {
	UID          string `yaml:"uid"`
	Title        string `yaml:"title"`
	LogoFilename string `yaml:"logo_filename"`
	LedgerDir    string `yaml:"ledger_dir"`
	JobLogsDir   string `yaml:"job_logs_dir"`
	SMQServer    string `yaml:"smq_server"`

	EmailSender            string `yaml:"email_sender"`
	SuccessEmailRecipients string `yaml:"success_email_recipients"`
	FailureEmailRecipients string `yaml:"failure_email_recipients"`
	SuccessSlackWebhook    string `yaml:"success_slack_webhook"`
	FailureSlackWebhook    string `yaml:"failure_slack_webhook"`

	Jobs []*job.Job `yaml:"jobs"`
}

func (r *rawDeployment) validate() error {
	if r.Title == "" {
		return fmt.Errorf("config: missing required key %q", "title")
	}
	if r.UID == "" {
		return fmt.Errorf("config: missing required key %q", "uid")
	}
	if r.LogoFilename == "" {
		return fmt.Errorf("config: missing required key %q", "logo_filename")
	}
	if r.LedgerDir == "" {
		return fmt.Errorf("config: missing required key %q", "ledger_dir")
	}
	if r.JobLogsDir == "" {
		return fmt.Errorf("config: missing required key %q", "job_logs_dir")
	}
	if r.SMQServer == "" {
		return fmt.Errorf("config: missing required key %q", "smq_server")
	}
	if r.Jobs == nil {
		return fmt.Errorf("config: missing required key %q", "jobs")
	}
	return nil
}

// resolve turns a validated rawDeployment into a Deployment: directories
// are resolved relative to configDir and the bus endpoint is normalized
// with an "http://" scheme, exactly as the original config loader does.
func (r *rawDeployment) resolve(configDir string) *Deployment {
	d := &Deployment{
		UID:                           r.UID,
		Title:                         r.Title,
		LogoFilename:                  r.LogoFilename,
		ConfigDir:                     configDir,
		LedgerDir:                     resolvePath(configDir, r.LedgerDir),
		JobLogsDir:                    resolvePath(configDir, r.JobLogsDir),
		SMQServer:                     normalizeBusEndpoint(r.SMQServer),
		EmailSender:                   r.EmailSender,
		DefaultSuccessEmailRecipients: r.SuccessEmailRecipients,
		DefaultFailureEmailRecipients: r.FailureEmailRecipients,
		DefaultSuccessSlackWebhook:    r.SuccessSlackWebhook,
		DefaultFailureSlackWebhook:    r.FailureSlackWebhook,
		Jobs:                          r.Jobs,
	}
	return d
}

func resolvePath(configDir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(configDir, p)
}

func normalizeBusEndpoint(s string) string {
	if s == "" {
		return s
	}
	for _, scheme := range []string{"http://", "https://", "ws://", "wss://"} {
		if len(s) >= len(scheme) && s[:len(scheme)] == scheme {
			return s
		}
	}
	return "http://" + s
}

// ApplyDefaults inherits deployment-wide notification defaults into any
// job missing its own value.
func (d *Deployment) ApplyDefaults() {
	for _, j := range d.Jobs {
		if j.SuccessEmailRecipients == "" {
			j.SuccessEmailRecipients = d.DefaultSuccessEmailRecipients
		}
		if j.FailureEmailRecipients == "" {
			j.FailureEmailRecipients = d.DefaultFailureEmailRecipients
		}
		if j.SuccessSlackWebhook == "" {
			j.SuccessSlackWebhook = d.DefaultSuccessSlackWebhook
		}
		if j.FailureSlackWebhook == "" {
			j.FailureSlackWebhook = d.DefaultFailureSlackWebhook
		}
	}
}
