// Package registry holds the in-memory Job Registry: the deployment's
// current configuration, every job's live state, and the operations
// (reload, change_job_state, trigger_job, snapshots) that mutate or
// observe it. It is the only component that writes the ledger or a
// job's state directly — everything else, including the Process
// Runner's own completions, goes through ChangeJobState.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/config"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/cronexpr"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/job"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/ledger"
)

// Registry is the Job Registry. mu guards both the deployment/jobs view
// and every ledger append, so a state change and its ledger row are
// always applied together (spec §4.1/§4.3 — "the ledger mutex").
type Registry struct {
	source    config.Source
	overrides config.Overrides
	ledger    *ledger.Ledger
	logger    *slog.Logger

	mu         sync.RWMutex
	deployment *config.Deployment
	jobs       map[string]*job.Job
}

// New builds a Registry. It does not load the configuration yet — call
// Reload(ctx, nil) once to do the initial load before a bus client
// exists (spec §4.6 step 1: "Build the registry (no bus yet) to read
// the UID").
func New(source config.Source, overrides config.Overrides, l *ledger.Ledger, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		source:    source,
		overrides: overrides,
		ledger:    l,
		logger:    logger.With("component", "registry"),
	}
}

// Reload re-reads the configuration source, applies overrides, resets
// every job to IDLE, computes cron next-fire times, inherits
// notification defaults, replays today's ledger, and — if client is
// non-nil — broadcasts config_changed. Matches spec §4.2 steps 1-7.
func (r *Registry) Reload(ctx context.Context, client bus.Client) error {
	d, err := r.source.Load(ctx)
	if err != nil {
		return fmt.Errorf("registry: reload: %w", err)
	}

	r.overrides.Apply(d)

	now := time.Now()
	for _, j := range d.Jobs {
		j.State = job.Idle
		if j.HasCron() {
			next, err := cronexpr.Next(j.Cron, now)
			if err != nil {
				r.logger.Error("registry: invalid cron expression, job will never fire", "job", j.Name, "cron", j.Cron, "error", err)
				continue
			}
			j.NextCronFireTime = next
		}
	}
	d.ApplyDefaults()

	jobs := make(map[string]*job.Job, len(d.Jobs))
	for _, j := range d.Jobs {
		jobs[j.Name] = j
	}

	r.mu.Lock()
	r.deployment = d
	r.jobs = jobs
	r.mu.Unlock()

	if err := r.replayLedger(); err != nil {
		return fmt.Errorf("registry: replay ledger: %w", err)
	}

	if client != nil {
		msg := client.ConstructMessage("config_changed", bus.Broadcast, map[string]any{})
		if _, err := client.SendMessage(ctx, msg, 0); err != nil {
			r.logger.Warn("registry: failed to publish config_changed", "error", err)
		}
	}
	return nil
}

// replayLedger restores job states from today's ledger: the last row
// for a given job wins (spec §4.1, sequential apply). Jobs absent from
// the ledger stay IDLE.
func (r *Registry) replayLedger() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries, err := r.ledger.ReadToday(r.deployment.LedgerDir, r.deployment.UID)
	if err != nil {
		return err
	}
	for _, e := range entries {
		j, ok := r.jobs[e.JobName]
		if !ok {
			continue
		}
		st, err := job.ParseState(e.State)
		if err != nil {
			r.logger.Warn("registry: ledger row with unknown state, skipping", "job", e.JobName, "state", e.State)
			continue
		}
		j.State = st
	}
	return nil
}

// ChangeJobState is the sole path by which a job's state is mutated: it
// appends a ledger row and updates the in-memory state atomically, then
// — if client is non-nil — publishes job_state_changed. The Process
// Runner's completions, cron fires, dependency promotions, and every
// bus-driven state change all call this same method so they serialize
// identically (spec §4.3, §4.4, §4.5).
func (r *Registry) ChangeJobState(ctx context.Context, client bus.Client, jobName string, newState job.State, reason string) (map[string]any, error) {
	r.mu.Lock()
	j, ok := r.jobs[jobName]
	if !ok {
		r.mu.Unlock()
		return nil, fmt.Errorf("registry: unknown job %q", jobName)
	}
	if err := r.ledger.Append(r.deployment.LedgerDir, r.deployment.UID, jobName, newState.String(), reason); err != nil {
		r.mu.Unlock()
		return nil, fmt.Errorf("registry: change_job_state: %w", err)
	}
	j.State = newState
	r.mu.Unlock()

	if client != nil {
		msg := client.ConstructMessage("job_state_changed", bus.Broadcast, map[string]any{
			"job_name": jobName, "new_state": newState.String(),
		})
		if _, err := client.SendMessage(ctx, msg, 0); err != nil {
			r.logger.Warn("registry: failed to publish job_state_changed", "job", jobName, "error", err)
		}
	}
	return map[string]any{"retval": 0}, nil
}

// TriggerJob transitions jobName to PENDING with the given reason.
func (r *Registry) TriggerJob(ctx context.Context, client bus.Client, jobName, reason string) (map[string]any, error) {
	return r.ChangeJobState(ctx, client, jobName, job.Pending, reason)
}

// AdvanceCronFire recomputes jobName's NextCronFireTime to the first
// occurrence strictly after 'from'. Used both when a cron job fires
// (re-armed immediately, before dispatch — spec §4.3 step 3) and after
// a cron job's run completes (re-armed relative to completion time, not
// the prior scheduled time — spec §4.4 step 5 / Design Note (c)).
func (r *Registry) AdvanceCronFire(jobName string, from time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[jobName]
	if !ok {
		return fmt.Errorf("registry: unknown job %q", jobName)
	}
	if !j.HasCron() {
		return nil
	}
	next, err := cronexpr.Next(j.Cron, from)
	if err != nil {
		return err
	}
	j.NextCronFireTime = next
	return nil
}

// JobsSnapshot returns a deep-copied, declaration-ordered view of every
// job, safe for a caller to inspect without holding the registry lock.
func (r *Registry) JobsSnapshot() []*job.Job {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*job.Job, 0, len(r.deployment.Jobs))
	for _, j := range r.deployment.Jobs {
		out = append(out, j.Clone())
	}
	return out
}

// Deployment returns a shallow copy of the deployment metadata (paths,
// UID, bus endpoint). Jobs is not copied here — use JobsSnapshot.
func (r *Registry) Deployment() config.Deployment {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d := *r.deployment
	d.Jobs = nil
	return d
}

// UID returns the deployment's bus-unique identifier.
func (r *Registry) UID() string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.deployment.UID
}

// LogFilename returns the absolute path of jobName's log file for date
// (local time). Matches spec §3, Log File.
func (r *Registry) LogFilename(jobName string, at time.Time) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return logFilename(r.deployment.JobLogsDir, r.deployment.UID, jobName, at)
}

func logFilename(jobLogsDir, uid, jobName string, at time.Time) string {
	return filepath.Join(jobLogsDir, fmt.Sprintf("%s.%s.%s.log", uid, jobName, at.Format("20060102")))
}

// Icon reads the deployment's logo file from disk.
func (r *Registry) Icon() ([]byte, error) {
	r.mu.RLock()
	path := filepath.Join(r.deployment.ConfigDir, r.deployment.LogoFilename)
	r.mu.RUnlock()
	return os.ReadFile(path)
}
