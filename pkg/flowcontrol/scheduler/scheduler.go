// Package scheduler implements the Scheduler Loop: the single owner of
// job-state promotion and dispatch. It runs on a fixed cadence and is
// the only component besides the bus adapter allowed to drive the
// registry directly, since its passes are what the "one writer"
// invariant in spec §4.3 is built around.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/job"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/registry"
)

const (
	// tickInterval is the loop's cadence (spec §4.3: "100ms").
	tickInterval = 100 * time.Millisecond
	// cronGateInterval bounds how often the loop re-checks cron due
	// times, since cron never fires more than once a minute (spec §4.3:
	// "gated to once per 60s of wall-clock time").
	cronGateInterval = 60 * time.Second
	// reloadCheckInterval bounds how often the loop checks for a day
	// rollover, which only needs minute-level precision.
	reloadCheckInterval = 30 * time.Second
)

// Dispatcher hands a PENDING job off for execution. The scheduler never
// runs a job itself — that's the Process Runner's job, started on its
// own goroutine so a long-running job never blocks the loop.
type Dispatcher interface {
	Run(ctx context.Context, req DispatchRequest)
}

// DispatchRequest carries everything the dispatcher needs to run one
// job; built fresh from the registry's current snapshot each dispatch.
type DispatchRequest struct {
	JobName                string
	Cwd                     string
	RunCmd                  string
	LogFilename             string
	SuccessEmailRecipients  string
	FailureEmailRecipients  string
	SuccessSlackWebhook     string
	FailureSlackWebhook     string
	HasCron                 bool
}

// Loop is the Scheduler Loop.
type Loop struct {
	reg        *registry.Registry
	client     bus.Client
	dispatch   Dispatcher
	logger     *slog.Logger

	lastDay      int
	lastCronGate time.Time
	lastReload   time.Time
}

// New builds a Loop. client may be nil only in tests that don't need
// job_state_changed broadcasts; in the running daemon it is always the
// process's own bus client.
func New(reg *registry.Registry, client bus.Client, dispatch Dispatcher, logger *slog.Logger) *Loop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loop{reg: reg, client: client, dispatch: dispatch, logger: logger.With("component", "scheduler")}
}

// Run blocks, ticking the loop until ctx is cancelled.
func (l *Loop) Run(ctx context.Context) {
	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	l.lastDay = time.Now().Day()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("scheduler: loop stopping")
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

// tick runs the four passes in spec §4.3 order: reload gate, cron gate,
// promotion pass, dispatch pass. All jobs are walked in registry
// declaration order so ties between jobs becoming eligible in the same
// tick resolve deterministically.
func (l *Loop) tick(ctx context.Context) {
	l.maybeReloadOnDayRollover(ctx)
	l.maybeGateCron()
	l.promote(ctx)
	l.dispatchPending(ctx)
}

// maybeReloadOnDayRollover reloads the registry once the local date has
// advanced, so the ledger and log filenames roll to the new day (spec
// §3, Log File / Ledger; §4.3 "day-rollover reload").
func (l *Loop) maybeReloadOnDayRollover(ctx context.Context) {
	now := time.Now()
	if now.Sub(l.lastReload) < reloadCheckInterval {
		return
	}
	l.lastReload = now

	if now.Day() == l.lastDay {
		return
	}
	l.lastDay = now.Day()

	l.logger.Info("scheduler: day rollover detected, reloading configuration")
	if err := l.reg.Reload(ctx, l.client); err != nil {
		l.logger.Error("scheduler: reload on day rollover failed", "error", err)
	}
}

// maybeGateCron re-arms and promotes due cron jobs at most once every
// cronGateInterval, since cron resolution never needs finer granularity
// (spec §4.3 step 2).
func (l *Loop) maybeGateCron() {
	now := time.Now()
	if now.Sub(l.lastCronGate) < cronGateInterval {
		return
	}
	l.lastCronGate = now

	for _, j := range l.reg.JobsSnapshot() {
		if !j.HasCron() || j.State != job.Idle {
			continue
		}
		if j.NextCronFireTime.IsZero() || j.NextCronFireTime.After(now) {
			continue
		}
		if err := l.reg.AdvanceCronFire(j.Name, now); err != nil {
			l.logger.Error("scheduler: failed to re-arm cron job", "job", j.Name, "error", err)
			continue
		}
		if _, err := l.reg.ChangeJobState(context.Background(), l.client, j.Name, job.Pending, "cron fire time"); err != nil {
			l.logger.Error("scheduler: failed to promote cron job to pending", "job", j.Name, "error", err)
		}
	}
}

// promote moves every IDLE job whose dependencies are all SUCCESS to
// PENDING (spec §4.3 step 3, dependency-met promotion). A job naming an
// unknown parent never promotes — it simply never satisfies the
// dependency check.
func (l *Loop) promote(ctx context.Context) {
	jobs := l.reg.JobsSnapshot()
	byName := make(map[string]*job.Job, len(jobs))
	for _, j := range jobs {
		byName[j.Name] = j
	}

	for _, j := range jobs {
		if j.State != job.Idle || !j.HasDepends() {
			continue
		}
		if !dependenciesMet(j, byName) {
			continue
		}
		if _, err := l.reg.ChangeJobState(ctx, l.client, j.Name, job.Pending, "Dependencies Ready"); err != nil {
			l.logger.Error("scheduler: failed to promote dependent job", "job", j.Name, "error", err)
		}
	}
}

func dependenciesMet(j *job.Job, byName map[string]*job.Job) bool {
	for _, parent := range j.Depends {
		p, ok := byName[parent]
		if !ok || p.State != job.Success {
			return false
		}
	}
	return true
}

// dispatchPending moves every PENDING job to RUNNING and hands it to
// the dispatcher on its own goroutine (spec §4.3 step 4). Jobs are
// walked in declaration order, the same order promotion used, so a tick
// that both promotes and dispatches resolves ties the same way twice.
func (l *Loop) dispatchPending(ctx context.Context) {
	deployment := l.reg.Deployment()
	for _, j := range l.reg.JobsSnapshot() {
		if j.State != job.Pending {
			continue
		}
		if _, err := l.reg.ChangeJobState(ctx, l.client, j.Name, job.Running, "pending"); err != nil {
			l.logger.Error("scheduler: failed to dispatch job", "job", j.Name, "error", err)
			continue
		}

		req := DispatchRequest{
			JobName:                j.Name,
			Cwd:                    deployment.ConfigDir,
			RunCmd:                 j.RunCmd,
			LogFilename:            l.reg.LogFilename(j.Name, time.Now()),
			SuccessEmailRecipients: j.SuccessEmailRecipients,
			FailureEmailRecipients: j.FailureEmailRecipients,
			SuccessSlackWebhook:    j.SuccessSlackWebhook,
			FailureSlackWebhook:    j.FailureSlackWebhook,
			HasCron:                j.HasCron(),
		}
		go l.dispatch.Run(ctx, req)
	}
}
