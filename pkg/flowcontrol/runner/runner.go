// Package runner implements the Process Runner: it spawns a job's shell
// command, streams its merged output into a per-run log file, and
// reports the terminal outcome back through the bus, the same path an
// external client would use, so completions serialize with every other
// state change the Scheduler Loop makes.
package runner

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"runtime/debug"
	"time"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/notifier"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/registry"
)

const timeLayout = "2006-01-02 15:04:05"

// Request describes one job invocation.
type Request struct {
	TargetUID   string
	JobName     string
	Cwd         string
	RunCmd      string
	LogFilename string

	SuccessEmailRecipients string
	FailureEmailRecipients string
	SuccessSlackWebhook    string
	FailureSlackWebhook    string

	// HasCron is true when the job carries a cron schedule; a
	// successful run re-arms NextCronFireTime from completion time
	// (spec §4.4 step 5 / Design Note (c)).
	HasCron bool
}

// Runner executes job commands. Each dispatched job runs on its own
// goroutine (Run is meant to be called with `go`); multiple jobs may be
// RUNNING concurrently.
type Runner struct {
	client   bus.Client
	reg      *registry.Registry
	notifier *notifier.Notifier
	logger   *slog.Logger
}

// New builds a Runner. client is used to request state transitions and
// broadcast job_log_changed events; reg is used only to re-arm cron
// jobs' NextCronFireTime, which is scheduling metadata rather than job
// state and so does not need to round-trip through the ledger.
func New(client bus.Client, reg *registry.Registry, n *notifier.Notifier, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{client: client, reg: reg, notifier: n, logger: logger.With("component", "runner")}
}

// Run executes req.RunCmd to completion, reporting SUCCESS or FAILURE
// back to the registry via the bus. It recovers from panics within the
// runner body itself (spec §4.4 step 6: "Job Error").
func (r *Runner) Run(ctx context.Context, req Request) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("runner: panic in job runner", "job", req.JobName, "panic", rec)
			r.appendLogSafely(req.LogFilename, fmt.Sprintf("PANIC: %v\n%s", rec, debug.Stack()))
			r.reportState(ctx, req, "FAILURE", "Job Error")
			r.notifier.NotifyFailure(ctx, req.JobName, req.FailureEmailRecipients, req.FailureSlackWebhook, fmt.Sprintf("panic: %v", rec))
		}
	}()

	f, err := r.openLog(req.LogFilename)
	if err != nil {
		r.logger.Error("runner: failed to open log file", "job", req.JobName, "file", req.LogFilename, "error", err)
		r.reportState(ctx, req, "FAILURE", "Job Error")
		r.notifier.NotifyFailure(ctx, req.JobName, req.FailureEmailRecipients, req.FailureSlackWebhook, err.Error())
		return
	}
	defer f.Close()

	r.writeBanner(f)

	if req.RunCmd == "" {
		r.reportState(ctx, req, "FAILURE", "missing run_cmd")
		r.notifier.NotifyFailure(ctx, req.JobName, req.FailureEmailRecipients, req.FailureSlackWebhook, "missing run_cmd")
		return
	}

	output, exitCode, err := r.execute(ctx, f, req)
	if err != nil {
		r.logger.Error("runner: failed to execute job", "job", req.JobName, "error", err)
		writeLine(f, "runner error: "+err.Error())
		r.reportState(ctx, req, "FAILURE", "Job Error")
		r.notifier.NotifyFailure(ctx, req.JobName, req.FailureEmailRecipients, req.FailureSlackWebhook, output)
		return
	}

	if exitCode == 0 {
		r.reportState(ctx, req, "SUCCESS", "Job Completed")
		if req.HasCron {
			if err := r.reg.AdvanceCronFire(req.JobName, time.Now()); err != nil {
				r.logger.Error("runner: failed to re-arm cron job", "job", req.JobName, "error", err)
			}
		}
		r.notifier.NotifySuccess(ctx, req.JobName, req.SuccessEmailRecipients, req.SuccessSlackWebhook, output)
		return
	}

	r.reportState(ctx, req, "FAILURE", "Job Completed")
	r.notifier.NotifyFailure(ctx, req.JobName, req.FailureEmailRecipients, req.FailureSlackWebhook, output)
}

// reportState sends a change_job_state request for req through the bus,
// exactly the path an external client uses (spec §4.4: "requests
// transitions through the same bus/handler path").
func (r *Runner) reportState(ctx context.Context, req Request, newState, reason string) {
	msg := r.client.ConstructMessage("change_job_state", req.TargetUID, map[string]any{
		"job_name": req.JobName, "new_state": newState, "reason": reason,
	})
	if _, err := r.client.SendMessage(ctx, msg, 5*time.Second); err != nil {
		r.logger.Error("runner: failed to request state change", "job", req.JobName, "new_state", newState, "error", err)
	}
}

func (r *Runner) openLog(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

func (r *Runner) writeBanner(f *os.File) {
	writeLine(f, "")
	writeLine(f, "")
	writeLine(f, "FlowController Starting Job")
	writeLine(f, "")
	writeLine(f, "")
}

func (r *Runner) appendLogSafely(path, text string) {
	f, err := r.openLog(path)
	if err != nil {
		return
	}
	defer f.Close()
	writeLine(f, text)
}

func writeLine(f *os.File, line string) {
	fmt.Fprintf(f, "%s %s\n", time.Now().Format(timeLayout), line)
}

// execute spawns req.RunCmd through the platform shell with cwd set to
// the deployment's working directory, streams merged stdout/stderr
// line by line into the log file (publishing job_log_changed per
// line), and returns the complete buffered output plus the exit code.
func (r *Runner) execute(ctx context.Context, f *os.File, req Request) (string, int, error) {
	cmd := shellCommand(ctx, req.RunCmd)
	cmd.Dir = req.Cwd

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return "", -1, fmt.Errorf("stdout pipe: %w", err)
	}
	cmd.Stderr = cmd.Stdout

	if err := cmd.Start(); err != nil {
		return "", -1, fmt.Errorf("start: %w", err)
	}

	var buf bytes.Buffer
	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		buf.WriteString(line)
		buf.WriteByte('\n')

		writeLine(f, line)
		f.Sync()

		msg := r.client.ConstructMessage("job_log_changed", bus.Broadcast, map[string]any{"job_name": req.JobName})
		if _, err := r.client.SendMessage(ctx, msg, 0); err != nil {
			r.logger.Warn("runner: failed to publish job_log_changed", "job", req.JobName, "error", err)
		}
	}

	waitErr := cmd.Wait()
	exitCode := 0
	if waitErr != nil {
		if exitErr, ok := waitErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return buf.String(), -1, waitErr
		}
	}
	return buf.String(), exitCode, nil
}
