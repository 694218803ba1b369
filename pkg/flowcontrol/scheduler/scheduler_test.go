package scheduler

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/config"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/job"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/ledger"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/registry"
)

const depYAML = `
uid: dep1
title: Test Deployment
logo_filename: logo.png
ledger_dir: ledger
job_logs_dir: logs
smq_server: localhost:9000
jobs:
  - name: root
    run_cmd: echo root
  - name: child
    depends: [root]
    run_cmd: echo child
  - name: orphan
    depends: [nonexistent_parent]
    run_cmd: echo orphan
`

// recordingDispatcher records every job name it was asked to run, so
// tests can assert on dispatch order without actually spawning a
// process.
type recordingDispatcher struct {
	mu  sync.Mutex
	ran []string
}

func (d *recordingDispatcher) Run(_ context.Context, req DispatchRequest) {
	d.mu.Lock()
	d.ran = append(d.ran, req.JobName)
	d.mu.Unlock()
}

func (d *recordingDispatcher) names() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.ran...)
}

// waitForDispatches polls until at least n dispatches were recorded or
// a deadline passes, since dispatchPending hands each job to the
// dispatcher on its own goroutine.
func (d *recordingDispatcher) waitForDispatches(n int) []string {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if names := d.names(); len(names) >= n {
			return names
		}
		time.Sleep(5 * time.Millisecond)
	}
	return d.names()
}

func newTestLoop(t *testing.T) (*Loop, *registry.Registry, *recordingDispatcher) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "deployment.yaml")
	if err := os.WriteFile(path, []byte(depYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	reg := registry.New(config.NewFileSource(path), config.Overrides{}, ledger.New(), nil)
	if err := reg.Reload(context.Background(), nil); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	d := &recordingDispatcher{}
	loop := New(reg, nil, d, nil)
	return loop, reg, d
}

func TestPromoteDependencyMetJobToPending(t *testing.T) {
	loop, reg, _ := newTestLoop(t)
	ctx := context.Background()

	reg.ChangeJobState(ctx, nil, "root", job.Success, "manual")
	loop.promote(ctx)

	for _, j := range reg.JobsSnapshot() {
		if j.Name == "child" && j.State != job.Pending {
			t.Fatalf("expected child to promote to PENDING once root succeeded, got %v", j.State)
		}
	}
}

func TestPromoteNeverFiresOnUnknownParent(t *testing.T) {
	loop, reg, _ := newTestLoop(t)
	ctx := context.Background()

	loop.promote(ctx)

	for _, j := range reg.JobsSnapshot() {
		if j.Name == "orphan" && j.State != job.Idle {
			t.Fatalf("a job depending on an unknown parent must never leave IDLE, got %v", j.State)
		}
	}
}

func TestDispatchPendingMovesToRunningAndDispatches(t *testing.T) {
	loop, reg, d := newTestLoop(t)
	ctx := context.Background()

	reg.TriggerJob(ctx, nil, "root", "manual")
	loop.dispatchPending(ctx)

	for _, j := range reg.JobsSnapshot() {
		if j.Name == "root" && j.State != job.Running {
			t.Fatalf("expected root to be RUNNING after dispatch, got %v", j.State)
		}
	}
	if names := d.waitForDispatches(1); len(names) != 1 || names[0] != "root" {
		t.Fatalf("expected root to have been dispatched, got %v", names)
	}
}

func TestDispatchDoesNotRedispatchRunningJob(t *testing.T) {
	loop, reg, d := newTestLoop(t)
	ctx := context.Background()

	reg.TriggerJob(ctx, nil, "root", "manual")
	loop.dispatchPending(ctx)
	loop.dispatchPending(ctx)

	d.waitForDispatches(1)
	time.Sleep(50 * time.Millisecond)
	if names := d.names(); len(names) != 1 {
		t.Fatalf("expected exactly one dispatch, got %v", names)
	}
}

func TestTickOrderPromotesThenDispatchesInSameTick(t *testing.T) {
	loop, reg, d := newTestLoop(t)
	ctx := context.Background()

	reg.ChangeJobState(ctx, nil, "root", job.Success, "manual")

	loop.promote(ctx)
	loop.dispatchPending(ctx)

	names := d.waitForDispatches(1)
	found := false
	for _, n := range names {
		if n == "child" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected child to be promoted and dispatched within one tick, got %v", names)
	}
}
