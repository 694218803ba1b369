package registry

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/config"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/job"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/ledger"
)

const testYAML = `
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
`

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "deployment.yaml")
	if err := os.WriteFile(path, []byte(testYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	reg := New(config.NewFileSource(path), config.Overrides{}, ledger.New(), nil)
	if err := reg.Reload(context.Background(), nil); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	return reg
}

func TestReloadResetsToIdle(t *testing.T) {
	reg := newTestRegistry(t)
	for _, j := range reg.JobsSnapshot() {
		if j.State != job.Idle {
			t.Fatalf("job %s should start IDLE, got %v", j.Name, j.State)
		}
	}
}

func TestChangeJobStateAppendsLedgerBeforeReturning(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	if _, err := reg.ChangeJobState(ctx, nil, "root", job.Success, "test"); err != nil {
		t.Fatalf("ChangeJobState: %v", err)
	}

	d := reg.Deployment()
	entries, err := reg.ledger.ReadToday(d.LedgerDir, d.UID)
	if err != nil {
		t.Fatalf("ReadToday: %v", err)
	}
	if len(entries) != 1 || entries[0].JobName != "root" || entries[0].State != "SUCCESS" {
		t.Fatalf("expected one SUCCESS row for root, got %+v", entries)
	}

	for _, j := range reg.JobsSnapshot() {
		if j.Name == "root" && j.State != job.Success {
			t.Fatalf("in-memory state did not update: %v", j.State)
		}
	}
}

func TestReloadReplaysLedgerLastRowWins(t *testing.T) {
	reg := newTestRegistry(t)
	ctx := context.Background()

	reg.ChangeJobState(ctx, nil, "root", job.Pending, "first")
	reg.ChangeJobState(ctx, nil, "root", job.Running, "second")
	reg.ChangeJobState(ctx, nil, "root", job.Success, "third")

	if err := reg.Reload(ctx, nil); err != nil {
		t.Fatalf("Reload: %v", err)
	}

	for _, j := range reg.JobsSnapshot() {
		if j.Name == "root" && j.State != job.Success {
			t.Fatalf("expected root to replay to SUCCESS (the last row), got %v", j.State)
		}
		if j.Name == "child" && j.State != job.Idle {
			t.Fatalf("expected child with no ledger rows to remain IDLE, got %v", j.State)
		}
	}
}

func TestUnknownJobNameRejected(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.ChangeJobState(context.Background(), nil, "does-not-exist", job.Pending, "x"); err == nil {
		t.Fatal("expected an error changing state of an unknown job")
	}
}

func TestSnapshotPreservesDeclarationOrder(t *testing.T) {
	reg := newTestRegistry(t)
	snap := reg.Snapshot()
	if len(snap.Jobs) != 2 || snap.Jobs[0].Name != "root" || snap.Jobs[1].Name != "child" {
		t.Fatalf("expected [root, child] in order, got %+v", snap.Jobs)
	}
	if snap.Jobs[1].Depends[0] != "root" {
		t.Fatalf("expected child to depend on root, got %+v", snap.Jobs[1].Depends)
	}
}

func TestTriggerJobSetsPending(t *testing.T) {
	reg := newTestRegistry(t)
	if _, err := reg.TriggerJob(context.Background(), nil, "root", "manual"); err != nil {
		t.Fatalf("TriggerJob: %v", err)
	}
	for _, j := range reg.JobsSnapshot() {
		if j.Name == "root" && j.State != job.Pending {
			t.Fatalf("expected root to be PENDING after trigger, got %v", j.State)
		}
	}
}
