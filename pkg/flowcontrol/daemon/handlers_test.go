package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/config"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/ledger"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/registry"
)

// fakeClient is a no-op bus.Client: enough for handler tests to exercise
// the registry without a real broker.
type fakeClient struct {
	sent []bus.Message
}

func (f *fakeClient) ConstructMessage(kind, target string, payload map[string]any) bus.Message {
	return bus.Message{ID: bus.NewMessageID(), Kind: kind, Source: "test", Target: target, Payload: payload}
}

func (f *fakeClient) SendMessage(_ context.Context, msg bus.Message, _ time.Duration) (map[string]any, error) {
	f.sent = append(f.sent, msg)
	return map[string]any{"retval": 0}, nil
}

func (f *fakeClient) AddMessageHandler(string, bus.Handler)                        {}
func (f *fakeClient) GetInfoForAllClients(context.Context) (map[string]bus.ClientInfo, error) {
	return nil, nil
}
func (f *fakeClient) IsAlive(context.Context, string) bool { return false }
func (f *fakeClient) Start(context.Context) error          { return nil }
func (f *fakeClient) Stop() error                          { return nil }

const handlerTestYAML = `
uid: dep1
title: Test Deployment
logo_filename: logo.png
ledger_dir: ledger
job_logs_dir: logs
smq_server: localhost:9000
jobs:
  - name: root
    run_cmd: echo root
`

func newTestDaemon(t *testing.T) (*Daemon, *fakeClient) {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "deployment.yaml")
	if err := os.WriteFile(path, []byte(handlerTestYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	reg := registry.New(config.NewFileSource(path), config.Overrides{}, ledger.New(), nil)
	if err := reg.Reload(context.Background(), nil); err != nil {
		t.Fatalf("Reload: %v", err)
	}
	fc := &fakeClient{}
	d := &Daemon{registry: reg, client: fc}
	return d, fc
}

func TestHandlePingReturnsOK(t *testing.T) {
	d, _ := newTestDaemon(t)
	resp, err := d.handlePing(context.Background(), bus.Message{})
	if err != nil || resp["retval"] != 0 {
		t.Fatalf("got %+v, %v", resp, err)
	}
}

func TestHandleRequestConfigReturnsSnapshot(t *testing.T) {
	d, _ := newTestDaemon(t)
	resp, err := d.handleRequestConfig(context.Background(), bus.Message{})
	if err != nil {
		t.Fatalf("handleRequestConfig: %v", err)
	}
	if _, ok := resp["config"]; !ok {
		t.Fatalf("expected a config key in response, got %+v", resp)
	}
}

func TestHandleChangeJobStateMissingFieldsRejected(t *testing.T) {
	d, _ := newTestDaemon(t)
	if _, err := d.handleChangeJobState(context.Background(), bus.Message{Payload: map[string]any{}}); err == nil {
		t.Fatal("expected an error for a change_job_state message with no job_name/new_state")
	}
}

func TestHandleChangeJobStateUnknownStateRejected(t *testing.T) {
	d, _ := newTestDaemon(t)
	msg := bus.Message{Payload: map[string]any{"job_name": "root", "new_state": "NOT_A_STATE"}}
	if _, err := d.handleChangeJobState(context.Background(), msg); err == nil {
		t.Fatal("expected an error for an unrecognized state name")
	}
}

func TestHandleChangeJobStateAppliesTransition(t *testing.T) {
	d, fc := newTestDaemon(t)
	msg := bus.Message{Payload: map[string]any{"job_name": "root", "new_state": "RUNNING", "reason": "test"}}
	resp, err := d.handleChangeJobState(context.Background(), msg)
	if err != nil {
		t.Fatalf("handleChangeJobState: %v", err)
	}
	if resp["retval"] != 0 {
		t.Fatalf("got %+v", resp)
	}
	if len(fc.sent) != 1 || fc.sent[0].Kind != "job_state_changed" {
		t.Fatalf("expected a job_state_changed broadcast, got %+v", fc.sent)
	}
}

func TestHandleTriggerJobMissingNameRejected(t *testing.T) {
	d, _ := newTestDaemon(t)
	if _, err := d.handleTriggerJob(context.Background(), bus.Message{Payload: map[string]any{}}); err == nil {
		t.Fatal("expected an error for trigger_job with no job_name")
	}
}

func TestHandleRequestLogChunkMissingNameRejected(t *testing.T) {
	d, _ := newTestDaemon(t)
	if _, err := d.handleRequestLogChunk(context.Background(), bus.Message{Payload: map[string]any{}}); err == nil {
		t.Fatal("expected an error for request_log_chunk with no job_name")
	}
}
