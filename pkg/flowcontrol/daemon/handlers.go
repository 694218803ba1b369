package daemon

import (
	"context"
	"fmt"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/job"
)

// registerHandlers wires every bus message kind the orchestrator
// answers to (spec §4.5): liveness, configuration, icon, log chunk, and
// the two state-mutating requests a client or the Process Runner itself
// can issue.
func (d *Daemon) registerHandlers() {
	d.client.AddMessageHandler("ping", d.handlePing)
	d.client.AddMessageHandler("reload_config", d.handleReloadConfig)
	d.client.AddMessageHandler("request_config", d.handleRequestConfig)
	d.client.AddMessageHandler("request_icon", d.handleRequestIcon)
	d.client.AddMessageHandler("request_log_chunk", d.handleRequestLogChunk)
	d.client.AddMessageHandler("trigger_job", d.handleTriggerJob)
	d.client.AddMessageHandler("change_job_state", d.handleChangeJobState)
}

func (d *Daemon) handlePing(_ context.Context, _ bus.Message) (map[string]any, error) {
	return map[string]any{"retval": 0}, nil
}

func (d *Daemon) handleReloadConfig(ctx context.Context, _ bus.Message) (map[string]any, error) {
	if err := d.registry.Reload(ctx, d.client); err != nil {
		return nil, err
	}
	return map[string]any{"retval": 0}, nil
}

func (d *Daemon) handleRequestConfig(_ context.Context, _ bus.Message) (map[string]any, error) {
	snap := d.registry.Snapshot()
	return map[string]any{"retval": 0, "config": snap}, nil
}

func (d *Daemon) handleRequestIcon(_ context.Context, _ bus.Message) (map[string]any, error) {
	data, err := d.registry.Icon()
	if err != nil {
		return nil, err
	}
	return map[string]any{"retval": 0, "icon": data}, nil
}

func (d *Daemon) handleRequestLogChunk(_ context.Context, msg bus.Message) (map[string]any, error) {
	jobName, _ := msg.Payload["job_name"].(string)
	rangeSpec, _ := msg.Payload["log_range"].(string)
	if jobName == "" {
		return nil, fmt.Errorf("daemon: request_log_chunk: missing job_name")
	}
	chunk, err := d.registry.LogChunk(jobName, rangeSpec)
	if err != nil {
		return nil, err
	}
	return map[string]any{"retval": 0, "log": chunk}, nil
}

func (d *Daemon) handleTriggerJob(ctx context.Context, msg bus.Message) (map[string]any, error) {
	jobName, _ := msg.Payload["job_name"].(string)
	if jobName == "" {
		return nil, fmt.Errorf("daemon: trigger_job: missing job_name")
	}
	return d.registry.TriggerJob(ctx, d.client, jobName, "triggered by "+msg.Source)
}

func (d *Daemon) handleChangeJobState(ctx context.Context, msg bus.Message) (map[string]any, error) {
	jobName, _ := msg.Payload["job_name"].(string)
	newStateRaw, _ := msg.Payload["new_state"].(string)
	reason, _ := msg.Payload["reason"].(string)
	if jobName == "" || newStateRaw == "" {
		return nil, fmt.Errorf("daemon: change_job_state: missing job_name or new_state")
	}
	newState, err := job.ParseState(newStateRaw)
	if err != nil {
		return nil, err
	}
	return d.registry.ChangeJobState(ctx, d.client, jobName, newState, reason)
}
