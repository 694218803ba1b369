// Package daemon wires the registry, scheduler loop, process runner,
// and bus client into one running process, following the boot sequence
// in spec §4.6: build the registry with no bus first so the deployment
// UID can be read, check for an existing live instance under that UID,
// then bring the bus client and scheduler loop up together.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/bus/wsbus"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/config"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/ledger"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/notifier"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/registry"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/runner"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/scheduler"
)

// classification is the bus classification every deployment registers
// under, plus its own UID, so external tooling can discover a specific
// running deployment among many FlowController processes on one broker
// (spec §4.5, register with classifications ["FlowController", uid]).
const classification = "FlowController"

// Daemon is the assembled, runnable orchestrator process.
type Daemon struct {
	registry *registry.Registry
	client   bus.Client
	loop     *scheduler.Loop
	logger   *slog.Logger
}

// Options configures one Daemon instance.
type Options struct {
	Source    config.Source
	Overrides config.Overrides
	SMQServer string // override for the bus endpoint; "" uses the deployment's smq_server
	Logger    *slog.Logger
}

// Build performs the boot sequence up to (but not including) Run:
// load the configuration once with no bus to discover the UID, check
// whether that UID is already alive on the bus, then construct the
// primary bus client, registry wiring, runner, and scheduler loop.
func Build(ctx context.Context, opts Options) (*Daemon, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	l := ledger.New()
	reg := registry.New(opts.Source, opts.Overrides, l, logger)

	// Step 1: load with no bus client so config_changed isn't published
	// before anything is listening, and so the UID is known before we
	// touch the bus at all.
	if err := reg.Reload(ctx, nil); err != nil {
		return nil, fmt.Errorf("daemon: initial load: %w", err)
	}

	deployment := reg.Deployment()
	config.LoadDotEnv(deployment.ConfigDir, logger)
	if err := os.MkdirAll(deployment.LedgerDir, 0o755); err != nil {
		return nil, fmt.Errorf("daemon: create ledger dir: %w", err)
	}
	if err := os.MkdirAll(deployment.JobLogsDir, 0o755); err != nil {
		return nil, fmt.Errorf("daemon: create log dir: %w", err)
	}

	endpoint := deployment.SMQServer
	if opts.SMQServer != "" {
		endpoint = opts.SMQServer
	}
	serverAddr := stripScheme(endpoint)

	uid := deployment.UID
	if err := checkNotAlreadyRunning(ctx, serverAddr, uid, logger); err != nil {
		return nil, err
	}

	pubList := []string{"job_state_changed", "config_changed", "job_log_changed"}
	subList := []string{"ping", "reload_config", "request_config", "request_icon", "request_log_chunk", "trigger_job", "change_job_state"}
	tag := map[string]any{"title": deployment.Title}

	client := wsbus.NewClient(serverAddr, uid, []string{classification, uid}, pubList, subList, tag, logger)
	if err := client.Start(ctx); err != nil {
		return nil, fmt.Errorf("daemon: connect to bus: %w", err)
	}

	n := notifier.New(deployment.EmailSender, logger)
	run := runner.New(client, reg, n, logger)
	dispatch := &dispatchAdapter{runner: run, uid: uid}
	loop := scheduler.New(reg, client, dispatch, logger)

	d := &Daemon{registry: reg, client: client, loop: loop, logger: logger.With("component", "daemon")}
	d.registerHandlers()
	return d, nil
}

// dispatchAdapter bridges the scheduler's DispatchRequest (which knows
// nothing about the bus) into a runner.Request (which needs the
// deployment's own UID to address its change_job_state callbacks).
type dispatchAdapter struct {
	runner *runner.Runner
	uid    string
}

func (a *dispatchAdapter) Run(ctx context.Context, req scheduler.DispatchRequest) {
	a.runner.Run(ctx, runner.Request{
		TargetUID:              a.uid,
		JobName:                req.JobName,
		Cwd:                    req.Cwd,
		RunCmd:                 req.RunCmd,
		LogFilename:            req.LogFilename,
		SuccessEmailRecipients: req.SuccessEmailRecipients,
		FailureEmailRecipients: req.FailureEmailRecipients,
		SuccessSlackWebhook:    req.SuccessSlackWebhook,
		FailureSlackWebhook:    req.FailureSlackWebhook,
		HasCron:                req.HasCron,
	})
}

// checkNotAlreadyRunning opens a short-lived bus client under a
// temporary name, asks the broker's peer directory for uid, and pings
// it — a stale directory row with no live connection is not a conflict,
// only a peer that actually answers is (spec §4.6 step 2).
func checkNotAlreadyRunning(ctx context.Context, serverAddr, uid string, logger *slog.Logger) error {
	probeName := uid + ".probe." + bus.NewMessageID()
	probe := wsbus.NewClient(serverAddr, probeName, nil, nil, nil, nil, logger)
	if err := probe.Start(ctx); err != nil {
		// Bus unreachable: nothing to conflict with yet. The primary
		// client's own Start will surface the same error shortly.
		return nil
	}
	defer probe.Stop()

	peers, err := probe.GetInfoForAllClients(ctx)
	if err != nil {
		return nil
	}
	if _, known := peers[uid]; !known {
		return nil
	}
	if probe.IsAlive(ctx, uid) {
		return fmt.Errorf("daemon: a FlowController instance with uid %q is already running", uid)
	}
	return nil
}

func stripScheme(endpoint string) string {
	for _, scheme := range []string{"http://", "https://", "ws://", "wss://"} {
		if len(endpoint) >= len(scheme) && endpoint[:len(scheme)] == scheme {
			return endpoint[len(scheme):]
		}
	}
	return endpoint
}

// Run starts the scheduler loop and blocks until a shutdown signal
// arrives or ctx is cancelled, then stops the bus client gracefully
// (spec §4.6 steps 5-7).
func (d *Daemon) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		d.loop.Run(gctx)
		return nil
	})
	g.Go(func() error {
		select {
		case <-gctx.Done():
			return nil
		case sig := <-sigCh:
			d.logger.Info("daemon: shutdown signal received", "signal", sig.String())
			cancel()
			return nil
		}
	})

	err := g.Wait()

	if stopErr := d.client.Stop(); stopErr != nil {
		d.logger.Warn("daemon: error stopping bus client", "error", stopErr)
	}
	d.logger.Info("daemon: shutdown complete")
	return err
}
