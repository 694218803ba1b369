package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/config"
	"github.com/jholhewres/flowcontrol/pkg/flowcontrol/daemon"
)

func newStartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the orchestrator daemon for a deployment",
		RunE:  runStart,
	}

	cmd.Flags().String("override-smq-server", "", "override the deployment's smq_server")
	cmd.Flags().String("override-ledger-dir", "", "override the deployment's ledger_dir")
	cmd.Flags().String("override-job-logs-dir", "", "override the deployment's job_logs_dir")
	cmd.Flags().String("override-email-sender", "", "override the deployment's email_sender")
	cmd.Flags().String("override-success-email-recipients", "", "override the default success email recipients")
	cmd.Flags().String("override-failure-email-recipients", "", "override the default failure email recipients")
	cmd.Flags().String("override-success-slack-webhook", "", "override the default success slack webhook")
	cmd.Flags().String("override-failure-slack-webhook", "", "override the default failure slack webhook")

	return cmd
}

func runStart(cmd *cobra.Command, _ []string) error {
	configPath, _ := cmd.Root().PersistentFlags().GetString("config")
	verbose, _ := cmd.Root().PersistentFlags().GetBool("verbose")

	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: logLevel}))

	overrides := config.Overrides{
		SMQServer:              flagOverride(cmd, "override-smq-server"),
		LedgerDir:              flagOverride(cmd, "override-ledger-dir"),
		JobLogsDir:             flagOverride(cmd, "override-job-logs-dir"),
		EmailSender:            flagOverride(cmd, "override-email-sender"),
		SuccessEmailRecipients: flagOverride(cmd, "override-success-email-recipients"),
		FailureEmailRecipients: flagOverride(cmd, "override-failure-email-recipients"),
		SuccessSlackWebhook:    flagOverride(cmd, "override-success-slack-webhook"),
		FailureSlackWebhook:    flagOverride(cmd, "override-failure-slack-webhook"),
	}

	ctx := context.Background()
	d, err := daemon.Build(ctx, daemon.Options{
		Source:    config.NewFileSource(configPath),
		Overrides: overrides,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	logger.Info("flowcontrol daemon starting", "config", configPath)
	return d.Run(ctx)
}

// flagOverride returns nil when flag wasn't explicitly set, matching
// Overrides' "nil means not supplied" convention.
func flagOverride(cmd *cobra.Command, name string) *string {
	if !cmd.Flags().Changed(name) {
		return nil
	}
	v, _ := cmd.Flags().GetString(name)
	return &v
}
