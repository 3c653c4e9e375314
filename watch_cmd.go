package main

import (
	"context"
	"fmt"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arwahdevops/fplsync/internal/config"
	"github.com/arwahdevops/fplsync/internal/ledger"
	"github.com/arwahdevops/fplsync/internal/logger"
	"github.com/arwahdevops/fplsync/internal/metrics"
	projectSync "github.com/arwahdevops/fplsync/internal/sync"
	"github.com/arwahdevops/fplsync/internal/tables"
	"github.com/arwahdevops/fplsync/internal/watch"
)

func newWatchCmd(ov *overrides) *cobra.Command {
	var debounce time.Duration
	var initial bool

	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Sync changed tables whenever staged files are written",
		Long: `Keeps one store connection open and runs a changed-only sync after every
burst of writes to DATA_DIR. Stops on SIGINT or SIGTERM.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			defer func() { _ = logger.Log.Sync() }()
			cfg, err := loadConfig(ov, false)
			if err != nil {
				return err
			}
			return runWatch(cmd, cfg, debounce, initial)
		},
	}
	cmd.Flags().DurationVar(&debounce, "debounce", 2*time.Second, "Quiet period after the last write before syncing")
	cmd.Flags().BoolVar(&initial, "initial", true, "Run a changed-only sync once before waiting for writes")
	return cmd
}

func runWatch(cmd *cobra.Command, cfg *config.Config, debounce time.Duration, initial bool) error {
	out := cmd.OutOrStdout()
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsStore := metrics.NewMetricsStore()
	conn, err := openStore(ctx, cfg, metricsStore)
	if err != nil {
		return err
	}
	defer closeStore(conn)
	startMetricsServer(ctx, cfg, metricsStore, conn)

	w, err := watch.New(cfg.DataDir, string(cfg.SourceFormat), debounce, logger.Log)
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	opts := projectSync.OptionsFromConfig(cfg)
	syncOnce := func(ctx context.Context, trigger []string) {
		// Ledger dibaca ulang tiap run, file bisa saja disentuh proses lain.
		l, err := ledger.Load(cfg.ResolvedLedgerPath(), logger.Log)
		if err != nil {
			logger.Log.Error("Failed to load ledger, skipping this trigger", zap.Error(err))
			return
		}
		o := projectSync.NewOrchestrator(conn, tables.Default, l, opts, logger.Log, metricsStore)
		o.OnTableDone = func(tr projectSync.TableReport) { printTableLine(out, tr) }

		if len(trigger) > 0 {
			names := make([]string, len(trigger))
			for i, p := range trigger {
				names[i] = filepath.Base(p)
			}
			fmt.Fprintf(out, "%s %v\n", styleMuted.Render("changes detected:"), names)
		}
		report, runErr := o.Run(ctx, projectSync.Request{ChangedOnly: true})
		if report != nil && len(report.Tables) == 0 && runErr == nil {
			logger.Log.Debug("Trigger produced no changed tables", zap.String("run_id", report.RunID))
			return
		}
		processResults(out, report, runErr)
	}

	if initial {
		syncOnce(ctx, nil)
	}
	fmt.Fprintf(out, "Watching %s for *.%s changes (Ctrl+C to stop)\n", cfg.DataDir, cfg.SourceFormat)
	return w.Run(ctx, syncOnce)
}
