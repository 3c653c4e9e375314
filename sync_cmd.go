package main

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/arwahdevops/fplsync/internal/ledger"
	"github.com/arwahdevops/fplsync/internal/logger"
	"github.com/arwahdevops/fplsync/internal/metrics"
	projectSync "github.com/arwahdevops/fplsync/internal/sync" // Alias untuk menghindari konflik nama
	"github.com/arwahdevops/fplsync/internal/tables"
)

// requestFromFlags maps flags and positional names to a run request. The
// second result is false when nothing was given and the user must choose.
func requestFromFlags(sf syncFlags, args []string) (projectSync.Request, bool) {
	switch {
	case sf.all:
		return projectSync.Request{}, true
	case sf.changed:
		return projectSync.Request{ChangedOnly: !sf.force}, true
	case len(args) > 0:
		return projectSync.Request{Tables: args}, true
	case sf.force:
		return projectSync.Request{}, true
	default:
		return projectSync.Request{}, false
	}
}

func runSync(cmd *cobra.Command, ov *overrides, sf syncFlags, args []string) error {
	defer func() { _ = logger.Log.Sync() }()

	cfg, err := loadConfig(ov, false)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	l, err := ledger.Load(cfg.ResolvedLedgerPath(), logger.Log)
	if err != nil {
		return err
	}
	loc := projectSync.SourceLocator{DataDir: cfg.DataDir, Format: cfg.SourceFormat}

	req, decided := requestFromFlags(sf, args)
	if !decided {
		var ok bool
		req, ok, err = selectInteractively(out, tables.Default, l, loc)
		if err != nil {
			return err
		}
		if !ok {
			fmt.Fprintln(out, "No tables selected. Nothing to sync.")
			return nil
		}
	}

	// Cek lebih awal supaya tidak perlu membuka koneksi bila tidak ada yang berubah.
	if req.ChangedOnly && len(req.Tables) == 0 &&
		len(projectSync.ResolveChanges(tables.Default.All(), l, loc, false)) == 0 {
		fmt.Fprintln(out, styleOK.Render("All tables are up to date. Nothing to sync."))
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsStore := metrics.NewMetricsStore()
	conn, err := openStore(ctx, cfg, metricsStore)
	if err != nil {
		return err
	}
	defer closeStore(conn)

	srvCtx, stopServer := context.WithCancel(ctx)
	defer stopServer()
	startMetricsServer(srvCtx, cfg, metricsStore, conn)

	orchestrator := projectSync.NewOrchestrator(conn, tables.Default, l, projectSync.OptionsFromConfig(cfg), logger.Log, metricsStore)
	orchestrator.OnTableDone = func(tr projectSync.TableReport) { printTableLine(out, tr) }

	logger.Log.Info("Starting synchronization process...")
	report, runErr := orchestrator.Run(ctx, req)
	processResults(out, report, runErr)
	return runErr
}

// processResults mencatat ringkasan hasil sinkronisasi ke log dan ke terminal.
func processResults(out io.Writer, report *projectSync.RunReport, runErr error) {
	if report == nil {
		return
	}
	log := logger.Log.With(zap.String("run_id", report.RunID))

	if len(report.UnknownTables) > 0 {
		fmt.Fprintln(out, styleWarn.Render(fmt.Sprintf("Ignored unknown tables: %v", report.UnknownTables)))
	}
	if len(report.Tables) == 0 {
		log.Info("Sync finished, no tables needed synchronization.")
		fmt.Fprintln(out, styleOK.Render("All tables are up to date. Nothing to sync."))
		return
	}

	counts := map[projectSync.TableOutcome]int{}
	for _, tr := range report.Tables {
		counts[tr.Outcome]++
		if tr.Outcome == projectSync.OutcomeNotRun {
			printTableLine(out, tr)
		}
	}

	log.Info("-------------------- Synchronization Summary --------------------",
		zap.String("final_state", report.FinalState.String()),
		zap.Int("tables_evaluated", len(report.Tables)),
		zap.Int("tables_synced", counts[projectSync.OutcomeSynced]),
		zap.Int("tables_skipped", counts[projectSync.OutcomeSkipped]),
		zap.Int("tables_failed", counts[projectSync.OutcomeFailed]),
		zap.Int("tables_not_run", counts[projectSync.OutcomeNotRun]),
		zap.Int("total_rows_written", report.TotalWritten),
		zap.Int("total_rows_rejected", report.TotalRejected),
		zap.Duration("duration", report.Duration),
	)

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Run %s: %d rows written, %d rows rejected across %d tables in %s\n",
		report.RunID, report.TotalWritten, report.TotalRejected, counts[projectSync.OutcomeSynced], report.Duration.Round(time.Millisecond))

	if runErr != nil {
		log.Error("Overall synchronization: ABORTED.", zap.String("failed_table", report.FailedTable), zap.Error(runErr))
		fmt.Fprintln(out, styleFail.Render(fmt.Sprintf("Sync aborted: %v", runErr)))
		return
	}
	log.Info("Overall synchronization: COMPLETED SUCCESSFULLY.")
}

func printTableLine(out io.Writer, tr projectSync.TableReport) {
	switch tr.Outcome {
	case projectSync.OutcomeSynced:
		line := fmt.Sprintf("%s %-14s %6d written", styleOK.Render("✓"), tr.Table, tr.RowsWritten)
		if tr.RowsRejected > 0 {
			line += styleWarn.Render(fmt.Sprintf(", %d rejected", tr.RowsRejected))
		}
		fmt.Fprintf(out, "%s  (%dms)\n", line, tr.DurationMs())
		for _, rej := range tr.Rejections {
			fmt.Fprintf(out, "    row %d: %s\n", rej.Row, rej.Reason)
		}
	case projectSync.OutcomeSkipped:
		fmt.Fprintf(out, "%s %-14s %s\n", styleMuted.Render("-"), tr.Table, styleMuted.Render("skipped (no source file)"))
	case projectSync.OutcomeFailed:
		fmt.Fprintf(out, "%s %-14s %s\n", styleFail.Render("✗"), tr.Table, styleFail.Render(fmt.Sprint(tr.Err)))
	case projectSync.OutcomeNotRun:
		fmt.Fprintf(out, "%s %-14s %s\n", styleMuted.Render("·"), tr.Table, styleMuted.Render("not run"))
	}
}
