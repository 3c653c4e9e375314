package sync

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/arwahdevops/fplsync/internal/config"
	"github.com/arwahdevops/fplsync/internal/ledger"
	"github.com/arwahdevops/fplsync/internal/metrics"
	"github.com/arwahdevops/fplsync/internal/tables"
)

// State is the orchestrator's position in a run.
type State int

const (
	StateIdle State = iota
	StateResolvingChanges
	StateOrdering
	StateProvisioning
	StateSyncingTable
	StateLedgerUpdate
	StateDone
	StateAborted
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolvingChanges:
		return "resolving-changes"
	case StateOrdering:
		return "ordering"
	case StateProvisioning:
		return "provisioning"
	case StateSyncingTable:
		return "syncing-table"
	case StateLedgerUpdate:
		return "ledger-update"
	case StateDone:
		return "done"
	case StateAborted:
		return "aborted"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Options are the tunables the engine needs from the configuration.
type Options struct {
	Dialect             string
	DataDir             string
	Format              config.SourceFormat
	BatchSize           int
	MaxRejectionDetails int
	ForceLedgerPolicy   config.ForceLedgerPolicy
}

func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		Dialect:             cfg.StoreDialect,
		DataDir:             cfg.DataDir,
		Format:              cfg.SourceFormat,
		BatchSize:           cfg.BatchSize,
		MaxRejectionDetails: cfg.MaxRejectionDetails,
		ForceLedgerPolicy:   cfg.ForceLedgerPolicy,
	}
}

// Request selects what a run covers. Tables narrows the candidates to the
// named tables (empty means every registered table). ChangedOnly keeps only
// candidates whose source differs from the ledger; otherwise every candidate
// is synced regardless of the ledger.
type Request struct {
	Tables      []string
	ChangedOnly bool
	RunID       string
}

// Orchestrator mengelola keseluruhan proses sinkronisasi satu run.
type Orchestrator struct {
	registry    *tables.Registry
	ledger      *ledger.Ledger
	opts        Options
	locator     SourceLocator
	provisioner *Provisioner
	upserter    *Upserter
	logger      *zap.Logger
	metrics     *metrics.Store
	state       State

	// OnTableDone, if set, is called after every table pass in run order.
	OnTableDone func(TableReport)
}

var _ OrchestratorInterface = (*Orchestrator)(nil)

func NewOrchestrator(store Store, registry *tables.Registry, l *ledger.Ledger, opts Options, logger *zap.Logger, metricsStore *metrics.Store) *Orchestrator {
	return &Orchestrator{
		registry:    registry,
		ledger:      l,
		opts:        opts,
		locator:     SourceLocator{DataDir: opts.DataDir, Format: opts.Format},
		provisioner: NewProvisioner(store, opts.Dialect, logger),
		upserter:    NewUpserter(store, opts.Dialect, opts.BatchSize, logger, metricsStore),
		logger:      logger.Named("orchestrator"),
		metrics:     metricsStore,
	}
}

// State returns the current (or, after Run returns, the terminal) state.
func (f *Orchestrator) State() State { return f.state }

func (f *Orchestrator) setState(s State) {
	f.logger.Debug("State transition", zap.Stringer("from", f.state), zap.Stringer("to", s))
	f.state = s
}

// Run executes one sync. On an unrecoverable failure it returns the partial
// report together with the error; tables committed before the failure keep
// their ledger entries.
func (f *Orchestrator) Run(ctx context.Context, req Request) (*RunReport, error) {
	startTime := time.Now()
	runID := req.RunID
	if runID == "" {
		runID = uuid.NewString()
	}
	log := f.logger.With(zap.String("run_id", runID))
	report := &RunReport{RunID: runID}

	f.metrics.SyncRunning.Set(1)
	defer f.metrics.SyncRunning.Set(0)
	defer func() {
		report.Duration = time.Since(startTime)
		report.FinalState = f.state
		f.metrics.SyncDuration.Observe(report.Duration.Seconds())
	}()

	f.state = StateIdle
	f.setState(StateResolvingChanges)

	candidates := f.registry.All()
	if len(req.Tables) > 0 {
		var unknown []string
		candidates, unknown = f.registry.Resolve(req.Tables)
		if len(unknown) > 0 {
			log.Warn("Ignoring unknown table names", zap.Strings("unknown", unknown))
			report.UnknownTables = unknown
		}
	}
	if req.ChangedOnly {
		candidates = ResolveChanges(candidates, f.ledger, f.locator, false)
	}

	if len(candidates) == 0 {
		log.Info("No tables to synchronize")
		f.setState(StateDone)
		return report, nil
	}

	f.setState(StateOrdering)
	ordered := Order(candidates, f.registry)
	names := make([]string, len(ordered))
	for i, s := range ordered {
		names[i] = s.Name
	}
	log.Info("Starting synchronization run",
		zap.Strings("ordered_tables", names),
		zap.Bool("changed_only", req.ChangedOnly),
		zap.Int("batch_size", f.upserter.batchSize),
		zap.String("dialect", f.opts.Dialect),
		zap.String("format", string(f.opts.Format)),
	)

	f.setState(StateProvisioning)
	if err := f.provisioner.Provision(ctx, ordered); err != nil {
		log.Error("Provisioning failed, aborting run", zap.Error(err))
		f.metrics.SyncErrorsTotal.WithLabelValues("provisioning", "").Inc()
		f.markNotRun(report, ordered)
		f.setState(StateAborted)
		return report, err
	}

	forced := !req.ChangedOnly
	for i, spec := range ordered {
		if err := ctx.Err(); err != nil {
			log.Warn("Context cancelled, aborting remaining tables", zap.Error(err))
			f.markNotRun(report, ordered[i:])
			f.setState(StateAborted)
			return report, err
		}

		f.setState(StateSyncingTable)
		tr, err := f.syncTable(ctx, log, spec, forced)
		report.add(tr)
		if f.OnTableDone != nil {
			f.OnTableDone(tr)
		}
		if err != nil {
			log.Error("Table sync failed, aborting run", zap.String("table", spec.Name), zap.Error(err))
			report.FailedTable = spec.Name
			f.markNotRun(report, ordered[i+1:])
			f.setState(StateAborted)
			return report, err
		}
	}

	f.setState(StateDone)
	log.Info("Synchronization run finished",
		zap.Int("tables", len(report.Tables)),
		zap.Int("total_rows_written", report.TotalWritten),
		zap.Int("total_rows_rejected", report.TotalRejected),
		zap.Duration("total_duration", time.Since(startTime)),
	)
	return report, nil
}

// syncTable membaca, memvalidasi dan meng-upsert satu tabel, lalu memperbarui ledger.
func (f *Orchestrator) syncTable(ctx context.Context, runLog *zap.Logger, spec *tables.Spec, forced bool) (tr TableReport, err error) {
	start := time.Now()
	log := runLog.With(zap.String("table", spec.Name))
	tr = TableReport{Table: spec.Name, Outcome: OutcomeFailed}
	defer func() {
		tr.Duration = time.Since(start)
		f.metrics.TableSyncDuration.WithLabelValues(spec.Name).Observe(tr.Duration.Seconds())
	}()

	set, err := f.locator.Load(spec)
	if err != nil {
		if errors.Is(err, ErrSourceMissing) {
			log.Info("Source file not found, skipping table", zap.String("path", f.locator.Path(spec)))
			tr.Outcome = OutcomeSkipped
			return tr, nil
		}
		f.metrics.SyncErrorsTotal.WithLabelValues("parse", spec.Name).Inc()
		tr.Err = err
		return tr, err
	}
	tr.RowsStaged = len(set.Rows)

	validated := ValidateAll(spec, set.Origin, set.Rows, f.opts.MaxRejectionDetails)
	tr.RowsRejected = validated.Rejected
	tr.Rejections = validated.Samples
	if validated.Rejected > 0 {
		f.metrics.RowsRejectedTotal.WithLabelValues(spec.Name).Add(float64(validated.Rejected))
		for _, rej := range validated.Samples {
			log.Warn("Invalid record rejected", zap.Int("row", rej.Row), zap.String("reason", rej.Reason))
		}
		if more := validated.Rejected - len(validated.Samples); more > 0 {
			log.Warn("Additional invalid records rejected", zap.Int("more", more))
		}
	}

	res, err := f.upserter.Upsert(ctx, spec, validated.Valid)
	tr.RowsWritten = res.Written
	tr.Batches = res.Batches
	if err != nil {
		f.metrics.SyncErrorsTotal.WithLabelValues("batch", spec.Name).Inc()
		tr.Err = err
		return tr, err
	}
	tr.Outcome = OutcomeSynced

	f.setState(StateLedgerUpdate)
	tr.LedgerUpdated, err = f.recordFingerprint(spec.Name, set.Fingerprint, forced)
	if err != nil {
		f.metrics.SyncErrorsTotal.WithLabelValues("ledger", spec.Name).Inc()
		tr.Err = err
		return tr, err
	}

	log.Info("Table synchronized",
		zap.Int("rows_written", tr.RowsWritten),
		zap.Int("rows_rejected", tr.RowsRejected),
		zap.Int("batches", tr.Batches),
		zap.Bool("ledger_updated", tr.LedgerUpdated),
		zap.Duration("duration", time.Since(start)),
	)
	return tr, nil
}

// recordFingerprint stores hash for table and flushes the ledger right away.
// Under the changed-only policy a forced run leaves the file alone when the
// hash it would write is already recorded.
func (f *Orchestrator) recordFingerprint(table, hash string, forced bool) (bool, error) {
	changed := f.ledger.Set(table, hash)
	if !changed && forced && f.opts.ForceLedgerPolicy == config.ForceLedgerChangedOnly && !f.ledger.Dirty() {
		return false, nil
	}
	if err := f.ledger.Save(); err != nil {
		return changed, fmt.Errorf("failed to save ledger after %s: %w", table, err)
	}
	return true, nil
}

func (f *Orchestrator) markNotRun(report *RunReport, specs []*tables.Spec) {
	for _, s := range specs {
		report.add(TableReport{Table: s.Name, Outcome: OutcomeNotRun})
	}
}
