package sync

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/arwahdevops/fplsync/internal/db"
	"github.com/arwahdevops/fplsync/internal/metrics"
	"github.com/arwahdevops/fplsync/internal/tables"
	"github.com/arwahdevops/fplsync/internal/utils"
)

// UpsertSQL renders the parameterized insert-or-update statement for one
// record of spec. Parameters follow spec's column order.
func UpsertSQL(spec *tables.Spec, dialect string) string {
	return BatchUpsertSQL(spec, dialect, 1)
}

// BatchUpsertSQL renders one multi-row insert-or-update statement covering
// rows records. Parameters are row-major in spec's column order. Rows within
// one statement must have distinct conflict keys.
func BatchUpsertSQL(spec *tables.Spec, dialect string, rows int) string {
	cols := spec.ColumnNames()
	row := "(" + strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ") + ")"
	values := strings.TrimSuffix(strings.Repeat(row+", ", rows), ", ")
	quotedTable := utils.QuoteIdentifier(spec.Name, dialect)
	updates := spec.UpdateColumns()

	if dialect == "mysql" {
		if len(updates) == 0 {
			return fmt.Sprintf("INSERT IGNORE INTO %s (%s) VALUES %s",
				quotedTable, utils.QuoteIdentifiers(cols, dialect), values)
		}
		sets := make([]string, len(updates))
		for i, c := range updates {
			q := utils.QuoteIdentifier(c, dialect)
			sets[i] = fmt.Sprintf("%s = VALUES(%s)", q, q)
		}
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON DUPLICATE KEY UPDATE %s",
			quotedTable, utils.QuoteIdentifiers(cols, dialect), values, strings.Join(sets, ", "))
	}

	conflict := utils.QuoteIdentifiers(spec.ConflictKey, dialect)
	if len(updates) == 0 {
		return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO NOTHING",
			quotedTable, utils.QuoteIdentifiers(cols, dialect), values, conflict)
	}
	sets := make([]string, len(updates))
	for i, c := range updates {
		q := utils.QuoteIdentifier(c, dialect)
		sets[i] = fmt.Sprintf("%s = excluded.%s", q, q)
	}
	return fmt.Sprintf("INSERT INTO %s (%s) VALUES %s ON CONFLICT (%s) DO UPDATE SET %s",
		quotedTable, utils.QuoteIdentifiers(cols, dialect), values, conflict, strings.Join(sets, ", "))
}

// dedupeByConflictKey keeps the last occurrence of every conflict key, in
// the order those last occurrences appear. A multi-row upsert may not touch
// the same row twice on postgres.
func dedupeByConflictKey(spec *tables.Spec, records []tables.Record) []tables.Record {
	seen := make(map[string]bool, len(records))
	kept := make([]tables.Record, 0, len(records))
	parts := make([]string, len(spec.ConflictKey))
	for i := len(records) - 1; i >= 0; i-- {
		for j, k := range spec.ConflictKey {
			parts[j] = fmt.Sprintf("%T:%v", records[i][k], records[i][k])
		}
		key := strings.Join(parts, "\x1f")
		if seen[key] {
			continue
		}
		seen[key] = true
		kept = append(kept, records[i])
	}
	for i, j := 0, len(kept)-1; i < j; i, j = i+1, j-1 {
		kept[i], kept[j] = kept[j], kept[i]
	}
	return kept
}

// batchStatement builds the single statement that carries chunk.
func (u *Upserter) batchStatement(spec *tables.Spec, chunk []tables.Record) db.Statement {
	rows := dedupeByConflictKey(spec, chunk)
	args := make([]any, 0, len(rows)*len(spec.Columns))
	for _, rec := range rows {
		args = append(args, NormalizeArgs(spec.UpsertArgs(rec), u.dialect)...)
	}
	return db.Statement{SQL: BatchUpsertSQL(spec, u.dialect, len(rows)), Args: args}
}

// NormalizeArgs converts typed values into what the dialect's driver binds
// without surprises. SQLite-family stores get booleans as 0/1 and timestamps
// as RFC 3339 text.
func NormalizeArgs(args []any, dialect string) []any {
	if !utils.IsSQLiteFamily(dialect) {
		return args
	}
	out := make([]any, len(args))
	for i, a := range args {
		switch v := a.(type) {
		case bool:
			if v {
				out[i] = int64(1)
			} else {
				out[i] = int64(0)
			}
		case time.Time:
			out[i] = v.UTC().Format(time.RFC3339)
		default:
			out[i] = a
		}
	}
	return out
}

// UpsertResult summarizes one table pass.
type UpsertResult struct {
	Written int
	Failed  int
	Batches int
}

// Upserter writes validated records in fixed-size batches. Each batch goes
// to the store as one multi-row statement; batches run strictly one after
// another.
type Upserter struct {
	store     Store
	dialect   string
	batchSize int
	logger    *zap.Logger
	metrics   *metrics.Store
}

func NewUpserter(store Store, dialect string, batchSize int, logger *zap.Logger, metricsStore *metrics.Store) *Upserter {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Upserter{
		store:     store,
		dialect:   dialect,
		batchSize: batchSize,
		logger:    logger.Named("upserter"),
		metrics:   metricsStore,
	}
}

// Upsert submits records for spec. On the first rejected batch it stops and
// returns the counts so far together with a *BatchError; earlier batches stay
// committed.
func (u *Upserter) Upsert(ctx context.Context, spec *tables.Spec, records []tables.Record) (UpsertResult, error) {
	var res UpsertResult
	log := u.logger.With(zap.String("table", spec.Name), zap.Int("records", len(records)), zap.Int("batch_size", u.batchSize))
	if len(records) == 0 {
		log.Debug("No valid records, skipping upsert.")
		return res, nil
	}

	log.Debug("Using upsert statement", zap.String("sql", UpsertSQL(spec, u.dialect)))

	for start := 0; start < len(records); start += u.batchSize {
		if err := ctx.Err(); err != nil {
			log.Warn("Context cancelled before next batch.", zap.Int("batch", res.Batches), zap.Error(err))
			res.Failed = len(records) - res.Written
			return res, &BatchError{Table: spec.Name, Batch: res.Batches, FirstRow: start, Size: 0, Err: err}
		}

		end := start + u.batchSize
		if end > len(records) {
			end = len(records)
		}
		chunk := records[start:end]
		stmts := []db.Statement{u.batchStatement(spec, chunk)}

		batchStart := time.Now()
		err := u.store.ExecBatch(ctx, stmts)
		elapsed := time.Since(batchStart)

		if err != nil {
			u.metrics.BatchProcessingDuration.WithLabelValues(spec.Name, "failure").Observe(elapsed.Seconds())
			log.Error("Upsert batch rejected by store.", zap.Int("batch", res.Batches), zap.Int("first_row", start), zap.Int("size", len(chunk)), zap.Error(err))
			res.Failed = len(records) - res.Written
			return res, &BatchError{Table: spec.Name, Batch: res.Batches, FirstRow: start, Size: len(chunk), Err: err}
		}

		u.metrics.BatchProcessingDuration.WithLabelValues(spec.Name, "success").Observe(elapsed.Seconds())
		u.metrics.BatchesProcessedTotal.WithLabelValues(spec.Name).Inc()
		u.metrics.RowsWrittenTotal.WithLabelValues(spec.Name).Add(float64(len(chunk)))

		res.Written += len(chunk)
		res.Batches++
		log.Debug("Batch committed.", zap.Int("batch", res.Batches), zap.Int("size", len(chunk)), zap.Duration("duration", elapsed))
	}

	log.Info("Upsert finished for table.", zap.Int("written", res.Written), zap.Int("batches", res.Batches))
	return res, nil
}
