package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Store holds the Prometheus metrics collectors.
type Store struct {
	Registry                *prometheus.Registry // Use a custom registry
	SyncRunning             prometheus.Gauge
	SyncDuration            prometheus.Histogram
	TableSyncDuration       *prometheus.HistogramVec
	RowsWrittenTotal        *prometheus.CounterVec
	RowsRejectedTotal       *prometheus.CounterVec
	BatchesProcessedTotal   *prometheus.CounterVec
	BatchProcessingDuration *prometheus.HistogramVec
	SyncErrorsTotal         *prometheus.CounterVec
}

// NewMetricsStore creates and registers Prometheus metrics.
func NewMetricsStore() *Store {
	registry := prometheus.NewRegistry()

	store := &Store{
		Registry: registry,
		SyncRunning: promauto.With(registry).NewGauge(prometheus.GaugeOpts{
			Name: "fplsync_up",
			Help: "Indicates if an fplsync run is currently in progress (1 = running, 0 = idle).",
		}),
		SyncDuration: promauto.With(registry).NewHistogram(prometheus.HistogramOpts{
			Name:    "fplsync_run_duration_seconds",
			Help:    "Duration of an entire fplsync run.",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 12), // 500ms to ~17min
		}),
		TableSyncDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fplsync_table_sync_duration_seconds",
			Help:    "Duration histogram for validating and upserting individual tables.",
			Buckets: prometheus.ExponentialBuckets(0.05, 2, 14),
		}, []string{"table"}),
		RowsWrittenTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fplsync_rows_written_total",
			Help: "Total number of rows upserted, labeled by table.",
		}, []string{"table"}),
		RowsRejectedTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fplsync_rows_rejected_total",
			Help: "Total number of staged records rejected by validation, labeled by table.",
		}, []string{"table"}),
		BatchesProcessedTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fplsync_batches_processed_total",
			Help: "Total number of upsert batches committed, labeled by table.",
		}, []string{"table"}),
		BatchProcessingDuration: promauto.With(registry).NewHistogramVec(prometheus.HistogramOpts{
			Name:    "fplsync_batch_duration_seconds",
			Help:    "Duration histogram for submitting individual upsert batches.",
			Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
		}, []string{"table", "status"}), // status: success, failure
		SyncErrorsTotal: promauto.With(registry).NewCounterVec(prometheus.CounterOpts{
			Name: "fplsync_errors_total",
			Help: "Total number of errors encountered during sync, labeled by type and table.",
		}, []string{"type", "table"}), // Types: connection, connection_failed, parse, provisioning, batch, ledger
	}

	return store
}
