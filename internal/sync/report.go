package sync

import "time"

type TableOutcome int

const (
	OutcomeSynced TableOutcome = iota
	OutcomeSkipped
	OutcomeFailed
	OutcomeNotRun
)

func (o TableOutcome) String() string {
	switch o {
	case OutcomeSynced:
		return "synced"
	case OutcomeSkipped:
		return "skipped"
	case OutcomeFailed:
		return "failed"
	default:
		return "not-run"
	}
}

// TableReport is one table's line in the run report.
type TableReport struct {
	Table         string
	Outcome       TableOutcome
	RowsStaged    int
	RowsWritten   int
	RowsRejected  int
	Batches       int
	Duration      time.Duration
	Rejections    []Rejection
	LedgerUpdated bool
	Err           error
}

// DurationMs is the table pass duration in whole milliseconds.
func (t TableReport) DurationMs() int64 { return t.Duration.Milliseconds() }

// RunReport accumulates per-table outcomes for one run. It is returned to the
// caller and never persisted.
type RunReport struct {
	RunID         string
	Tables        []TableReport
	UnknownTables []string
	TotalWritten  int
	TotalRejected int
	Duration      time.Duration
	FinalState    State
	FailedTable   string
}

// Table returns the report entry for name.
func (r *RunReport) Table(name string) (TableReport, bool) {
	for _, t := range r.Tables {
		if t.Table == name {
			return t, true
		}
	}
	return TableReport{}, false
}

// Aborted reports whether the run stopped before every table was processed.
func (r *RunReport) Aborted() bool { return r.FinalState == StateAborted }

func (r *RunReport) add(t TableReport) {
	r.Tables = append(r.Tables, t)
	r.TotalWritten += t.RowsWritten
	r.TotalRejected += t.RowsRejected
}
