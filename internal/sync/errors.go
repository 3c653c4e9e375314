package sync

import (
	"errors"
	"fmt"
)

// ErrSourceMissing marks a table whose staged file does not exist. It is a
// skip, never a failure.
var ErrSourceMissing = errors.New("source file not found")

// ParseError means the staged file exists but is not valid CSV/JSON.
// It aborts the run.
type ParseError struct {
	Table string
	Path  string
	Err   error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %s (%s): %v", e.Table, e.Path, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// ProvisioningError wraps a rejected create-if-absent batch.
type ProvisioningError struct {
	Tables []string
	Err    error
}

func (e *ProvisioningError) Error() string {
	return fmt.Sprintf("provisioning tables %v failed: %v", e.Tables, e.Err)
}

func (e *ProvisioningError) Unwrap() error { return e.Err }

// BatchError identifies the upsert batch the store rejected.
type BatchError struct {
	Table string
	// Batch is the zero-based batch index within the table pass.
	Batch int
	// FirstRow is the zero-based index of the first validated record in the batch.
	FirstRow int
	Size     int
	Err      error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("upsert %s batch %d (records %d-%d) failed: %v",
		e.Table, e.Batch, e.FirstRow, e.FirstRow+e.Size-1, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }
