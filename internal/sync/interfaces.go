package sync

import (
	"context"

	"github.com/arwahdevops/fplsync/internal/db"
)

// Store is the remote side of the engine. Each ExecBatch call is one
// network-level unit that commits entirely or not at all.
type Store interface {
	ExecBatch(ctx context.Context, stmts []db.Statement) error
}

// OrchestratorInterface defines the main synchronization runner.
type OrchestratorInterface interface {
	Run(ctx context.Context, req Request) (*RunReport, error)
}

var _ Store = (*db.Connector)(nil)
