package sync

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arwahdevops/fplsync/internal/db"
	"github.com/arwahdevops/fplsync/internal/logger"
)

// fakeStore records every batch and can reject batches touching one table.
type fakeStore struct {
	batches   [][]db.Statement
	failTable string
	failDDL   bool
}

func (s *fakeStore) ExecBatch(ctx context.Context, stmts []db.Statement) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for i, st := range stmts {
		if s.failDDL && strings.HasPrefix(st.SQL, "CREATE TABLE") {
			return &db.StatementError{Index: i, SQL: st.SQL, Err: errors.New("near \"CREATE\": syntax error")}
		}
		if s.failTable != "" && strings.HasPrefix(st.SQL, "INSERT INTO \""+s.failTable+"\"") {
			return &db.StatementError{Index: i, SQL: st.SQL, Err: errors.New("FOREIGN KEY constraint failed")}
		}
	}
	s.batches = append(s.batches, stmts)
	return nil
}

// insertBatches returns only the upsert batches for table.
func (s *fakeStore) insertBatches(table string) [][]db.Statement {
	var out [][]db.Statement
	for _, b := range s.batches {
		if len(b) > 0 && strings.HasPrefix(b[0].SQL, "INSERT INTO \""+table+"\"") {
			out = append(out, b)
		}
	}
	return out
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func openSQLite(t *testing.T) *db.Connector {
	t.Helper()
	dsn, err := db.BuildDSN("sqlite", filepath.Join(t.TempDir(), "fpl.db"), "")
	require.NoError(t, err)
	conn, err := db.New("sqlite", dsn, logger.NewGormLogger(zaptest.NewLogger(t), false))
	require.NoError(t, err)
	require.NoError(t, conn.Optimize(1, 0))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func countRows(t *testing.T, conn *db.Connector, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.DB.Table(table).Count(&n).Error)
	return n
}

// teamsCSV renders n teams with ids 1..n.
func teamsCSV(n int) string {
	var b strings.Builder
	b.WriteString("code,id,name,short_name\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d,%d,Team %d,T%02d\n", 100+i, i, i, i)
	}
	return b.String()
}

// fixturesCSV renders n fixtures between teams i and i+1.
func fixturesCSV(n int) string {
	var b strings.Builder
	b.WriteString("code,id,event,finished,team_h,team_a,kickoff_time,team_h_xg,team_a_xg\n")
	for i := 1; i <= n; i++ {
		fmt.Fprintf(&b, "%d,%d,1,true,%d,%d,2024-08-16T19:00:00Z,1.25,\n", 2444470+i, i, i, i+1)
	}
	return b.String()
}
