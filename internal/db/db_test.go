package db

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/arwahdevops/fplsync/internal/logger"
	"github.com/arwahdevops/fplsync/internal/metrics"
)

func openTestSQLite(t *testing.T) *Connector {
	t.Helper()
	dsn, err := BuildDSN("sqlite", filepath.Join(t.TempDir(), "store.db"), "")
	require.NoError(t, err)
	conn, err := New("sqlite", dsn, logger.NewGormLogger(zaptest.NewLogger(t), false))
	require.NoError(t, err)
	require.NoError(t, conn.Optimize(1, 0))
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func countRows(t *testing.T, conn *Connector, table string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, conn.DB.Table(table).Count(&n).Error)
	return n
}

func TestBuildDSN(t *testing.T) {
	testCases := []struct {
		name    string
		dialect string
		url     string
		token   string
		want    string
		wantErr bool
	}{
		{"libsql appends token", "libsql", "libsql://fpl-org.turso.io", "tok", "libsql://fpl-org.turso.io?authToken=tok", false},
		{"libsql keeps existing token", "libsql", "libsql://fpl-org.turso.io?authToken=inline", "tok", "libsql://fpl-org.turso.io?authToken=inline", false},
		{"libsql without token", "turso", "http://127.0.0.1:8080", "", "http://127.0.0.1:8080", false},
		{"libsql without scheme", "libsql", "fpl-org.turso.io", "", "", true},
		{"sqlite bare path", "sqlite", "/tmp/fpl.db", "", "file:/tmp/fpl.db?_foreign_keys=1&_busy_timeout=5000", false},
		{"sqlite file uri", "sqlite", "file:fpl.db?mode=rwc", "", "file:fpl.db?mode=rwc", false},
		{"postgres passthrough", "postgres", "host=localhost dbname=fpl", "", "host=localhost dbname=fpl", false},
		{"unknown dialect", "oracle", "x", "", "", true},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := BuildDSN(tc.dialect, tc.url, tc.token)
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestExecBatchCommitsAll(t *testing.T) {
	conn := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, conn.ExecBatch(ctx, []Statement{
		{SQL: `CREATE TABLE IF NOT EXISTS "teams" ("id" INTEGER PRIMARY KEY, "name" TEXT NOT NULL)`},
	}))
	require.NoError(t, conn.ExecBatch(ctx, []Statement{
		{SQL: `INSERT INTO "teams" ("id", "name") VALUES (?, ?)`, Args: []any{int64(1), "Arsenal"}},
		{SQL: `INSERT INTO "teams" ("id", "name") VALUES (?, ?)`, Args: []any{int64(2), "Aston Villa"}},
	}))
	assert.Equal(t, int64(2), countRows(t, conn, "teams"))
	assert.NoError(t, conn.ExecBatch(ctx, nil))
}

func TestExecBatchRollsBackOnFailure(t *testing.T) {
	conn := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, conn.ExecBatch(ctx, []Statement{
		{SQL: `CREATE TABLE IF NOT EXISTS "teams" ("id" INTEGER PRIMARY KEY, "name" TEXT NOT NULL)`},
	}))
	err := conn.ExecBatch(ctx, []Statement{
		{SQL: `INSERT INTO "teams" ("id", "name") VALUES (?, ?)`, Args: []any{int64(1), "Arsenal"}},
		{SQL: `INSERT INTO "teams" ("id", "name") VALUES (?, ?)`, Args: []any{int64(2), nil}}, // NOT NULL violation
	})
	require.Error(t, err)
	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, 1, stmtErr.Index)
	assert.Equal(t, int64(0), countRows(t, conn, "teams"), "first insert must be rolled back")
}

func TestExecBatchSingleStatementIsAtomic(t *testing.T) {
	conn := openTestSQLite(t)
	ctx := context.Background()

	require.NoError(t, conn.ExecBatch(ctx, []Statement{
		{SQL: `CREATE TABLE IF NOT EXISTS "teams" ("id" INTEGER PRIMARY KEY, "name" TEXT NOT NULL)`},
	}))
	err := conn.ExecBatch(ctx, []Statement{
		{SQL: `INSERT INTO "teams" ("id", "name") VALUES (?, ?), (?, ?)`, Args: []any{int64(1), "Arsenal", int64(2), nil}},
	})
	var stmtErr *StatementError
	require.ErrorAs(t, err, &stmtErr)
	assert.Equal(t, 0, stmtErr.Index)
	assert.Equal(t, int64(0), countRows(t, conn, "teams"))

	require.NoError(t, conn.ExecBatch(ctx, []Statement{
		{SQL: `INSERT INTO "teams" ("id", "name") VALUES (?, ?), (?, ?)`, Args: []any{int64(1), "Arsenal", int64(2), "Aston Villa"}},
	}))
	assert.Equal(t, int64(2), countRows(t, conn, "teams"))
}

func TestConnectWithRetrySQLite(t *testing.T) {
	log := zaptest.NewLogger(t)
	conn, err := ConnectWithRetry(context.Background(), ConnectOptions{
		Dialect: "sqlite",
		URL:     filepath.Join(t.TempDir(), "retry.db"),
	}, logger.NewGormLogger(log, false), log, metrics.NewMetricsStore())
	require.NoError(t, err)
	defer conn.Close()
	assert.Equal(t, "sqlite", conn.Dialect)
	assert.NoError(t, conn.Ping(context.Background()))
}

func TestConnectWithRetryGivesUpOnBadDSN(t *testing.T) {
	log := zaptest.NewLogger(t)
	_, err := ConnectWithRetry(context.Background(), ConnectOptions{
		Dialect: "libsql",
		URL:     "no-scheme-here",
	}, logger.NewGormLogger(log, false), log, metrics.NewMetricsStore())
	assert.Error(t, err)
}
