package logger

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	gormlogger "gorm.io/gorm/logger"
)

func TestRedact(t *testing.T) {
	gl := NewGormLogger(zap.NewNop(), false).(*GormLogger)

	testCases := []struct {
		name  string
		input string
		want  string
	}{
		{"url auth token", "libsql://db.turso.io?authToken=abc.def.ghi&tls=1", "libsql://db.turso.io?authToken=***REDACTED***&tls=1"},
		{"quoted password", "password='hunter2' dbname=x", "password=***REDACTED*** dbname=x"},
		{"no secrets", `INSERT INTO "teams" ("id") VALUES (1)`, `INSERT INTO "teams" ("id") VALUES (1)`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, gl.Redact(tc.input))
		})
	}
}

func TestTraceLogsErrorsAndSkipsWhenSilent(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	gl := NewGormLogger(zap.New(core), false)

	gl.Trace(context.Background(), time.Now(), func() (string, int64) {
		return `INSERT INTO "fixtures" VALUES (1)`, 0
	}, errors.New("FOREIGN KEY constraint failed"))

	entries := logs.FilterMessage("SQL Error").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "gorm", entries[0].LoggerName)

	silent := gl.LogMode(gormlogger.Silent)
	silent.Trace(context.Background(), time.Now(), func() (string, int64) {
		return "SELECT 1", 1
	}, errors.New("boom"))
	assert.Len(t, logs.FilterMessage("SQL Error").All(), 1)
}

func TestInitWithLogFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "fplsync.log")
	require.NoError(t, Init(Options{Debug: false, JSONOutput: true, LogFile: logFile}))
	t.Cleanup(func() { _ = Log.Sync() })

	assert.NotNil(t, Log)
	assert.NotNil(t, GetGormLogger())
	Log.Info("hello from test")
	assert.FileExists(t, logFile)
}
