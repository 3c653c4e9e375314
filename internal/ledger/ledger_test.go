package ledger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestLoadMissingFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".migration_hashes.json")
	l, err := Load(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
	assert.False(t, l.Dirty())
}

func TestLoadCorruptFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".migration_hashes.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	l, err := Load(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	assert.Equal(t, 0, l.Len())
}

func TestSaveAndReload(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", ".migration_hashes.json")

	l := New(path)
	assert.True(t, l.Set("teams", "aaa"))
	assert.True(t, l.Set("fixtures", "bbb"))
	assert.False(t, l.Set("teams", "aaa"), "same hash is not a change")
	assert.True(t, l.Dirty())
	require.NoError(t, l.Save())
	assert.False(t, l.Dirty())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.JSONEq(t, `{"teams":"aaa","fixtures":"bbb"}`, string(raw))

	reloaded, err := Load(path, zaptest.NewLogger(t))
	require.NoError(t, err)
	h, ok := reloaded.Get("fixtures")
	assert.True(t, ok)
	assert.Equal(t, "bbb", h)
	assert.Equal(t, map[string]string{"teams": "aaa", "fixtures": "bbb"}, reloaded.Entries())

	// No temp files left behind
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestEntriesIsACopy(t *testing.T) {
	l := New(filepath.Join(t.TempDir(), "l.json"))
	l.Set("teams", "x")
	cp := l.Entries()
	cp["teams"] = "mutated"
	h, _ := l.Get("teams")
	assert.Equal(t, "x", h)
}
