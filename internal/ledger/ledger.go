// Package ledger persists the table -> content hash map recording the last
// successful sync of each table.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/multierr"
	"go.uber.org/zap"
)

// Ledger is the in-memory copy of the fingerprint file. It has no locking;
// a single run owns it for its whole lifetime.
type Ledger struct {
	path    string
	entries map[string]string
	dirty   bool
}

// New returns an empty ledger that will be saved at path.
func New(path string) *Ledger {
	return &Ledger{path: path, entries: map[string]string{}}
}

// Load reads the ledger at path. A missing file yields an empty ledger.
// An unparsable file is logged and also treated as empty, so the next run
// re-syncs everything rather than refusing to start.
func Load(path string, log *zap.Logger) (*Ledger, error) {
	l := New(path)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Debug("Ledger file not found, starting with empty ledger", zap.String("path", path))
			return l, nil
		}
		return nil, fmt.Errorf("failed to read ledger %s: %w", path, err)
	}

	var entries map[string]string
	if err := json.Unmarshal(data, &entries); err != nil {
		log.Warn("Ledger file is corrupt, ignoring its contents", zap.String("path", path), zap.Error(err))
		return l, nil
	}
	if entries != nil {
		l.entries = entries
	}
	log.Debug("Ledger loaded", zap.String("path", path), zap.Int("entries", len(l.entries)))
	return l, nil
}

func (l *Ledger) Path() string { return l.path }

func (l *Ledger) Get(table string) (string, bool) {
	h, ok := l.entries[table]
	return h, ok
}

// Set records hash for table. It reports whether the stored value changed.
func (l *Ledger) Set(table, hash string) bool {
	if prev, ok := l.entries[table]; ok && prev == hash {
		return false
	}
	l.entries[table] = hash
	l.dirty = true
	return true
}

func (l *Ledger) Len() int { return len(l.entries) }

// Entries returns a copy of the current mapping.
func (l *Ledger) Entries() map[string]string {
	out := make(map[string]string, len(l.entries))
	for k, v := range l.entries {
		out[k] = v
	}
	return out
}

// Dirty reports whether Set changed anything since the last Save.
func (l *Ledger) Dirty() bool { return l.dirty }

// Save writes the ledger atomically: a temp file in the same directory is
// fsynced and renamed over the target.
func (l *Ledger) Save() (err error) {
	data, err := json.MarshalIndent(l.entries, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode ledger: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(l.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create ledger directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(l.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("failed to create temp ledger file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		return multierr.Append(fmt.Errorf("failed to write temp ledger file: %w", err), tmp.Close())
	}
	if err = tmp.Sync(); err != nil {
		return multierr.Append(fmt.Errorf("failed to fsync temp ledger file: %w", err), tmp.Close())
	}
	if err = tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp ledger file: %w", err)
	}
	if err = os.Rename(tmpName, l.path); err != nil {
		return fmt.Errorf("failed to replace ledger %s: %w", l.path, err)
	}
	l.dirty = false
	return nil
}
