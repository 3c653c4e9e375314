// Package watch turns bursts of writes in the staging directory into single
// sync triggers.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

type Watcher struct {
	fsw      *fsnotify.Watcher
	dir      string
	ext      string
	debounce time.Duration
	logger   *zap.Logger
}

// New starts watching dir for files ending in "."+ext. Hidden files (the
// ledger, editor swap files, temp files from atomic saves) are ignored.
func New(dir, ext string, debounce time.Duration, logger *zap.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create fsnotify watcher: %w", err)
	}
	if err := fsw.Add(dir); err != nil {
		_ = fsw.Close()
		return nil, fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}
	return &Watcher{
		fsw:      fsw,
		dir:      dir,
		ext:      "." + strings.TrimPrefix(ext, "."),
		debounce: debounce,
		logger:   logger.Named("watcher").With(zap.String("dir", dir)),
	}, nil
}

func (w *Watcher) Close() error { return w.fsw.Close() }

func (w *Watcher) relevant(ev fsnotify.Event) bool {
	base := filepath.Base(ev.Name)
	if strings.HasPrefix(base, ".") || !strings.HasSuffix(base, w.ext) {
		return false
	}
	return ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) || ev.Has(fsnotify.Remove)
}

// Run blocks until ctx is cancelled or the watcher is closed. After each
// burst of relevant events followed by a quiet debounce period, onChange is
// called with the distinct paths touched. Calls never overlap.
func (w *Watcher) Run(ctx context.Context, onChange func(ctx context.Context, paths []string)) error {
	pending := map[string]struct{}{}
	timer := time.NewTimer(w.debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()

	w.logger.Info("Watching for source changes", zap.String("ext", w.ext), zap.Duration("debounce", w.debounce))
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Watcher stopping", zap.Error(ctx.Err()))
			return nil

		case ev, ok := <-w.fsw.Events:
			if !ok {
				return nil
			}
			if !w.relevant(ev) {
				continue
			}
			w.logger.Debug("Source event", zap.String("path", ev.Name), zap.String("op", ev.Op.String()))
			pending[ev.Name] = struct{}{}
			timer.Reset(w.debounce)

		case err, ok := <-w.fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("fsnotify error", zap.Error(err))

		case <-timer.C:
			if len(pending) == 0 {
				continue
			}
			paths := make([]string, 0, len(pending))
			for p := range pending {
				paths = append(paths, p)
			}
			sort.Strings(paths)
			pending = map[string]struct{}{}
			onChange(ctx, paths)
		}
	}
}
