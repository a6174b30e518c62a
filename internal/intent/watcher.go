package intent

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Watch starts an fsnotify watcher on the vocabulary file's directory and
// reloads the Source's interpreter whenever the file changes, until ctx is
// cancelled. Editors replace files via rename, so the parent directory is
// watched rather than the file itself. Reload bursts are debounced.
//
// A reload that fails to parse keeps the previous interpreter active.
func Watch(ctx context.Context, src *Source, path string, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return err
	}

	logger.Info("vocabulary watcher: started", slog.String("path", path))

	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(200 * time.Millisecond)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(200 * time.Millisecond)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			logger.Info("vocabulary watcher: stopped")
			return nil

		case <-reloadCh:
			v, err := LoadVocabulary(path)
			if err != nil {
				logger.Warn("vocabulary reload failed, keeping previous",
					slog.String("error", err.Error()))
				continue
			}
			src.Swap(New(v))
			logger.Info("vocabulary reloaded", slog.String("path", path))

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != filepath.Clean(path) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				scheduleReload()
			}

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("vocabulary watcher error", slog.String("error", err.Error()))
		}
	}
}
