// Package watch keeps the hub live: manifest file changes trigger a
// debounced rescan so edits made by any tool show up without a restart.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/foundryos/foundry/internal/hub"
)

// EventCallback is called for each changed manifest after a watcher-driven
// reload. kind is one of "created", "updated", "deleted".
type EventCallback func(kind string, file string)

// debounce is the quiet period after the last file event before the hub is
// rescanned. Editors and sync tools write in bursts; one reload covers the
// whole burst.
const debounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the hub directory and processes
// manifest change events until ctx is cancelled. Events are coalesced per
// file across the debounce window; after the quiet period the hub is
// reloaded once and cb (if non-nil) is called for each changed file.
func Watch(ctx context.Context, svc *hub.Service, hubDir string, logger *slog.Logger, cb EventCallback) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(hubDir); err != nil {
		return err
	}

	logger.Info("watcher: started", slog.String("hub", hubDir))

	var flushTimer *time.Timer
	var flushCh <-chan time.Time
	pending := map[string]string{} // file → coalesced event kind

	scheduleFlush := func() {
		if flushTimer == nil {
			flushTimer = time.NewTimer(debounce)
			flushCh = flushTimer.C
		} else {
			flushTimer.Reset(debounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if flushTimer != nil {
				flushTimer.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-flushCh:
			if _, err := svc.Reload(ctx); err != nil {
				logger.Warn("watcher: reload failed", slog.String("error", err.Error()))
				clear(pending)
				continue
			}
			files := make([]string, 0, len(pending))
			for file := range pending {
				files = append(files, file)
			}
			sort.Strings(files)
			for _, file := range files {
				logger.Debug("watcher: manifest changed", slog.String("file", file), slog.String("kind", pending[file]))
				if cb != nil {
					cb(pending[file], file)
				}
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(ev.Name)
			if !strings.HasSuffix(name, ".json") || strings.HasPrefix(name, ".") {
				continue
			}

			var kind string
			switch {
			case ev.Op&fsnotify.Create != 0:
				kind = "created"
			case ev.Op&fsnotify.Write != 0:
				kind = "updated"
			case ev.Op&(fsnotify.Remove|fsnotify.Rename) != 0:
				// fsnotify fires Rename on the old path only; if the file
				// moved within the hub the new path arrives as a Create.
				kind = "deleted"
			default:
				continue
			}
			pending[name] = coalesce(pending[name], kind)
			scheduleFlush()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

// coalesce folds a new event kind into the kind already pending for a file
// within one debounce window. A deletion always wins its slot, a creation
// absorbs the writes that follow it, and a file recreated after a deletion
// surfaces as an update.
func coalesce(prev, next string) string {
	switch {
	case prev == "":
		return next
	case next == "deleted":
		return "deleted"
	case prev == "deleted":
		return "updated"
	case prev == "created":
		return "created"
	default:
		return next
	}
}
