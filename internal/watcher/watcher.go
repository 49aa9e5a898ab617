// Package watcher watches the modules source directory and feeds edits
// into the update pipeline, giving dynamic modules file-driven hot
// reload. A failed update is logged and surfaced via system health; it
// never stops the watcher.
package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/stablecore-labs/stablecore/pkg/core"
)

// debounceWindow coalesces editor save bursts into one update.
const debounceWindow = 250 * time.Millisecond

// Updater is the slice of the registry the watcher drives.
type Updater interface {
	UpdateModule(name, source string) core.UpdateResult
}

// Watcher triggers module updates from filesystem writes.
type Watcher struct {
	updater Updater
	dir     string
	logger  *slog.Logger

	mu     sync.Mutex
	timers map[string]*time.Timer
}

// New creates a watcher over dir.
func New(updater Updater, dir string, logger *slog.Logger) *Watcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Watcher{
		updater: updater,
		dir:     dir,
		logger:  logger,
		timers:  make(map[string]*time.Timer),
	}
}

// Run watches the modules directory until the context is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	if err := fw.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching modules directory", "dir", w.dir)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".star") {
				continue
			}
			w.schedule(event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watch error", "error", err)
		}
	}
}

// schedule debounces updates per module so a burst of writes for the
// same file produces one reload.
func (w *Watcher) schedule(path string) {
	name := strings.TrimSuffix(filepath.Base(path), ".star")

	w.mu.Lock()
	defer w.mu.Unlock()
	if timer, ok := w.timers[name]; ok {
		timer.Stop()
	}
	w.timers[name] = time.AfterFunc(debounceWindow, func() {
		w.apply(name, path)
	})
}

func (w *Watcher) apply(name, path string) {
	source, err := os.ReadFile(path) //nolint:gosec // G304: path comes from the watched modules dir
	if err != nil {
		w.logger.Error("failed to read module source", "module", name, "error", err)
		return
	}

	res := w.updater.UpdateModule(name, string(source))
	if !res.Success {
		w.logger.Warn("module update failed",
			"module", name,
			"stage", string(res.FailedStage),
			"error", res.ErrorMessage,
			"diagnostics", core.DiagnosticMessages(res.Diagnostics))
		return
	}
	w.logger.Info("module updated from source change", "module", name, "artifact", res.ArtifactLocation)
}
