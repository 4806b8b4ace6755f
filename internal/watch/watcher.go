// Package watch triggers imports when the export file changes on disk.
package watch

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	hklog "github.com/kkin1995/healthkit/internal/log"
)

// Config controls the export watcher.
type Config struct {
	// ExportPath is the export.xml file whose parent directory is watched.
	ExportPath string
	// Debounce is how long the file must stay quiet before an import fires.
	Debounce time.Duration
}

// Watcher observes the export directory and invokes the trigger after a
// debounce window whenever export.xml is created or rewritten.
type Watcher struct {
	cfg     Config
	trigger func(context.Context)
	logger  zerolog.Logger

	mu      sync.Mutex
	timer   *time.Timer
	watcher *fsnotify.Watcher
}

// New creates a watcher. trigger runs on the watcher goroutine after each
// debounce window and should hand off long work itself.
func New(cfg Config, trigger func(context.Context)) (*Watcher, error) {
	if cfg.ExportPath == "" {
		return nil, fmt.Errorf("watch: export path required")
	}
	if cfg.Debounce <= 0 {
		cfg.Debounce = 2 * time.Second
	}
	if trigger == nil {
		return nil, fmt.Errorf("watch: trigger required")
	}
	return &Watcher{
		cfg:     cfg,
		trigger: trigger,
		logger:  hklog.WithComponent("watch"),
	}, nil
}

// Start begins watching. It returns once the watcher goroutine is running;
// the goroutine exits when ctx is cancelled.
func (w *Watcher) Start(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("fsnotify.NewWatcher: %w", err)
	}

	dir := filepath.Dir(w.cfg.ExportPath)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch directory %s: %w", dir, err)
	}

	w.watcher = watcher

	w.logger.Info().
		Str("event", "watch.started").
		Str(hklog.FieldPath, dir).
		Dur("debounce", w.cfg.Debounce).
		Msg("watching export directory")

	go w.loop(ctx)
	return nil
}

func (w *Watcher) loop(ctx context.Context) {
	defer func() {
		_ = w.watcher.Close()
	}()

	targetName := filepath.Base(w.cfg.ExportPath)

	for {
		select {
		case <-ctx.Done():
			w.stopTimer()
			w.logger.Info().Str("event", "watch.stopped").Msg("export watcher stopped")
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != targetName {
				continue
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) && !event.Has(fsnotify.Rename) {
				continue
			}

			w.logger.Debug().
				Str("event", "watch.file_changed").
				Str("op", event.Op.String()).
				Msg("export file changed")

			w.resetTimer(ctx)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().
				Err(err).
				Str("event", "watch.error").
				Msg("export watcher error")
		}
	}
}

// resetTimer restarts the debounce window. Rapid successive writes collapse
// into a single trigger.
func (w *Watcher) resetTimer(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.cfg.Debounce, func() {
		if ctx.Err() != nil {
			return
		}
		w.logger.Info().
			Str("event", "watch.trigger").
			Str(hklog.FieldExportPath, w.cfg.ExportPath).
			Msg("export file settled, triggering import")
		w.trigger(ctx)
	})
}

func (w *Watcher) stopTimer() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
}
