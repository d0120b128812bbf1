// Package watch reloads a configuration file whenever it changes on disk.
package watch

import (
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ChuLiYu/priority-timeline/internal/config"
	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce is how long a file must stay quiet before it is reloaded.
const DefaultDebounce = 100 * time.Millisecond

// Watcher monitors one config file and publishes every version of it that
// parses. Versions that fail to load are logged and skipped.
type Watcher struct {
	Path     string
	Debounce time.Duration
	Changes  <-chan *config.Config // Read-only external channel

	changes chan *config.Config
	done    chan struct{}
	watcher *fsnotify.Watcher
	log     *slog.Logger
}

// NewWatcher creates a watcher for the file at path. A nil logger uses
// slog.Default().
func NewWatcher(path string, logger *slog.Logger) (*Watcher, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, err
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}

	ch := make(chan *config.Config, 4)
	return &Watcher{
		Path:     abs,
		Debounce: DefaultDebounce,
		Changes:  ch,
		changes:  ch,
		done:     make(chan struct{}),
		watcher:  fw,
		log:      logger.With("component", "watch", "path", abs),
	}, nil
}

// Start begins watching. The parent directory is watched rather than the
// file itself so editors that save by rename are still seen.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.Path)); err != nil {
		return err
	}
	go w.loop()
	return nil
}

// Stop closes the watcher and the Changes channel.
func (w *Watcher) Stop() {
	w.watcher.Close()
	<-w.done
	close(w.changes)
}

func (w *Watcher) loop() {
	defer close(w.done)

	debounce := w.Debounce
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	var last time.Time // zero when nothing is pending
	ticker := time.NewTicker(debounce / 2)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.Path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) {
				last = time.Now()
			}

		case <-ticker.C:
			if last.IsZero() || time.Since(last) < debounce {
				continue
			}
			last = time.Time{}
			w.reload()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	cfg, err := config.Load(w.Path)
	if err != nil {
		// half-written files come through here too
		w.log.Warn("skipping config reload", "error", err)
		return
	}
	if err := cfg.Timeline.Validate(); err != nil {
		w.log.Warn("reloaded timeline has problems", "error", err)
	}
	w.log.Info("config reloaded", "items", len(cfg.Timeline.Items))

	// drop the oldest pending config when the reader is slow
	for {
		select {
		case w.changes <- cfg:
			return
		default:
		}
		select {
		case <-w.changes:
		default:
		}
	}
}
