// Package reload loads the endpoint configuration from its source, stores
// the bound snapshot and keeps it current when the source file changes.
package reload

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/eugenenazirov/cfgbind/internal/binder"
	"github.com/eugenenazirov/cfgbind/internal/confignode"
	"github.com/eugenenazirov/cfgbind/internal/snapshot"
	"github.com/eugenenazirov/cfgbind/internal/storage"
)

const defaultDebounce = 500 * time.Millisecond

// ErrNoSource is returned when a plain YAML loader has no file to read.
var ErrNoSource = errors.New("no configuration source path")

// Loader reads the configuration tree and binds it.
type Loader struct {
	Path      string
	Layered   bool
	EnvPrefix string
	Defaults  map[string]any
}

// Load reads the source and constructs a snapshot from it.
func (l Loader) Load() (snapshot.RootConfig, error) {
	node, err := l.source()
	if err != nil {
		return snapshot.RootConfig{}, fmt.Errorf("read source: %w", err)
	}
	return snapshot.Construct(node)
}

// Describe names the source for logs and API responses.
func (l Loader) Describe() string {
	switch {
	case l.Layered && l.Path == "":
		return "env:" + l.EnvPrefix
	case l.Layered:
		return "layered:" + l.Path
	default:
		return l.Path
	}
}

func (l Loader) source() (confignode.Node, error) {
	if l.Layered {
		return confignode.LoadLayered(confignode.LayeredOptions{
			Defaults:  l.Defaults,
			Path:      l.Path,
			EnvPrefix: l.EnvPrefix,
		})
	}
	if l.Path == "" {
		return nil, ErrNoSource
	}
	return confignode.LoadYAMLFile(l.Path)
}

// Option configures Watcher behaviour.
type Option func(*Watcher)

// WithDebounce sets how long the watcher waits after the last file event
// before reloading.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		w.debounce = d
	}
}

// Watcher reloads the stored snapshot on demand or when the source file changes.
type Watcher struct {
	loader   Loader
	store    storage.Storage
	logger   *zap.Logger
	debounce time.Duration

	reloadMu sync.Mutex

	listenersMu sync.RWMutex
	listeners   []chan<- storage.Snapshot

	done chan struct{}
}

// NewWatcher creates a watcher. Nothing is loaded until Reload or Start is called.
func NewWatcher(loader Loader, store storage.Storage, logger *zap.Logger, opts ...Option) *Watcher {
	w := &Watcher{
		loader:   loader,
		store:    store,
		logger:   logger.With(zap.String("component", "reload")),
		debounce: defaultDebounce,
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reload loads and binds the source. On success the new snapshot replaces the
// stored one and is sent to subscribers. On failure the stored snapshot is
// kept and the error returned.
func (w *Watcher) Reload(ctx context.Context) (storage.Snapshot, error) {
	w.reloadMu.Lock()
	defer w.reloadMu.Unlock()

	if err := ctx.Err(); err != nil {
		return storage.Snapshot{}, err
	}

	source := w.loader.Describe()
	cfg, err := w.loader.Load()
	if err != nil {
		w.logger.Error("failed to load configuration",
			zap.String("event", "config.reload_failed"),
			zap.String("source", source),
			zap.Error(err),
		)
		return storage.Snapshot{}, err
	}

	previous, prevErr := w.store.Current()
	snap := w.store.Replace(cfg, source)
	if prevErr == nil {
		w.logChanges(previous.Config, snap.Config)
	}
	w.notify(snap)

	w.logger.Info("configuration loaded",
		zap.String("event", "config.reload_success"),
		zap.String("source", source),
		zap.Uint64("generation", snap.Generation),
	)
	return snap, nil
}

// Subscribe registers a channel that receives every successfully loaded
// snapshot. Sends never block: a listener that is not ready misses the update.
func (w *Watcher) Subscribe(ch chan<- storage.Snapshot) {
	w.listenersMu.Lock()
	defer w.listenersMu.Unlock()
	w.listeners = append(w.listeners, ch)
}

func (w *Watcher) notify(snap storage.Snapshot) {
	w.listenersMu.RLock()
	defer w.listenersMu.RUnlock()

	for _, ch := range w.listeners {
		select {
		case ch <- snap:
		default:
			w.logger.Warn("skipped notifying listener (channel full)",
				zap.String("event", "config.listener_skip"),
			)
		}
	}
}

// logChanges logs each rendered line that differs between two snapshots.
func (w *Watcher) logChanges(old, updated snapshot.RootConfig) {
	oldLines, err := binder.Lines(old)
	if err != nil {
		return
	}
	newLines, err := binder.Lines(updated)
	if err != nil || len(oldLines) != len(newLines) {
		return
	}
	for i := range oldLines {
		if oldLines[i] != newLines[i] {
			w.logger.Info("config changed",
				zap.String("old", oldLines[i]),
				zap.String("new", newLines[i]),
			)
		}
	}
}

// Start watches the source file and reloads it, debounced, whenever it is
// written or recreated. The directory is watched rather than the file so
// that editors replacing the file by rename are still observed. Start is a
// no-op without a source path. The watch stops when ctx is done. Start must
// be called at most once.
func (w *Watcher) Start(ctx context.Context) error {
	if w.loader.Path == "" {
		w.logger.Info("config file watcher disabled (no source file)",
			zap.String("event", "config.watcher_disabled"),
		)
		close(w.done)
		return nil
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	target := filepath.Clean(w.loader.Path)
	if err := fsw.Add(filepath.Dir(target)); err != nil {
		_ = fsw.Close()
		return fmt.Errorf("watch config directory: %w", err)
	}

	w.logger.Info("watching config file for changes",
		zap.String("event", "config.watcher_started"),
		zap.String("path", target),
	)

	go w.watchLoop(ctx, fsw, target)
	return nil
}

// Done is closed once the watch loop has exited.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) watchLoop(ctx context.Context, fsw *fsnotify.Watcher, target string) {
	defer close(w.done)
	defer func() {
		_ = fsw.Close()
	}()

	var (
		timer  *time.Timer
		timerC <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("config watcher stopped", zap.String("event", "config.watcher_stopped"))
			return

		case event, ok := <-fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			w.logger.Debug("config file changed",
				zap.String("event", "config.file_changed"),
				zap.String("op", event.Op.String()),
			)
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			timerC = timer.C

		case <-timerC:
			timerC = nil
			// Reload already logs failures.
			_, _ = w.Reload(ctx)

		case err, ok := <-fsw.Errors:
			if !ok {
				return
			}
			w.logger.Error("config watcher error",
				zap.String("event", "config.watcher_error"),
				zap.Error(err),
			)
		}
	}
}
