package config

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatcherConfig holds the reload callbacks
type WatcherConfig struct {
	// DebounceDuration collapses bursts of writes into one reload
	DebounceDuration time.Duration
	// OnChange receives every configuration that loaded and validated
	OnChange func(cfg *Config) error
	OnError  func(error)
}

// DefaultWatcherConfig returns default watcher configuration
func DefaultWatcherConfig() *WatcherConfig {
	return &WatcherConfig{DebounceDuration: 500 * time.Millisecond}
}

// Watcher reloads the config file when it changes on disk. A reload that
// fails to load or validate is reported and the previous config stays in
// effect.
type Watcher struct {
	path    string
	config  *WatcherConfig
	fs      *fsnotify.Watcher
	logger  *slog.Logger
	loadEnv bool

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher watches the directory holding path so editors that replace the
// file atomically are still seen.
func NewWatcher(path string, config *WatcherConfig, logger *slog.Logger) (*Watcher, error) {
	if config == nil {
		config = DefaultWatcherConfig()
	}
	if logger == nil {
		logger = slog.Default()
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create file watcher: %w", err)
	}
	if err := fsw.Add(filepath.Dir(abs)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("watch config directory: %w", err)
	}

	return &Watcher{
		path:    abs,
		config:  config,
		fs:      fsw,
		logger:  logger.With("component", "config-watcher", "file", abs),
		loadEnv: true,
	}, nil
}

// Run blocks until ctx is done, then releases the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	w.logger.Info("watching configuration")
	defer w.close()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-w.fs.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				w.logger.Debug("config file changed", "op", event.Op.String())
				w.schedule()
			}

		case err, ok := <-w.fs.Errors:
			if !ok {
				return nil
			}
			w.report(fmt.Errorf("watcher error: %w", err))
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.config.DebounceDuration, func() {
		if err := w.reload(); err != nil {
			w.report(err)
		}
	})
}

func (w *Watcher) reload() error {
	cfg, err := NewLoader(w.path).WithEnvVars(w.loadEnv).Load()
	if err != nil {
		return fmt.Errorf("reload config: %w", err)
	}

	if w.config.OnChange != nil {
		if err := w.config.OnChange(cfg); err != nil {
			return fmt.Errorf("apply config: %w", err)
		}
	}

	w.logger.Info("configuration reloaded")
	return nil
}

func (w *Watcher) report(err error) {
	w.logger.Error("configuration reload failed", "error", err)
	if w.config.OnError != nil {
		w.config.OnError(err)
	}
}

func (w *Watcher) close() {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	w.fs.Close()
}
