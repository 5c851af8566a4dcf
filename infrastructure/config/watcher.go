package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher hot-reloads the YAML overrides file and notifies subscribers.
// Used in development so tunables like log level and model can change
// without a restart.
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	logger   *zap.Logger
	stopCh   chan struct{}
	stopOnce sync.Once

	mu       sync.RWMutex
	current  *Config
	onChange []func(*Config)
}

// NewWatcher creates a watcher over the config's overrides file.
func NewWatcher(initial *Config, logger *zap.Logger) (*Watcher, error) {
	if initial.OverridesFile == "" {
		return nil, fmt.Errorf("no overrides file configured")
	}

	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	if err := fsWatcher.Add(initial.OverridesFile); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch config file: %w", err)
	}

	// Also watch the directory for atomic saves (rename operations).
	if err := fsWatcher.Add(filepath.Dir(initial.OverridesFile)); err != nil {
		logger.Warn("Failed to watch config directory", zap.Error(err))
	}

	return &Watcher{
		path:    initial.OverridesFile,
		watcher: fsWatcher,
		logger:  logger,
		stopCh:  make(chan struct{}),
		current: initial,
	}, nil
}

// OnChange registers a callback invoked with the reloaded configuration.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Current returns the most recently loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// Start begins watching for configuration changes
func (w *Watcher) Start() {
	go w.watchLoop()
	w.logger.Info("Configuration watcher started", zap.String("path", w.path))
}

// Stop stops watching for configuration changes
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() {
		close(w.stopCh)
		if err := w.watcher.Close(); err != nil {
			w.logger.Warn("Failed to close config watcher", zap.Error(err))
		}
		w.logger.Info("Configuration watcher stopped")
	})
}

func (w *Watcher) watchLoop() {
	// Debounce to avoid multiple reloads on editor save sequences.
	var debounce *time.Timer
	const debounceDuration = 100 * time.Millisecond

	for {
		select {
		case <-w.stopCh:
			if debounce != nil {
				debounce.Stop()
			}
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != filepath.Base(w.path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDuration, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("Config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	w.mu.RLock()
	next := *w.current
	w.mu.RUnlock()

	if err := applyFile(w.path, &next); err != nil {
		w.logger.Error("Failed to reload config file", zap.Error(err))
		return
	}
	if err := next.Validate(); err != nil {
		w.logger.Error("Reloaded config is invalid, keeping previous", zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = &next
	callbacks := make([]func(*Config), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()

	w.logger.Info("Configuration reloaded", zap.String("path", w.path))
	for _, fn := range callbacks {
		fn(&next)
	}
}
