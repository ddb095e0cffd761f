// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/video360/internal/log"
)

const reloadDebounce = 500 * time.Millisecond

// Holder holds configuration with atomic reloading capability.
type Holder struct {
	mu         sync.RWMutex
	current    AppConfig
	loader     *Loader
	configPath string
	logger     zerolog.Logger

	watchMu  sync.Mutex
	watcher  *fsnotify.Watcher
	debounce *time.Timer
	stopped  bool
	wg       sync.WaitGroup

	reloadMu        sync.RWMutex
	reloadListeners []chan<- AppConfig
}

// NewHolder creates a holder with the initial config.
func NewHolder(initial AppConfig, loader *Loader) *Holder {
	return &Holder{
		current:    initial,
		loader:     loader,
		configPath: loader.Path(),
		logger:     log.WithComponent("config"),
	}
}

// Get returns the current configuration (thread-safe read).
func (h *Holder) Get() AppConfig {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.current
}

// Reload reloads configuration from file and ENV. If loading or validation
// fails, the old configuration is kept and an error is returned.
func (h *Holder) Reload(_ context.Context) error {
	h.logger.Info().Str("event", "config.reload_start").Msg("reloading configuration")

	newCfg, err := h.loader.Load()
	if err != nil {
		h.logger.Error().
			Err(err).
			Str("event", "config.reload_failed").
			Msg("failed to load new configuration")
		return fmt.Errorf("load config: %w", err)
	}

	h.mu.Lock()
	oldCfg := h.current
	h.current = newCfg
	h.mu.Unlock()

	h.notifyListeners(newCfg)
	h.logChanges(oldCfg, newCfg)

	h.logger.Info().
		Str("event", "config.reload_success").
		Msg("configuration reloaded successfully")
	return nil
}

// StartWatcher watches the config file for changes until ctx is cancelled or
// Stop is called. The parent directory is watched so editors that save by
// rename are picked up. No-op without a config file.
func (h *Holder) StartWatcher(ctx context.Context) error {
	if h.configPath == "" {
		h.logger.Info().
			Str("event", "config.watcher_disabled").
			Msg("config file watcher disabled (using ENV-only configuration)")
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(h.configPath)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch config dir: %w", err)
	}

	h.watchMu.Lock()
	h.watcher = watcher
	h.watchMu.Unlock()

	h.logger.Info().
		Str("event", "config.watcher_started").
		Str("path", h.configPath).
		Msg("watching config file for changes")

	h.wg.Add(1)
	go h.watchLoop(ctx, watcher)
	return nil
}

func (h *Holder) watchLoop(ctx context.Context, watcher *fsnotify.Watcher) {
	defer h.wg.Done()
	target := filepath.Clean(h.configPath)

	for {
		select {
		case <-ctx.Done():
			h.logger.Info().Str("event", "config.watcher_stopped").Msg("config watcher stopped")
			h.Stop()
			return

		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				h.logger.Debug().
					Str("event", "config.file_changed").
					Str("op", event.Op.String()).
					Msg("config file changed")
				h.scheduleReload(ctx)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			h.logger.Error().
				Err(err).
				Str("event", "config.watcher_error").
				Msg("config watcher error")
		}
	}
}

// scheduleReload debounces bursts of file events into a single reload.
func (h *Holder) scheduleReload(ctx context.Context) {
	h.watchMu.Lock()
	defer h.watchMu.Unlock()
	if h.stopped {
		return
	}
	if h.debounce != nil {
		h.debounce.Stop()
	}
	h.debounce = time.AfterFunc(reloadDebounce, func() {
		h.watchMu.Lock()
		stopped := h.stopped
		h.watchMu.Unlock()
		if stopped {
			return
		}
		if err := h.Reload(ctx); err != nil {
			h.logger.Error().
				Err(err).
				Str("event", "config.auto_reload_failed").
				Msg("automatic config reload failed")
		}
	})
}

// Stop stops the watcher and any pending debounced reload.
func (h *Holder) Stop() {
	h.watchMu.Lock()
	if h.stopped {
		h.watchMu.Unlock()
		return
	}
	h.stopped = true
	if h.debounce != nil {
		h.debounce.Stop()
	}
	w := h.watcher
	h.watchMu.Unlock()

	if w != nil {
		_ = w.Close()
	}
}

// Wait blocks until the watch goroutine has exited.
func (h *Holder) Wait() { h.wg.Wait() }

// RegisterListener registers a channel that receives the new config on every
// successful reload. Sends never block; the caller owns the channel.
func (h *Holder) RegisterListener(ch chan<- AppConfig) {
	h.reloadMu.Lock()
	defer h.reloadMu.Unlock()
	h.reloadListeners = append(h.reloadListeners, ch)
}

func (h *Holder) notifyListeners(newCfg AppConfig) {
	h.reloadMu.RLock()
	defer h.reloadMu.RUnlock()

	for _, ch := range h.reloadListeners {
		select {
		case ch <- newCfg:
		default:
			h.logger.Warn().
				Str("event", "config.listener_skip").
				Msg("skipped notifying listener (channel full)")
		}
	}
}

func (h *Holder) logChanges(old, newCfg AppConfig) {
	if old.Logging.Level != newCfg.Logging.Level {
		h.logger.Info().
			Str("old", old.Logging.Level).
			Str("new", newCfg.Logging.Level).
			Msg("config changed: logging.level")
	}
	if old.Camera != newCfg.Camera {
		h.logger.Info().Msg("config changed: camera (applies to new views)")
	}
	if old.Playback != newCfg.Playback {
		h.logger.Info().Msg("config changed: playback (applies to new views)")
	}
	if old.Orientation != newCfg.Orientation {
		h.logger.Info().Msg("config changed: orientation (applies to new views)")
	}
	if old.API.Listen != newCfg.API.Listen || old.Resume != newCfg.Resume {
		h.logger.Warn().
			Str("event", "config.restart_required").
			Msg("listen address or resume store changed; restart required to apply")
	}
}
