package daemon

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"git.home.luguber.info/inful/buildveto/internal/config"
	"git.home.luguber.info/inful/buildveto/internal/foundation/errors"
	"git.home.luguber.info/inful/buildveto/internal/logfields"
)

// ConfigReloader applies a freshly loaded configuration.
type ConfigReloader interface {
	GetConfig() *config.Config
	ReloadConfig(ctx context.Context, cfg *config.Config) error
}

// ConfigWatcher monitors configuration file changes and triggers reloads
type ConfigWatcher struct {
	configPath   string
	target       ConfigReloader
	watcher      *fsnotify.Watcher
	mu           sync.Mutex
	stopChan     chan struct{}
	reloadChan   chan struct{}
	debounceTime time.Duration
	logger       *slog.Logger
	// reloaded is signalled after each reload attempt; nil outside tests.
	reloaded chan error
}

// NewConfigWatcher creates a new configuration file watcher
func NewConfigWatcher(configPath string, target ConfigReloader) (*ConfigWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.WrapError(err, errors.CategoryDaemon, "failed to create file watcher").Build()
	}

	// Resolve absolute path for consistent watching
	absPath, err := filepath.Abs(configPath)
	if err != nil {
		_ = watcher.Close()
		return nil, errors.WrapError(err, errors.CategoryConfig, "failed to resolve config path").
			WithContext("path", configPath).Build()
	}

	debounce := config.DefaultReloadDebounce
	if cfg := target.GetConfig(); cfg != nil && cfg.Daemon.ReloadDebounce > 0 {
		debounce = cfg.Daemon.ReloadDebounce
	}

	return &ConfigWatcher{
		configPath:   absPath,
		target:       target,
		watcher:      watcher,
		stopChan:     make(chan struct{}),
		reloadChan:   make(chan struct{}, 1),
		debounceTime: debounce,
		logger:       slog.Default(),
	}, nil
}

// Start begins monitoring the configuration file
func (cw *ConfigWatcher) Start(ctx context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	// Editors replace files on save, so the directory is watched instead of the file.
	configDir := filepath.Dir(cw.configPath)
	if err := cw.watcher.Add(configDir); err != nil {
		return errors.WrapError(err, errors.CategoryFileSystem, "failed to watch config directory").
			WithContext("path", configDir).Build()
	}

	cw.logger.Info("Starting configuration watcher", logfields.Path(cw.configPath))

	go cw.watchLoop(ctx)
	go cw.reloadLoop(ctx)
	return nil
}

// Stop stops the configuration watcher
func (cw *ConfigWatcher) Stop(context.Context) error {
	cw.mu.Lock()
	defer cw.mu.Unlock()

	select {
	case <-cw.stopChan:
		return nil
	default:
		close(cw.stopChan)
	}
	return cw.watcher.Close()
}

// watchLoop monitors file system events
func (cw *ConfigWatcher) watchLoop(ctx context.Context) {
	configFile := filepath.Base(cw.configPath)

	for {
		select {
		case <-ctx.Done():
			return
		case <-cw.stopChan:
			return
		case event, ok := <-cw.watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != configFile {
				continue
			}
			switch {
			case event.Has(fsnotify.Write), event.Has(fsnotify.Create), event.Has(fsnotify.Rename):
				cw.logger.Debug("Config file change detected", logfields.Path(event.Name), slog.String("op", event.Op.String()))
				cw.triggerReload()
			case event.Has(fsnotify.Remove):
				cw.logger.Warn("Config file removed", logfields.Path(event.Name))
			}
		case err, ok := <-cw.watcher.Errors:
			if !ok {
				return
			}
			cw.logger.Error("Config watcher error", logfields.Error(err))
		}
	}
}

// reloadLoop handles debounced configuration reloads
func (cw *ConfigWatcher) reloadLoop(ctx context.Context) {
	var reloadTimer *time.Timer
	stop := func() {
		if reloadTimer != nil {
			reloadTimer.Stop()
		}
	}

	for {
		select {
		case <-ctx.Done():
			stop()
			return
		case <-cw.stopChan:
			stop()
			return
		case <-cw.reloadChan:
			stop()
			reloadTimer = time.AfterFunc(cw.debounceTime, func() {
				err := cw.performReload(ctx)
				if err != nil {
					cw.logger.Error("Failed to reload configuration, keeping previous", logfields.Error(err))
				}
				if cw.reloaded != nil {
					cw.reloaded <- err
				}
			})
		}
	}
}

// triggerReload triggers a debounced configuration reload
func (cw *ConfigWatcher) triggerReload() {
	select {
	case cw.reloadChan <- struct{}{}:
	default:
		// Reload already pending
	}
}

// performReload loads and applies the new configuration
func (cw *ConfigWatcher) performReload(ctx context.Context) error {
	cw.logger.Info("Reloading configuration", logfields.Path(cw.configPath))

	newConfig, err := config.Load(cw.configPath)
	if err != nil {
		return err
	}
	if err := cw.validateConfigChange(newConfig); err != nil {
		return err
	}
	return cw.target.ReloadConfig(ctx, newConfig)
}

// validateConfigChange rejects changes that only take effect on restart.
func (cw *ConfigWatcher) validateConfigChange(newConfig *config.Config) error {
	current := cw.target.GetConfig()
	if current == nil {
		return nil
	}
	if newConfig.Daemon.DataDir != current.Daemon.DataDir {
		return errors.ConfigError("daemon.data_dir change requires daemon restart").Build()
	}
	if newConfig.Daemon.HTTPAddr != current.Daemon.HTTPAddr {
		cw.logger.Warn("HTTP address change requires restart to take effect")
	}
	if newConfig.Notify != current.Notify {
		cw.logger.Warn("Notification settings change requires restart to take effect")
	}
	return nil
}
