package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gantrykit/gantry/internal/logger"
)

// Watch monitors the configuration file and re-applies the logging level
// when it changes on disk. Only the logging level is dynamic; every other
// section is copied by value into components at startup, so edits take
// effect on the next restart.
//
// Blocks until ctx is cancelled. Changes that fail to load or validate are
// logged and ignored, keeping the last good level in place.
func Watch(ctx context.Context, path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory, not the file: editors replace files by rename,
	// which silently drops a watch placed on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	logger.Debug("Watching configuration file", logger.ConfigFile(path))

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != filepath.Clean(path) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			reapply(path)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("config watcher error: %w", err)
		}
	}
}

// reapply reloads the file and applies the dynamic sections.
func reapply(path string) {
	cfg, err := Load(path)
	if err != nil {
		logger.Warn("Ignoring config change that failed to load",
			logger.ConfigFile(path), logger.Err(err))
		return
	}

	logger.SetLevel(cfg.Logging.Level)
	logger.Info("Applied new logging level from config change",
		logger.ConfigFile(path), "level", cfg.Logging.Level)
}
