package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// WatchFile reloads cfg whenever its backing file changes, until ctx is
// done. The watch is registered on the parent directory because editors
// and orchestrators typically replace the file instead of writing in
// place, which would silently drop a watch on the file itself.
func WatchFile(ctx context.Context, cfg *YamlConfig, logger *zap.Logger) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	dir := filepath.Dir(cfg.Path())
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("watch '%s': %w", dir, err)
	}
	logger = logger.Named("configwatch")

	go func() {
		defer func() { _ = watcher.Close() }()
		target := filepath.Clean(cfg.Path())
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				logger.Info("Configuration file changed, reloading", zap.String("path", target))
				if err := cfg.Update(); err != nil {
					logger.Error("Failed to reload configuration", zap.Error(err))
				}
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("Configuration watcher error", zap.Error(watchErr))
			}
		}
	}()
	return nil
}
