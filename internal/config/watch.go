package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/five82/lynx/internal/logging"
)

const watchDebounce = 100 * time.Millisecond

// Watch reloads the config at path whenever it changes and passes each
// successful load to onChange. Files that fail to load are logged and the
// previous settings stay in effect. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, path string, logger *logging.Logger, onChange func(Config)) error {
	resolved, err := resolvePath(path)
	if err != nil {
		return err
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	// Editors replace files on save; watching the directory survives that.
	if err := watcher.Add(filepath.Dir(resolved)); err != nil {
		return fmt.Errorf("watch config dir: %w", err)
	}

	logger = logger.With("component", "config", "path", resolved)
	target := filepath.Base(resolved)

	debounce := time.NewTimer(0)
	<-debounce.C

	for {
		select {
		case <-ctx.Done():
			debounce.Stop()
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			debounce.Reset(watchDebounce)

		case <-debounce.C:
			// A missing file would load as defaults; wait for it to come back.
			if _, err := os.Stat(resolved); err != nil {
				logger.Debug("config not readable, keeping current settings", "error", err)
				continue
			}
			cfg, err := Load(resolved)
			if err != nil {
				logger.Warn("config reload failed", "error", err)
				continue
			}
			logger.Info("config reloaded")
			onChange(cfg)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("config watch error", "error", err)
		}
	}
}
