package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"vawter.tech/stopper"
)

// reloadDebounce coalesces the burst of events an editor save produces.
const reloadDebounce = 50 * time.Millisecond

// watchLogLevel re-reads the config file whenever it changes and applies
// its log level to level. The directory is watched so that editors which
// replace the file by rename keep being followed.
func watchLogLevel(ctx context.Context, path string, level *slog.LevelVar, logger *slog.Logger) (func() error, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watch: %w", err)
	}
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return nil, fmt.Errorf("config watch %s: %w", dir, err)
	}

	sctx := stopper.WithContext(ctx)
	sctx.Defer(func() { _ = watcher.Close() })

	var (
		mu        sync.Mutex
		debouncer *time.Timer
	)
	reload := func() {
		if sctx.IsStopping() {
			return
		}
		c, err := loadConfigFile(path)
		if err != nil {
			logger.Warn("config reload failed", "path", path, "error", err)
			return
		}
		l, err := parseLevel(c.LogLevel)
		if err != nil {
			logger.Warn("config reload failed", "path", path, "error", err)
			return
		}
		if l != level.Level() {
			level.Set(l)
			logger.Info("log level changed", "level", l)
		}
	}

	sctx.Go(func(sctx *stopper.Context) error {
		sctx.Defer(func() {
			mu.Lock()
			if debouncer != nil {
				debouncer.Stop()
			}
			mu.Unlock()
		})

		name := filepath.Base(path)
		for {
			select {
			case <-sctx.Stopping():
				return nil

			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(event.Name) != name || event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
					continue
				}
				mu.Lock()
				if debouncer != nil {
					debouncer.Stop()
				}
				debouncer = time.AfterFunc(reloadDebounce, reload)
				mu.Unlock()

			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				logger.Warn("config watch error", "error", err)
			}
		}
	})

	stop := func() error {
		sctx.Stop(100 * time.Millisecond)
		return sctx.Wait()
	}
	return stop, nil
}
