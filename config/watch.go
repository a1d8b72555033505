// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/gogpu/compositor/internal/logging"
)

// Watch calls fn with the new configuration each time the file at path
// changes, until ctx is done. A file that fails to load is logged and
// ignored; fn keeps the last good configuration.
//
// The directory is watched rather than the file, so editors that replace
// the file on save are followed.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("config: watch %s: %w", path, err)
	}
	logging.Logger().Debug("watching configuration", "path", abs)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			if fi, err := os.Stat(abs); err != nil || fi.Size() == 0 {
				// Truncated by a writer that is not done yet.
				continue
			}
			cfg, err := Load(abs)
			if err != nil {
				logging.Logger().Warn("configuration reload failed", "path", abs, "err", err)
				continue
			}
			logging.Logger().Info("configuration reloaded", "path", abs)
			fn(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logging.Logger().Error("configuration watcher error", "err", err)
		}
	}
}
