// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package dataset

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events an editor or copy tool produces.
const DefaultDebounce = 500 * time.Millisecond

// Watcher reloads the catalog when a set file in a local directory changes.
type Watcher struct {
	dir      string
	debounce time.Duration
	reload   func(context.Context)
	logger   *slog.Logger
}

// NewWatcher watches dir and calls reload once per burst of .json changes.
func NewWatcher(dir string, debounce time.Duration, reload func(context.Context), logger *slog.Logger) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{dir: dir, debounce: debounce, reload: reload, logger: logger}
}

// Run blocks until ctx is done or the watcher fails.
func (watcher *Watcher) Run(ctx context.Context) error {
	notifier, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("dataset: create watcher: %w", err)
	}
	defer notifier.Close()

	if err := notifier.Add(watcher.dir); err != nil {
		return fmt.Errorf("dataset: watch %s: %w", watcher.dir, err)
	}

	watcher.logger.InfoContext(ctx, "dataset_watch_started", slog.String("dir", watcher.dir))

	timer := time.NewTimer(watcher.debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-notifier.Events:
			if !ok {
				return nil
			}
			if !isSetFileChange(event) {
				continue
			}
			watcher.logger.DebugContext(ctx, "dataset_file_changed",
				slog.String("file", filepath.Base(event.Name)),
				slog.String("op", event.Op.String()),
			)
			timer.Reset(watcher.debounce)

		case err, ok := <-notifier.Errors:
			if !ok {
				return nil
			}
			watcher.logger.WarnContext(ctx, "dataset_watch_error", slog.Any("error", err))

		case <-timer.C:
			watcher.reload(ctx)
		}
	}
}

func isSetFileChange(event fsnotify.Event) bool {
	if !strings.EqualFold(filepath.Ext(event.Name), ".json") {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) ||
		event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename)
}
