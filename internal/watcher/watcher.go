// Package watcher monitors a drop folder and submits media files appearing in
// it as background uploads. Submission only enqueues; the worker pool does the
// processing, so no concurrency control is needed here.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/talktotext/talktotext/internal/logger"
	"github.com/talktotext/talktotext/internal/media"
)

var audioExts = map[string]bool{
	".wav": true,
	".mp3": true,
	".m4a": true,
}

type implWatcher struct {
	dir     string
	submit  SubmitFunc
	logger  logger.Logger
	watcher *fsnotify.Watcher
}

// Start blocks handling filesystem events until ctx is cancelled.
func (w *implWatcher) Start(ctx context.Context) error {
	w.logger.Info(ctx, "Drop folder watcher started. Monitoring: %s", w.dir)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info(ctx, "Drop folder watcher stopped")
			return ctx.Err()

		case event, ok := <-w.watcher.Events:
			if !ok {
				return fmt.Errorf("watcher events channel closed")
			}
			if event.Op&fsnotify.Create != fsnotify.Create {
				continue
			}
			if !isMediaFile(event.Name) {
				w.logger.Debug(ctx, "Ignoring non-media file: %s", event.Name)
				continue
			}

			w.logger.Info(ctx, "New media detected: %s", event.Name)

			// Small delay so the file is fully written before submission.
			time.Sleep(500 * time.Millisecond)

			if err := w.submit(ctx, event.Name); err != nil {
				w.logger.Error(ctx, "Failed to submit %s: %v", event.Name, err)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return fmt.Errorf("watcher errors channel closed")
			}
			w.logger.Error(ctx, "Watcher error: %v", err)
		}
	}
}

// Stop closes the underlying filesystem watcher.
func (w *implWatcher) Stop() error {
	return w.watcher.Close()
}

func isMediaFile(path string) bool {
	if media.IsVideo(path) {
		return true
	}
	return audioExts[strings.ToLower(filepath.Ext(path))]
}
