package watcher

import (
	"fmt"

	"github.com/fsnotify/fsnotify"

	"github.com/talktotext/talktotext/internal/logger"
)

// New creates a Watcher on the given drop folder.
func New(dir string, submit SubmitFunc, log logger.Logger) (Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	if err := fsw.Add(dir); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("add watch path: %w", err)
	}

	return &implWatcher{
		dir:     dir,
		submit:  submit,
		logger:  log,
		watcher: fsw,
	}, nil
}
