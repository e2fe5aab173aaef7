package watcher

import "context"

// Watcher monitors a drop folder and submits new media files for processing.
type Watcher interface {
	Start(ctx context.Context) error
	Stop() error
}

// SubmitFunc registers one dropped file for processing.
type SubmitFunc func(ctx context.Context, filePath string) error
