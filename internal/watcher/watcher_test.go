package watcher

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/talktotext/talktotext/internal/logger"
)

func TestIsMediaFile(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"meeting.mp4", true},
		{"clip.MOV", true},
		{"call.wav", true},
		{"call.mp3", true},
		{"voice.m4a", true},
		{"notes.txt", false},
		{"archive.zip", false},
		{"noext", false},
	}
	for _, tt := range tests {
		if got := isMediaFile(tt.path); got != tt.want {
			t.Errorf("isMediaFile(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcherSubmitsDroppedFile(t *testing.T) {
	dir := t.TempDir()
	submitted := make(chan string, 4)

	w, err := New(dir, func(_ context.Context, path string) error {
		submitted <- path
		return nil
	}, logger.New("error"))
	if err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Start(ctx)

	// Give the event loop a moment before dropping files.
	time.Sleep(50 * time.Millisecond)

	mediaPath := filepath.Join(dir, "standup.mp3")
	if err := os.WriteFile(mediaPath, []byte("audio"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readme.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	select {
	case got := <-submitted:
		if got != mediaPath {
			t.Errorf("submitted %q, want %q", got, mediaPath)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("dropped media file was never submitted")
	}

	select {
	case got := <-submitted:
		t.Errorf("non-media file submitted: %q", got)
	case <-time.After(time.Second):
	}
}

func TestNewRejectsMissingDir(t *testing.T) {
	_, err := New(filepath.Join(t.TempDir(), "missing"), func(context.Context, string) error {
		return nil
	}, logger.New("error"))
	if err == nil {
		t.Fatal("New should fail for a directory that does not exist")
	}
}
