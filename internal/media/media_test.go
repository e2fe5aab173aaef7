package media

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/talktotext/talktotext/internal/logger"
)

type fakeExecutor struct {
	commands [][]string
	probeOut string
	probeErr error
	execErr  error
}

func (f *fakeExecutor) Execute(_ context.Context, name string, args ...string) (string, error) {
	f.commands = append(f.commands, append([]string{name}, args...))
	if name == "ffprobe" {
		return f.probeOut, f.probeErr
	}
	return "", f.execErr
}

func TestIsVideo(t *testing.T) {
	tests := []struct {
		path string
		want bool
	}{
		{"meeting.mp4", true},
		{"meeting.MP4", true},
		{"clip.mov", true},
		{"recording.mkv", true},
		{"audio.mp3", false},
		{"audio.wav", false},
		{"audio.m4a", false},
		{"noext", false},
	}

	for _, tt := range tests {
		if got := IsVideo(tt.path); got != tt.want {
			t.Errorf("IsVideo(%q) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestExtract(t *testing.T) {
	exec := &fakeExecutor{probeOut: "audio\n"}
	e := NewExtractor(exec, logger.New("error"))

	out, err := e.Extract(context.Background(), "/tmp/meeting.mp4", 120)
	if err != nil {
		t.Fatalf("Extract() error = %v", err)
	}
	if out != "/tmp/meeting_clip.mp3" {
		t.Errorf("out = %q", out)
	}

	if len(exec.commands) != 2 {
		t.Fatalf("expected ffprobe then ffmpeg, got %d commands", len(exec.commands))
	}
	if exec.commands[0][0] != "ffprobe" {
		t.Errorf("first command = %q, want ffprobe", exec.commands[0][0])
	}
	ffmpeg := strings.Join(exec.commands[1], " ")
	if !strings.Contains(ffmpeg, "-t 120") {
		t.Errorf("ffmpeg args missing clip bound: %s", ffmpeg)
	}
	if !strings.Contains(ffmpeg, "-vn") {
		t.Errorf("ffmpeg args missing -vn: %s", ffmpeg)
	}
}

func TestExtractNoAudioTrack(t *testing.T) {
	exec := &fakeExecutor{probeOut: "   \n"}
	e := NewExtractor(exec, logger.New("error"))

	_, err := e.Extract(context.Background(), "/tmp/silent.mp4", 120)

	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("error = %v, want *SourceError", err)
	}
	if !strings.Contains(srcErr.Error(), "no audio track") {
		t.Errorf("Error() = %q", srcErr.Error())
	}

	// Extraction must not have been attempted.
	if len(exec.commands) != 1 {
		t.Errorf("got %d commands, want probe only", len(exec.commands))
	}
}

func TestExtractProbeFailure(t *testing.T) {
	exec := &fakeExecutor{probeErr: errors.New("no such file")}
	e := NewExtractor(exec, logger.New("error"))

	_, err := e.Extract(context.Background(), "/tmp/missing.mp4", 120)

	var srcErr *SourceError
	if !errors.As(err, &srcErr) {
		t.Fatalf("error = %v, want *SourceError", err)
	}
}

func TestExtractFfmpegFailure(t *testing.T) {
	exec := &fakeExecutor{probeOut: "audio\n", execErr: errors.New("codec not found")}
	e := NewExtractor(exec, logger.New("error"))

	if _, err := e.Extract(context.Background(), "/tmp/meeting.mp4", 120); err == nil {
		t.Error("Extract() should surface ffmpeg failure")
	}
}
