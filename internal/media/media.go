// Package media identifies video containers and extracts bounded audio clips
// from them with ffmpeg.
package media

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/talktotext/talktotext/internal/logger"
	"github.com/talktotext/talktotext/pkg/executor"
)

// SourceError marks an unusable asset: missing file, unreadable container or
// no audio track. It is fatal for the upload; there is no fallback.
type SourceError struct {
	Path   string
	Reason string
}

func (e *SourceError) Error() string {
	return fmt.Sprintf("source %s: %s", e.Path, e.Reason)
}

var videoExtensions = map[string]bool{
	".mp4":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
	".m4v":  true,
	".flv":  true,
}

// IsVideo reports whether the path names a video container that needs audio
// extraction before transcription.
func IsVideo(path string) bool {
	return videoExtensions[strings.ToLower(filepath.Ext(path))]
}

// Extractor produces an audio clip from a video source.
type Extractor interface {
	// Extract writes the first seconds of audio from videoPath to a new
	// mp3 next to it and returns the new path.
	Extract(ctx context.Context, videoPath string, seconds int) (string, error)
}

type implExtractor struct {
	executor executor.Executor
	logger   logger.Logger
}

// NewExtractor creates an ffmpeg-backed Extractor.
func NewExtractor(exec executor.Executor, log logger.Logger) Extractor {
	return &implExtractor{executor: exec, logger: log}
}

// Extract probes the container for an audio stream, then extracts the first
// `seconds` of audio as a mono 16kHz mp3.
func (e *implExtractor) Extract(ctx context.Context, videoPath string, seconds int) (string, error) {
	if err := e.checkAudioTrack(ctx, videoPath); err != nil {
		return "", err
	}

	audioPath := strings.TrimSuffix(videoPath, filepath.Ext(videoPath)) + "_clip.mp3"

	e.logger.Info(ctx, "Extracting first %ds of audio: %s", seconds, videoPath)

	args := []string{
		"-i", videoPath,
		"-t", strconv.Itoa(seconds),
		"-vn", // audio only
		"-ar", "16000",
		"-ac", "1",
		"-c:a", "libmp3lame",
		"-y",
		audioPath,
	}

	if _, err := e.executor.Execute(ctx, "ffmpeg", args...); err != nil {
		return "", fmt.Errorf("ffmpeg extract audio: %w", err)
	}

	e.logger.Info(ctx, "Audio extracted: %s", audioPath)
	return audioPath, nil
}

// checkAudioTrack runs ffprobe and fails with SourceError when the container
// has no audio stream.
func (e *implExtractor) checkAudioTrack(ctx context.Context, videoPath string) error {
	args := []string{
		"-v", "error",
		"-select_streams", "a",
		"-show_entries", "stream=codec_type",
		"-of", "csv=p=0",
		videoPath,
	}

	out, err := e.executor.Execute(ctx, "ffprobe", args...)
	if err != nil {
		return &SourceError{Path: videoPath, Reason: fmt.Sprintf("probe failed: %v", err)}
	}
	if strings.TrimSpace(out) == "" {
		return &SourceError{Path: videoPath, Reason: "no audio track found"}
	}
	return nil
}
