package server

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talktotext/talktotext/internal/media"
)

var downloadClient = &http.Client{Timeout: 120 * time.Second}

func (s *Server) saveMultipart(filename string, fh *multipart.FileHeader) (string, error) {
	src, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open multipart file: %w", err)
	}
	defer src.Close()

	return s.saveStream(filename, src)
}

// downloadRemote fetches a remote asset into the upload dir and returns its
// original filename and local path. The fetch is bound to ctx so a dropped
// caller cancels it.
func (s *Server) downloadRemote(ctx context.Context, rawURL string) (string, string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") {
		return "", "", &requestError{status: http.StatusBadRequest, msg: "url must be http or https"}
	}

	filename := filepath.Base(parsed.Path)
	ext := strings.ToLower(filepath.Ext(filename))
	if !allowedExts[ext] && !media.IsVideo(filename) {
		return "", "", &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf("unsupported file type %q", ext)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", "", &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf("invalid url: %v", err)}
	}
	resp, err := downloadClient.Do(req)
	if err != nil {
		return "", "", &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf("failed to fetch url: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", "", &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf("remote returned status %d", resp.StatusCode)}
	}

	path, err := s.saveStream(filename, resp.Body)
	if err != nil {
		return "", "", err
	}
	return filename, path, nil
}

// saveStream writes the asset under the upload dir with a uuid prefix so two
// submissions of the same filename never collide.
func (s *Server) saveStream(filename string, r io.Reader) (string, error) {
	if err := os.MkdirAll(s.cfg.UploadDir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}

	dest := filepath.Join(s.cfg.UploadDir, uuid.NewString()+"_"+filepath.Base(filename))
	f, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	defer f.Close()

	if _, err := io.Copy(f, r); err != nil {
		os.Remove(dest)
		return "", fmt.Errorf("write upload file: %w", err)
	}
	return dest, nil
}
