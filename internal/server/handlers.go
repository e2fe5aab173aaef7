package server

import (
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/talktotext/talktotext/internal/auth"
	"github.com/talktotext/talktotext/internal/export"
	"github.com/talktotext/talktotext/internal/media"
	"github.com/talktotext/talktotext/internal/models"
	"github.com/talktotext/talktotext/internal/provider"
	"github.com/talktotext/talktotext/internal/queue"
	"github.com/talktotext/talktotext/internal/store"
)

// allowedExts are the media types accepted at the upload endpoint.
var allowedExts = map[string]bool{
	".wav": true,
	".mp3": true,
	".mp4": true,
	".m4a": true,
}

type uploadResponse struct {
	UploadID string `json:"upload_id"`
	Status   string `json:"status"`
	NoteID   string `json:"note_id,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleUpload(c echo.Context) error {
	ctx := c.Request().Context()
	userID := s.auth.UserID(c.Request().Header.Get("Authorization"))

	language := c.FormValue("language")
	if language == "" {
		language = "auto"
	}

	background := true
	if v := c.FormValue("background"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "background must be a boolean"})
		}
		background = parsed
	}

	extractSeconds := 0
	if v := c.FormValue("extractDuration"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			return c.JSON(http.StatusBadRequest, errorResponse{Error: "extractDuration must be a positive integer"})
		}
		extractSeconds = parsed
	}

	filename, path, sourceURL, err := s.receiveAsset(c)
	if err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return c.JSON(reqErr.status, errorResponse{Error: reqErr.msg})
		}
		s.logger.Error(ctx, "failed to receive asset: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to store upload"})
	}

	up := &models.Upload{
		ID:             uuid.NewString(),
		UserID:         userID,
		Filename:       filename,
		Path:           path,
		SourceURL:      sourceURL,
		Language:       language,
		ExtractSeconds: extractSeconds,
		Status:         models.StageUploaded,
		Progress:       models.Progress{Stage: models.StageUploaded, Percent: 0},
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.InsertUpload(ctx, up); err != nil {
		s.logger.Error(ctx, "failed to insert upload: %v", err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to record upload"})
	}

	if background {
		task, err := queue.NewTask(queue.TaskProcessUpload, queue.ProcessUploadPayload{
			UploadID: up.ID,
			Path:     up.Path,
			UserID:   up.UserID,
			Language: up.Language,
		})
		if err != nil {
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to build task"})
		}
		if err := s.queue.Enqueue(ctx, task); err != nil {
			// The record exists but nothing will process it; the caller
			// must know, not discover a stuck upload later.
			s.logger.Error(ctx, "enqueue for upload %s failed: %v", up.ID, err)
			if errors.Is(err, queue.ErrUnavailable) {
				return c.JSON(http.StatusServiceUnavailable, errorResponse{Error: "task queue unavailable, upload not scheduled"})
			}
			return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to schedule processing"})
		}
		return c.JSON(http.StatusCreated, uploadResponse{UploadID: up.ID, Status: string(models.StageUploaded)})
	}

	noteID, err := s.pipeline.Process(ctx, up)
	if err != nil {
		return c.JSON(processErrorStatus(err), errorResponse{Error: err.Error()})
	}
	return c.JSON(http.StatusCreated, uploadResponse{UploadID: up.ID, Status: string(models.StageDone), NoteID: noteID})
}

func (s *Server) handleStatus(c echo.Context) error {
	up, err := s.store.FindUpload(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrUploadNotFound) {
			return c.JSON(http.StatusNotFound, errorResponse{Error: "upload not found"})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
	}
	return c.JSON(http.StatusOK, up)
}

func (s *Server) handleNote(c echo.Context) error {
	note, err := s.findOwnedNote(c)
	if err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return c.JSON(reqErr.status, errorResponse{Error: reqErr.msg})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
	}
	return c.JSON(http.StatusOK, note)
}

func (s *Server) handleHistory(c echo.Context) error {
	userID := s.auth.UserID(c.Request().Header.Get("Authorization"))
	if auth.IsGuest(userID) {
		return c.JSON(http.StatusUnauthorized, errorResponse{Error: "authentication required"})
	}

	notes, err := s.store.ListNotesByUser(c.Request().Context(), userID, 50)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	return c.JSON(http.StatusOK, map[string]any{"notes": notes})
}

func (s *Server) handleDownloadPDF(c echo.Context) error {
	return s.download(c, "pdf", export.WritePDF)
}

func (s *Server) handleDownloadDocx(c echo.Context) error {
	return s.download(c, "docx", export.WriteDocx)
}

func (s *Server) download(c echo.Context, ext string, write func(title, markdown, path string) error) error {
	note, err := s.findOwnedNote(c)
	if err != nil {
		var reqErr *requestError
		if errors.As(err, &reqErr) {
			return c.JSON(reqErr.status, errorResponse{Error: reqErr.msg})
		}
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "lookup failed"})
	}

	if err := os.MkdirAll(s.cfg.ExportDir, 0o755); err != nil {
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to prepare export"})
	}
	out := filepath.Join(s.cfg.ExportDir, note.ID+"."+ext)
	if err := write("Meeting Notes", note.FinalNotes, out); err != nil {
		s.logger.Error(c.Request().Context(), "failed to render %s for note %s: %v", ext, note.ID, err)
		return c.JSON(http.StatusInternalServerError, errorResponse{Error: "failed to render document"})
	}
	return c.Attachment(out, "meeting_notes."+ext)
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

// findOwnedNote loads the note in the path and checks it belongs to the
// caller. Foreign notes read as not found.
func (s *Server) findOwnedNote(c echo.Context) (*models.Note, error) {
	userID := s.auth.UserID(c.Request().Header.Get("Authorization"))
	note, err := s.store.FindNote(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, store.ErrNoteNotFound) {
			return nil, &requestError{status: http.StatusNotFound, msg: "note not found"}
		}
		return nil, err
	}
	if note.UserID != userID {
		return nil, &requestError{status: http.StatusNotFound, msg: "note not found"}
	}
	return note, nil
}

// receiveAsset stores the submitted media on disk, from either the multipart
// file field or a remote url, and returns (filename, local path, source url).
func (s *Server) receiveAsset(c echo.Context) (string, string, string, error) {
	fileHeader, err := c.FormFile("file")
	if err == nil {
		ext := strings.ToLower(filepath.Ext(fileHeader.Filename))
		if !allowedExts[ext] && !media.IsVideo(fileHeader.Filename) {
			return "", "", "", &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf("unsupported file type %q", ext)}
		}
		path, err := s.saveMultipart(fileHeader.Filename, fileHeader)
		if err != nil {
			return "", "", "", err
		}
		return fileHeader.Filename, path, "", nil
	}

	// Only an absent file field falls through to the url branch. A broken
	// multipart body is the caller's real problem and is reported as such.
	if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return "", "", "", &requestError{status: http.StatusBadRequest, msg: fmt.Sprintf("invalid upload form: %v", err)}
	}

	url := c.FormValue("url")
	if url == "" {
		return "", "", "", &requestError{status: http.StatusBadRequest, msg: "either file or url is required"}
	}
	filename, path, err := s.downloadRemote(c.Request().Context(), url)
	if err != nil {
		return "", "", "", err
	}
	return filename, path, url, nil
}

type requestError struct {
	status int
	msg    string
}

func (e *requestError) Error() string { return e.msg }

func processErrorStatus(err error) int {
	var srcErr *media.SourceError
	if errors.As(err, &srcErr) {
		return http.StatusUnprocessableEntity
	}
	var provErr *provider.Error
	if errors.As(err, &provErr) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
