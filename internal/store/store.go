// Package store defines the record store used by the pipeline and the API:
// uploads tracked through their stages and the notes produced at commit.
// All implementations update a single document per call; concurrent writers to
// the same upload are serialized by the backing database, and a terminal
// status is never overwritten by a stale progress write.
package store

import (
	"context"
	"errors"

	"github.com/talktotext/talktotext/internal/models"
)

var (
	ErrUploadNotFound = errors.New("store: upload not found")
	ErrNoteNotFound   = errors.New("store: note not found")
)

// Store persists uploads and notes.
type Store interface {
	InsertUpload(ctx context.Context, up *models.Upload) error
	FindUpload(ctx context.Context, id string) (*models.Upload, error)

	// SetProgress updates status and progress for a non-terminal upload.
	// Writes against a terminal upload are silently dropped so a stale
	// checkpoint racing behind done/failed cannot regress it.
	SetProgress(ctx context.Context, id string, stage models.Stage, percent int) error

	// MarkDone sets the terminal done state, note reference and 100%
	// progress in one document update.
	MarkDone(ctx context.Context, id, noteID string) error

	// MarkFailed sets the terminal failed state with the cause. Progress is
	// left at its last reported checkpoint.
	MarkFailed(ctx context.Context, id, cause string) error

	InsertNote(ctx context.Context, n *models.Note) error
	FindNote(ctx context.Context, id string) (*models.Note, error)
	ListNotesByUser(ctx context.Context, userID string, limit int) ([]*models.Note, error)
}
