// Package memory implements the record store in process memory. It mirrors
// the MongoDB implementation's single-document semantics and additionally
// records the progress history per upload, which the pipeline tests assert on.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/talktotext/talktotext/internal/models"
	"github.com/talktotext/talktotext/internal/store"
)

var _ store.Store = (*Store)(nil)

// Store keeps uploads and notes in maps guarded by a single mutex.
type Store struct {
	mu      sync.Mutex
	uploads map[string]*models.Upload
	notes   map[string]*models.Note
	history map[string][]models.Stage
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		uploads: make(map[string]*models.Upload),
		notes:   make(map[string]*models.Note),
		history: make(map[string][]models.Stage),
	}
}

func (s *Store) InsertUpload(_ context.Context, up *models.Upload) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if up.CreatedAt.IsZero() {
		up.CreatedAt = time.Now().UTC()
	}
	cp := *up
	s.uploads[up.ID] = &cp
	return nil
}

func (s *Store) FindUpload(_ context.Context, id string) (*models.Upload, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	up, ok := s.uploads[id]
	if !ok {
		return nil, store.ErrUploadNotFound
	}
	cp := *up
	return &cp, nil
}

func (s *Store) SetProgress(_ context.Context, id string, stage models.Stage, percent int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	up, ok := s.uploads[id]
	if !ok {
		return store.ErrUploadNotFound
	}
	if up.Status.Terminal() {
		return nil
	}
	up.Status = stage
	up.Progress = models.Progress{Stage: stage, Percent: percent}
	s.history[id] = append(s.history[id], stage)
	return nil
}

func (s *Store) MarkDone(_ context.Context, id, noteID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	up, ok := s.uploads[id]
	if !ok {
		return store.ErrUploadNotFound
	}
	if up.Status.Terminal() {
		return store.ErrUploadNotFound
	}
	up.Status = models.StageDone
	up.NoteID = noteID
	up.Progress = models.Progress{Stage: models.StageDone, Percent: 100}
	s.history[id] = append(s.history[id], models.StageDone)
	return nil
}

func (s *Store) MarkFailed(_ context.Context, id, cause string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	up, ok := s.uploads[id]
	if !ok {
		return store.ErrUploadNotFound
	}
	if up.Status.Terminal() {
		return store.ErrUploadNotFound
	}
	up.Status = models.StageFailed
	up.Error = cause
	s.history[id] = append(s.history[id], models.StageFailed)
	return nil
}

func (s *Store) InsertNote(_ context.Context, n *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	cp := *n
	s.notes[n.ID] = &cp
	return nil
}

func (s *Store) FindNote(_ context.Context, id string) (*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.notes[id]
	if !ok {
		return nil, store.ErrNoteNotFound
	}
	cp := *n
	return &cp, nil
}

func (s *Store) ListNotesByUser(_ context.Context, userID string, limit int) ([]*models.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var notes []*models.Note
	for _, n := range s.notes {
		if n.UserID == userID {
			cp := *n
			notes = append(notes, &cp)
		}
	}
	sort.Slice(notes, func(i, j int) bool {
		return notes[i].CreatedAt.After(notes[j].CreatedAt)
	})
	if limit > 0 && len(notes) > limit {
		notes = notes[:limit]
	}
	return notes, nil
}

// StageHistory returns the ordered stages recorded for an upload.
func (s *Store) StageHistory(id string) []models.Stage {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]models.Stage, len(s.history[id]))
	copy(out, s.history[id])
	return out
}

// NoteCount returns the number of stored notes.
func (s *Store) NoteCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notes)
}
