package memory

import (
	"context"
	"errors"
	"testing"

	"github.com/talktotext/talktotext/internal/models"
	"github.com/talktotext/talktotext/internal/store"
)

func newUpload(id string) *models.Upload {
	return &models.Upload{
		ID:       id,
		UserID:   "user-1",
		Status:   models.StageUploaded,
		Progress: models.Progress{Stage: models.StageUploaded, Percent: 0},
	}
}

func TestInsertAndFindUpload(t *testing.T) {
	ctx := context.Background()
	s := New()

	if err := s.InsertUpload(ctx, newUpload("u1")); err != nil {
		t.Fatalf("InsertUpload() error = %v", err)
	}

	up, err := s.FindUpload(ctx, "u1")
	if err != nil {
		t.Fatalf("FindUpload() error = %v", err)
	}
	if up.Status != models.StageUploaded {
		t.Errorf("Status = %q, want uploaded", up.Status)
	}

	if _, err := s.FindUpload(ctx, "missing"); !errors.Is(err, store.ErrUploadNotFound) {
		t.Errorf("FindUpload(missing) error = %v, want ErrUploadNotFound", err)
	}
}

func TestProgressMonotonicAndTerminalGuard(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.InsertUpload(ctx, newUpload("u1")); err != nil {
		t.Fatal(err)
	}

	stages := []struct {
		stage   models.Stage
		percent int
	}{
		{models.StageProcessing, 5},
		{models.StageTranscribing, 30},
		{models.StageTranscribed, 45},
		{models.StageOptimized, 75},
	}

	last := -1
	for _, st := range stages {
		if err := s.SetProgress(ctx, "u1", st.stage, st.percent); err != nil {
			t.Fatalf("SetProgress(%s) error = %v", st.stage, err)
		}
		up, _ := s.FindUpload(ctx, "u1")
		if up.Progress.Percent < last {
			t.Errorf("percent regressed: %d < %d", up.Progress.Percent, last)
		}
		last = up.Progress.Percent
	}

	if err := s.MarkDone(ctx, "u1", "n1"); err != nil {
		t.Fatalf("MarkDone() error = %v", err)
	}

	// A stale progress write racing behind the terminal transition is dropped.
	if err := s.SetProgress(ctx, "u1", models.StageSummarizing, 85); err != nil {
		t.Fatalf("SetProgress after done error = %v", err)
	}
	up, _ := s.FindUpload(ctx, "u1")
	if up.Status != models.StageDone || up.Progress.Percent != 100 {
		t.Errorf("terminal state overwritten: status=%q percent=%d", up.Status, up.Progress.Percent)
	}

	// The terminal transition itself is written exactly once.
	if err := s.MarkFailed(ctx, "u1", "boom"); err == nil {
		t.Error("MarkFailed after done should error")
	}
	up, _ = s.FindUpload(ctx, "u1")
	if up.Error != "" {
		t.Errorf("Error = %q, want empty after done", up.Error)
	}
}

func TestMarkFailed(t *testing.T) {
	ctx := context.Background()
	s := New()
	if err := s.InsertUpload(ctx, newUpload("u1")); err != nil {
		t.Fatal(err)
	}

	if err := s.MarkFailed(ctx, "u1", "provider exploded"); err != nil {
		t.Fatalf("MarkFailed() error = %v", err)
	}

	up, _ := s.FindUpload(ctx, "u1")
	if up.Status != models.StageFailed {
		t.Errorf("Status = %q, want failed", up.Status)
	}
	if up.Error != "provider exploded" {
		t.Errorf("Error = %q", up.Error)
	}
	if up.NoteID != "" {
		t.Errorf("NoteID = %q, want empty on failure", up.NoteID)
	}
}

func TestNotesListSortedAndLimited(t *testing.T) {
	ctx := context.Background()
	s := New()

	for _, id := range []string{"n1", "n2", "n3"} {
		if err := s.InsertNote(ctx, &models.Note{ID: id, UserID: "user-1", UploadID: "u-" + id}); err != nil {
			t.Fatal(err)
		}
	}
	if err := s.InsertNote(ctx, &models.Note{ID: "other", UserID: "user-2"}); err != nil {
		t.Fatal(err)
	}

	notes, err := s.ListNotesByUser(ctx, "user-1", 2)
	if err != nil {
		t.Fatalf("ListNotesByUser() error = %v", err)
	}
	if len(notes) != 2 {
		t.Fatalf("len(notes) = %d, want 2", len(notes))
	}
	for _, n := range notes {
		if n.UserID != "user-1" {
			t.Errorf("leaked note for %q", n.UserID)
		}
	}

	if _, err := s.FindNote(ctx, "missing"); !errors.Is(err, store.ErrNoteNotFound) {
		t.Errorf("FindNote(missing) error = %v, want ErrNoteNotFound", err)
	}
}
