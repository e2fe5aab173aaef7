// Package models defines the persistent documents of the service: the Upload
// record tracking one submitted asset through the pipeline, and the Note
// holding the transcripts and final summary of a completed upload.
package models

import "time"

// Stage is one named step of the processing pipeline. An upload moves
// strictly forward through the stages; the only backward-looking transition
// is the terminal jump to StageFailed, allowed from any non-terminal stage.
type Stage string

const (
	StageUploaded     Stage = "uploaded"
	StageProcessing   Stage = "processing"
	StageExtracting   Stage = "extracting"
	StageExtracted    Stage = "extracted"
	StageTranscribing Stage = "transcribing"
	StageTranscribed  Stage = "transcribed"
	StageTranslating  Stage = "translating"
	StageTranslated   Stage = "translated"
	StageOptimized    Stage = "optimized"
	StageSummarizing  Stage = "summarizing"
	StageSummarized   Stage = "summarized"
	StageDone         Stage = "done"
	StageFailed       Stage = "failed"
)

// Terminal reports whether the stage is a terminal state.
func (s Stage) Terminal() bool {
	return s == StageDone || s == StageFailed
}

// Checkpoint returns the fixed progress percent reported for the stage.
// Stages report fixed checkpoints, not continuously computed values.
func (s Stage) Checkpoint() int {
	switch s {
	case StageUploaded:
		return 0
	case StageProcessing:
		return 5
	case StageExtracting:
		return 10
	case StageExtracted:
		return 20
	case StageTranscribing:
		return 30
	case StageTranscribed:
		return 45
	case StageTranslating:
		return 55
	case StageTranslated:
		return 65
	case StageOptimized:
		return 75
	case StageSummarizing:
		return 85
	case StageSummarized:
		return 95
	case StageDone:
		return 100
	default:
		return 0
	}
}

// Progress is the caller-visible progress of an upload.
type Progress struct {
	Stage   Stage `bson:"stage" json:"stage"`
	Percent int   `bson:"percent" json:"percent"`
}

// Upload is one submitted asset's processing run. Created at submission with
// StageUploaded, mutated at every stage boundary, immutable once terminal.
type Upload struct {
	ID             string    `bson:"_id" json:"upload_id"`
	UserID         string    `bson:"user_id" json:"-"`
	Filename       string    `bson:"filename" json:"filename"`
	Path           string    `bson:"path" json:"-"`
	SourceURL      string    `bson:"source_url,omitempty" json:"source_url,omitempty"`
	Language       string    `bson:"language" json:"language"`
	ExtractSeconds int       `bson:"extract_seconds" json:"extract_seconds"`
	Status         Stage     `bson:"status" json:"status"`
	Progress       Progress  `bson:"progress" json:"progress"`
	Error          string    `bson:"error,omitempty" json:"error,omitempty"`
	NoteID         string    `bson:"note_id,omitempty" json:"note_id,omitempty"`
	CreatedAt      time.Time `bson:"created_at" json:"created_at"`
}

// Note is the persisted output of a successfully completed upload. Created
// once, at final commit, and never mutated afterward. TranslatedTranscript is
// empty exactly when the detected language already matched the target.
type Note struct {
	ID                   string    `bson:"_id" json:"note_id"`
	UserID               string    `bson:"user_id" json:"-"`
	UploadID             string    `bson:"upload_id" json:"upload_id"`
	RawTranscript        string    `bson:"raw_transcript" json:"raw_transcript"`
	TranslatedTranscript string    `bson:"translated_transcript,omitempty" json:"translated_transcript,omitempty"`
	CleanedTranscript    string    `bson:"cleaned_transcript" json:"cleaned_transcript"`
	FinalNotes           string    `bson:"final_notes" json:"final_notes"`
	DetectedLanguage     string    `bson:"detected_language" json:"detected_language"`
	CreatedAt            time.Time `bson:"created_at" json:"created_at"`
}
