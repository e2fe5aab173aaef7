// Package pipeline drives one upload through the processing stages:
// extraction, transcription, translation, cleaning, budget trimming and
// summarization, committing a Note on success. One invocation is
// all-or-nothing; no stage retries internally, and a failed upload is only
// re-run by a fresh submission under a new id.
package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/talktotext/talktotext/internal/logger"
	"github.com/talktotext/talktotext/internal/media"
	"github.com/talktotext/talktotext/internal/models"
	"github.com/talktotext/talktotext/internal/provider"
	"github.com/talktotext/talktotext/internal/store"
	"github.com/talktotext/talktotext/internal/translate"
)

// Config holds the pipeline tunables.
type Config struct {
	TargetLanguage string // language of the final notes, "en"
	MaxTokens      int    // transcript budget for the summarization prompt
	ExtractSeconds int    // default clip length for video sources
}

// Pipeline orchestrates the stage sequence for uploads. Safe for concurrent
// use; each Process call runs one upload to completion on the calling
// goroutine.
type Pipeline struct {
	cfg         Config
	store       store.Store
	transcriber provider.Transcriber
	summarizer  provider.Summarizer
	translator  *translate.Translator
	extractor   media.Extractor
	reporter    *Reporter
	logger      logger.Logger
}

// New creates a Pipeline.
func New(
	cfg Config,
	st store.Store,
	transcriber provider.Transcriber,
	summarizer provider.Summarizer,
	translator *translate.Translator,
	extractor media.Extractor,
	log logger.Logger,
) *Pipeline {
	if cfg.TargetLanguage == "" {
		cfg.TargetLanguage = "en"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 3000
	}
	if cfg.ExtractSeconds == 0 {
		cfg.ExtractSeconds = 120
	}
	return &Pipeline{
		cfg:         cfg,
		store:       st,
		transcriber: transcriber,
		summarizer:  summarizer,
		translator:  translator,
		extractor:   extractor,
		reporter:    NewReporter(st, log),
		logger:      log,
	}
}

// Process runs the full stage sequence for one upload and returns the id of
// the committed Note. On any error the upload is marked failed with the
// error's message verbatim and the error is returned to the caller or task
// runner.
func (p *Pipeline) Process(ctx context.Context, up *models.Upload) (noteID string, err error) {
	start := time.Now()
	p.logger.Info(ctx, "Processing upload %s (%s)", up.ID, up.Filename)

	defer func() {
		if err == nil {
			return
		}
		// The failure record must land even when ctx was cancelled.
		failCtx := context.WithoutCancel(ctx)
		if markErr := p.store.MarkFailed(failCtx, up.ID, err.Error()); markErr != nil {
			p.logger.Error(ctx, "failed to record failure for upload %s: %v", up.ID, markErr)
		}
	}()

	p.reporter.Report(ctx, up.ID, models.StageProcessing)

	audioPath := up.Path
	if media.IsVideo(audioPath) {
		p.reporter.Report(ctx, up.ID, models.StageExtracting)

		seconds := up.ExtractSeconds
		if seconds <= 0 {
			seconds = p.cfg.ExtractSeconds
		}
		audioPath, err = p.extractor.Extract(ctx, audioPath, seconds)
		if err != nil {
			return "", err
		}
		p.reporter.Report(ctx, up.ID, models.StageExtracted)
	}

	p.reporter.Report(ctx, up.ID, models.StageTranscribing)
	transcript, detectedLang, err := p.transcriber.Transcribe(ctx, audioPath, up.Language)
	if err != nil {
		return "", err
	}
	p.reporter.Report(ctx, up.ID, models.StageTranscribed)

	translated := transcript
	didTranslate := false
	if !strings.EqualFold(detectedLang, p.cfg.TargetLanguage) {
		p.reporter.Report(ctx, up.ID, models.StageTranslating)
		translated = p.translator.Translate(ctx, transcript, detectedLang, p.cfg.TargetLanguage)
		didTranslate = true
		p.reporter.Report(ctx, up.ID, models.StageTranslated)
	}

	cleaned := Clean(translated)
	optimized, err := Optimize(cleaned, p.cfg.MaxTokens)
	if err != nil {
		return "", err
	}
	p.reporter.Report(ctx, up.ID, models.StageOptimized)

	p.reporter.Report(ctx, up.ID, models.StageSummarizing)
	finalNotes, err := p.summarizer.Summarize(ctx, optimized)
	if err != nil {
		return "", err
	}
	p.reporter.Report(ctx, up.ID, models.StageSummarized)

	note := &models.Note{
		ID:                uuid.NewString(),
		UserID:            up.UserID,
		UploadID:          up.ID,
		RawTranscript:     transcript,
		CleanedTranscript: optimized,
		FinalNotes:        finalNotes,
		DetectedLanguage:  detectedLang,
		CreatedAt:         time.Now().UTC(),
	}
	if didTranslate {
		note.TranslatedTranscript = translated
	}

	// The note is inserted before the terminal transition so no observer
	// sees done without a resolvable note.
	if err = p.store.InsertNote(ctx, note); err != nil {
		return "", err
	}
	if err = p.store.MarkDone(ctx, up.ID, note.ID); err != nil {
		return "", err
	}

	p.logger.Info(ctx, "Upload %s done in %s, note %s", up.ID, time.Since(start), note.ID)
	return note.ID, nil
}
