package pipeline

import (
	"context"

	"github.com/talktotext/talktotext/internal/logger"
	"github.com/talktotext/talktotext/internal/models"
	"github.com/talktotext/talktotext/internal/store"
)

// Reporter records stage checkpoints against upload records. Reporting is
// best-effort: a failed write is logged and discarded, never propagated, so
// observability cannot alter the pipeline outcome.
type Reporter struct {
	store  store.Store
	logger logger.Logger
}

// NewReporter creates a Reporter on the given store.
func NewReporter(st store.Store, log logger.Logger) *Reporter {
	return &Reporter{store: st, logger: log}
}

// Report writes the stage and its fixed checkpoint percent.
func (r *Reporter) Report(ctx context.Context, uploadID string, stage models.Stage) {
	if err := r.store.SetProgress(ctx, uploadID, stage, stage.Checkpoint()); err != nil {
		r.logger.Warn(ctx, "progress update %s/%s dropped: %v", uploadID, stage, err)
	}
}
