package thought

import (
	"context"
	"errors"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/utils/logging"
)

// Enrich runs the enrichment worker for one thought. Trigger delivery is
// at-least-once, so the first action is a status guard: anything other
// than a pending record with raw text is a no-op. Every failure after the
// guard ends in a single terminal store write; there are no retries here,
// recovery is the batch sweep's job.
func (u *UseCase) Enrich(ctx context.Context, id model.ThoughtID) error {
	logger := logging.From(ctx)

	t, err := u.repo.GetThought(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrThoughtNotFound) {
			logger.Debug("thought gone before enrichment", "id", id)
			return nil
		}
		return err
	}

	if t.Status != model.StatusPending {
		logger.Debug("skipping non-pending thought", "id", id, "status", t.Status)
		return nil
	}
	if t.RawText == "" {
		logger.Debug("skipping thought without raw text", "id", id)
		return nil
	}

	enrichment, err := u.ai.Enrich(ctx, t.RawText)
	if err != nil {
		logger.Warn("enrichment failed", "id", id, "error", err)
		return u.repo.MarkThoughtFailed(ctx, id, err.Error())
	}

	if err := u.repo.MarkThoughtProcessed(ctx, id, enrichment, ""); err != nil {
		return err
	}

	logger.Info("processed thought", "id", id, "title", enrichment.Title)
	return nil
}
