package batch

import (
	"context"
	"errors"

	"github.com/m-mizutani/goerr/v2"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/repository"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/service/ai"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/utils/logging"
)

// UseCase provides the batch reconciler: a full sweep over all
// non-terminal thoughts, re-running enrichment for each.
type UseCase struct {
	repo repository.Repository
	ai   *ai.Service
}

// New creates a new batch UseCase instance
func New(repo repository.Repository, svc *ai.Service) *UseCase {
	return &UseCase{
		repo: repo,
		ai:   svc,
	}
}

// Request creates a pending batch request record
func (u *UseCase) Request(ctx context.Context, ownerID string) (*model.BatchRequest, error) {
	req := &model.BatchRequest{
		ID:      model.NewBatchRequestID(),
		OwnerID: ownerID,
		Status:  model.RequestPending,
	}

	if err := u.repo.PutBatchRequest(ctx, req); err != nil {
		return nil, goerr.Wrap(err, "failed to save batch request")
	}

	return req, nil
}

// Reconcile runs the reconciler worker for one batch request. Guarded
// against repeated trigger delivery; the request always reaches a terminal
// state, either with sweep counts or with the top-level error.
func (u *UseCase) Reconcile(ctx context.Context, id model.BatchRequestID) error {
	logger := logging.From(ctx)

	req, err := u.repo.GetBatchRequest(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrBatchRequestNotFound) {
			logger.Debug("batch request gone before reconciling", "id", id)
			return nil
		}
		return err
	}

	if req.Status != model.RequestPending {
		logger.Debug("skipping non-pending batch request", "id", id, "status", req.Status)
		return nil
	}

	if req.OwnerID == "" {
		return u.repo.MarkBatchFailed(ctx, id, "Missing userId")
	}

	processed, failed, err := u.Sweep(ctx, req.OwnerID)
	if err != nil {
		logger.Warn("batch sweep failed", "id", id, "error", err)
		return u.repo.MarkBatchFailed(ctx, id, err.Error())
	}

	if err := u.repo.MarkBatchCompleted(ctx, id, processed, failed, model.SweepSummary(processed, failed)); err != nil {
		return err
	}

	logger.Info("batch request completed", "id", id, "processed", processed, "failed", failed)
	return nil
}

// Sweep re-runs enrichment for every pending or failed thought in the
// store. The scan is system-wide on purpose: legacy thoughts without an
// owner are adopted by the requester. Thoughts are handled one at a time
// to bound concurrent load on the model, so total latency is linear in
// backlog size. Records without raw text are skipped and not counted.
func (u *UseCase) Sweep(ctx context.Context, requesterID string) (processed, failed int, err error) {
	logger := logging.From(ctx)

	thoughts, listErr := u.repo.ListUnprocessedThoughts(ctx)
	if listErr != nil {
		return 0, 0, goerr.Wrap(listErr, "failed to list unprocessed thoughts")
	}

	for _, scanned := range thoughts {
		// Re-read before the model call: the enrichment worker may have
		// completed or deleted the record since the scan
		t, getErr := u.repo.GetThought(ctx, scanned.ID)
		if getErr != nil {
			if errors.Is(getErr, model.ErrThoughtNotFound) {
				continue
			}
			logger.Warn("failed to re-read thought during sweep", "id", scanned.ID, "error", getErr)
			failed++
			continue
		}
		if t.Status == model.StatusProcessed {
			continue
		}
		if t.RawText == "" {
			continue
		}

		enrichment, enrichErr := u.ai.Enrich(ctx, t.RawText)
		if enrichErr != nil {
			logger.Warn("batch enrichment failed", "id", t.ID, "error", enrichErr)
			if markErr := u.repo.MarkThoughtFailed(ctx, t.ID, enrichErr.Error()); markErr != nil {
				logger.Error("failed to record batch failure", "id", t.ID, "error", markErr)
			}
			failed++
			continue
		}

		backfill := ""
		if t.OwnerID == "" {
			backfill = requesterID
		}

		if markErr := u.repo.MarkThoughtProcessed(ctx, t.ID, enrichment, backfill); markErr != nil {
			logger.Error("failed to record batch result", "id", t.ID, "error", markErr)
			failed++
			continue
		}
		processed++
	}

	return processed, failed, nil
}
