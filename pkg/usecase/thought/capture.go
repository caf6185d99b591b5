package thought

import (
	"context"
	"strings"

	"github.com/m-mizutani/goerr/v2"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
)

// Capture creates a pending thought record. Enrichment happens
// asynchronously once the creation event reaches the worker.
func (u *UseCase) Capture(ctx context.Context, ownerID, rawText string) (*model.Thought, error) {
	if ownerID == "" {
		return nil, goerr.New("owner ID is required")
	}
	if strings.TrimSpace(rawText) == "" {
		return nil, goerr.New("raw text is empty")
	}

	t := &model.Thought{
		ID:      model.NewThoughtID(),
		OwnerID: ownerID,
		RawText: rawText,
		Status:  model.StatusPending,
		Source:  model.SourceTypeText,
	}

	if err := u.repo.PutThought(ctx, t); err != nil {
		return nil, goerr.Wrap(err, "failed to save thought")
	}

	return t, nil
}

// List retrieves the owner's thoughts, most recent first
func (u *UseCase) List(ctx context.Context, ownerID string, limit int) ([]*model.Thought, error) {
	return u.repo.ListOwnerThoughts(ctx, ownerID, limit)
}

// Delete removes a thought permanently. This is the only way a thought
// ever leaves the store.
func (u *UseCase) Delete(ctx context.Context, id model.ThoughtID) error {
	return u.repo.DeleteThought(ctx, id)
}
