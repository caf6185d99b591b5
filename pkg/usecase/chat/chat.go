package chat

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/repository"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/service/ai"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/utils/logging"
)

// contextWindow caps the number of thoughts rendered into the prompt. Not
// configurable per call: it bounds both prompt size and latency.
const contextWindow = 20

// emptyCorpusAnswer is the canned reply when the owner has no processed
// thoughts. An empty corpus is a normal state, not a failure.
const emptyCorpusAnswer = "You don't have any processed thoughts yet. Try recording some thoughts first!"

// UseCase provides conversational querying over processed thoughts
type UseCase struct {
	repo repository.Repository
	ai   *ai.Service
}

// New creates a new chat UseCase instance
func New(repo repository.Repository, svc *ai.Service) *UseCase {
	return &UseCase{
		repo: repo,
		ai:   svc,
	}
}

// Ask creates a pending chat query record
func (u *UseCase) Ask(ctx context.Context, ownerID, queryText string) (*model.ChatQuery, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, goerr.New("query text is empty")
	}

	q := &model.ChatQuery{
		ID:        model.NewChatQueryID(),
		OwnerID:   ownerID,
		QueryText: queryText,
		Status:    model.RequestPending,
	}

	if err := u.repo.PutChatQuery(ctx, q); err != nil {
		return nil, goerr.Wrap(err, "failed to save chat query")
	}

	return q, nil
}

// Answer runs the query worker for one chat query. The guard makes
// repeated trigger delivery a no-op; every failure path ends in a terminal
// store write.
func (u *UseCase) Answer(ctx context.Context, id model.ChatQueryID) error {
	logger := logging.From(ctx)

	q, err := u.repo.GetChatQuery(ctx, id)
	if err != nil {
		if errors.Is(err, model.ErrChatQueryNotFound) {
			logger.Debug("chat query gone before answering", "id", id)
			return nil
		}
		return err
	}

	if q.Status != model.RequestPending {
		logger.Debug("skipping non-pending chat query", "id", id, "status", q.Status)
		return nil
	}

	if q.QueryText == "" || q.OwnerID == "" {
		return u.repo.MarkChatFailed(ctx, id, "Missing query or userId")
	}

	thoughts, err := u.repo.ListProcessedThoughts(ctx, q.OwnerID, contextWindow)
	if err != nil {
		logger.Warn("failed to load context thoughts", "id", id, "error", err)
		return u.repo.MarkChatFailed(ctx, id, err.Error())
	}

	if len(thoughts) == 0 {
		return u.repo.MarkChatCompleted(ctx, id, emptyCorpusAnswer)
	}

	lines := make([]string, 0, len(thoughts))
	for _, t := range thoughts {
		lines = append(lines, contextLine(t))
	}

	answer, err := u.ai.Answer(ctx, q.QueryText, lines)
	if err != nil {
		logger.Warn("failed to answer chat query", "id", id, "error", err)
		return u.repo.MarkChatFailed(ctx, id, err.Error())
	}

	if err := u.repo.MarkChatCompleted(ctx, id, answer); err != nil {
		return err
	}

	logger.Info("answered chat query", "id", id, "context_size", len(thoughts))
	return nil
}

// contextLine renders one thought as a single grounding line for the
// prompt
func contextLine(t *model.Thought) string {
	title := t.Title
	if title == "" {
		title = "Untitled"
	}

	body := t.Summary
	if body == "" {
		body = t.RawText
	}

	return fmt.Sprintf("- [%s] %s: %s (Keywords: %s)",
		t.CreatedAt.UTC().Format(time.RFC3339),
		title,
		body,
		strings.Join(t.Keywords, ", "),
	)
}
