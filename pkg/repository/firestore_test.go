package repository_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/m-mizutani/gt"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/repository"
)

func setupFirestore(t *testing.T) *repository.Firestore {
	projectID := os.Getenv("TEST_FIRESTORE_PROJECT_ID")
	databaseID := os.Getenv("TEST_FIRESTORE_DATABASE_ID")

	if projectID == "" || databaseID == "" {
		t.Skip("TEST_FIRESTORE_PROJECT_ID and TEST_FIRESTORE_DATABASE_ID must be set to run Firestore tests")
	}

	repo, err := repository.New(context.Background(), projectID, databaseID)
	gt.NoError(t, err)
	t.Cleanup(func() { _ = repo.Close() })

	return repo
}

func TestFirestorePutThought(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	thought := &model.Thought{
		ID:      model.NewThoughtID(),
		OwnerID: "test-user",
		RawText: "firestore integration note",
		Status:  model.StatusPending,
		Source:  model.SourceTypeText,
	}

	gt.NoError(t, repo.PutThought(ctx, thought))
	t.Cleanup(func() { _ = repo.DeleteThought(ctx, thought.ID) })

	retrieved, err := repo.GetThought(ctx, thought.ID)
	gt.NoError(t, err)
	gt.Equal(t, retrieved.ID, thought.ID)
	gt.Equal(t, retrieved.OwnerID, thought.OwnerID)
	gt.Equal(t, retrieved.RawText, thought.RawText)
	gt.Equal(t, retrieved.Status, model.StatusPending)
}

func TestFirestoreGetThoughtNotFound(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	_, err := repo.GetThought(ctx, model.ThoughtID("non-existent-thought"))
	gt.Error(t, err)
	gt.True(t, errors.Is(err, model.ErrThoughtNotFound))
}

func TestFirestoreMarkThoughtProcessed(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	thought := &model.Thought{
		ID:      model.NewThoughtID(),
		OwnerID: "test-user",
		RawText: "to be enriched",
		Status:  model.StatusPending,
	}
	gt.NoError(t, repo.PutThought(ctx, thought))
	t.Cleanup(func() { _ = repo.DeleteThought(ctx, thought.ID) })

	enrichment := &model.Enrichment{
		Title:    "Enriched",
		Summary:  "An enriched note.",
		Keywords: []string{"one", "two", "three"},
	}
	gt.NoError(t, repo.MarkThoughtProcessed(ctx, thought.ID, enrichment, ""))

	retrieved, err := repo.GetThought(ctx, thought.ID)
	gt.NoError(t, err)
	gt.Equal(t, retrieved.Status, model.StatusProcessed)
	gt.Equal(t, retrieved.Title, "Enriched")
	gt.A(t, retrieved.Keywords).Length(3)
	gt.V(t, retrieved.ProcessedAt).NotNil()
}

func TestFirestoreChatQueryLifecycle(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	query := &model.ChatQuery{
		ID:        model.NewChatQueryID(),
		OwnerID:   "test-user",
		QueryText: "what did I write?",
		Status:    model.RequestPending,
	}
	gt.NoError(t, repo.PutChatQuery(ctx, query))

	gt.NoError(t, repo.MarkChatCompleted(ctx, query.ID, "you wrote a note"))

	retrieved, err := repo.GetChatQuery(ctx, query.ID)
	gt.NoError(t, err)
	gt.Equal(t, retrieved.Status, model.RequestCompleted)
	gt.Equal(t, retrieved.Answer, "you wrote a note")
	gt.V(t, retrieved.CompletedAt).NotNil()
}

func TestFirestoreBatchRequestLifecycle(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	req := &model.BatchRequest{
		ID:      model.NewBatchRequestID(),
		OwnerID: "test-user",
		Status:  model.RequestPending,
	}
	gt.NoError(t, repo.PutBatchRequest(ctx, req))

	gt.NoError(t, repo.MarkBatchCompleted(ctx, req.ID, 2, 0, model.SweepSummary(2, 0)))

	retrieved, err := repo.GetBatchRequest(ctx, req.ID)
	gt.NoError(t, err)
	gt.Equal(t, retrieved.Status, model.RequestCompleted)
	gt.Equal(t, retrieved.ProcessedCount, 2)
	gt.Equal(t, retrieved.Message, "Processed 2 thoughts. 0 failed.")
}

func TestFirestoreWatchChatQuery(t *testing.T) {
	repo := setupFirestore(t)
	ctx := context.Background()

	query := &model.ChatQuery{
		ID:        model.NewChatQueryID(),
		OwnerID:   "test-user",
		QueryText: "watch me",
		Status:    model.RequestPending,
	}
	gt.NoError(t, repo.PutChatQuery(ctx, query))

	ch, stop, err := repo.WatchChatQuery(ctx, query.ID)
	gt.NoError(t, err)
	defer stop()

	first := <-ch
	gt.Equal(t, first.Status, model.RequestPending)

	gt.NoError(t, repo.MarkChatFailed(ctx, query.ID, "boom"))

	for snap := range ch {
		if snap.Status.Terminal() {
			gt.Equal(t, snap.Status, model.RequestFailed)
			gt.Equal(t, snap.ErrorMsg, "boom")
			return
		}
	}
	t.Fatal("watch channel closed before terminal snapshot")
}
