package waiter_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/m-mizutani/gt"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/repository"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/usecase/waiter"
)

func putPendingChat(t *testing.T, repo *repository.Memory) *model.ChatQuery {
	t.Helper()
	q := &model.ChatQuery{
		ID:        model.NewChatQueryID(),
		OwnerID:   "user-1",
		QueryText: "what did I write?",
		Status:    model.RequestPending,
	}
	gt.NoError(t, repo.PutChatQuery(context.Background(), q))
	return q
}

func putPendingBatch(t *testing.T, repo *repository.Memory) *model.BatchRequest {
	t.Helper()
	req := &model.BatchRequest{
		ID:      model.NewBatchRequestID(),
		OwnerID: "user-1",
		Status:  model.RequestPending,
	}
	gt.NoError(t, repo.PutBatchRequest(context.Background(), req))
	return req
}

func TestWaitChatResolvesSuccess(t *testing.T) {
	repo := repository.NewMemory()
	w := waiter.New(repo)
	ctx := context.Background()

	q := putPendingChat(t, repo)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = repo.MarkChatCompleted(ctx, q.ID, "here is your answer")
	}()

	outcome, err := w.WaitChat(ctx, q.ID)
	gt.NoError(t, err)
	gt.Equal(t, outcome.State, waiter.StateResolvedSuccess)
	gt.Equal(t, outcome.Query.Answer, "here is your answer")

	// Every resolution path cancels its subscription
	gt.Equal(t, repo.WatcherCount(), 0)
}

func TestWaitChatResolvesFailure(t *testing.T) {
	repo := repository.NewMemory()
	w := waiter.New(repo)
	ctx := context.Background()

	q := putPendingChat(t, repo)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = repo.MarkChatFailed(ctx, q.ID, "boom")
	}()

	outcome, err := w.WaitChat(ctx, q.ID)
	gt.NoError(t, err)
	gt.Equal(t, outcome.State, waiter.StateResolvedFailure)
	gt.Equal(t, outcome.Query.ErrorMsg, "boom")
	gt.Equal(t, repo.WatcherCount(), 0)
}

func TestWaitChatAlreadyTerminal(t *testing.T) {
	repo := repository.NewMemory()
	w := waiter.New(repo)
	ctx := context.Background()

	q := putPendingChat(t, repo)
	gt.NoError(t, repo.MarkChatCompleted(ctx, q.ID, "done before the wait"))

	// The immediate first snapshot resolves without any further writes
	outcome, err := w.WaitChat(ctx, q.ID)
	gt.NoError(t, err)
	gt.Equal(t, outcome.State, waiter.StateResolvedSuccess)
	gt.Equal(t, outcome.Query.Answer, "done before the wait")
}

func TestWaitChatTimesOut(t *testing.T) {
	repo := repository.NewMemory()
	w := waiter.New(repo, waiter.WithChatTimeout(30*time.Millisecond))
	ctx := context.Background()

	q := putPendingChat(t, repo)

	outcome, err := w.WaitChat(ctx, q.ID)
	gt.NoError(t, err)
	gt.Equal(t, outcome.State, waiter.StateTimedOut)

	// Timing out reports status, it does not cancel the server-side work:
	// the record is still there and still pending
	stored, err := repo.GetChatQuery(ctx, q.ID)
	gt.NoError(t, err)
	gt.Equal(t, stored.Status, model.RequestPending)

	gt.Equal(t, repo.WatcherCount(), 0)
}

func TestWaitChatSuperseded(t *testing.T) {
	repo := repository.NewMemory()
	w := waiter.New(repo, waiter.WithChatTimeout(time.Second))
	ctx := context.Background()

	first := putPendingChat(t, repo)
	second := putPendingChat(t, repo)

	firstErr := make(chan error, 1)
	go func() {
		_, err := w.WaitChat(ctx, first.ID)
		firstErr <- err
	}()

	time.Sleep(20 * time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = repo.MarkChatCompleted(ctx, second.ID, "second answer")
	}()

	// A new wait on the same surface abandons the first
	outcome, err := w.WaitChat(ctx, second.ID)
	gt.NoError(t, err)
	gt.Equal(t, outcome.State, waiter.StateResolvedSuccess)

	err = <-firstErr
	gt.Error(t, err)
	gt.True(t, errors.Is(err, waiter.ErrAbandoned))

	gt.Equal(t, repo.WatcherCount(), 0)
}

func TestWaitChatContextCancelled(t *testing.T) {
	repo := repository.NewMemory()
	w := waiter.New(repo)

	q := putPendingChat(t, repo)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := w.WaitChat(ctx, q.ID)
	gt.Error(t, err)
	gt.Equal(t, repo.WatcherCount(), 0)
}

func TestWaitBatchResolvesSuccess(t *testing.T) {
	repo := repository.NewMemory()
	w := waiter.New(repo)
	ctx := context.Background()

	req := putPendingBatch(t, repo)

	go func() {
		time.Sleep(10 * time.Millisecond)
		_ = repo.MarkBatchCompleted(ctx, req.ID, 4, 1, model.SweepSummary(4, 1))
	}()

	outcome, err := w.WaitBatch(ctx, req.ID)
	gt.NoError(t, err)
	gt.Equal(t, outcome.State, waiter.StateResolvedSuccess)
	gt.Equal(t, outcome.Request.Message, "Processed 4 thoughts. 1 failed.")
	gt.Equal(t, repo.WatcherCount(), 0)
}

func TestWaitBatchTimesOut(t *testing.T) {
	repo := repository.NewMemory()
	w := waiter.New(repo, waiter.WithBatchTimeout(30*time.Millisecond))
	ctx := context.Background()

	req := putPendingBatch(t, repo)

	outcome, err := w.WaitBatch(ctx, req.ID)
	gt.NoError(t, err)
	gt.Equal(t, outcome.State, waiter.StateTimedOut)
	gt.Equal(t, repo.WatcherCount(), 0)
}

func TestChatAndBatchSurfacesIndependent(t *testing.T) {
	repo := repository.NewMemory()
	w := waiter.New(repo, waiter.WithChatTimeout(time.Second), waiter.WithBatchTimeout(time.Second))
	ctx := context.Background()

	q := putPendingChat(t, repo)
	req := putPendingBatch(t, repo)

	chatErr := make(chan error, 1)
	go func() {
		_, err := w.WaitChat(ctx, q.ID)
		chatErr <- err
	}()

	time.Sleep(20 * time.Millisecond)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = repo.MarkBatchCompleted(ctx, req.ID, 1, 0, model.SweepSummary(1, 0))
		_ = repo.MarkChatCompleted(ctx, q.ID, "still here")
	}()

	// Waiting on the batch surface must not abandon the chat wait
	outcome, err := w.WaitBatch(ctx, req.ID)
	gt.NoError(t, err)
	gt.Equal(t, outcome.State, waiter.StateResolvedSuccess)

	gt.NoError(t, <-chatErr)
	gt.Equal(t, repo.WatcherCount(), 0)
}
