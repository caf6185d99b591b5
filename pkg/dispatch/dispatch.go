package dispatch

import (
	"context"
	"sync"

	"github.com/m-mizutani/goerr/v2"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/repository"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/utils/logging"
)

// ThoughtWorker enriches one thought record
type ThoughtWorker interface {
	Enrich(ctx context.Context, id model.ThoughtID) error
}

// ChatWorker answers one chat query record
type ChatWorker interface {
	Answer(ctx context.Context, id model.ChatQueryID) error
}

// BatchWorker reconciles one batch request record
type BatchWorker interface {
	Reconcile(ctx context.Context, id model.BatchRequestID) error
}

// Dispatcher is the trigger runtime: it watches each collection for
// pending records and invokes the bound worker once per event. The
// subscriptions deliver at-least-once, so exactly-once processing relies
// on the workers' own status guards. Workers for different records run in
// parallel with no ordering guarantee.
type Dispatcher struct {
	repo     repository.Repository
	thoughts ThoughtWorker
	chats    ChatWorker
	batches  BatchWorker
}

// New creates a new Dispatcher
func New(repo repository.Repository, thoughts ThoughtWorker, chats ChatWorker, batches BatchWorker) *Dispatcher {
	return &Dispatcher{
		repo:     repo,
		thoughts: thoughts,
		chats:    chats,
		batches:  batches,
	}
}

// Run blocks dispatching trigger events until ctx is cancelled. In-flight
// workers are waited for before returning.
func (d *Dispatcher) Run(ctx context.Context) error {
	logger := logging.From(ctx)

	thoughtCh, stopThoughts, err := d.repo.WatchPendingThoughts(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to watch pending thoughts")
	}
	defer stopThoughts()

	chatCh, stopChats, err := d.repo.WatchPendingChatQueries(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to watch pending chat queries")
	}
	defer stopChats()

	batchCh, stopBatches, err := d.repo.WatchPendingBatchRequests(ctx)
	if err != nil {
		return goerr.Wrap(err, "failed to watch pending batch requests")
	}
	defer stopBatches()

	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		select {
		case t, ok := <-thoughtCh:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := d.thoughts.Enrich(ctx, t.ID); err != nil {
					logger.Error("enrichment worker failed", "id", t.ID, "error", err)
				}
			}()

		case q, ok := <-chatCh:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := d.chats.Answer(ctx, q.ID); err != nil {
					logger.Error("chat worker failed", "id", q.ID, "error", err)
				}
			}()

		case b, ok := <-batchCh:
			if !ok {
				return nil
			}
			wg.Add(1)
			go func() {
				defer wg.Done()
				if err := d.batches.Reconcile(ctx, b.ID); err != nil {
					logger.Error("batch worker failed", "id", b.ID, "error", err)
				}
			}()

		case <-ctx.Done():
			return nil
		}
	}
}
