package waiter

import (
	"context"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/repository"
)

// State is the outcome of a bounded wait
type State string

const (
	StateResolvedSuccess State = "resolved-success"
	StateResolvedFailure State = "resolved-failure"
	StateTimedOut        State = "timed-out"
)

// Surface identifies a client surface. Each surface holds at most one
// outstanding wait; a new wait implicitly abandons the previous one.
type Surface string

const (
	SurfaceChat  Surface = "chat"
	SurfaceBatch Surface = "batch"
)

const (
	DefaultChatTimeout  = 30 * time.Second
	DefaultBatchTimeout = 60 * time.Second
)

// ErrAbandoned is returned to a wait superseded by a newer request on the
// same surface
var ErrAbandoned = goerr.New("wait abandoned by a newer request")

// Waiter races a per-document subscription against a timeout. The first
// terminal snapshot resolves the wait; the timer firing first reports
// timed-out without cancelling server-side work. The subscription is
// cancelled on every path.
type Waiter struct {
	repo         repository.Repository
	chatTimeout  time.Duration
	batchTimeout time.Duration

	mu     sync.Mutex
	active map[Surface]*subscription
}

type subscription struct {
	stop func()
}

// Option is a functional option for Waiter
type Option func(*Waiter)

// WithChatTimeout overrides the chat wait timeout
func WithChatTimeout(d time.Duration) Option {
	return func(w *Waiter) {
		w.chatTimeout = d
	}
}

// WithBatchTimeout overrides the batch wait timeout
func WithBatchTimeout(d time.Duration) Option {
	return func(w *Waiter) {
		w.batchTimeout = d
	}
}

// New creates a new Waiter
func New(repo repository.Repository, opts ...Option) *Waiter {
	w := &Waiter{
		repo:         repo,
		chatTimeout:  DefaultChatTimeout,
		batchTimeout: DefaultBatchTimeout,
		active:       make(map[Surface]*subscription),
	}

	for _, opt := range opts {
		opt(w)
	}

	return w
}

// claim registers the subscription for the surface, cancelling any prior
// wait still outstanding there
func (w *Waiter) claim(surface Surface, sub *subscription) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if prev := w.active[surface]; prev != nil {
		prev.stop()
	}
	w.active[surface] = sub
}

func (w *Waiter) release(surface Surface, sub *subscription) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.active[surface] == sub {
		delete(w.active, surface)
	}
}

// ChatOutcome is the result of waiting on a chat query
type ChatOutcome struct {
	State State
	Query *model.ChatQuery
}

// WaitChat blocks until the chat query reaches a terminal status or the
// chat timeout fires
func (w *Waiter) WaitChat(ctx context.Context, id model.ChatQueryID) (*ChatOutcome, error) {
	ch, stop, err := w.repo.WatchChatQuery(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to watch chat query")
	}

	sub := &subscription{stop: stop}
	w.claim(SurfaceChat, sub)
	defer w.release(SurfaceChat, sub)
	defer stop()

	timer := time.NewTimer(w.chatTimeout)
	defer timer.Stop()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return nil, ErrAbandoned
			}
			if !snap.Status.Terminal() {
				continue
			}
			state := StateResolvedSuccess
			if snap.Status == model.RequestFailed {
				state = StateResolvedFailure
			}
			return &ChatOutcome{State: state, Query: snap}, nil

		case <-timer.C:
			return &ChatOutcome{State: StateTimedOut}, nil

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

// BatchOutcome is the result of waiting on a batch request
type BatchOutcome struct {
	State   State
	Request *model.BatchRequest
}

// WaitBatch blocks until the batch request reaches a terminal status or
// the batch timeout fires
func (w *Waiter) WaitBatch(ctx context.Context, id model.BatchRequestID) (*BatchOutcome, error) {
	ch, stop, err := w.repo.WatchBatchRequest(ctx, id)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to watch batch request")
	}

	sub := &subscription{stop: stop}
	w.claim(SurfaceBatch, sub)
	defer w.release(SurfaceBatch, sub)
	defer stop()

	timer := time.NewTimer(w.batchTimeout)
	defer timer.Stop()

	for {
		select {
		case snap, ok := <-ch:
			if !ok {
				return nil, ErrAbandoned
			}
			if !snap.Status.Terminal() {
				continue
			}
			state := StateResolvedSuccess
			if snap.Status == model.RequestFailed {
				state = StateResolvedFailure
			}
			return &BatchOutcome{State: state, Request: snap}, nil

		case <-timer.C:
			return &BatchOutcome{State: StateTimedOut}, nil

		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}
