package repository

import (
	"context"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
)

// Repository defines the interface for thought data persistence. It doubles
// as the work queue: workers are driven by the Watch* subscriptions and
// report completion through the Mark* writes, each of which is a single
// atomic document update.
type Repository interface {
	// PutThought creates a new thought document
	PutThought(ctx context.Context, thought *model.Thought) error

	// GetThought retrieves a thought by ID
	GetThought(ctx context.Context, id model.ThoughtID) (*model.Thought, error)

	// DeleteThought removes a thought permanently
	DeleteThought(ctx context.Context, id model.ThoughtID) error

	// MarkThoughtProcessed writes the enrichment result and the terminal
	// processed status in one update. backfillOwner, when non-empty, assigns
	// an owner to a legacy document that has none.
	MarkThoughtProcessed(ctx context.Context, id model.ThoughtID, enrichment *model.Enrichment, backfillOwner string) error

	// MarkThoughtFailed writes the terminal failed status and error message
	MarkThoughtFailed(ctx context.Context, id model.ThoughtID, errMsg string) error

	// ListOwnerThoughts retrieves an owner's thoughts ordered by creation
	// time descending, ties broken by document ID
	ListOwnerThoughts(ctx context.Context, ownerID string, limit int) ([]*model.Thought, error)

	// ListProcessedThoughts retrieves an owner's processed thoughts, most
	// recent first
	ListProcessedThoughts(ctx context.Context, ownerID string, limit int) ([]*model.Thought, error)

	// ListUnprocessedThoughts retrieves all pending and failed thoughts
	// across every owner. This is the batch sweep source set.
	ListUnprocessedThoughts(ctx context.Context) ([]*model.Thought, error)

	// WatchPendingThoughts streams thoughts whose status is pending,
	// starting with the current set. Delivery is at-least-once.
	WatchPendingThoughts(ctx context.Context) (<-chan *model.Thought, func(), error)

	// PutChatQuery creates a new chat query document
	PutChatQuery(ctx context.Context, query *model.ChatQuery) error

	// GetChatQuery retrieves a chat query by ID
	GetChatQuery(ctx context.Context, id model.ChatQueryID) (*model.ChatQuery, error)

	// MarkChatCompleted writes the answer and terminal completed status
	MarkChatCompleted(ctx context.Context, id model.ChatQueryID, answer string) error

	// MarkChatFailed writes the terminal failed status and error message
	MarkChatFailed(ctx context.Context, id model.ChatQueryID, errMsg string) error

	// WatchChatQuery streams snapshots of a single chat query, firing
	// immediately with the current state and then on every change
	WatchChatQuery(ctx context.Context, id model.ChatQueryID) (<-chan *model.ChatQuery, func(), error)

	// WatchPendingChatQueries streams chat queries in pending status
	WatchPendingChatQueries(ctx context.Context) (<-chan *model.ChatQuery, func(), error)

	// PutBatchRequest creates a new batch request document
	PutBatchRequest(ctx context.Context, req *model.BatchRequest) error

	// GetBatchRequest retrieves a batch request by ID
	GetBatchRequest(ctx context.Context, id model.BatchRequestID) (*model.BatchRequest, error)

	// MarkBatchCompleted writes the sweep counts, summary message and
	// terminal completed status
	MarkBatchCompleted(ctx context.Context, id model.BatchRequestID, processed, failed int, message string) error

	// MarkBatchFailed writes the terminal failed status and error message
	MarkBatchFailed(ctx context.Context, id model.BatchRequestID, errMsg string) error

	// WatchBatchRequest streams snapshots of a single batch request
	WatchBatchRequest(ctx context.Context, id model.BatchRequestID) (<-chan *model.BatchRequest, func(), error)

	// WatchPendingBatchRequests streams batch requests in pending status
	WatchPendingBatchRequests(ctx context.Context) (<-chan *model.BatchRequest, func(), error)

	// Close releases the underlying client
	Close() error
}
