package repository

import (
	"context"

	"cloud.google.com/go/firestore"
	"github.com/m-mizutani/goerr/v2"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
)

const (
	collectionThoughts      = "user_thoughts"
	collectionChatQueries   = "chat_queries"
	collectionBatchRequests = "batch_requests"
)

// Firestore implements Repository using Cloud Firestore
type Firestore struct {
	client *firestore.Client
}

var _ Repository = (*Firestore)(nil)

// New creates a new Firestore repository
func New(ctx context.Context, projectID, databaseID string) (*Firestore, error) {
	client, err := firestore.NewClientWithDatabase(ctx, projectID, databaseID)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create firestore client")
	}

	return &Firestore{client: client}, nil
}

func (r *Firestore) Close() error {
	return r.client.Close()
}

func (r *Firestore) PutThought(ctx context.Context, thought *model.Thought) error {
	if thought.ID == "" {
		thought.ID = model.NewThoughtID()
	}
	ref := r.client.Collection(collectionThoughts).Doc(string(thought.ID))
	if _, err := ref.Create(ctx, thought); err != nil {
		return goerr.Wrap(err, "failed to create thought", goerr.Value("id", thought.ID))
	}
	return nil
}

func (r *Firestore) GetThought(ctx context.Context, id model.ThoughtID) (*model.Thought, error) {
	snap, err := r.client.Collection(collectionThoughts).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrThoughtNotFound, "no such document", goerr.Value("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get thought", goerr.Value("id", id))
	}
	return decodeThought(snap)
}

func (r *Firestore) DeleteThought(ctx context.Context, id model.ThoughtID) error {
	if _, err := r.client.Collection(collectionThoughts).Doc(string(id)).Delete(ctx); err != nil {
		return goerr.Wrap(err, "failed to delete thought", goerr.Value("id", id))
	}
	return nil
}

func (r *Firestore) MarkThoughtProcessed(ctx context.Context, id model.ThoughtID, enrichment *model.Enrichment, backfillOwner string) error {
	updates := []firestore.Update{
		{Path: "ai_title", Value: enrichment.Title},
		{Path: "ai_summary", Value: enrichment.Summary},
		{Path: "keywords", Value: enrichment.Keywords},
		{Path: "ai_status", Value: string(model.StatusProcessed)},
		{Path: "processed_at", Value: firestore.ServerTimestamp},
	}
	if backfillOwner != "" {
		updates = append(updates, firestore.Update{Path: "userId", Value: backfillOwner})
	}

	ref := r.client.Collection(collectionThoughts).Doc(string(id))
	if _, err := ref.Update(ctx, updates); err != nil {
		return goerr.Wrap(err, "failed to mark thought processed", goerr.Value("id", id))
	}
	return nil
}

func (r *Firestore) MarkThoughtFailed(ctx context.Context, id model.ThoughtID, errMsg string) error {
	ref := r.client.Collection(collectionThoughts).Doc(string(id))
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "ai_status", Value: string(model.StatusFailed)},
		{Path: "error_message", Value: errMsg},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to mark thought failed", goerr.Value("id", id))
	}
	return nil
}

func (r *Firestore) ListOwnerThoughts(ctx context.Context, ownerID string, limit int) ([]*model.Thought, error) {
	q := r.client.Collection(collectionThoughts).
		Where("userId", "==", ownerID).
		OrderBy("timestamp", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.queryThoughts(ctx, q)
}

func (r *Firestore) ListProcessedThoughts(ctx context.Context, ownerID string, limit int) ([]*model.Thought, error) {
	q := r.client.Collection(collectionThoughts).
		Where("userId", "==", ownerID).
		Where("ai_status", "==", string(model.StatusProcessed)).
		OrderBy("timestamp", firestore.Desc).
		OrderBy(firestore.DocumentID, firestore.Asc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return r.queryThoughts(ctx, q)
}

func (r *Firestore) ListUnprocessedThoughts(ctx context.Context) ([]*model.Thought, error) {
	// System-wide on purpose: the sweep also recovers legacy documents that
	// have no owner.
	q := r.client.Collection(collectionThoughts).
		Where("ai_status", "in", []string{string(model.StatusPending), string(model.StatusFailed)})
	return r.queryThoughts(ctx, q)
}

func (r *Firestore) queryThoughts(ctx context.Context, q firestore.Query) ([]*model.Thought, error) {
	iter := q.Documents(ctx)
	defer iter.Stop()

	var thoughts []*model.Thought
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, goerr.Wrap(err, "failed to iterate thoughts")
		}

		thought, err := decodeThought(snap)
		if err != nil {
			return nil, err
		}
		thoughts = append(thoughts, thought)
	}

	return thoughts, nil
}

func (r *Firestore) WatchPendingThoughts(ctx context.Context) (<-chan *model.Thought, func(), error) {
	q := r.client.Collection(collectionThoughts).
		Where("ai_status", "==", string(model.StatusPending))
	return watchQuery(ctx, q, decodeThought)
}

func (r *Firestore) PutChatQuery(ctx context.Context, query *model.ChatQuery) error {
	if query.ID == "" {
		query.ID = model.NewChatQueryID()
	}
	ref := r.client.Collection(collectionChatQueries).Doc(string(query.ID))
	if _, err := ref.Create(ctx, query); err != nil {
		return goerr.Wrap(err, "failed to create chat query", goerr.Value("id", query.ID))
	}
	return nil
}

func (r *Firestore) GetChatQuery(ctx context.Context, id model.ChatQueryID) (*model.ChatQuery, error) {
	snap, err := r.client.Collection(collectionChatQueries).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrChatQueryNotFound, "no such document", goerr.Value("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get chat query", goerr.Value("id", id))
	}
	return decodeChatQuery(snap)
}

func (r *Firestore) MarkChatCompleted(ctx context.Context, id model.ChatQueryID, answer string) error {
	ref := r.client.Collection(collectionChatQueries).Doc(string(id))
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "status", Value: string(model.RequestCompleted)},
		{Path: "answer", Value: answer},
		{Path: "completed_at", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to mark chat query completed", goerr.Value("id", id))
	}
	return nil
}

func (r *Firestore) MarkChatFailed(ctx context.Context, id model.ChatQueryID, errMsg string) error {
	ref := r.client.Collection(collectionChatQueries).Doc(string(id))
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "status", Value: string(model.RequestFailed)},
		{Path: "error", Value: errMsg},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to mark chat query failed", goerr.Value("id", id))
	}
	return nil
}

func (r *Firestore) WatchChatQuery(ctx context.Context, id model.ChatQueryID) (<-chan *model.ChatQuery, func(), error) {
	ref := r.client.Collection(collectionChatQueries).Doc(string(id))
	return watchDocument(ctx, ref, decodeChatQuery)
}

func (r *Firestore) WatchPendingChatQueries(ctx context.Context) (<-chan *model.ChatQuery, func(), error) {
	q := r.client.Collection(collectionChatQueries).
		Where("status", "==", string(model.RequestPending))
	return watchQuery(ctx, q, decodeChatQuery)
}

func (r *Firestore) PutBatchRequest(ctx context.Context, req *model.BatchRequest) error {
	if req.ID == "" {
		req.ID = model.NewBatchRequestID()
	}
	ref := r.client.Collection(collectionBatchRequests).Doc(string(req.ID))
	if _, err := ref.Create(ctx, req); err != nil {
		return goerr.Wrap(err, "failed to create batch request", goerr.Value("id", req.ID))
	}
	return nil
}

func (r *Firestore) GetBatchRequest(ctx context.Context, id model.BatchRequestID) (*model.BatchRequest, error) {
	snap, err := r.client.Collection(collectionBatchRequests).Doc(string(id)).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, goerr.Wrap(model.ErrBatchRequestNotFound, "no such document", goerr.Value("id", id))
		}
		return nil, goerr.Wrap(err, "failed to get batch request", goerr.Value("id", id))
	}
	return decodeBatchRequest(snap)
}

func (r *Firestore) MarkBatchCompleted(ctx context.Context, id model.BatchRequestID, processed, failed int, message string) error {
	ref := r.client.Collection(collectionBatchRequests).Doc(string(id))
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "status", Value: string(model.RequestCompleted)},
		{Path: "processed", Value: processed},
		{Path: "failed", Value: failed},
		{Path: "message", Value: message},
		{Path: "completed_at", Value: firestore.ServerTimestamp},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to mark batch request completed", goerr.Value("id", id))
	}
	return nil
}

func (r *Firestore) MarkBatchFailed(ctx context.Context, id model.BatchRequestID, errMsg string) error {
	ref := r.client.Collection(collectionBatchRequests).Doc(string(id))
	_, err := ref.Update(ctx, []firestore.Update{
		{Path: "status", Value: string(model.RequestFailed)},
		{Path: "error", Value: errMsg},
	})
	if err != nil {
		return goerr.Wrap(err, "failed to mark batch request failed", goerr.Value("id", id))
	}
	return nil
}

func (r *Firestore) WatchBatchRequest(ctx context.Context, id model.BatchRequestID) (<-chan *model.BatchRequest, func(), error) {
	ref := r.client.Collection(collectionBatchRequests).Doc(string(id))
	return watchDocument(ctx, ref, decodeBatchRequest)
}

func (r *Firestore) WatchPendingBatchRequests(ctx context.Context) (<-chan *model.BatchRequest, func(), error) {
	q := r.client.Collection(collectionBatchRequests).
		Where("status", "==", string(model.RequestPending))
	return watchQuery(ctx, q, decodeBatchRequest)
}

func decodeThought(snap *firestore.DocumentSnapshot) (*model.Thought, error) {
	var thought model.Thought
	if err := snap.DataTo(&thought); err != nil {
		return nil, goerr.Wrap(err, "failed to decode thought", goerr.Value("id", snap.Ref.ID))
	}
	thought.ID = model.ThoughtID(snap.Ref.ID)
	return &thought, nil
}

func decodeChatQuery(snap *firestore.DocumentSnapshot) (*model.ChatQuery, error) {
	var query model.ChatQuery
	if err := snap.DataTo(&query); err != nil {
		return nil, goerr.Wrap(err, "failed to decode chat query", goerr.Value("id", snap.Ref.ID))
	}
	query.ID = model.ChatQueryID(snap.Ref.ID)
	return &query, nil
}

func decodeBatchRequest(snap *firestore.DocumentSnapshot) (*model.BatchRequest, error) {
	var req model.BatchRequest
	if err := snap.DataTo(&req); err != nil {
		return nil, goerr.Wrap(err, "failed to decode batch request", goerr.Value("id", snap.Ref.ID))
	}
	req.ID = model.BatchRequestID(snap.Ref.ID)
	return &req, nil
}

// watchDocument streams snapshots of one document. The first snapshot
// arrives immediately with the current state; deleted documents are
// skipped. The returned stop function halts the stream and closes the
// channel.
func watchDocument[T any](ctx context.Context, ref *firestore.DocumentRef, decode func(*firestore.DocumentSnapshot) (*T, error)) (<-chan *T, func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)
	iter := ref.Snapshots(watchCtx)
	ch := make(chan *T, 8)

	go func() {
		defer close(ch)
		defer iter.Stop()

		for {
			snap, err := iter.Next()
			if err != nil {
				return
			}
			if !snap.Exists() {
				continue
			}

			record, err := decode(snap)
			if err != nil {
				continue
			}

			select {
			case ch <- record:
			case <-watchCtx.Done():
				return
			}
		}
	}()

	return ch, cancel, nil
}

// watchQuery streams every document matched by the query, re-emitting the
// full result set on each query snapshot. Consumers see at-least-once
// delivery and must guard against duplicates.
func watchQuery[T any](ctx context.Context, q firestore.Query, decode func(*firestore.DocumentSnapshot) (*T, error)) (<-chan *T, func(), error) {
	watchCtx, cancel := context.WithCancel(ctx)
	iter := q.Snapshots(watchCtx)
	ch := make(chan *T, 32)

	go func() {
		defer close(ch)
		defer iter.Stop()

		for {
			qsnap, err := iter.Next()
			if err != nil {
				return
			}

			docs := qsnap.Documents
			for {
				snap, err := docs.Next()
				if err != nil {
					break
				}

				record, err := decode(snap)
				if err != nil {
					continue
				}

				select {
				case ch <- record:
				case <-watchCtx.Done():
					return
				}
			}
		}
	}()

	return ch, cancel, nil
}
