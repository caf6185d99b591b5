package repository

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/m-mizutani/goerr/v2"

	"github.com/fil-Daska1os/AiThoughtCatcher/pkg/model"
)

// watcher decouples event producers from a single subscriber. Records are
// queued without bound so store writes never block on a slow consumer, and
// nothing is dropped. A pump goroutine drains the queue into the outbound
// channel until stop is called.
type watcher[T any] struct {
	mu    sync.Mutex
	queue []*T

	wake chan struct{}
	done chan struct{}
	out  chan *T
	once sync.Once
}

func newWatcher[T any]() *watcher[T] {
	return &watcher[T]{
		wake: make(chan struct{}, 1),
		done: make(chan struct{}),
		out:  make(chan *T, 8),
	}
}

// push queues a record. Never blocks the caller.
func (w *watcher[T]) push(record *T) {
	w.mu.Lock()
	w.queue = append(w.queue, record)
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// run pumps queued records to the outbound channel. Closes the channel on
// stop so consumers observe the subscription ending.
func (w *watcher[T]) run() {
	defer close(w.out)

	for {
		select {
		case <-w.wake:
		case <-w.done:
			return
		}

		for {
			w.mu.Lock()
			if len(w.queue) == 0 {
				w.mu.Unlock()
				break
			}
			record := w.queue[0]
			w.queue = w.queue[1:]
			w.mu.Unlock()

			select {
			case w.out <- record:
			case <-w.done:
				return
			}
		}
	}
}

func (w *watcher[T]) stop() {
	w.once.Do(func() {
		close(w.done)
	})
}

// Memory implements Repository with in-process maps and channel-based
// watches. It backs local mode and the test suite; the semantics mirror the
// Firestore implementation, including immediate first snapshots on document
// watches and at-least-once delivery on pending-set watches.
type Memory struct {
	mu sync.Mutex

	thoughts map[model.ThoughtID]*model.Thought
	chats    map[model.ChatQueryID]*model.ChatQuery
	batches  map[model.BatchRequestID]*model.BatchRequest

	nextWatcher     int
	chatDocWatch    map[model.ChatQueryID]map[int]*watcher[model.ChatQuery]
	batchDocWatch   map[model.BatchRequestID]map[int]*watcher[model.BatchRequest]
	pendingThoughts map[int]*watcher[model.Thought]
	pendingChats    map[int]*watcher[model.ChatQuery]
	pendingBatches  map[int]*watcher[model.BatchRequest]
}

var _ Repository = (*Memory)(nil)

// NewMemory creates an empty in-memory repository
func NewMemory() *Memory {
	return &Memory{
		thoughts:        make(map[model.ThoughtID]*model.Thought),
		chats:           make(map[model.ChatQueryID]*model.ChatQuery),
		batches:         make(map[model.BatchRequestID]*model.BatchRequest),
		chatDocWatch:    make(map[model.ChatQueryID]map[int]*watcher[model.ChatQuery]),
		batchDocWatch:   make(map[model.BatchRequestID]map[int]*watcher[model.BatchRequest]),
		pendingThoughts: make(map[int]*watcher[model.Thought]),
		pendingChats:    make(map[int]*watcher[model.ChatQuery]),
		pendingBatches:  make(map[int]*watcher[model.BatchRequest]),
	}
}

func (r *Memory) Close() error { return nil }

// WatcherCount reports the number of live watch subscriptions. Used to
// verify that every resolution path cancels its subscription.
func (r *Memory) WatcherCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := len(r.pendingThoughts) + len(r.pendingChats) + len(r.pendingBatches)
	for _, m := range r.chatDocWatch {
		n += len(m)
	}
	for _, m := range r.batchDocWatch {
		n += len(m)
	}
	return n
}

func cloneThought(t *model.Thought) *model.Thought {
	c := *t
	c.Keywords = slices.Clone(t.Keywords)
	return &c
}

func cloneChatQuery(q *model.ChatQuery) *model.ChatQuery {
	c := *q
	return &c
}

func cloneBatchRequest(b *model.BatchRequest) *model.BatchRequest {
	c := *b
	return &c
}

func notify[T any](watchers map[int]*watcher[T], record *T) {
	for _, w := range watchers {
		w.push(record)
	}
}

func (r *Memory) PutThought(ctx context.Context, thought *model.Thought) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if thought.ID == "" {
		thought.ID = model.NewThoughtID()
	}
	if _, ok := r.thoughts[thought.ID]; ok {
		return goerr.New("thought already exists", goerr.Value("id", thought.ID))
	}
	if thought.CreatedAt.IsZero() {
		thought.CreatedAt = time.Now()
	}

	stored := cloneThought(thought)
	r.thoughts[thought.ID] = stored

	if stored.Status == model.StatusPending {
		notify(r.pendingThoughts, cloneThought(stored))
	}
	return nil
}

func (r *Memory) GetThought(ctx context.Context, id model.ThoughtID) (*model.Thought, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	thought, ok := r.thoughts[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrThoughtNotFound, "no such document", goerr.Value("id", id))
	}
	return cloneThought(thought), nil
}

func (r *Memory) DeleteThought(ctx context.Context, id model.ThoughtID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.thoughts, id)
	return nil
}

func (r *Memory) MarkThoughtProcessed(ctx context.Context, id model.ThoughtID, enrichment *model.Enrichment, backfillOwner string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	thought, ok := r.thoughts[id]
	if !ok {
		return goerr.Wrap(model.ErrThoughtNotFound, "no such document", goerr.Value("id", id))
	}

	now := time.Now()
	thought.Title = enrichment.Title
	thought.Summary = enrichment.Summary
	thought.Keywords = slices.Clone(enrichment.Keywords)
	thought.Status = model.StatusProcessed
	thought.ProcessedAt = &now
	if backfillOwner != "" {
		thought.OwnerID = backfillOwner
	}
	return nil
}

func (r *Memory) MarkThoughtFailed(ctx context.Context, id model.ThoughtID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	thought, ok := r.thoughts[id]
	if !ok {
		return goerr.Wrap(model.ErrThoughtNotFound, "no such document", goerr.Value("id", id))
	}

	thought.Status = model.StatusFailed
	thought.ErrorMsg = errMsg
	return nil
}

func (r *Memory) ListOwnerThoughts(ctx context.Context, ownerID string, limit int) ([]*model.Thought, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var thoughts []*model.Thought
	for _, t := range r.thoughts {
		if t.OwnerID == ownerID {
			thoughts = append(thoughts, cloneThought(t))
		}
	}
	return sortAndLimit(thoughts, limit), nil
}

func (r *Memory) ListProcessedThoughts(ctx context.Context, ownerID string, limit int) ([]*model.Thought, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var thoughts []*model.Thought
	for _, t := range r.thoughts {
		if t.OwnerID == ownerID && t.Status == model.StatusProcessed {
			thoughts = append(thoughts, cloneThought(t))
		}
	}
	return sortAndLimit(thoughts, limit), nil
}

func (r *Memory) ListUnprocessedThoughts(ctx context.Context) ([]*model.Thought, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var thoughts []*model.Thought
	for _, t := range r.thoughts {
		if t.Status == model.StatusPending || t.Status == model.StatusFailed {
			thoughts = append(thoughts, cloneThought(t))
		}
	}
	return sortAndLimit(thoughts, 0), nil
}

// sortAndLimit orders by creation time descending with document ID as the
// tie breaker, matching the Firestore query ordering.
func sortAndLimit(thoughts []*model.Thought, limit int) []*model.Thought {
	slices.SortFunc(thoughts, func(a, b *model.Thought) int {
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return b.CreatedAt.Compare(a.CreatedAt)
		}
		return strings.Compare(string(a.ID), string(b.ID))
	})
	if limit > 0 && len(thoughts) > limit {
		thoughts = thoughts[:limit]
	}
	return thoughts
}

func (r *Memory) WatchPendingThoughts(ctx context.Context) (<-chan *model.Thought, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := newWatcher[model.Thought]()
	id := r.nextWatcher
	r.nextWatcher++
	r.pendingThoughts[id] = w

	for _, t := range r.thoughts {
		if t.Status == model.StatusPending {
			w.push(cloneThought(t))
		}
	}
	go w.run()

	stop := func() {
		r.mu.Lock()
		delete(r.pendingThoughts, id)
		r.mu.Unlock()
		w.stop()
	}
	return w.out, stop, nil
}

func (r *Memory) PutChatQuery(ctx context.Context, query *model.ChatQuery) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if query.ID == "" {
		query.ID = model.NewChatQueryID()
	}
	if _, ok := r.chats[query.ID]; ok {
		return goerr.New("chat query already exists", goerr.Value("id", query.ID))
	}
	if query.CreatedAt.IsZero() {
		query.CreatedAt = time.Now()
	}

	stored := cloneChatQuery(query)
	r.chats[query.ID] = stored

	notify(r.chatDocWatch[query.ID], cloneChatQuery(stored))
	if stored.Status == model.RequestPending {
		notify(r.pendingChats, cloneChatQuery(stored))
	}
	return nil
}

func (r *Memory) GetChatQuery(ctx context.Context, id model.ChatQueryID) (*model.ChatQuery, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	query, ok := r.chats[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrChatQueryNotFound, "no such document", goerr.Value("id", id))
	}
	return cloneChatQuery(query), nil
}

func (r *Memory) MarkChatCompleted(ctx context.Context, id model.ChatQueryID, answer string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query, ok := r.chats[id]
	if !ok {
		return goerr.Wrap(model.ErrChatQueryNotFound, "no such document", goerr.Value("id", id))
	}

	now := time.Now()
	query.Status = model.RequestCompleted
	query.Answer = answer
	query.CompletedAt = &now

	notify(r.chatDocWatch[id], cloneChatQuery(query))
	return nil
}

func (r *Memory) MarkChatFailed(ctx context.Context, id model.ChatQueryID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	query, ok := r.chats[id]
	if !ok {
		return goerr.Wrap(model.ErrChatQueryNotFound, "no such document", goerr.Value("id", id))
	}

	query.Status = model.RequestFailed
	query.ErrorMsg = errMsg

	notify(r.chatDocWatch[id], cloneChatQuery(query))
	return nil
}

func (r *Memory) WatchChatQuery(ctx context.Context, id model.ChatQueryID) (<-chan *model.ChatQuery, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := newWatcher[model.ChatQuery]()
	wid := r.nextWatcher
	r.nextWatcher++
	if r.chatDocWatch[id] == nil {
		r.chatDocWatch[id] = make(map[int]*watcher[model.ChatQuery])
	}
	r.chatDocWatch[id][wid] = w

	if query, ok := r.chats[id]; ok {
		w.push(cloneChatQuery(query))
	}
	go w.run()

	stop := func() {
		r.mu.Lock()
		delete(r.chatDocWatch[id], wid)
		r.mu.Unlock()
		w.stop()
	}
	return w.out, stop, nil
}

func (r *Memory) WatchPendingChatQueries(ctx context.Context) (<-chan *model.ChatQuery, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := newWatcher[model.ChatQuery]()
	id := r.nextWatcher
	r.nextWatcher++
	r.pendingChats[id] = w

	for _, q := range r.chats {
		if q.Status == model.RequestPending {
			w.push(cloneChatQuery(q))
		}
	}
	go w.run()

	stop := func() {
		r.mu.Lock()
		delete(r.pendingChats, id)
		r.mu.Unlock()
		w.stop()
	}
	return w.out, stop, nil
}

func (r *Memory) PutBatchRequest(ctx context.Context, req *model.BatchRequest) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if req.ID == "" {
		req.ID = model.NewBatchRequestID()
	}
	if _, ok := r.batches[req.ID]; ok {
		return goerr.New("batch request already exists", goerr.Value("id", req.ID))
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now()
	}

	stored := cloneBatchRequest(req)
	r.batches[req.ID] = stored

	notify(r.batchDocWatch[req.ID], cloneBatchRequest(stored))
	if stored.Status == model.RequestPending {
		notify(r.pendingBatches, cloneBatchRequest(stored))
	}
	return nil
}

func (r *Memory) GetBatchRequest(ctx context.Context, id model.BatchRequestID) (*model.BatchRequest, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.batches[id]
	if !ok {
		return nil, goerr.Wrap(model.ErrBatchRequestNotFound, "no such document", goerr.Value("id", id))
	}
	return cloneBatchRequest(req), nil
}

func (r *Memory) MarkBatchCompleted(ctx context.Context, id model.BatchRequestID, processed, failed int, message string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.batches[id]
	if !ok {
		return goerr.Wrap(model.ErrBatchRequestNotFound, "no such document", goerr.Value("id", id))
	}

	now := time.Now()
	req.Status = model.RequestCompleted
	req.ProcessedCount = processed
	req.FailedCount = failed
	req.Message = message
	req.CompletedAt = &now

	notify(r.batchDocWatch[id], cloneBatchRequest(req))
	return nil
}

func (r *Memory) MarkBatchFailed(ctx context.Context, id model.BatchRequestID, errMsg string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	req, ok := r.batches[id]
	if !ok {
		return goerr.Wrap(model.ErrBatchRequestNotFound, "no such document", goerr.Value("id", id))
	}

	req.Status = model.RequestFailed
	req.ErrorMsg = errMsg

	notify(r.batchDocWatch[id], cloneBatchRequest(req))
	return nil
}

func (r *Memory) WatchBatchRequest(ctx context.Context, id model.BatchRequestID) (<-chan *model.BatchRequest, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := newWatcher[model.BatchRequest]()
	wid := r.nextWatcher
	r.nextWatcher++
	if r.batchDocWatch[id] == nil {
		r.batchDocWatch[id] = make(map[int]*watcher[model.BatchRequest])
	}
	r.batchDocWatch[id][wid] = w

	if req, ok := r.batches[id]; ok {
		w.push(cloneBatchRequest(req))
	}
	go w.run()

	stop := func() {
		r.mu.Lock()
		delete(r.batchDocWatch[id], wid)
		r.mu.Unlock()
		w.stop()
	}
	return w.out, stop, nil
}

func (r *Memory) WatchPendingBatchRequests(ctx context.Context) (<-chan *model.BatchRequest, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	w := newWatcher[model.BatchRequest]()
	id := r.nextWatcher
	r.nextWatcher++
	r.pendingBatches[id] = w

	for _, b := range r.batches {
		if b.Status == model.RequestPending {
			w.push(cloneBatchRequest(b))
		}
	}
	go w.run()

	stop := func() {
		r.mu.Lock()
		delete(r.pendingBatches, id)
		r.mu.Unlock()
		w.stop()
	}
	return w.out, stop, nil
}
