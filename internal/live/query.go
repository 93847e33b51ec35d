// Package live implements live queries: a loader whose full result is pushed
// to every subscriber whenever the underlying data is invalidated.
//
// Delivery is latest-wins. Each subscriber has a one-slot mailbox; a newer
// snapshot replaces one the subscriber has not picked up yet, so a slow
// consumer never blocks the producer and never sees an older snapshot after
// a newer one. Loads and fan-outs of one Query are serialized.
package live

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophdiary/internal/common"
	"github.com/dmitrijs2005/gophdiary/internal/logging"
	"github.com/google/uuid"
)

// Loader produces the current full result of a query.
type Loader[T any] func(ctx context.Context) (T, error)

// Query fans snapshots produced by a Loader out to its subscriptions.
type Query[T any] struct {
	name string
	load Loader[T]
	log  logging.Logger

	// mu serializes loads and guards subs and closed.
	mu     sync.Mutex
	subs   map[string]*Subscription[T]
	closed bool
}

func NewQuery[T any](name string, load Loader[T], log logging.Logger) *Query[T] {
	return &Query[T]{
		name: name,
		load: load,
		log:  log.With("query", name),
		subs: make(map[string]*Subscription[T]),
	}
}

// Subscribe loads the current result, delivers it as the first snapshot and
// registers the subscription for later invalidations. The subscription is
// closed when ctx is done or Close is called.
func (q *Query[T]) Subscribe(ctx context.Context) (*Subscription[T], error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil, common.ErrClosed
	}

	v, err := q.load(ctx)
	if err != nil {
		return nil, err
	}

	sub := newSubscription(q, uuid.NewString())
	sub.offer(v)
	q.subs[sub.id] = sub
	q.log.Debug(ctx, "subscribed", "subscription", sub.id, "subscribers", len(q.subs))

	if ctx.Done() != nil {
		go func() {
			select {
			case <-ctx.Done():
				sub.Close()
			case <-sub.done:
			}
		}()
	}
	return sub, nil
}

// Invalidate reloads the query and pushes the result to every subscriber.
// On a load error the subscribers keep their previous snapshot.
func (q *Query[T]) Invalidate(ctx context.Context) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed || len(q.subs) == 0 {
		return nil
	}

	v, err := q.load(ctx)
	if err != nil {
		q.log.Warn(ctx, "reload failed, keeping previous snapshot", "err", err)
		return err
	}
	for _, sub := range q.subs {
		sub.offer(v)
	}
	return nil
}

// Subscribers returns the number of active subscriptions.
func (q *Query[T]) Subscribers() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.subs)
}

// Close ends every subscription. Later Subscribe calls fail with common.ErrClosed.
func (q *Query[T]) Close() {
	q.mu.Lock()
	subs := q.subs
	q.subs = make(map[string]*Subscription[T])
	q.closed = true
	q.mu.Unlock()

	for _, sub := range subs {
		sub.shutdown()
	}
}

func (q *Query[T]) remove(id string) {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.subs, id)
}
