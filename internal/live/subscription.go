package live

import "sync"

// Subscription receives the snapshots of one Query.
type Subscription[T any] struct {
	id string
	q  *Query[T]

	ch   chan T
	done chan struct{}

	mu     sync.Mutex
	closed bool
}

func newSubscription[T any](q *Query[T], id string) *Subscription[T] {
	return &Subscription[T]{
		id:   id,
		q:    q,
		ch:   make(chan T, 1),
		done: make(chan struct{}),
	}
}

// ID identifies the subscription in logs.
func (s *Subscription[T]) ID() string { return s.id }

// C yields snapshots. It is closed when the subscription ends.
func (s *Subscription[T]) C() <-chan T { return s.ch }

// Done is closed when the subscription ends.
func (s *Subscription[T]) Done() <-chan struct{} { return s.done }

// Close stops delivery. It is safe to call more than once.
func (s *Subscription[T]) Close() {
	if s.shutdown() {
		s.q.remove(s.id)
	}
}

// offer replaces any undelivered snapshot with v.
func (s *Subscription[T]) offer(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case <-s.ch:
	default:
	}
	s.ch <- v
}

func (s *Subscription[T]) shutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return false
	}
	s.closed = true
	close(s.ch)
	close(s.done)
	return true
}
