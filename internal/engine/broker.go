package engine

import "sync"

// subscriberBufferSize is the channel buffer for each progress subscriber.
// Events are dropped if a subscriber falls this far behind.
const subscriberBufferSize = 64

// Broker fans out per-run events to subscribers. It is safe for concurrent use.
//
// Closed topics are retained as markers so that late subscribers (those
// subscribing after a run finishes) receive a closed channel instead of
// blocking forever.
type Broker[T any] struct {
	mu     sync.Mutex
	topics map[string]*topic[T]
}

type topic[T any] struct {
	subs   map[int]chan T
	nextID int
	closed bool
}

// NewBroker creates a new broker.
func NewBroker[T any]() *Broker[T] {
	return &Broker[T]{
		topics: make(map[string]*topic[T]),
	}
}

// Subscribe returns a channel that receives events for the given run and an
// unsubscribe function. If the run has already finished (Close was called),
// the returned channel is immediately closed.
func (b *Broker[T]) Subscribe(runID string) (<-chan T, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[runID]
	if !ok {
		t = &topic[T]{subs: make(map[int]chan T)}
		b.topics[runID] = t
	}

	ch := make(chan T, subscriberBufferSize)
	if t.closed {
		close(ch)
		return ch, func() {}
	}

	id := t.nextID
	t.nextID++
	t.subs[id] = ch

	return ch, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		delete(t.subs, id)
	}
}

// Publish sends an event to all subscribers of the given run.
// Events are dropped for subscribers whose buffers are full.
func (b *Broker[T]) Publish(runID string, ev T) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[runID]
	if !ok || t.closed {
		return
	}

	for _, ch := range t.subs {
		select {
		case ch <- ev:
		default:
			// Drop the event for slow subscribers to avoid blocking the solve.
		}
	}
}

// Close signals that no more events will be published for the given run.
// All subscriber channels are closed and future Subscribe calls return a
// closed channel.
func (b *Broker[T]) Close(runID string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	t, ok := b.topics[runID]
	if !ok {
		// Create a closed marker so late subscribers get a closed channel.
		b.topics[runID] = &topic[T]{subs: make(map[int]chan T), closed: true}
		return
	}

	t.closed = true
	for id, ch := range t.subs {
		close(ch)
		delete(t.subs, id)
	}
}
