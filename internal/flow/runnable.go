package flow

import (
	"context"
	"sync"
)

// Runnable is a unit of work over a State.
type Runnable interface {
	// Name identifies the runnable in logs, traces and metrics.
	Name() string
	// Run consumes s and returns a new State. It must not mutate s.
	Run(ctx context.Context, s State) (State, error)
	// Stop signals every in-flight Run to finish. It is idempotent and
	// does not wait.
	Stop()
	// Children returns the composed runnables in order; nil for leaves.
	Children() []Runnable
}

// Base tracks the in-flight executions of a Runnable so that Stop can reach
// them. Embed it and wrap every Run with Begin.
type Base struct {
	mu     sync.Mutex
	next   uint64
	active map[uint64]context.CancelFunc
}

// Begin derives a context that Stop cancels. The returned func releases it
// and must be called when the run finishes.
func (b *Base) Begin(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)

	b.mu.Lock()
	if b.active == nil {
		b.active = make(map[uint64]context.CancelFunc)
	}
	id := b.next
	b.next++
	b.active[id] = cancel
	b.mu.Unlock()

	return ctx, func() {
		b.mu.Lock()
		delete(b.active, id)
		b.mu.Unlock()
		cancel()
	}
}

// Stop cancels every execution started with Begin that has not finished.
func (b *Base) Stop() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, cancel := range b.active {
		cancel()
	}
}

// Running returns the number of in-flight executions.
func (b *Base) Running() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.active)
}

type identity struct{}

// Identity returns the no-op runnable. It is the identity element of Sequence.
func Identity() Runnable { return identity{} }

func (identity) Name() string { return "Identity" }
func (identity) Run(_ context.Context, s State) (State, error) { return s, nil }
func (identity) Stop() {}
func (identity) Children() []Runnable { return nil }
