package flow

import (
	"context"
	"fmt"
	"iter"
)

// Generator lazily produces states from an input state. The sequence may be
// infinite; it is restarted only by calling the generator again.
type Generator func(ctx context.Context, s State) iter.Seq2[State, error]

// Stream is a generator-style runnable.
type Stream struct {
	base Base
	name string
	gen  Generator
	key  KeyFunc
}

// NewStream wraps gen. The stream returns the lowest-energy state produced.
func NewStream(name string, gen Generator) *Stream {
	return &Stream{name: name, gen: gen, key: EnergyKey}
}

func (st *Stream) Name() string         { return st.name }
func (st *Stream) Children() []Runnable { return nil }
func (st *Stream) Stop()                { st.base.Stop() }

// Run consumes the sequence until it ends or the stream is stopped, checking
// for a stop between elements. It returns s unchanged when nothing was
// produced, and fails on the first error the sequence yields.
func (st *Stream) Run(ctx context.Context, s State) (out State, err error) {
	ctx, done := st.base.Begin(ctx)
	defer done()
	ctx, span := startSpan(ctx, "flow.Stream", st)
	defer func() { endSpan(span, err) }()

	best := s
	var (
		bestKey float64
		found   bool
	)
	for next, err := range st.gen(ctx, s) {
		if err != nil {
			return State{}, fmt.Errorf("stream %s: %w", st.name, err)
		}
		k, err := st.key(next)
		if err != nil {
			return State{}, fmt.Errorf("stream %s: %w", st.name, err)
		}
		if !found || k < bestKey {
			best, bestKey, found = next, k, true
		}
		if ctx.Err() != nil {
			break
		}
	}
	return best, nil
}
