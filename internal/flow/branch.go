package flow

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"
)

// Branch runs its children in order, each on the previous child's output.
type Branch struct {
	base     Base
	children []Runnable
}

// Sequence composes runnables into a Branch. Nested branches are flattened
// and identities dropped, so Sequence is associative with Identity as its
// identity element.
func Sequence(children ...Runnable) *Branch {
	b := &Branch{}
	for _, c := range children {
		switch c := c.(type) {
		case nil, identity:
		case *Branch:
			b.children = append(b.children, c.children...)
		default:
			b.children = append(b.children, c)
		}
	}
	return b
}

// Name joins the children's names.
func (b *Branch) Name() string {
	names := make([]string, len(b.children))
	for i, c := range b.children {
		names[i] = c.Name()
	}
	return "Branch(" + strings.Join(names, " | ") + ")"
}

// Children returns the composed runnables in order.
func (b *Branch) Children() []Runnable { return slices.Clone(b.children) }

// Stop signals every in-flight run of the branch. Children observe it
// through their context.
func (b *Branch) Stop() { b.base.Stop() }

// Run threads s through every child. It fails with the first child error,
// or with ErrStopped when the branch is signalled between children.
func (b *Branch) Run(ctx context.Context, s State) (out State, err error) {
	ctx, done := b.base.Begin(ctx)
	defer done()
	ctx, span := startSpan(ctx, "flow.Branch", b)
	defer func() { endSpan(span, err) }()

	logger := Logger(ctx)
	cur := s
	for i, c := range b.children {
		if ctx.Err() != nil {
			return State{}, fmt.Errorf("%w: %s before step %d (%s)", ErrStopped, b.Name(), i, c.Name())
		}
		start := time.Now()
		next, err := c.Run(ctx, cur)
		if err != nil {
			return State{}, fmt.Errorf("step %d (%s): %w", i, c.Name(), err)
		}
		logger.Debug("runnable finished", "runnable", c.Name(), "step", i, "duration", time.Since(start))
		cur = next
	}
	return cur, nil
}
