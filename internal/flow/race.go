package flow

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"go.opentelemetry.io/otel/attribute"
)

// Policy selects when a race finishes.
type Policy int

const (
	// StopOnFirst signals every other branch to stop as soon as one branch
	// succeeds, then waits for all of them.
	StopOnFirst Policy = iota
	// WaitAll waits for every branch to finish on its own.
	WaitAll
)

// String returns the policy name used in workflow documents.
func (p Policy) String() string {
	switch p {
	case StopOnFirst:
		return "first"
	case WaitAll:
		return "all"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// Racing runs its branches concurrently on independent copies of the same
// input and reports every branch's outcome as State.Candidates.
type Racing struct {
	base     Base
	branches []Runnable
	policy   Policy
}

// NewRacing returns a race over branches with the given policy.
func NewRacing(policy Policy, branches ...Runnable) *Racing {
	return &Racing{branches: slices.Clone(branches), policy: policy}
}

// Race returns a stop-on-first race.
func Race(branches ...Runnable) *Racing { return NewRacing(StopOnFirst, branches...) }

// Parallel returns a wait-all race.
func Parallel(branches ...Runnable) *Racing { return NewRacing(WaitAll, branches...) }

// Policy returns the race's termination policy.
func (r *Racing) Policy() Policy { return r.policy }

func (r *Racing) Name() string {
	names := make([]string, len(r.branches))
	for i, c := range r.branches {
		names[i] = c.Name()
	}
	return "Race[" + r.policy.String() + "](" + strings.Join(names, " & ") + ")"
}

// Children returns the branches in submission order.
func (r *Racing) Children() []Runnable { return slices.Clone(r.branches) }

func (r *Racing) Stop() { r.base.Stop() }

// Run starts every branch on its own copy of s. The returned state is s with
// Candidates holding one Outcome per branch in submission order. A branch
// failure or panic is recorded in its slot and never affects its siblings.
func (r *Racing) Run(ctx context.Context, s State) (out State, err error) {
	ctx, done := r.base.Begin(ctx)
	defer done()
	ctx, span := startSpan(ctx, "flow.Racing", r, attribute.String("flow.policy", r.policy.String()))
	defer func() { endSpan(span, err) }()

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	logger := Logger(ctx)
	outcomes := make([]Outcome, len(r.branches))
	var (
		mu  sync.Mutex
		won bool
		wg  sync.WaitGroup
	)
	for i, br := range r.branches {
		in := s.Clone()
		wg.Go(func() {
			st, err := runGuarded(raceCtx, br, in)

			mu.Lock()
			outcomes[i] = Outcome{Branch: br.Name(), State: st, Err: err}
			first := err == nil && !won && r.policy == StopOnFirst
			if first {
				won = true
			}
			mu.Unlock()

			switch {
			case first:
				raceBranchesTotal.WithLabelValues(outcomeWon).Inc()
				cancel()
			case err == nil:
				raceBranchesTotal.WithLabelValues(outcomeFinished).Inc()
			case errors.Is(err, ErrStopped) || errors.Is(err, context.Canceled):
				raceBranchesTotal.WithLabelValues(outcomeStopped).Inc()
			default:
				raceBranchesTotal.WithLabelValues(outcomeFailed).Inc()
				logger.Warn("racing branch failed", "branch", br.Name(), "slot", i, "error", err)
			}
		})
	}
	wg.Wait()

	out = s.Clone()
	out.Candidates = outcomes
	return out, nil
}

// runGuarded runs r, converting a panic into an error.
func runGuarded(ctx context.Context, r Runnable, s State) (out State, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = State{}, fmt.Errorf("%w: %s: %v", ErrBranchPanic, r.Name(), p)
		}
	}()
	return r.Run(ctx, s)
}
