package flow

import (
	"context"
	"errors"
	"fmt"
)

// KeyFunc scores a state; lower is better.
type KeyFunc func(State) (float64, error)

// EnergyKey scores a state by its problem energy.
func EnergyKey(s State) (float64, error) { return s.Energy() }

// Fold reduces State.Candidates to the candidate with the lowest key.
type Fold struct {
	key KeyFunc
}

// FoldOption configures a Fold.
type FoldOption func(*Fold)

// WithKey replaces the default energy key.
func WithKey(key KeyFunc) FoldOption {
	return func(f *Fold) { f.key = key }
}

// ArgMinFold returns a fold selecting the minimum-key candidate. Ties go to
// the earliest candidate in submission order.
func ArgMinFold(opts ...FoldOption) *Fold {
	f := &Fold{key: EnergyKey}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func (f *Fold) Name() string         { return "ArgMinFold" }
func (f *Fold) Stop()                {}
func (f *Fold) Children() []Runnable { return nil }

// Run selects the winning candidate and returns its state with Candidates
// cleared. Failed candidates, and candidates whose key cannot be computed,
// are excluded. If none remain the result is ErrFoldEmpty joined with every
// candidate error.
func (f *Fold) Run(ctx context.Context, s State) (out State, err error) {
	_, span := startSpan(ctx, "flow.ArgMinFold", f)
	defer func() { endSpan(span, err) }()

	best := -1
	var bestKey float64
	var errs []error
	for i, c := range s.Candidates {
		if c.Err != nil {
			errs = append(errs, fmt.Errorf("candidate %d (%s): %w", i, c.Branch, c.Err))
			continue
		}
		k, err := f.key(c.State)
		if err != nil {
			errs = append(errs, fmt.Errorf("candidate %d (%s): key: %w", i, c.Branch, err))
			continue
		}
		if best < 0 || k < bestKey {
			best, bestKey = i, k
		}
	}
	if best < 0 {
		foldFailuresTotal.Inc()
		return State{}, errors.Join(append([]error{fmt.Errorf("%w: %d candidates", ErrFoldEmpty, len(s.Candidates))}, errs...)...)
	}

	out = s.Candidates[best].State
	out.Candidates = nil
	return out, nil
}

// Best races branches to completion and keeps the lowest-energy result.
func Best(branches ...Runnable) *Branch {
	return Sequence(Parallel(branches...), ArgMinFold())
}
