package solver

import (
	"context"
	"fmt"

	"github.com/seantiz/hades/internal/flow"
	"github.com/seantiz/hades/internal/sample"
)

// IdentityComposer leaves the state's sample unchanged.
type IdentityComposer struct{}

func (IdentityComposer) Compose(_ context.Context, s flow.State, _ []sample.Assignment) (flow.State, error) {
	return done(s), nil
}

// SplatComposer overwrites the state's sample with the best subsample.
type SplatComposer struct{}

func (SplatComposer) Compose(_ context.Context, s flow.State, subsamples []sample.Assignment) (flow.State, error) {
	if len(subsamples) == 0 {
		return flow.State{}, ErrNoSubsamples
	}
	s.Sample = sample.Merge(s.Sample, subsamples[0])
	return done(s), nil
}

// GreedyComposer splats the best subsample only when that does not raise
// the energy of the full problem.
type GreedyComposer struct{}

func (GreedyComposer) Compose(_ context.Context, s flow.State, subsamples []sample.Assignment) (flow.State, error) {
	if len(subsamples) == 0 {
		return flow.State{}, ErrNoSubsamples
	}
	before, err := s.Energy()
	if err != nil {
		return flow.State{}, fmt.Errorf("current energy: %w", err)
	}
	merged := sample.Merge(s.Sample, subsamples[0])
	after, err := s.Problem.Energy(merged)
	if err != nil {
		return flow.State{}, fmt.Errorf("merged energy: %w", err)
	}
	if after <= before {
		s.Sample = merged
	}
	return done(s), nil
}

// done clears the per-step fields a composer consumes.
func done(s flow.State) flow.State {
	s.Subproblem = nil
	s.Subsamples = nil
	return s
}
