package flow

import (
	"context"
	"fmt"

	"github.com/seantiz/hades/internal/sample"
)

// Decomposer selects the next subproblem of a state.
type Decomposer interface {
	Decompose(ctx context.Context, s State) (*Subproblem, error)
}

// Sampler produces candidate assignments for a subproblem, best first.
// Implementations should check ctx between units of work and return what
// they have when it is done.
type Sampler interface {
	Sample(ctx context.Context, sub *Subproblem) ([]sample.Assignment, error)
}

// Composer merges subsamples back into a state.
type Composer interface {
	Compose(ctx context.Context, s State, subsamples []sample.Assignment) (State, error)
}

// step adapts a strategy function to Runnable.
type step struct {
	base Base
	name string
	run  func(ctx context.Context, s State) (State, error)
}

func (st *step) Name() string         { return st.name }
func (st *step) Children() []Runnable { return nil }
func (st *step) Stop()                { st.base.Stop() }

func (st *step) Run(ctx context.Context, s State) (State, error) {
	ctx, done := st.base.Begin(ctx)
	defer done()
	out, err := st.run(ctx, s)
	if err != nil {
		return State{}, fmt.Errorf("%s: %w", st.name, err)
	}
	return out, nil
}

// Decompose adapts d to a Runnable that sets State.Subproblem.
func Decompose(name string, d Decomposer) Runnable {
	return &step{name: name, run: func(ctx context.Context, s State) (State, error) {
		if s.Problem == nil {
			return State{}, ErrNoSubproblem
		}
		sub, err := d.Decompose(ctx, s)
		if err != nil {
			return State{}, err
		}
		if sub.Initial == nil {
			sub.Initial = restrict(s.Sample, sub.Variables)
		}
		out := s.Clone()
		out.Subproblem = sub
		out.Subsamples = nil
		return out, nil
	}}
}

// Sample adapts smp to a Runnable that sets State.Subsamples. A state
// without a subproblem is sampled as a whole.
func Sample(name string, smp Sampler) Runnable {
	return &step{name: name, run: func(ctx context.Context, s State) (State, error) {
		sub := s.Subproblem
		if sub == nil {
			if s.Problem == nil {
				return State{}, ErrNoSubproblem
			}
			sub = WholeProblem(s.Problem, s.Sample)
		}
		subsamples, err := smp.Sample(ctx, sub)
		if err != nil {
			return State{}, err
		}
		out := s.Clone()
		out.Subsamples = subsamples
		return out, nil
	}}
}

// Compose adapts c to a Runnable that merges State.Subsamples.
func Compose(name string, c Composer) Runnable {
	return &step{name: name, run: func(ctx context.Context, s State) (State, error) {
		return c.Compose(ctx, s.Clone(), s.Subsamples)
	}}
}

// Func adapts a plain function to a leaf Runnable.
func Func(name string, fn func(ctx context.Context, s State) (State, error)) Runnable {
	return &step{name: name, run: fn}
}
