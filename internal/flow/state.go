package flow

import (
	"maps"
	"slices"

	"github.com/seantiz/hades/internal/bqm"
	"github.com/seantiz/hades/internal/sample"
)

// Subproblem is the piece of a problem handed to a sampler.
type Subproblem struct {
	// Model is owned by the subproblem and must not be mutated by samplers.
	Model *bqm.Model
	// Variables lists the model variables in ascending order.
	Variables []int
	// Boundary holds the values of parent variables adjacent to the
	// subproblem that were folded into Model.
	Boundary sample.Assignment
	// Initial is the current value of every subproblem variable, used by
	// samplers that refine rather than search from scratch.
	Initial sample.Assignment
}

// WholeProblem returns a subproblem spanning every variable of m.
func WholeProblem(m *bqm.Model, current sample.Assignment) *Subproblem {
	return &Subproblem{
		Model:     m,
		Variables: m.Variables(),
		Initial:   restrict(current, m.Variables()),
	}
}

// Outcome is one slot of a candidate set: the state a branch produced or
// the error it failed with.
type Outcome struct {
	Branch string
	State  State
	Err    error
}

// State is the unit of data threaded through a workflow.
type State struct {
	Problem    *bqm.Model
	Sample     sample.Assignment
	Subproblem *Subproblem
	Subsamples []sample.Assignment
	// Candidates is the ordered result of the most recent race.
	Candidates []Outcome
	Iteration  int
	Info       map[string]any
}

// NewState returns a state over problem with the given starting sample.
func NewState(problem *bqm.Model, start sample.Assignment) State {
	return State{Problem: problem, Sample: start.Clone()}
}

// Clone returns a copy of s that shares only the problem model and the
// immutable subproblem.
func (s State) Clone() State {
	c := s
	c.Sample = s.Sample.Clone()
	if s.Subsamples != nil {
		c.Subsamples = make([]sample.Assignment, len(s.Subsamples))
		for i, a := range s.Subsamples {
			c.Subsamples[i] = a.Clone()
		}
	}
	c.Candidates = slices.Clone(s.Candidates)
	c.Info = maps.Clone(s.Info)
	return c
}

// Energy evaluates the state's sample on its problem.
func (s State) Energy() (float64, error) {
	if s.Problem == nil {
		return 0, ErrNoSubproblem
	}
	return s.Problem.Energy(s.Sample)
}

// WithInfo returns a copy of s with key set in its metadata.
func (s State) WithInfo(key string, value any) State {
	c := s
	c.Info = maps.Clone(s.Info)
	if c.Info == nil {
		c.Info = make(map[string]any)
	}
	c.Info[key] = value
	return c
}

func restrict(a sample.Assignment, vars []int) sample.Assignment {
	out := make(sample.Assignment, len(vars))
	for _, v := range vars {
		if x, ok := a[v]; ok {
			out[v] = x
		}
	}
	return out
}
