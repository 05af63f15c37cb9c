package flow

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/seantiz/hades/internal/bqm"
	"github.com/seantiz/hades/internal/sample"
)

// onesModel is a BINARY model whose energy is the number of variables set to 1.
func onesModel(t *testing.T, n int) *bqm.Model {
	t.Helper()
	linear := make(map[int]float64, n)
	for v := range n {
		linear[v] = 1
	}
	m, err := bqm.NewFromTerms(bqm.Binary, linear, nil, 0)
	require.NoError(t, err)
	return m
}

// withOnes returns a state over m with the first k variables set to 1.
func withOnes(m *bqm.Model, k int) State {
	a := sample.Min(m)
	for v := range k {
		a[v] = 1
	}
	return NewState(m, a)
}

// clearOne returns a runnable that sets the lowest 1-valued variable to 0.
func clearOne() Runnable {
	return Func("clear-one", func(_ context.Context, s State) (State, error) {
		out := s.Clone()
		for _, v := range s.Problem.Variables() {
			if out.Sample[v] == 1 {
				out.Sample[v] = 0
				break
			}
		}
		return out, nil
	})
}

// setOnes returns a runnable producing a state with exactly k ones.
func setOnes(name string, k int) Runnable {
	return Func(name, func(_ context.Context, s State) (State, error) {
		return withOnes(s.Problem, k), nil
	})
}

// blocking waits for ctx and then returns its input with the given number of ones.
func blocking(name string, k int, started *atomic.Int32) Runnable {
	return Func(name, func(ctx context.Context, s State) (State, error) {
		if started != nil {
			started.Add(1)
		}
		<-ctx.Done()
		return withOnes(s.Problem, k), nil
	})
}

func failing(name string, err error) Runnable {
	return Func(name, func(context.Context, State) (State, error) {
		return State{}, err
	})
}

func ones(t *testing.T, s State) int {
	t.Helper()
	e, err := s.Energy()
	require.NoError(t, err)
	return int(e)
}
