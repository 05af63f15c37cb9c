package flow

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParallelWaitsForAll(t *testing.T) {
	m := onesModel(t, 5)
	boom := errors.New("boom")
	r := Parallel(setOnes("three", 3), failing("bad", boom), setOnes("one", 1))

	out, err := r.Run(context.Background(), withOnes(m, 5))
	require.NoError(t, err)
	require.Len(t, out.Candidates, 3)

	assert.Equal(t, "three", out.Candidates[0].Branch)
	assert.Equal(t, 3, ones(t, out.Candidates[0].State))
	assert.ErrorIs(t, out.Candidates[1].Err, boom)
	assert.Equal(t, 1, ones(t, out.Candidates[2].State))
	assert.Equal(t, 5, ones(t, out), "race output keeps the input sample")
}

func TestRaceStopOnFirst(t *testing.T) {
	m := onesModel(t, 4)
	var started atomic.Int32
	slow := Sequence(blocking("slow", 0, &started), clearOne())
	quick := Func("quick", func(_ context.Context, s State) (State, error) {
		for started.Load() < 2 {
			time.Sleep(time.Millisecond)
		}
		return withOnes(s.Problem, 2), nil
	})
	late := blocking("late", 1, &started)

	r := Race(slow, quick, late)
	out, err := r.Run(context.Background(), withOnes(m, 4))
	require.NoError(t, err)
	require.Len(t, out.Candidates, 3)

	require.NoError(t, out.Candidates[1].Err)
	assert.Equal(t, 2, ones(t, out.Candidates[1].State))
	assert.ErrorIs(t, out.Candidates[0].Err, ErrStopped)
	require.NoError(t, out.Candidates[2].Err, "late results are kept")
	assert.Equal(t, 1, ones(t, out.Candidates[2].State))
}

func TestRaceFailureDoesNotStopSiblings(t *testing.T) {
	m := onesModel(t, 3)
	var cancelled atomic.Bool
	steady := Func("steady", func(ctx context.Context, s State) (State, error) {
		time.Sleep(20 * time.Millisecond)
		cancelled.Store(ctx.Err() != nil)
		return withOnes(s.Problem, 1), nil
	})

	out, err := Race(failing("bad", errors.New("boom")), steady).Run(context.Background(), withOnes(m, 3))
	require.NoError(t, err)
	require.Error(t, out.Candidates[0].Err)
	require.NoError(t, out.Candidates[1].Err)
	assert.False(t, cancelled.Load())
}

func TestRaceAllBranchesFailing(t *testing.T) {
	m := onesModel(t, 2)
	first, second := errors.New("first"), errors.New("second")

	for _, r := range []*Racing{
		Race(failing("a", first), failing("b", second)),
		Parallel(failing("a", first), failing("b", second)),
	} {
		out, err := r.Run(context.Background(), withOnes(m, 1))
		require.NoError(t, err, "branch errors stay in their slots")
		require.Len(t, out.Candidates, 2)
		assert.ErrorIs(t, out.Candidates[0].Err, first)
		assert.ErrorIs(t, out.Candidates[1].Err, second)
	}
}

func TestRaceIsolatesPanic(t *testing.T) {
	m := onesModel(t, 3)
	panicky := Func("panicky", func(context.Context, State) (State, error) {
		panic("kaboom")
	})

	out, err := Parallel(panicky, setOnes("ok", 1)).Run(context.Background(), withOnes(m, 3))
	require.NoError(t, err)
	assert.ErrorIs(t, out.Candidates[0].Err, ErrBranchPanic)
	assert.Contains(t, out.Candidates[0].Err.Error(), "kaboom")
	assert.NoError(t, out.Candidates[1].Err)
}

func TestRaceBranchesGetIndependentCopies(t *testing.T) {
	m := onesModel(t, 3)
	// Deliberately writes into its input to prove siblings cannot observe it.
	scribble := Func("scribble", func(_ context.Context, s State) (State, error) {
		s.Sample[0] = 0
		s.Info["seen"] = "scribble"
		return s, nil
	})
	var seen atomic.Int32
	reader := Func("reader", func(_ context.Context, s State) (State, error) {
		time.Sleep(10 * time.Millisecond)
		seen.Store(int32(s.Sample[0]))
		return s, nil
	})

	in := withOnes(m, 3).WithInfo("seen", "none")
	out, err := Parallel(scribble, reader).Run(context.Background(), in)
	require.NoError(t, err)
	assert.EqualValues(t, 1, seen.Load())
	assert.Equal(t, 1, in.Sample[0])
	assert.Equal(t, "none", in.Info["seen"])
	assert.Equal(t, 2, ones(t, out.Candidates[0].State))
}

func TestRaceChildrenInSubmissionOrder(t *testing.T) {
	a, b := trail("a"), trail("b")
	r := Race(a, b)
	assert.Equal(t, []Runnable{a, b}, r.Children())
	assert.Equal(t, StopOnFirst, r.Policy())
	assert.Equal(t, WaitAll, Parallel(a).Policy())
	assert.Equal(t, "Race[first](a & b)", r.Name())
}

func TestRaceStop(t *testing.T) {
	m := onesModel(t, 2)
	var started atomic.Int32
	r := Parallel(blocking("x", 1, &started), blocking("y", 2, &started))

	go func() {
		for started.Load() < 2 {
			time.Sleep(time.Millisecond)
		}
		r.Stop()
	}()

	out, err := r.Run(context.Background(), withOnes(m, 2))
	require.NoError(t, err)
	require.Len(t, out.Candidates, 2)
	assert.Equal(t, 1, ones(t, out.Candidates[0].State))
	assert.Equal(t, 2, ones(t, out.Candidates[1].State))
}
