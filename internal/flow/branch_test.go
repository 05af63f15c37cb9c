package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func trail(name string) Runnable {
	return Func(name, func(_ context.Context, s State) (State, error) {
		prev, _ := s.Info["trail"].(string)
		return s.WithInfo("trail", prev+name), nil
	})
}

func TestSequenceThreadsState(t *testing.T) {
	b := Sequence(trail("a"), trail("b"), trail("c"))

	out, err := b.Run(context.Background(), State{})
	require.NoError(t, err)
	assert.Equal(t, "abc", out.Info["trail"])
	assert.Len(t, b.Children(), 3)
}

func TestSequenceAssociative(t *testing.T) {
	a, b, c := trail("a"), trail("b"), trail("c")

	left := Sequence(Sequence(a, b), c)
	right := Sequence(a, Sequence(b, c))
	assert.Equal(t, left.Children(), right.Children())
	assert.Equal(t, []Runnable{a, b, c}, left.Children())
}

func TestSequenceIdentity(t *testing.T) {
	a := trail("a")
	assert.Equal(t, []Runnable{a}, Sequence(Identity(), a, Identity()).Children())
	assert.Empty(t, Identity().Children())

	s := State{Iteration: 7}
	out, err := Sequence().Run(context.Background(), s)
	require.NoError(t, err)
	assert.Equal(t, s, out)
}

func TestSequenceSurfacesFirstFailure(t *testing.T) {
	boom := errors.New("boom")
	called := false
	last := Func("last", func(_ context.Context, s State) (State, error) {
		called = true
		return s, nil
	})

	_, err := Sequence(trail("a"), failing("bad", boom), last).Run(context.Background(), State{})
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "step 1 (bad)")
	assert.False(t, called)
}

func TestSequenceDoesNotMutateInput(t *testing.T) {
	m := onesModel(t, 4)
	in := withOnes(m, 4)

	out, err := Sequence(clearOne(), clearOne()).Run(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, 2, ones(t, out))
	assert.Equal(t, 4, ones(t, in))
}

func TestBranchStop(t *testing.T) {
	m := onesModel(t, 2)
	ran := false
	after := Func("after", func(_ context.Context, s State) (State, error) {
		ran = true
		return s, nil
	})
	b := Sequence(blocking("wait", 0, nil), after)

	go func() {
		for b.base.Running() == 0 {
			time.Sleep(time.Millisecond)
		}
		b.Stop()
		b.Stop()
	}()

	_, err := b.Run(context.Background(), withOnes(m, 2))
	require.ErrorIs(t, err, ErrStopped)
	assert.False(t, ran)
	assert.Zero(t, b.base.Running())
}
