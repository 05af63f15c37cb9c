package flow

import (
	"context"
	"errors"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countdown yields states with 5, 3, 4, 2, 6, ... ones, forever.
func countdown(ctx context.Context, s State) iter.Seq2[State, error] {
	pattern := []int{5, 3, 4, 2, 6}
	return func(yield func(State, error) bool) {
		for i := 0; ; i++ {
			if !yield(withOnes(s.Problem, pattern[i%len(pattern)]), nil) {
				return
			}
		}
	}
}

func TestStreamStopsBetweenElements(t *testing.T) {
	m := onesModel(t, 8)
	var st *Stream
	produced := 0
	st = NewStream("countdown", func(ctx context.Context, s State) iter.Seq2[State, error] {
		return func(yield func(State, error) bool) {
			for next, err := range countdown(ctx, s) {
				produced++
				if produced == 4 {
					st.Stop()
				}
				if !yield(next, err) {
					return
				}
			}
		}
	})

	out, err := st.Run(context.Background(), withOnes(m, 8))
	require.NoError(t, err)
	assert.Equal(t, 4, produced)
	assert.Equal(t, 2, ones(t, out))
	assert.Empty(t, st.Children())
}

func TestStreamFinite(t *testing.T) {
	m := onesModel(t, 8)
	st := NewStream("three", func(_ context.Context, s State) iter.Seq2[State, error] {
		return func(yield func(State, error) bool) {
			for _, k := range []int{6, 1, 7} {
				if !yield(withOnes(s.Problem, k), nil) {
					return
				}
			}
		}
	})

	out, err := st.Run(context.Background(), withOnes(m, 8))
	require.NoError(t, err)
	assert.Equal(t, 1, ones(t, out))
}

func TestStreamEmptyReturnsInput(t *testing.T) {
	m := onesModel(t, 3)
	st := NewStream("none", func(context.Context, State) iter.Seq2[State, error] {
		return func(func(State, error) bool) {}
	})

	out, err := st.Run(context.Background(), withOnes(m, 3))
	require.NoError(t, err)
	assert.Equal(t, 3, ones(t, out))
}

func TestStreamError(t *testing.T) {
	boom := errors.New("boom")
	st := NewStream("broken", func(context.Context, State) iter.Seq2[State, error] {
		return func(yield func(State, error) bool) {
			yield(State{}, boom)
		}
	})

	_, err := st.Run(context.Background(), State{})
	require.ErrorIs(t, err, boom)
}
