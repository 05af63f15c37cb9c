package solver

import (
	"math/rand/v2"
	"sync"
)

// source hands out independent generators for concurrent calls on one
// strategy instance. The sequence of forks is deterministic for a seed.
type source struct {
	mu  sync.Mutex
	rng *rand.Rand
}

func newSource(rng *rand.Rand) *source {
	return &source{rng: rng}
}

func (s *source) fork() *rand.Rand {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rand.New(rand.NewPCG(s.rng.Uint64(), s.rng.Uint64()))
}
