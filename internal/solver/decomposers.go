package solver

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/seantiz/hades/internal/flow"
	"github.com/seantiz/hades/internal/moves"
	"github.com/seantiz/hades/internal/subgraph"
)

// IdentityDecomposer hands the whole problem to the sampler.
type IdentityDecomposer struct{}

func (IdentityDecomposer) Decompose(_ context.Context, s flow.State) (*flow.Subproblem, error) {
	return flow.WholeProblem(s.Problem, s.Sample), nil
}

// EnergyImpactDecomposer selects the Size variables whose flip would change
// the energy most, and induces a subproblem on them with the rest of the
// current sample as boundary.
type EnergyImpactDecomposer struct {
	Size int
}

func (d EnergyImpactDecomposer) Decompose(_ context.Context, s flow.State) (*flow.Subproblem, error) {
	if d.Size >= s.Problem.Len() {
		return flow.WholeProblem(s.Problem, s.Sample), nil
	}
	gains, err := moves.FlipEnergyGains(s.Problem, s.Sample)
	if err != nil {
		return nil, fmt.Errorf("rank variables: %w", err)
	}
	core := make([]int, 0, d.Size)
	for _, g := range gains[:d.Size] {
		core = append(core, g.Variable)
	}
	return induce(s, core)
}

// RandomDecomposer selects Size variables uniformly at random.
type RandomDecomposer struct {
	Size int
	src  *source
}

// NewRandomDecomposer returns a random decomposer drawing from rng.
func NewRandomDecomposer(size int, rng *rand.Rand) *RandomDecomposer {
	return &RandomDecomposer{Size: size, src: newSource(rng)}
}

func (d *RandomDecomposer) Decompose(_ context.Context, s flow.State) (*flow.Subproblem, error) {
	size := min(d.Size, s.Problem.Len())
	core, err := moves.RandomSubgraph(s.Problem, size, d.src.fork())
	if err != nil {
		return nil, err
	}
	return induce(s, core)
}

func induce(s flow.State, core []int) (*flow.Subproblem, error) {
	core = slices.Sorted(slices.Values(core))
	m, err := subgraph.InducedBy(s.Problem, core, s.Sample)
	if err != nil {
		return nil, fmt.Errorf("induce subproblem: %w", err)
	}
	boundary := make(map[int]int)
	for _, v := range subgraph.Boundary(s.Problem, core) {
		boundary[v] = s.Sample[v]
	}
	return &flow.Subproblem{Model: m, Variables: core, Boundary: boundary}, nil
}
