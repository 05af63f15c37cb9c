package solver

import (
	"fmt"
	"math/rand/v2"

	"github.com/seantiz/hades/internal/flow"
)

// Defaults for built-in strategy parameters.
const (
	DefaultSubproblemSize = 50
	DefaultDescentSteps   = 10000
	DefaultSweeps         = 1000
	DefaultAnnealReads    = 1
	DefaultRandomReads    = 10
	DefaultBetaStart      = 0.1
	DefaultBetaEnd        = 5.0
)

func registerBuiltins(r *Registry) {
	r.RegisterDecomposer(Info{
		Name:        "identity",
		Description: "Whole problem as a single subproblem.",
	}, func(Params, *rand.Rand) (flow.Decomposer, error) {
		return IdentityDecomposer{}, nil
	})
	r.RegisterDecomposer(Info{
		Name:        "energy-impact",
		Description: "Variables with the largest flip energy gain, with the rest of the sample as boundary.",
		Params:      []string{"size"},
	}, func(p Params, _ *rand.Rand) (flow.Decomposer, error) {
		size, err := p.positive("size", DefaultSubproblemSize)
		if err != nil {
			return nil, err
		}
		return EnergyImpactDecomposer{Size: size}, nil
	})
	r.RegisterDecomposer(Info{
		Name:        "random",
		Description: "Uniformly random variable subset.",
		Params:      []string{"size", "seed"},
	}, func(p Params, rng *rand.Rand) (flow.Decomposer, error) {
		size, err := p.positive("size", DefaultSubproblemSize)
		if err != nil {
			return nil, err
		}
		return NewRandomDecomposer(size, rng), nil
	})

	r.RegisterSampler(Info{
		Name:        "steepest-descent",
		Description: "Greedy single flips along the most negative flip gain.",
		Params:      []string{"max_steps", "seed"},
	}, func(p Params, rng *rand.Rand) (flow.Sampler, error) {
		steps, err := p.positive("max_steps", DefaultDescentSteps)
		if err != nil {
			return nil, err
		}
		return NewSteepestDescentSampler(steps, rng), nil
	})
	r.RegisterSampler(Info{
		Name:        "simulated-annealing",
		Description: "Metropolis sweeps under a geometric temperature schedule.",
		Params:      []string{"sweeps", "reads", "beta_start", "beta_end", "seed"},
	}, func(p Params, rng *rand.Rand) (flow.Sampler, error) {
		sweeps, err := p.positive("sweeps", DefaultSweeps)
		if err != nil {
			return nil, err
		}
		reads, err := p.positive("reads", DefaultAnnealReads)
		if err != nil {
			return nil, err
		}
		betaStart, err := p.Float("beta_start", DefaultBetaStart)
		if err != nil {
			return nil, err
		}
		betaEnd, err := p.Float("beta_end", DefaultBetaEnd)
		if err != nil {
			return nil, err
		}
		if betaStart <= 0 || betaEnd <= 0 {
			return nil, fmt.Errorf("%w: beta_start and beta_end must be positive", ErrInvalidParam)
		}
		return NewAnnealingSampler(sweeps, reads, betaStart, betaEnd, rng), nil
	})
	r.RegisterSampler(Info{
		Name:        "exact",
		Description: fmt.Sprintf("Exhaustive search, up to %d variables.", MaxExactVariables),
	}, func(Params, *rand.Rand) (flow.Sampler, error) {
		return ExactSampler{}, nil
	})
	r.RegisterSampler(Info{
		Name:        "random",
		Description: "Best of uniformly random assignments.",
		Params:      []string{"reads", "seed"},
	}, func(p Params, rng *rand.Rand) (flow.Sampler, error) {
		reads, err := p.positive("reads", DefaultRandomReads)
		if err != nil {
			return nil, err
		}
		return NewRandomSampler(reads, rng), nil
	})

	r.RegisterComposer(Info{
		Name:        "identity",
		Description: "Keep the current sample.",
	}, func(Params, *rand.Rand) (flow.Composer, error) {
		return IdentityComposer{}, nil
	})
	r.RegisterComposer(Info{
		Name:        "splat",
		Description: "Overwrite the sample with the best subsample.",
	}, func(Params, *rand.Rand) (flow.Composer, error) {
		return SplatComposer{}, nil
	})
	r.RegisterComposer(Info{
		Name:        "greedy",
		Description: "Splat only when the energy does not increase.",
	}, func(Params, *rand.Rand) (flow.Composer, error) {
		return GreedyComposer{}, nil
	})
}
