package solver

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"math/bits"
	"math/rand/v2"
	"runtime"
	"slices"

	"github.com/sourcegraph/conc/pool"

	"github.com/seantiz/hades/internal/bqm"
	"github.com/seantiz/hades/internal/flow"
	"github.com/seantiz/hades/internal/moves"
	"github.com/seantiz/hades/internal/sample"
)

// MaxExactVariables bounds the exhaustive sampler.
const MaxExactVariables = 20

// exactCheckEvery is how many states the exhaustive sampler enumerates
// between cancellation checks.
const exactCheckEvery = 1 << 12

// SteepestDescentSampler repeatedly flips the variable with the most
// negative flip gain until no flip lowers the energy.
type SteepestDescentSampler struct {
	MaxSteps int
	src      *source
}

// NewSteepestDescentSampler returns a sampler completing missing initial
// values at random from rng.
func NewSteepestDescentSampler(maxSteps int, rng *rand.Rand) *SteepestDescentSampler {
	return &SteepestDescentSampler{MaxSteps: maxSteps, src: newSource(rng)}
}

func (d *SteepestDescentSampler) Sample(ctx context.Context, sub *flow.Subproblem) ([]sample.Assignment, error) {
	cur := start(sub, d.src.fork())
	vt := sub.Model.Vartype()
	for range d.MaxSteps {
		if ctx.Err() != nil {
			break
		}
		gains, err := moves.FlipEnergyGains(sub.Model, cur)
		if err != nil {
			return nil, err
		}
		if len(gains) == 0 {
			break
		}
		down := gains[len(gains)-1]
		if down.Gain >= 0 {
			break
		}
		cur[down.Variable] = vt.Flip(cur[down.Variable])
	}
	return []sample.Assignment{cur}, nil
}

// AnnealingSampler runs Metropolis sweeps under a geometric inverse
// temperature schedule from BetaStart to BetaEnd, keeping the best state
// of each read.
type AnnealingSampler struct {
	Sweeps    int
	Reads     int
	BetaStart float64
	BetaEnd   float64
	src       *source
}

// NewAnnealingSampler returns a simulated annealing sampler drawing from rng.
func NewAnnealingSampler(sweeps, reads int, betaStart, betaEnd float64, rng *rand.Rand) *AnnealingSampler {
	return &AnnealingSampler{Sweeps: sweeps, Reads: reads, BetaStart: betaStart, BetaEnd: betaEnd, src: newSource(rng)}
}

// Sample runs the reads concurrently, at most GOMAXPROCS at a time. Each
// read owns a generator forked in read order, so results depend only on the
// seed. The first read starts from the subproblem's initial values.
func (a *AnnealingSampler) Sample(ctx context.Context, sub *flow.Subproblem) ([]sample.Assignment, error) {
	rngs := make([]*rand.Rand, a.Reads)
	for i := range rngs {
		rngs[i] = a.src.fork()
	}

	reads := make([]scored, a.Reads)
	p := pool.New().WithErrors().WithMaxGoroutines(runtime.GOMAXPROCS(0))
	for i, rng := range rngs {
		p.Go(func() error {
			from := start(sub, rng)
			if i > 0 {
				from = sample.Random(sub.Model, rng)
			}
			best, err := a.anneal(ctx, sub.Model, from, rng)
			reads[i] = best
			return err
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return sortScored(reads), nil
}

func (a *AnnealingSampler) anneal(ctx context.Context, m *bqm.Model, cur sample.Assignment, rng *rand.Rand) (scored, error) {
	energy, err := m.Energy(cur)
	if err != nil {
		return scored{}, err
	}
	best := scored{cur.Clone(), energy}
	vars := m.Variables()
	vt := m.Vartype()
	ratio := 1.0
	if a.Sweeps > 1 {
		ratio = math.Pow(a.BetaEnd/a.BetaStart, 1/float64(a.Sweeps-1))
	}

	beta := a.BetaStart
	for range a.Sweeps {
		if ctx.Err() != nil {
			break
		}
		for _, v := range vars {
			delta, err := flipDelta(m, cur, v)
			if err != nil {
				return scored{}, err
			}
			if delta <= 0 || rng.Float64() < math.Exp(-beta*delta) {
				cur[v] = vt.Flip(cur[v])
				energy += delta
			}
		}
		if energy < best.energy {
			best = scored{cur.Clone(), energy}
		}
		beta *= ratio
	}
	return best, nil
}

// ExactSampler enumerates every assignment of a small subproblem.
type ExactSampler struct{}

func (ExactSampler) Sample(ctx context.Context, sub *flow.Subproblem) ([]sample.Assignment, error) {
	vars := sub.Model.Variables()
	if len(vars) > MaxExactVariables {
		return nil, fmt.Errorf("%w: %d variables, limit %d", ErrTooLarge, len(vars), MaxExactVariables)
	}
	vt := sub.Model.Vartype()
	cur := sample.Min(sub.Model)
	energy, err := sub.Model.Energy(cur)
	if err != nil {
		return nil, err
	}
	best := scored{cur.Clone(), energy}

	// Gray code order: step i flips the variable at the index of the lowest
	// set bit of i, so each state costs one incremental update.
	total := uint64(1) << len(vars)
	for i := uint64(1); i < total; i++ {
		if i%exactCheckEvery == 0 && ctx.Err() != nil {
			break
		}
		v := vars[bits.TrailingZeros64(i)]
		delta, err := flipDelta(sub.Model, cur, v)
		if err != nil {
			return nil, err
		}
		cur[v] = vt.Flip(cur[v])
		energy += delta
		if energy < best.energy {
			best = scored{cur.Clone(), energy}
		}
	}
	return []sample.Assignment{best.a}, nil
}

// RandomSampler returns the best of Reads uniformly random assignments.
type RandomSampler struct {
	Reads int
	src   *source
}

// NewRandomSampler returns a random sampler drawing from rng.
func NewRandomSampler(reads int, rng *rand.Rand) *RandomSampler {
	return &RandomSampler{Reads: reads, src: newSource(rng)}
}

func (r *RandomSampler) Sample(ctx context.Context, sub *flow.Subproblem) ([]sample.Assignment, error) {
	rng := r.src.fork()
	reads := make([]scored, 0, r.Reads)
	for range r.Reads {
		if ctx.Err() != nil && len(reads) > 0 {
			break
		}
		a := sample.Random(sub.Model, rng)
		e, err := sub.Model.Energy(a)
		if err != nil {
			return nil, err
		}
		reads = append(reads, scored{a, e})
	}
	return sortScored(reads), nil
}

type scored struct {
	a      sample.Assignment
	energy float64
}

// sortScored orders reads by ascending energy, keeping read order on ties.
func sortScored(reads []scored) []sample.Assignment {
	slices.SortStableFunc(reads, func(x, y scored) int { return cmp.Compare(x.energy, y.energy) })
	out := make([]sample.Assignment, len(reads))
	for i, r := range reads {
		out[i] = r.a
	}
	return out
}

// start returns the subproblem's initial assignment, completing any missing
// variables at random.
func start(sub *flow.Subproblem, rng *rand.Rand) sample.Assignment {
	cur := make(sample.Assignment, sub.Model.Len())
	values := sub.Model.Vartype().Values()
	for v := range sub.Model.All() {
		if x, ok := sub.Initial[v]; ok && sub.Model.Vartype().Contains(x) {
			cur[v] = x
		} else {
			cur[v] = values[rng.IntN(len(values))]
		}
	}
	return cur
}

// flipDelta returns the energy change of flipping v alone in a.
func flipDelta(m *bqm.Model, a sample.Assignment, v int) (float64, error) {
	step, err := m.Vartype().FlipDelta(a[v])
	if err != nil {
		return 0, err
	}
	field := m.Linear(v)
	for u, b := range m.Neighbors(v) {
		field += b * float64(a[u])
	}
	return field * float64(step), nil
}
