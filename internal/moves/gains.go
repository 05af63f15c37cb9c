package moves

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/seantiz/hades/internal/bqm"
	"github.com/seantiz/hades/internal/sample"
)

// EnergyGain is the energy change of flipping Variable.
type EnergyGain struct {
	Gain     float64 `json:"gain"`
	Variable int     `json:"variable"`
}

// FlipEnergyGains returns, for every variable of m, the energy change of
// flipping its value in a, sorted by descending gain. Equal gains are ordered
// by descending label. The assignment must cover every variable with a value
// from the model's domain.
func FlipEnergyGains(m *bqm.Model, a sample.Assignment) ([]EnergyGain, error) {
	vt := m.Vartype()
	if !vt.Valid() {
		return nil, fmt.Errorf("%w: %d", bqm.ErrInvalidDomain, int(vt))
	}

	gains := make([]EnergyGain, 0, m.Len())
	for v, h := range m.All() {
		value, ok := a[v]
		if !ok {
			return nil, fmt.Errorf("%w: missing variable %d", bqm.ErrIncomplete, v)
		}
		delta, err := vt.FlipDelta(value)
		if err != nil {
			return nil, fmt.Errorf("variable %d: %w", v, err)
		}
		contrib := h
		for u, j := range m.Neighbors(v) {
			xu, ok := a[u]
			if !ok {
				return nil, fmt.Errorf("%w: missing variable %d", bqm.ErrIncomplete, u)
			}
			if !vt.Contains(xu) {
				return nil, fmt.Errorf("%w: value %d for variable %d", bqm.ErrInvalidDomain, xu, u)
			}
			contrib += j * float64(xu)
		}
		gains = append(gains, EnergyGain{Gain: contrib * float64(delta), Variable: v})
	}
	sortGains(gains)
	return gains, nil
}

// FlipEnergyGainsNaive computes the same ranking as FlipEnergyGains by
// evaluating the whole model once per flipped variable. It is orders of
// magnitude slower and exists as a reference implementation.
func FlipEnergyGainsNaive(m *bqm.Model, a sample.Assignment) ([]EnergyGain, error) {
	vt := m.Vartype()
	if !vt.Valid() {
		return nil, fmt.Errorf("%w: %d", bqm.ErrInvalidDomain, int(vt))
	}
	base, err := m.Energy(a)
	if err != nil {
		return nil, err
	}

	flipped := a.Clone()
	gains := make([]EnergyGain, 0, m.Len())
	for v := range m.All() {
		orig := flipped[v]
		flipped[v] = vt.Flip(orig)
		e, err := m.Energy(flipped)
		if err != nil {
			return nil, err
		}
		flipped[v] = orig
		gains = append(gains, EnergyGain{Gain: e - base, Variable: v})
	}
	sortGains(gains)
	return gains, nil
}

func sortGains(gains []EnergyGain) {
	slices.SortFunc(gains, func(x, y EnergyGain) int {
		if c := cmp.Compare(y.Gain, x.Gain); c != 0 {
			return c
		}
		return cmp.Compare(y.Variable, x.Variable)
	})
}

type selectOptions struct {
	maxCount int
	minGain  float64
	hasMin   bool
}

// SelectOption tunes SelectAdversaries.
type SelectOption func(*selectOptions)

// WithMaxCount caps the number of returned variables. Negative values mean no cap.
func WithMaxCount(n int) SelectOption {
	return func(o *selectOptions) { o.maxCount = n }
}

// WithMinGain keeps only variables whose flip gain is at least g.
func WithMinGain(g float64) SelectOption {
	return func(o *selectOptions) {
		o.minGain = g
		o.hasMin = true
	}
}

// SelectAdversaries returns, in descending-gain order, up to the configured
// number of variables whose flip gain meets the configured threshold. By
// default every ranked variable is returned.
func SelectAdversaries(m *bqm.Model, a sample.Assignment, opts ...SelectOption) ([]int, error) {
	o := selectOptions{maxCount: -1}
	for _, opt := range opts {
		opt(&o)
	}

	gains, err := FlipEnergyGains(m, a)
	if err != nil {
		return nil, err
	}

	vars := make([]int, 0, len(gains))
	for _, g := range gains {
		if o.maxCount >= 0 && len(vars) >= o.maxCount {
			break
		}
		if o.hasMin && g.Gain < o.minGain {
			// gains are sorted, nothing further can qualify
			break
		}
		vars = append(vars, g.Variable)
	}
	return vars, nil
}

// RandomSubgraph samples n variables of m uniformly without replacement.
func RandomSubgraph(m *bqm.Model, n int, rng *rand.Rand) ([]int, error) {
	vars := m.Variables()
	if n < 0 || n > len(vars) {
		return nil, fmt.Errorf("%w: %d not in [0, %d]", ErrOutOfRange, n, len(vars))
	}
	// partial Fisher-Yates
	for i := range n {
		j := i + rng.IntN(len(vars)-i)
		vars[i], vars[j] = vars[j], vars[i]
	}
	return vars[:n], nil
}
