package solver

import (
	"cmp"
	"fmt"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/seantiz/hades/internal/flow"
)

// Kind is the role a strategy plays in a workflow.
type Kind string

const (
	KindDecomposer Kind = "decomposer"
	KindSampler    Kind = "sampler"
	KindComposer   Kind = "composer"
)

// Info describes a registered strategy.
type Info struct {
	Name        string   `json:"name"`
	Kind        Kind     `json:"kind"`
	Description string   `json:"description"`
	Params      []string `json:"params,omitempty"`
}

// Factory types build a strategy from its parameters and a random source
// owned by the built strategy.
type (
	DecomposerFactory func(p Params, rng *rand.Rand) (flow.Decomposer, error)
	SamplerFactory    func(p Params, rng *rand.Rand) (flow.Sampler, error)
	ComposerFactory   func(p Params, rng *rand.Rand) (flow.Composer, error)
)

type entry struct {
	info  Info
	build func(p Params, rng *rand.Rand) (any, error)
}

// Registry holds named strategy factories. Strategies built without a
// "seed" parameter draw their seed from the registry's source.
type Registry struct {
	mu      sync.RWMutex
	entries map[Kind]map[string]entry
	seedMu  sync.Mutex
	seeds   *rand.Rand
}

// NewRegistry creates an empty registry drawing seeds from src. A nil src
// is replaced by a process-seeded source.
func NewRegistry(src *rand.Rand) *Registry {
	if src == nil {
		src = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	return &Registry{
		entries: map[Kind]map[string]entry{
			KindDecomposer: {},
			KindSampler:    {},
			KindComposer:   {},
		},
		seeds: src,
	}
}

// NewDefaultRegistry returns a registry with every built-in strategy.
func NewDefaultRegistry(src *rand.Rand) *Registry {
	r := NewRegistry(src)
	registerBuiltins(r)
	return r
}

func (r *Registry) register(info Info, build func(Params, *rand.Rand) (any, error)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries[info.Kind][info.Name] = entry{info: info, build: build}
}

// RegisterDecomposer adds a decomposer factory under info.Name.
func (r *Registry) RegisterDecomposer(info Info, f DecomposerFactory) {
	info.Kind = KindDecomposer
	r.register(info, func(p Params, rng *rand.Rand) (any, error) { return f(p, rng) })
}

// RegisterSampler adds a sampler factory under info.Name.
func (r *Registry) RegisterSampler(info Info, f SamplerFactory) {
	info.Kind = KindSampler
	r.register(info, func(p Params, rng *rand.Rand) (any, error) { return f(p, rng) })
}

// RegisterComposer adds a composer factory under info.Name.
func (r *Registry) RegisterComposer(info Info, f ComposerFactory) {
	info.Kind = KindComposer
	r.register(info, func(p Params, rng *rand.Rand) (any, error) { return f(p, rng) })
}

// Decomposer builds the named decomposer.
func (r *Registry) Decomposer(name string, p Params) (flow.Decomposer, error) {
	v, err := r.build(KindDecomposer, name, p)
	if err != nil {
		return nil, err
	}
	return v.(flow.Decomposer), nil
}

// Sampler builds the named sampler.
func (r *Registry) Sampler(name string, p Params) (flow.Sampler, error) {
	v, err := r.build(KindSampler, name, p)
	if err != nil {
		return nil, err
	}
	return v.(flow.Sampler), nil
}

// Composer builds the named composer.
func (r *Registry) Composer(name string, p Params) (flow.Composer, error) {
	v, err := r.build(KindComposer, name, p)
	if err != nil {
		return nil, err
	}
	return v.(flow.Composer), nil
}

func (r *Registry) build(kind Kind, name string, p Params) (any, error) {
	r.mu.RLock()
	e, ok := r.entries[kind][name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s %q", ErrNotRegistered, kind, name)
	}

	seed, ok, err := p.Seed()
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, name, err)
	}
	if !ok {
		r.seedMu.Lock()
		seed = r.seeds.Uint64()
		r.seedMu.Unlock()
	}
	v, err := e.build(p, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)))
	if err != nil {
		return nil, fmt.Errorf("%s %q: %w", kind, name, err)
	}
	return v, nil
}

// List returns every registered strategy sorted by kind and name for a
// stable API response.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var infos []Info
	for _, byName := range r.entries {
		for _, e := range byName {
			infos = append(infos, e.info)
		}
	}
	slices.SortFunc(infos, func(a, b Info) int {
		return cmp.Or(cmp.Compare(a.Kind, b.Kind), cmp.Compare(a.Name, b.Name))
	})
	return infos
}
