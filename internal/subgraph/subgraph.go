// Package subgraph derives smaller models from a parent model: reductions
// that fix a few variables, induced models over a small core with a fixed
// boundary, and the set of interactions captured by a variable subset.
//
// Every function returns a new model; the parent is never mutated, so it can
// stay shared between concurrently running workflow branches.
package subgraph

import (
	"fmt"
	"maps"
	"slices"

	"github.com/seantiz/hades/internal/bqm"
	"github.com/seantiz/hades/internal/sample"
)

// Edge is an interaction between U and V. U == V marks a variable's own
// linear term.
type Edge struct {
	U int `json:"u"`
	V int `json:"v"`
}

// ReduceTo returns a copy of m restricted to keep. Every other variable is
// fixed to its value in fixed, folding its contribution into the remaining
// biases and the offset. With keepOffset false the reduced offset is zeroed.
//
// Suited to removing few variables: the removed set is found from fixed and
// keep without listing the model, and folding costs time proportional to the
// removed variables and their incident edges. The parent is left intact, so
// the result starts as a Copy.
func ReduceTo(m *bqm.Model, keep []int, fixed sample.Assignment, keepOffset bool) (*bqm.Model, error) {
	kept := toSet(keep)
	present := 0
	for v := range kept {
		if m.HasVariable(v) {
			present++
		}
	}
	removed := make(map[int]int, m.Len()-present)
	for v, x := range fixed {
		if _, ok := kept[v]; ok || !m.HasVariable(v) {
			continue
		}
		removed[v] = x
	}
	if present+len(removed) != m.Len() {
		for v := range m.All() {
			_, k := kept[v]
			_, r := removed[v]
			if !k && !r {
				return nil, fmt.Errorf("%w: no fixed value for variable %d", bqm.ErrIncomplete, v)
			}
		}
	}

	reduced := m.Copy()
	if err := reduced.FixVariables(removed); err != nil {
		return nil, fmt.Errorf("reduce: %w", err)
	}
	if !keepOffset {
		reduced.RemoveOffset()
	}
	return reduced, nil
}

// InducedBy returns the model over exactly core. Couplings between core
// variables are copied once each; couplings to outside variables are folded
// into the core variable's linear bias using boundary values. Only variables
// adjacent to the core need a boundary value. The result has zero offset:
// only energy differences are meaningful for an induced model.
//
// Suited to small cores: work is proportional to the core and its incident
// edges, independent of the parent's size.
func InducedBy(m *bqm.Model, core []int, boundary sample.Assignment) (*bqm.Model, error) {
	inCore := toSet(core)
	sub := bqm.New(m.Vartype())
	for _, u := range slices.Sorted(maps.Keys(inCore)) {
		if !m.HasVariable(u) {
			return nil, fmt.Errorf("%w: %d", bqm.ErrUnknownVariable, u)
		}
		bias := m.Linear(u)
		for v, j := range m.Neighbors(u) {
			if _, ok := inCore[v]; ok {
				if u < v {
					sub.AddInteraction(u, v, j)
				}
				continue
			}
			value, ok := boundary[v]
			if !ok {
				return nil, fmt.Errorf("%w: no boundary value for variable %d", bqm.ErrIncomplete, v)
			}
			bias += j * float64(value)
		}
		sub.AddVariable(u, bias)
	}
	return sub, nil
}

// Boundary returns the variables outside core that interact with it, in
// ascending order.
func Boundary(m *bqm.Model, core []int) []int {
	inCore := toSet(core)
	seen := make(map[int]struct{})
	for u := range inCore {
		for v := range m.Neighbors(u) {
			if _, ok := inCore[v]; !ok {
				seen[v] = struct{}{}
			}
		}
	}
	return slices.Sorted(maps.Keys(seen))
}

// EdgesAmong returns every interaction with both endpoints in variables,
// followed by a self-edge (v, v) for each of those variables present in m.
// No edge is reported twice.
func EdgesAmong(m *bqm.Model, variables []int) []Edge {
	set := toSet(variables)
	ordered := make([]int, 0, len(set))
	for v := range set {
		if m.HasVariable(v) {
			ordered = append(ordered, v)
		}
	}
	slices.Sort(ordered)

	var edges []Edge
	for _, u := range ordered {
		for v := range m.Neighbors(u) {
			if _, ok := set[v]; ok && u < v {
				edges = append(edges, Edge{U: u, V: v})
			}
		}
	}
	for _, v := range ordered {
		edges = append(edges, Edge{U: v, V: v})
	}
	return edges
}

func toSet(vs []int) map[int]struct{} {
	set := make(map[int]struct{}, len(vs))
	for _, v := range vs {
		set[v] = struct{}{}
	}
	return set
}
