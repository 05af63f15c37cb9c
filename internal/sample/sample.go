// Package sample converts and updates variable assignments over a model:
// map and sequence forms, merging partial assignments, and generating
// random, minimum and maximum assignments.
package sample

import (
	"fmt"
	"maps"
	"math/rand/v2"
	"slices"

	"github.com/seantiz/hades/internal/bqm"
)

// Assignment maps variable labels to domain values.
type Assignment map[int]int

// Sequence is the list form of an assignment over the contiguous labels
// Start, Start+1, ..., Start+len(Values)-1.
type Sequence struct {
	Start  int   `json:"start"`
	Values []int `json:"values"`
}

// Clone returns an independent copy of a.
func (a Assignment) Clone() Assignment {
	if a == nil {
		return nil
	}
	return maps.Clone(a)
}

// Labels returns the labels of a in ascending order.
func (a Assignment) Labels() []int {
	return slices.Sorted(maps.Keys(a))
}

// ToSequence converts a into list form. It fails with bqm.ErrIncomplete when
// the labels do not form a contiguous integer range.
func ToSequence(a Assignment) (Sequence, error) {
	if len(a) == 0 {
		return Sequence{}, nil
	}
	labels := a.Labels()
	first, last := labels[0], labels[len(labels)-1]
	if last-first+1 != len(labels) {
		return Sequence{}, fmt.Errorf("%w: labels %d..%d are not contiguous (%d present)",
			bqm.ErrIncomplete, first, last, len(labels))
	}
	values := make([]int, len(labels))
	for i, v := range labels {
		values[i] = a[v]
	}
	return Sequence{Start: first, Values: values}, nil
}

// ToMap converts a sequence back into map form.
func ToMap(seq Sequence) Assignment {
	a := make(Assignment, len(seq.Values))
	for i, val := range seq.Values {
		a[seq.Start+i] = val
	}
	return a
}

// FromSlice maps values[i] to label i.
func FromSlice(values []int) Assignment {
	return ToMap(Sequence{Values: values})
}

// Merge returns a copy of base with every entry of overrides applied on top.
func Merge(base, overrides Assignment) Assignment {
	out := make(Assignment, len(base)+len(overrides))
	maps.Copy(out, base)
	maps.Copy(out, overrides)
	return out
}

// Validate checks that every value of a belongs to the vartype's domain.
func Validate(a Assignment, vt bqm.Vartype) error {
	if !vt.Valid() {
		return fmt.Errorf("%w: %d", bqm.ErrInvalidDomain, int(vt))
	}
	for _, v := range a.Labels() {
		if !vt.Contains(a[v]) {
			return fmt.Errorf("%w: value %d for variable %d", bqm.ErrInvalidDomain, a[v], v)
		}
	}
	return nil
}

// Random assigns a uniformly random domain value to every variable of m.
func Random(m *bqm.Model, rng *rand.Rand) Assignment {
	values := m.Vartype().Values()
	a := make(Assignment, m.Len())
	for v := range m.All() {
		a[v] = values[rng.IntN(len(values))]
	}
	return a
}

// RandomSeq returns a random assignment over labels 0..size-1.
func RandomSeq(size int, vt bqm.Vartype, rng *rand.Rand) (Assignment, error) {
	values := vt.Values()
	if values == nil {
		return nil, fmt.Errorf("%w: %d", bqm.ErrInvalidDomain, int(vt))
	}
	a := make(Assignment, size)
	for i := range size {
		a[i] = values[rng.IntN(len(values))]
	}
	return a, nil
}

// Min assigns the domain minimum to every variable of m.
func Min(m *bqm.Model) Assignment {
	return constant(m, m.Vartype().Min())
}

// Max assigns the domain maximum to every variable of m.
func Max(m *bqm.Model) Assignment {
	return constant(m, m.Vartype().Max())
}

func constant(m *bqm.Model, value int) Assignment {
	a := make(Assignment, m.Len())
	for v := range m.All() {
		a[v] = value
	}
	return a
}
