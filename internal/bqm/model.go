package bqm

import (
	"fmt"
	"iter"
	"maps"
	"slices"
)

// Interaction is a quadratic term between two distinct variables, U < V.
type Interaction struct {
	U    int     `json:"u"`
	V    int     `json:"v"`
	Bias float64 `json:"bias"`
}

// Model is a binary quadratic model.
//
// Variables and neighbour lists are kept in ascending label order so that
// every traversal, and therefore every floating-point sum, is deterministic.
type Model struct {
	vartype Vartype
	offset  float64
	linear  map[int]float64
	adj     map[int]map[int]float64
	order   []int
	nbrs    map[int][]int
}

// New returns an empty model over the given vartype. It panics if vt is not
// Binary or Spin; use NewFromTerms or JSON decoding for untrusted input.
func New(vt Vartype) *Model {
	if !vt.Valid() {
		panic(fmt.Sprintf("bqm: New called with invalid vartype %d", int(vt)))
	}
	return &Model{
		vartype: vt,
		linear:  make(map[int]float64),
		adj:     make(map[int]map[int]float64),
		nbrs:    make(map[int][]int),
	}
}

// NewFromTerms builds a model from linear and quadratic terms. Variables that
// appear only in quadratic terms get a zero linear bias. Labels and
// neighbour lists are sorted once, so construction is O((n+m) log n) in any
// term order.
func NewFromTerms(vt Vartype, linear map[int]float64, quadratic []Interaction, offset float64) (*Model, error) {
	if !vt.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDomain, int(vt))
	}
	labels := slices.AppendSeq(make([]int, 0, len(linear)+2*len(quadratic)), maps.Keys(linear))
	for _, q := range quadratic {
		labels = append(labels, q.U, q.V)
	}
	slices.Sort(labels)

	m := New(vt)
	m.order = slices.Compact(labels)
	for _, v := range m.order {
		m.linear[v] = linear[v]
		m.adj[v] = make(map[int]float64)
	}
	for _, q := range quadratic {
		if q.U == q.V {
			m.addSelf(q.U, q.Bias)
			continue
		}
		if _, ok := m.adj[q.U][q.V]; !ok {
			m.nbrs[q.U] = append(m.nbrs[q.U], q.V)
			m.nbrs[q.V] = append(m.nbrs[q.V], q.U)
		}
		m.adj[q.U][q.V] += q.Bias
		m.adj[q.V][q.U] += q.Bias
	}
	for _, nb := range m.nbrs {
		slices.Sort(nb)
	}
	m.offset += offset
	return m, nil
}

// Vartype returns the model's value domain.
func (m *Model) Vartype() Vartype { return m.vartype }

// Offset returns the constant energy offset.
func (m *Model) Offset() float64 { return m.offset }

// SetOffset replaces the constant energy offset.
func (m *Model) SetOffset(offset float64) { m.offset = offset }

// RemoveOffset sets the offset to zero.
func (m *Model) RemoveOffset() { m.offset = 0 }

// Len returns the number of variables.
func (m *Model) Len() int { return len(m.order) }

// NumInteractions returns the number of quadratic terms.
func (m *Model) NumInteractions() int {
	n := 0
	for _, nb := range m.nbrs {
		n += len(nb)
	}
	return n / 2
}

// HasVariable reports whether v is in the model.
func (m *Model) HasVariable(v int) bool {
	_, ok := m.linear[v]
	return ok
}

// Variables returns the variable labels in ascending order. The slice is a copy.
func (m *Model) Variables() []int {
	return slices.Clone(m.order)
}

// All iterates the variables in ascending order together with their linear bias.
func (m *Model) All() iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		for _, v := range m.order {
			if !yield(v, m.linear[v]) {
				return
			}
		}
	}
}

// Linear returns the linear bias of v (zero for unknown variables).
func (m *Model) Linear(v int) float64 { return m.linear[v] }

// Quadratic returns the coupling between u and v, if any.
func (m *Model) Quadratic(u, v int) (float64, bool) {
	row, ok := m.adj[u]
	if !ok {
		return 0, false
	}
	b, ok := row[v]
	return b, ok
}

// Degree returns the number of neighbours of v.
func (m *Model) Degree(v int) int { return len(m.nbrs[v]) }

// Neighbors iterates the neighbours of v in ascending order with the
// coupling to each.
func (m *Model) Neighbors(v int) iter.Seq2[int, float64] {
	return func(yield func(int, float64) bool) {
		row := m.adj[v]
		for _, u := range m.nbrs[v] {
			if !yield(u, row[u]) {
				return
			}
		}
	}
}

// Interactions returns every quadratic term once, ordered by (U, V).
func (m *Model) Interactions() []Interaction {
	out := make([]Interaction, 0, m.NumInteractions())
	for _, u := range m.order {
		row := m.adj[u]
		for _, v := range m.nbrs[u] {
			if v > u {
				out = append(out, Interaction{U: u, V: v, Bias: row[v]})
			}
		}
	}
	return out
}

// AddVariable adds bias to the linear term of v, creating v if needed.
// Creating variables in ascending label order is amortized O(log n) each.
func (m *Model) AddVariable(v int, bias float64) {
	if _, ok := m.linear[v]; !ok {
		m.order = insertSorted(m.order, v)
		m.adj[v] = make(map[int]float64)
	}
	m.linear[v] += bias
}

// AddInteraction adds bias to the coupling between u and v, creating either
// variable if needed. A self-interaction is folded into the linear term for
// BINARY (x*x == x) and into the offset for SPIN (s*s == 1).
func (m *Model) AddInteraction(u, v int, bias float64) {
	m.AddVariable(u, 0)
	if u == v {
		m.addSelf(u, bias)
		return
	}
	m.AddVariable(v, 0)
	if _, ok := m.adj[u][v]; !ok {
		m.nbrs[u] = insertSorted(m.nbrs[u], v)
		m.nbrs[v] = insertSorted(m.nbrs[v], u)
	}
	m.adj[u][v] += bias
	m.adj[v][u] += bias
}

func (m *Model) addSelf(v int, bias float64) {
	if m.vartype == Spin {
		m.offset += bias
	} else {
		m.linear[v] += bias
	}
}

// FixVariable assigns value to v and removes it, folding its linear bias into
// the offset and its couplings into the linear biases of its neighbours.
func (m *Model) FixVariable(v int, value int) error {
	if !m.HasVariable(v) {
		return fmt.Errorf("%w: %d", ErrUnknownVariable, v)
	}
	if !m.vartype.Contains(value) {
		return fmt.Errorf("%w: value %d for variable %d", ErrInvalidDomain, value, v)
	}
	m.fold(v, value)
	m.order = removeSorted(m.order, v)
	return nil
}

// FixVariables fixes every variable in values, as FixVariable does, in
// ascending label order. All values are checked before the model changes.
// The cost is proportional to the fixed variables and their incident edges,
// plus one pass over the remaining variables.
func (m *Model) FixVariables(values map[int]int) error {
	vars := slices.Sorted(maps.Keys(values))
	for _, v := range vars {
		if !m.HasVariable(v) {
			return fmt.Errorf("%w: %d", ErrUnknownVariable, v)
		}
		if !m.vartype.Contains(values[v]) {
			return fmt.Errorf("%w: value %d for variable %d", ErrInvalidDomain, values[v], v)
		}
	}
	if len(vars) == 0 {
		return nil
	}
	for _, v := range vars {
		m.fold(v, values[v])
	}
	m.order = slices.DeleteFunc(m.order, func(v int) bool {
		_, fixed := values[v]
		return fixed
	})
	return nil
}

// fold removes v at value from everything but the order slice.
func (m *Model) fold(v int, value int) {
	x := float64(value)
	m.offset += m.linear[v] * x
	for _, u := range m.nbrs[v] {
		m.linear[u] += m.adj[v][u] * x
		delete(m.adj[u], v)
		m.nbrs[u] = removeSorted(m.nbrs[u], v)
	}
	delete(m.linear, v)
	delete(m.adj, v)
	delete(m.nbrs, v)
}

// Energy evaluates the model at sample, which must assign a domain value to
// every variable. Extra entries are ignored.
func (m *Model) Energy(sample map[int]int) (float64, error) {
	energy := m.offset
	for _, u := range m.order {
		xu, ok := sample[u]
		if !ok {
			return 0, fmt.Errorf("%w: missing variable %d", ErrIncomplete, u)
		}
		if !m.vartype.Contains(xu) {
			return 0, fmt.Errorf("%w: value %d for variable %d", ErrInvalidDomain, xu, u)
		}
		energy += m.linear[u] * float64(xu)
		row := m.adj[u]
		for _, v := range m.nbrs[u] {
			if v > u {
				energy += row[v] * float64(xu) * float64(sample[v])
			}
		}
	}
	return energy, nil
}

// Copy returns a deep copy of the model.
func (m *Model) Copy() *Model {
	c := &Model{
		vartype: m.vartype,
		offset:  m.offset,
		linear:  make(map[int]float64, len(m.linear)),
		adj:     make(map[int]map[int]float64, len(m.adj)),
		order:   slices.Clone(m.order),
		nbrs:    make(map[int][]int, len(m.nbrs)),
	}
	for v, b := range m.linear {
		c.linear[v] = b
	}
	for v, row := range m.adj {
		r := make(map[int]float64, len(row))
		for u, b := range row {
			r[u] = b
		}
		c.adj[v] = r
	}
	for v, nb := range m.nbrs {
		c.nbrs[v] = slices.Clone(nb)
	}
	return c
}

func insertSorted(s []int, x int) []int {
	i, found := slices.BinarySearch(s, x)
	if found {
		return s
	}
	return slices.Insert(s, i, x)
}

func removeSorted(s []int, x int) []int {
	i, found := slices.BinarySearch(s, x)
	if !found {
		return s
	}
	return slices.Delete(s, i, i+1)
}
