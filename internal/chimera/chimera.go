// Package chimera maps models laid out on a Chimera lattice onto tiles of
// that lattice. A Chimera lattice is an M×N grid of unit cells; each cell is
// a complete bipartite graph K(T,T) whose two shores are indexed by U.
package chimera

import (
	"errors"
	"fmt"

	"github.com/seantiz/hades/internal/bqm"
)

var (
	// ErrNonConforming indicates a model that is not Chimera-structured.
	ErrNonConforming = errors.New("chimera: non-Chimera structured problem")
	// ErrInvalidTileSize indicates a non-positive tile dimension.
	ErrInvalidTileSize = errors.New("chimera: tile dimensions must be positive")
)

// Coord is the lattice coordinate of a qubit: cell row I, cell column J,
// shore U (0 or 1) and index K within the shore.
type Coord struct {
	I, J, U, K int
}

// Tile identifies a tile by row, column and aisle.
type Tile struct {
	Row, Col, Aisle int
}

// Labeler assigns a lattice coordinate to every variable of a model, or
// fails when the model does not conform to the lattice.
type Labeler interface {
	Label(m *bqm.Model) (map[int]Coord, error)
}

// IndexLabeler labels models whose variables already carry the canonical
// linear Chimera index ((N*i + j)*2 + u)*T + k on an M×N×T lattice.
type IndexLabeler struct {
	M, N, T int
}

// Compile-time interface satisfaction check.
var _ Labeler = IndexLabeler{}

// Label decodes each variable and checks every coupling against the lattice:
// couplings inside a cell join opposite shores, couplings between cells join
// the same shore index of vertically (U=0) or horizontally (U=1) adjacent cells.
func (l IndexLabeler) Label(m *bqm.Model) (map[int]Coord, error) {
	if l.M <= 0 || l.N <= 0 || l.T <= 0 {
		return nil, fmt.Errorf("%w: lattice %dx%dx%d", ErrNonConforming, l.M, l.N, l.T)
	}
	size := l.M * l.N * 2 * l.T
	coords := make(map[int]Coord, m.Len())
	for v := range m.All() {
		if v < 0 || v >= size {
			return nil, fmt.Errorf("%w: variable %d outside lattice of %d qubits", ErrNonConforming, v, size)
		}
		coords[v] = l.decode(v)
	}
	for _, q := range m.Interactions() {
		if !coupled(coords[q.U], coords[q.V]) {
			return nil, fmt.Errorf("%w: no coupler between %d and %d", ErrNonConforming, q.U, q.V)
		}
	}
	return coords, nil
}

func (l IndexLabeler) decode(v int) Coord {
	k := v % l.T
	v /= l.T
	u := v % 2
	v /= 2
	return Coord{I: v / l.N, J: v % l.N, U: u, K: k}
}

func coupled(a, b Coord) bool {
	switch {
	case a.I == b.I && a.J == b.J:
		return a.U != b.U
	case a.U != b.U || a.K != b.K:
		return false
	case a.U == 0:
		return a.J == b.J && abs(a.I-b.I) == 1
	default:
		return a.I == b.I && abs(a.J-b.J) == 1
	}
}

// Tiles partitions a Chimera-structured model into tiles of rows×cols cells
// with shores of size shore. The result maps each tile to a partial
// embedding: variable → single-qubit chain on a canonical rows×cols×shore
// lattice. Every tile of the covering grid is present, possibly empty.
func Tiles(m *bqm.Model, labeler Labeler, rows, cols, shore int) (map[Tile]map[int][]int, error) {
	if rows <= 0 || cols <= 0 || shore <= 0 {
		return nil, fmt.Errorf("%w: %dx%dx%d", ErrInvalidTileSize, rows, cols, shore)
	}
	coords, err := labeler.Label(m)
	if err != nil {
		if errors.Is(err, ErrNonConforming) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrNonConforming, err)
	}

	tiles := make(map[Tile]map[int][]int)
	if len(coords) == 0 {
		return tiles, nil
	}

	var maxM, maxN, maxT int
	for _, c := range coords {
		maxM = max(maxM, c.I+1)
		maxN = max(maxN, c.J+1)
		maxT = max(maxT, c.K+1)
	}
	tileRows := ceilDiv(maxM, rows)
	tileCols := ceilDiv(maxN, cols)
	tileShore := ceilDiv(maxT, shore)

	for row := range tileRows {
		for col := range tileCols {
			for aisle := range tileShore {
				tiles[Tile{row, col, aisle}] = make(map[int][]int)
			}
		}
	}
	for v, c := range coords {
		t := Tile{Row: c.I % tileRows, Col: c.J % tileCols, Aisle: c.K % tileShore}
		i, j, k := c.I/tileRows, c.J/tileCols, c.K/tileShore
		tiles[t][v] = []int{((cols*i+j)*2+c.U)*shore + k}
	}
	return tiles, nil
}

func ceilDiv(a, b int) int {
	return (a + b - 1) / b
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
