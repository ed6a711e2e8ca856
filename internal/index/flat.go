// Package index holds claim-scoped chunk vectors and selects the chunks
// handed to the model.
package index

import (
	"fmt"
	"math"
	"sort"
)

// NoMatch fills result slots beyond the number of indexed vectors
const NoMatch = -1

// Searcher is an exact nearest-neighbour index
type Searcher interface {
	Len() int
	// Search returns k distances and positions in ascending distance order.
	// Slots without a vector hold NoMatch.
	Search(query []float32, k int) ([]float32, []int)
}

// FlatL2 is an exhaustive index over squared Euclidean distance
type FlatL2 struct {
	dim     int
	vectors [][]float32
}

// NewFlatL2 creates an empty index for vectors of dimension dim
func NewFlatL2(dim int) *FlatL2 {
	return &FlatL2{dim: dim}
}

// Build creates an index holding vecs. The dimension is taken from the first vector.
func Build(vecs [][]float32) (*FlatL2, error) {
	if len(vecs) == 0 {
		return NewFlatL2(0), nil
	}
	ix := NewFlatL2(len(vecs[0]))
	if err := ix.Add(vecs...); err != nil {
		return nil, err
	}
	return ix, nil
}

// Add appends vectors; positions follow insertion order
func (ix *FlatL2) Add(vecs ...[]float32) error {
	for i, v := range vecs {
		if len(v) != ix.dim {
			return fmt.Errorf("vector %d has dimension %d, index expects %d", i, len(v), ix.dim)
		}
	}
	ix.vectors = append(ix.vectors, vecs...)
	return nil
}

// Len returns the number of indexed vectors
func (ix *FlatL2) Len() int {
	return len(ix.vectors)
}

// Dim returns the vector dimension
func (ix *FlatL2) Dim() int {
	return ix.dim
}

// Vector returns the vector at position i
func (ix *FlatL2) Vector(i int) []float32 {
	return ix.vectors[i]
}

// Search returns the k nearest positions. Equal distances keep insertion order.
func (ix *FlatL2) Search(query []float32, k int) ([]float32, []int) {
	if k <= 0 {
		return nil, nil
	}

	order := make([]int, len(ix.vectors))
	dists := make([]float32, len(ix.vectors))
	for i, v := range ix.vectors {
		order[i] = i
		dists[i] = SquaredL2(query, v)
	}
	sort.SliceStable(order, func(a, b int) bool { return dists[order[a]] < dists[order[b]] })

	distances := make([]float32, k)
	positions := make([]int, k)
	for slot := 0; slot < k; slot++ {
		if slot < len(order) {
			positions[slot] = order[slot]
			distances[slot] = dists[order[slot]]
			continue
		}
		positions[slot] = NoMatch
		distances[slot] = float32(math.Inf(1))
	}
	return distances, positions
}

// SquaredL2 is the squared Euclidean distance. Vectors of different length
// compare over the shorter one.
func SquaredL2(a, b []float32) float32 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float32
	for i := 0; i < n; i++ {
		d := a[i] - b[i]
		sum += d * d
	}
	return sum
}

// Cosine is the cosine similarity; a zero vector has similarity 0 to everything
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}
