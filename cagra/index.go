package cagra

import (
	"errors"
	"fmt"
	"math/rand"

	"github.com/vecforge/vecforge/internal/math32"
)

// DefaultGraphDegree is the default number of neighbors per node in the
// device-built knn graph and the base level of the CPU indexes.
const DefaultGraphDegree = 16

var (
	// ErrFreed is returned when a native structure is used or freed after
	// its resources were already released.
	ErrFreed = errors.New("cagra: structure already freed")

	// ErrAppendDisabled is returned by Add on a base-level-only index.
	ErrAppendDisabled = errors.New("cagra: base-level-only index does not support inserts")

	// ErrEmptyIndex is returned when searching an index with no vectors.
	ErrEmptyIndex = errors.New("cagra: index is empty")
)

// ErrDimensionMismatch indicates a vector/index dimensionality mismatch.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("cagra: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

// SearchResult is a single nearest-neighbor hit, in internal positions.
// External dataset IDs are resolved by the owning ID map.
type SearchResult struct {
	Pos      uint32
	Distance float32
}

// IndexHNSW is the CPU-resident float index. It is the serializable
// counterpart of GPUIndexCagra: an empty instance is configured, populated
// via CopyTo, and then searched or written to disk.
type IndexHNSW struct {
	// EFSearch is the search-time expansion factor.
	EFSearch int

	// EFConstruction is the construction-time expansion factor.
	EFConstruction int

	// BaseLevelOnly marks an index whose graph holds only the bottom level
	// copied from the device graph. Such an index is searchable but
	// append-disabled.
	BaseLevelOnly bool

	m     int
	dim   int
	vecs  []float32
	graph *hnswGraph
	rng   *rand.Rand
	freed bool
}

// NewIndexHNSW allocates a new, empty CPU float index.
func NewIndexHNSW() *IndexHNSW {
	return &IndexHNSW{
		EFSearch:       DefaultEFSearch,
		EFConstruction: DefaultEFConstruction,
		m:              DefaultGraphDegree,
		graph:          newGraph(0),
		rng:            rand.New(rand.NewSource(1)),
	}
}

// DefaultEFSearch and DefaultEFConstruction match the library defaults for
// freshly allocated CPU indexes.
const (
	DefaultEFSearch       = 100
	DefaultEFConstruction = 100
)

// Ntotal returns the number of vectors in the index.
func (x *IndexHNSW) Ntotal() int64 {
	if x.freed {
		return 0
	}
	return int64(x.graph.numNodes())
}

// Dim returns the vector dimensionality, 0 while empty.
func (x *IndexHNSW) Dim() int { return x.dim }

// Freed reports whether Free has been called.
func (x *IndexHNSW) Freed() bool { return x.freed }

// Free releases the index buffers. Calling Free twice is an error.
func (x *IndexHNSW) Free() error {
	if x.freed {
		return ErrFreed
	}
	x.freed = true
	x.vecs = nil
	x.graph = nil
	return nil
}

func (x *IndexHNSW) vector(id uint32) []float32 {
	return x.vecs[int(id)*x.dim : (int(id)+1)*x.dim]
}

func (x *IndexHNSW) pairDist(a, b uint32) float32 {
	return squaredL2(x.vector(a), x.vector(b))
}

// Add inserts a vector at the next internal position and links it into the
// graph. Fails on base-level-only indexes.
func (x *IndexHNSW) Add(vec []float32) (uint32, error) {
	if x.freed {
		return 0, ErrFreed
	}
	if x.BaseLevelOnly {
		return 0, ErrAppendDisabled
	}
	if x.dim == 0 {
		x.dim = len(vec)
	}
	if len(vec) != x.dim {
		return 0, &ErrDimensionMismatch{Expected: x.dim, Actual: len(vec)}
	}

	x.vecs = append(x.vecs, vec...)
	id := x.graph.addNode()
	if id == 0 {
		x.graph.entry = 0
		return 0, nil
	}

	dist := func(other uint32) float32 { return squaredL2(vec, x.vector(other)) }
	near := x.graph.searchLayer(0, x.graph.greedyDescend(dist), dist, x.EFConstruction)
	limit := x.m
	if len(near) < limit {
		limit = len(near)
	}
	for _, c := range near[:limit] {
		if c.id == id {
			continue
		}
		x.graph.connect(0, id, c.id, x.m*2, x.pairDist)
	}
	return id, nil
}

// greedyDescend walks from the entry point down to the base level.
func (g *hnswGraph) greedyDescend(dist distFunc) uint32 {
	ep := g.entry
	for l := g.maxLevel; l > 0; l-- {
		ep = g.greedyStep(l, ep, dist)
	}
	return ep
}

// Search returns the k nearest internal positions to q.
func (x *IndexHNSW) Search(q []float32, k int) ([]SearchResult, error) {
	if x.freed {
		return nil, ErrFreed
	}
	if x.graph.numNodes() == 0 {
		return nil, ErrEmptyIndex
	}
	if len(q) != x.dim {
		return nil, &ErrDimensionMismatch{Expected: x.dim, Actual: len(q)}
	}

	dist := func(id uint32) float32 { return squaredL2(q, x.vector(id)) }
	found := x.graph.search(dist, k, x.EFSearch)

	out := make([]SearchResult, len(found))
	for i, c := range found {
		out[i] = SearchResult{Pos: c.id, Distance: c.dist}
	}
	return out, nil
}

func squaredL2(a, b []float32) float32 {
	return math32.SquaredL2(a, b)
}
