package cagra

import (
	"math/rand"

	"github.com/vecforge/vecforge/internal/math32"
)

// IndexBinaryHNSW is the CPU-resident binary index. Vectors are packed bit
// codes compared under Hamming distance; the graph mechanics are shared with
// the float family.
type IndexBinaryHNSW struct {
	EFSearch       int
	EFConstruction int
	BaseLevelOnly  bool

	m        int
	codeSize int // bytes per code
	codes    []byte
	graph    *hnswGraph
	rng      *rand.Rand
	freed    bool
}

// NewIndexBinaryHNSW allocates a new, empty CPU binary index.
func NewIndexBinaryHNSW() *IndexBinaryHNSW {
	return &IndexBinaryHNSW{
		EFSearch:       DefaultEFSearch,
		EFConstruction: DefaultEFConstruction,
		m:              DefaultGraphDegree,
		graph:          newGraph(0),
		rng:            rand.New(rand.NewSource(1)),
	}
}

// Ntotal returns the number of codes in the index.
func (x *IndexBinaryHNSW) Ntotal() int64 {
	if x.freed {
		return 0
	}
	return int64(x.graph.numNodes())
}

// CodeSize returns the per-code size in bytes, 0 while empty.
func (x *IndexBinaryHNSW) CodeSize() int { return x.codeSize }

// Freed reports whether Free has been called.
func (x *IndexBinaryHNSW) Freed() bool { return x.freed }

// Free releases the index buffers. Calling Free twice is an error.
func (x *IndexBinaryHNSW) Free() error {
	if x.freed {
		return ErrFreed
	}
	x.freed = true
	x.codes = nil
	x.graph = nil
	return nil
}

func (x *IndexBinaryHNSW) code(id uint32) []byte {
	return x.codes[int(id)*x.codeSize : (int(id)+1)*x.codeSize]
}

func (x *IndexBinaryHNSW) pairDist(a, b uint32) float32 {
	return float32(hamming(x.code(a), x.code(b)))
}

// Add inserts a packed code at the next internal position.
// Fails on base-level-only indexes.
func (x *IndexBinaryHNSW) Add(code []byte) (uint32, error) {
	if x.freed {
		return 0, ErrFreed
	}
	if x.BaseLevelOnly {
		return 0, ErrAppendDisabled
	}
	if x.codeSize == 0 {
		x.codeSize = len(code)
	}
	if len(code) != x.codeSize {
		return 0, &ErrDimensionMismatch{Expected: x.codeSize, Actual: len(code)}
	}

	x.codes = append(x.codes, code...)
	id := x.graph.addNode()
	if id == 0 {
		x.graph.entry = 0
		return 0, nil
	}

	dist := func(other uint32) float32 { return float32(hamming(code, x.code(other))) }
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

// Search returns the k nearest internal positions to code q under Hamming
// distance.
func (x *IndexBinaryHNSW) Search(q []byte, k int) ([]SearchResult, error) {
	if x.freed {
		return nil, ErrFreed
	}
	if x.graph.numNodes() == 0 {
		return nil, ErrEmptyIndex
	}
	if len(q) != x.codeSize {
		return nil, &ErrDimensionMismatch{Expected: x.codeSize, Actual: len(q)}
	}

	dist := func(id uint32) float32 { return float32(hamming(q, x.code(id))) }
	found := x.graph.search(dist, k, x.EFSearch)

	out := make([]SearchResult, len(found))
	for i, c := range found {
		out[i] = SearchResult{Pos: c.id, Distance: c.dist}
	}
	return out, nil
}

func hamming(a, b []byte) int {
	return math32.Hamming(a, b)
}
