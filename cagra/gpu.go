package cagra

import (
	"container/heap"
	"errors"
)

// ErrNotEmpty is returned by CopyTo when the destination already holds data.
var ErrNotEmpty = errors.New("cagra: destination index is not empty")

// GPUIndexCagra is the handle of a device-built float knn graph. It holds the
// host mirror of the fixed-degree graph and dataset needed to materialize a
// CPU index; it is not serializable itself.
type GPUIndexCagra struct {
	dim    int
	degree int
	vecs   []float32
	graph  []uint32 // n*degree neighbor ids
	freed  bool
}

// BuildCagra runs the graph build over the dataset and returns the
// device-resident handle. Degree <= 0 selects DefaultGraphDegree.
func BuildCagra(vectors [][]float32, degree int) (*GPUIndexCagra, error) {
	if len(vectors) == 0 {
		return nil, ErrEmptyIndex
	}
	if degree <= 0 {
		degree = DefaultGraphDegree
	}
	dim := len(vectors[0])

	vecs := make([]float32, 0, len(vectors)*dim)
	for _, v := range vectors {
		if len(v) != dim {
			return nil, &ErrDimensionMismatch{Expected: dim, Actual: len(v)}
		}
		vecs = append(vecs, v...)
	}

	g := &GPUIndexCagra{dim: dim, degree: degree, vecs: vecs}
	g.graph = buildKNNGraph(len(vectors), degree, func(a, b uint32) float32 {
		return squaredL2(g.vec(a), g.vec(b))
	})
	return g, nil
}

func (g *GPUIndexCagra) vec(id uint32) []float32 {
	return g.vecs[int(id)*g.dim : (int(id)+1)*g.dim]
}

// Ntotal returns the number of vectors in the device graph.
func (g *GPUIndexCagra) Ntotal() int64 {
	if g.freed {
		return 0
	}
	return int64(len(g.vecs) / max(g.dim, 1))
}

// Dim returns the vector dimensionality.
func (g *GPUIndexCagra) Dim() int { return g.dim }

// Freed reports whether Free has been called.
func (g *GPUIndexCagra) Freed() bool { return g.freed }

// Free releases the device graph. Calling Free twice is an error.
func (g *GPUIndexCagra) Free() error {
	if g.freed {
		return ErrFreed
	}
	g.freed = true
	g.vecs = nil
	g.graph = nil
	return nil
}

// CopyTo copies the learned graph into an empty CPU index. With
// cpu.BaseLevelOnly set, only the bottom level is written and the destination
// becomes append-disabled; otherwise upper levels are rebuilt so the CPU
// index supports later inserts.
func (g *GPUIndexCagra) CopyTo(cpu *IndexHNSW) error {
	if g.freed || cpu == nil {
		return ErrFreed
	}
	if cpu.freed {
		return ErrFreed
	}
	if cpu.graph.numNodes() != 0 {
		return ErrNotEmpty
	}

	n := int(g.Ntotal())
	cpu.dim = g.dim
	cpu.vecs = append([]float32(nil), g.vecs...)
	cpu.graph = fixedDegreeToLayered(n, g.degree, g.graph)
	cpu.m = g.degree

	if !cpu.BaseLevelOnly {
		cpu.graph.buildHierarchy(g.degree, cpu.rng, cpu.pairDist)
	}
	return nil
}

// GPUIndexBinaryCagra is the binary-family device handle.
type GPUIndexBinaryCagra struct {
	codeSize int
	degree   int
	codes    []byte
	graph    []uint32
	freed    bool
}

// BuildBinaryCagra runs the graph build over packed binary codes.
func BuildBinaryCagra(codes [][]byte, degree int) (*GPUIndexBinaryCagra, error) {
	if len(codes) == 0 {
		return nil, ErrEmptyIndex
	}
	if degree <= 0 {
		degree = DefaultGraphDegree
	}
	codeSize := len(codes[0])

	flat := make([]byte, 0, len(codes)*codeSize)
	for _, c := range codes {
		if len(c) != codeSize {
			return nil, &ErrDimensionMismatch{Expected: codeSize, Actual: len(c)}
		}
		flat = append(flat, c...)
	}

	g := &GPUIndexBinaryCagra{codeSize: codeSize, degree: degree, codes: flat}
	g.graph = buildKNNGraph(len(codes), degree, func(a, b uint32) float32 {
		return float32(hamming(g.code(a), g.code(b)))
	})
	return g, nil
}

func (g *GPUIndexBinaryCagra) code(id uint32) []byte {
	return g.codes[int(id)*g.codeSize : (int(id)+1)*g.codeSize]
}

// Ntotal returns the number of codes in the device graph.
func (g *GPUIndexBinaryCagra) Ntotal() int64 {
	if g.freed {
		return 0
	}
	return int64(len(g.codes) / max(g.codeSize, 1))
}

// CodeSize returns the per-code size in bytes.
func (g *GPUIndexBinaryCagra) CodeSize() int { return g.codeSize }

// Freed reports whether Free has been called.
func (g *GPUIndexBinaryCagra) Freed() bool { return g.freed }

// Free releases the device graph. Calling Free twice is an error.
func (g *GPUIndexBinaryCagra) Free() error {
	if g.freed {
		return ErrFreed
	}
	g.freed = true
	g.codes = nil
	g.graph = nil
	return nil
}

// CopyTo copies the learned graph into an empty CPU binary index.
func (g *GPUIndexBinaryCagra) CopyTo(cpu *IndexBinaryHNSW) error {
	if g.freed || cpu == nil {
		return ErrFreed
	}
	if cpu.freed {
		return ErrFreed
	}
	if cpu.graph.numNodes() != 0 {
		return ErrNotEmpty
	}

	n := int(g.Ntotal())
	cpu.codeSize = g.codeSize
	cpu.codes = append([]byte(nil), g.codes...)
	cpu.graph = fixedDegreeToLayered(n, g.degree, g.graph)
	cpu.m = g.degree

	if !cpu.BaseLevelOnly {
		cpu.graph.buildHierarchy(g.degree, cpu.rng, cpu.pairDist)
	}
	return nil
}

// buildKNNGraph computes an exact fixed-degree knn graph. The accelerated
// build replaces this with the device kernel; the host fallback keeps the
// same output shape.
func buildKNNGraph(n, degree int, pair func(a, b uint32) float32) []uint32 {
	if degree > n-1 {
		degree = n - 1
	}
	if degree < 0 {
		degree = 0
	}

	graph := make([]uint32, n*degree)
	for i := range n {
		q := make(maxQueue, 0, degree+1)
		for j := range n {
			if i == j {
				continue
			}
			heap.Push(&q, candidate{id: uint32(j), dist: pair(uint32(i), uint32(j))})
			if q.Len() > degree {
				heap.Pop(&q)
			}
		}
		row := graph[i*degree : (i+1)*degree]
		for k := len(row) - 1; k >= 0; k-- {
			row[k] = heap.Pop(&q).(candidate).id
		}
	}
	return graph
}

// fixedDegreeToLayered expands a flat n*degree graph into the base level of a
// layered graph.
func fixedDegreeToLayered(n, degree int, flat []uint32) *hnswGraph {
	g := newGraph(n)
	for i := range n {
		row := flat[i*degree : (i+1)*degree]
		g.layers[0][i] = append([]uint32(nil), row...)
	}
	return g
}
