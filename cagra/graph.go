package cagra

import (
	"container/heap"
	"math"
	"math/rand"
)

// hnswGraph is the layered adjacency shared by both CPU index families.
// layers[0] is the dense base level; upper layers carry empty adjacency for
// nodes whose level is below the layer.
type hnswGraph struct {
	entry    uint32
	maxLevel int
	levels   []uint8
	layers   [][][]uint32
}

func newGraph(n int) *hnswGraph {
	g := &hnswGraph{
		levels: make([]uint8, n),
		layers: [][][]uint32{make([][]uint32, n)},
	}
	return g
}

func (g *hnswGraph) numNodes() int { return len(g.levels) }

// addNode grows the graph by one base-level node and returns its id.
func (g *hnswGraph) addNode() uint32 {
	id := uint32(len(g.levels))
	g.levels = append(g.levels, 0)
	for l := range g.layers {
		g.layers[l] = append(g.layers[l], nil)
	}
	return id
}

// distFunc computes the distance from an implicit query to node id.
type distFunc func(id uint32) float32

// candidate pairs a node with its distance to the query.
type candidate struct {
	id   uint32
	dist float32
}

// minQueue is a min-heap of candidates ordered by distance.
type minQueue []candidate

func (q minQueue) Len() int           { return len(q) }
func (q minQueue) Less(i, j int) bool { return q[i].dist < q[j].dist }
func (q minQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *minQueue) Push(x any)        { *q = append(*q, x.(candidate)) }
func (q *minQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}

// maxQueue is a max-heap of candidates, used as the bounded result set.
type maxQueue []candidate

func (q maxQueue) Len() int           { return len(q) }
func (q maxQueue) Less(i, j int) bool { return q[i].dist > q[j].dist }
func (q maxQueue) Swap(i, j int)      { q[i], q[j] = q[j], q[i] }
func (q *maxQueue) Push(x any)        { *q = append(*q, x.(candidate)) }
func (q *maxQueue) Pop() any {
	old := *q
	n := len(old)
	c := old[n-1]
	*q = old[:n-1]
	return c
}

// greedyStep walks layer l greedily from ep toward the query and returns the
// closest node found.
func (g *hnswGraph) greedyStep(l int, ep uint32, dist distFunc) uint32 {
	cur := ep
	curDist := dist(cur)
	for {
		improved := false
		for _, nb := range g.layers[l][cur] {
			if d := dist(nb); d < curDist {
				cur, curDist = nb, d
				improved = true
			}
		}
		if !improved {
			return cur
		}
	}
}

// searchLayer runs a best-first beam search of width ef on layer l.
// Results are returned closest-first.
func (g *hnswGraph) searchLayer(l int, ep uint32, dist distFunc, ef int) []candidate {
	if ef < 1 {
		ef = 1
	}

	visited := make(map[uint32]struct{}, ef*4)
	visited[ep] = struct{}{}

	epDist := dist(ep)
	candidates := minQueue{{id: ep, dist: epDist}}
	results := maxQueue{{id: ep, dist: epDist}}

	for candidates.Len() > 0 {
		c := heap.Pop(&candidates).(candidate)
		if results.Len() >= ef && c.dist > results[0].dist {
			break
		}
		for _, nb := range g.layers[l][c.id] {
			if _, ok := visited[nb]; ok {
				continue
			}
			visited[nb] = struct{}{}
			d := dist(nb)
			if results.Len() < ef || d < results[0].dist {
				heap.Push(&candidates, candidate{id: nb, dist: d})
				heap.Push(&results, candidate{id: nb, dist: d})
				if results.Len() > ef {
					heap.Pop(&results)
				}
			}
		}
	}

	out := make([]candidate, results.Len())
	for i := len(out) - 1; i >= 0; i-- {
		out[i] = heap.Pop(&results).(candidate)
	}
	return out
}

// search descends the hierarchy greedily and beams over the base level.
func (g *hnswGraph) search(dist distFunc, k, ef int) []candidate {
	if g.numNodes() == 0 {
		return nil
	}
	ep := g.entry
	for l := g.maxLevel; l > 0; l-- {
		ep = g.greedyStep(l, ep, dist)
	}
	if ef < k {
		ef = k
	}
	res := g.searchLayer(0, ep, dist, ef)
	if len(res) > k {
		res = res[:k]
	}
	return res
}

// connect links id and nb bidirectionally on layer l, pruning each adjacency
// list to maxDeg by keeping the closest neighbors.
func (g *hnswGraph) connect(l int, id, nb uint32, maxDeg int, pair func(a, b uint32) float32) {
	g.layers[l][id] = pruneNeighbors(id, append(g.layers[l][id], nb), maxDeg, pair)
	g.layers[l][nb] = pruneNeighbors(nb, append(g.layers[l][nb], id), maxDeg, pair)
}

func pruneNeighbors(id uint32, neighbors []uint32, maxDeg int, pair func(a, b uint32) float32) []uint32 {
	if len(neighbors) <= maxDeg {
		return neighbors
	}
	// Keep the maxDeg closest.
	q := make(maxQueue, 0, maxDeg+1)
	for _, nb := range neighbors {
		heap.Push(&q, candidate{id: nb, dist: pair(id, nb)})
		if q.Len() > maxDeg {
			heap.Pop(&q)
		}
	}
	out := make([]uint32, q.Len())
	for i := range out {
		out[i] = q[i].id
	}
	return out
}

// buildHierarchy assigns exponential levels to all nodes and wires the upper
// layers. Used when a GPU graph is copied without base-level-only mode, so the
// resulting CPU index supports both search descent and later inserts.
func (g *hnswGraph) buildHierarchy(m int, rng *rand.Rand, pair func(a, b uint32) float32) {
	n := g.numNodes()
	if n == 0 || m < 2 {
		return
	}

	mult := 1.0 / math.Log(float64(m))
	for i := range n {
		level := int(math.Floor(-math.Log(rng.Float64()+1e-12) * mult))
		if level > 30 {
			level = 30
		}
		g.levels[i] = uint8(level)
		if level > g.maxLevel {
			g.maxLevel = level
			g.entry = uint32(i)
		}
	}

	for l := 1; l <= g.maxLevel; l++ {
		g.layers = append(g.layers, make([][]uint32, n))
		var members []uint32
		for i := range n {
			if int(g.levels[i]) >= l {
				members = append(members, uint32(i))
			}
		}
		// Upper layers are small; link each member to its m nearest peers.
		for _, id := range members {
			for _, other := range nearestAmong(id, members, m, pair) {
				g.connect(l, id, other, m, pair)
			}
		}
	}
}

func nearestAmong(id uint32, members []uint32, m int, pair func(a, b uint32) float32) []uint32 {
	q := make(maxQueue, 0, m+1)
	for _, other := range members {
		if other == id {
			continue
		}
		heap.Push(&q, candidate{id: other, dist: pair(id, other)})
		if q.Len() > m {
			heap.Pop(&q)
		}
	}
	out := make([]uint32, q.Len())
	for i := range out {
		out[i] = q[i].id
	}
	return out
}
