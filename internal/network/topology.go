// Package network builds the citizen contact graph and computes a 2-D layout
// for external renderers. Graphs are undirected, unweighted, and deterministic
// for a given seed.
package network

import (
	"math/rand"
	"sort"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
)

// Kind names a topology family.
type Kind string

const (
	SmallWorld Kind = "small_world"
	ScaleFree  Kind = "scale_free"
	Random     Kind = "random"
	Complete   Kind = "complete"
)

// Params carries the per-family generation knobs.
type Params struct {
	SmallWorldK int     // ring neighbors per node, even
	SmallWorldP float64 // rewiring probability
	ScaleFreeM  int     // edges per new node
	RandomP     float64 // independent edge probability
}

// DefaultParams mirrors the standard configuration: small-world k=4 p=0.1,
// scale-free m=3, random p=0.1.
func DefaultParams() Params {
	return Params{SmallWorldK: 4, SmallWorldP: 0.1, ScaleFreeM: 3, RandomP: 0.1}
}

// Graph wraps the undirected contact graph. Node IDs are the citizen indices
// 0..N-1.
type Graph struct {
	N int
	g *simple.UndirectedGraph
}

// Build constructs a contact graph of the requested kind. Populations of
// three or fewer are always fully connected, regardless of kind; infeasible
// parameters degrade to the complete graph as well. Unknown kinds fall back
// to complete.
func Build(kind Kind, n int, params Params, seed int64) *Graph {
	gr := &Graph{N: n, g: simple.NewUndirectedGraph()}
	for i := 0; i < n; i++ {
		gr.g.AddNode(simple.Node(i))
	}
	if n <= 1 {
		return gr
	}

	rng := rand.New(rand.NewSource(seed))

	if n <= 3 {
		gr.complete()
		return gr
	}

	switch kind {
	case SmallWorld:
		gr.smallWorld(rng, params.SmallWorldK, params.SmallWorldP)
	case ScaleFree:
		gr.scaleFree(rng, params.ScaleFreeM)
	case Random:
		gr.random(rng, params.RandomP)
	default:
		gr.complete()
	}
	return gr
}

func (gr *Graph) addEdge(i, j int) {
	if i == j {
		return
	}
	gr.g.SetEdge(simple.Edge{F: simple.Node(i), T: simple.Node(j)})
}

func (gr *Graph) complete() {
	for i := 0; i < gr.N; i++ {
		for j := i + 1; j < gr.N; j++ {
			gr.addEdge(i, j)
		}
	}
}

// smallWorld generates a Watts–Strogatz graph: a ring lattice with k
// neighbors per node, each lattice edge rewired with probability p. Odd k is
// floored to the next even value, minimum 2; k >= n degrades to complete.
func (gr *Graph) smallWorld(rng *rand.Rand, k int, p float64) {
	n := gr.N
	if k%2 != 0 {
		k--
	}
	if k < 2 {
		k = 2
	}
	if k >= n {
		gr.complete()
		return
	}

	half := k / 2
	for i := 0; i < n; i++ {
		for j := 1; j <= half; j++ {
			gr.addEdge(i, (i+j)%n)
		}
	}

	for j := 1; j <= half; j++ {
		for i := 0; i < n; i++ {
			if rng.Float64() >= p {
				continue
			}
			old := (i + j) % n
			for attempt := 0; attempt < n; attempt++ {
				w := rng.Intn(n)
				if w == i || gr.g.HasEdgeBetween(int64(i), int64(w)) {
					continue
				}
				gr.g.RemoveEdge(int64(i), int64(old))
				gr.addEdge(i, w)
				break
			}
		}
	}
}

// scaleFree generates a Barabási–Albert graph by preferential attachment
// using the repeated-nodes scheme. m is clamped to 1 for very small
// populations; n <= m degrades to complete.
func (gr *Graph) scaleFree(rng *rand.Rand, m int) {
	n := gr.N
	if m < 1 {
		m = 1
	}
	if n < 5 && m > 1 {
		m = 1
	}
	if n <= m {
		gr.complete()
		return
	}

	// repeated holds one entry per edge endpoint, so draws are proportional
	// to degree.
	repeated := make([]int, 0, 2*m*n)
	targets := make([]int, m)
	for i := 0; i < m; i++ {
		targets[i] = i
	}

	for v := m; v < n; v++ {
		sort.Ints(targets)
		for _, w := range targets {
			gr.addEdge(v, w)
			repeated = append(repeated, v, w)
		}

		chosen := make(map[int]struct{}, m)
		for len(chosen) < m {
			chosen[repeated[rng.Intn(len(repeated))]] = struct{}{}
		}
		targets = targets[:0]
		for w := range chosen {
			targets = append(targets, w)
		}
	}
}

// random generates an Erdős–Rényi graph with independent edge probability p.
func (gr *Graph) random(rng *rand.Rand, p float64) {
	for i := 0; i < gr.N; i++ {
		for j := i + 1; j < gr.N; j++ {
			if rng.Float64() < p {
				gr.addEdge(i, j)
			}
		}
	}
}

// Neighbors returns the adjacent node indices in ascending order. The sort
// keeps map-order nondeterminism out of the simulation.
func (gr *Graph) Neighbors(i int) []int {
	nodes := graph.NodesOf(gr.g.From(int64(i)))
	out := make([]int, 0, len(nodes))
	for _, nd := range nodes {
		out = append(out, int(nd.ID()))
	}
	sort.Ints(out)
	return out
}

// HasEdge reports whether nodes i and j are connected.
func (gr *Graph) HasEdge(i, j int) bool {
	return gr.g.HasEdgeBetween(int64(i), int64(j))
}

// EdgeCount returns the number of undirected edges.
func (gr *Graph) EdgeCount() int {
	return len(graph.EdgesOf(gr.g.Edges()))
}

// Adjacency returns the full adjacency list, one ascending neighbor slice per
// node.
func (gr *Graph) Adjacency() [][]int {
	adj := make([][]int, gr.N)
	for i := 0; i < gr.N; i++ {
		adj[i] = gr.Neighbors(i)
	}
	return adj
}
