// Package graph provides a weighted graph over dense integer indices and a
// labeled wrapper that maps arbitrary comparable keys onto those indices.
package graph

import (
	"container/heap"
	"fmt"
	"math"
)

// DefaultCost is the weight of an edge added without an explicit cost.
const DefaultCost = 1

// Edge is one entry of an adjacency list.
type Edge struct {
	To   int
	Cost int
}

// Graph stores adjacency lists indexed by node. Indices are assigned by
// AddNode and are never reused or removed.
type Graph struct {
	edges [][]Edge
}

// New creates an empty graph.
func New() *Graph {
	return &Graph{}
}

// AddNode appends an empty adjacency list and returns its index.
func (g *Graph) AddNode() int {
	g.edges = append(g.edges, nil)
	return len(g.edges) - 1
}

// NodeCount returns the number of nodes in the graph.
func (g *Graph) NodeCount() int {
	return len(g.edges)
}

// AddEdge connects src to dst with the given cost. Undirected edges are
// stored in both adjacency lists. It panics if either index was not
// allocated by AddNode.
func (g *Graph) AddEdge(src, dst, cost int, directed bool) {
	g.mustHave(src)
	g.mustHave(dst)
	g.edges[src] = append(g.edges[src], Edge{To: dst, Cost: cost})
	if !directed {
		g.edges[dst] = append(g.edges[dst], Edge{To: src, Cost: cost})
	}
}

func (g *Graph) mustHave(i int) {
	if i < 0 || i >= len(g.edges) {
		panic(fmt.Sprintf("graph: node index %d out of range [0, %d)", i, len(g.edges)))
	}
}

// ShortestPath runs Dijkstra's algorithm from src and returns the cheapest
// path to dst, both ends included. The second result is false when dst is
// unreachable. Costs must be non-negative.
func (g *Graph) ShortestPath(src, dst int) ([]int, bool) {
	g.mustHave(src)
	g.mustHave(dst)

	best := make([]int, len(g.edges))
	paths := make([][]int, len(g.edges))
	for i := range best {
		best[i] = math.MaxInt
	}
	best[src] = 0
	paths[src] = []int{src}

	pq := &statePQ{{node: src, cost: 0, path: []int{src}}}
	heap.Init(pq)

	for pq.Len() > 0 {
		cur := heap.Pop(pq).(*state)
		// stale entry
		if cur.cost > best[cur.node] {
			continue
		}
		for _, e := range g.edges[cur.node] {
			next := cur.cost + e.Cost
			if next >= best[e.To] {
				continue
			}
			path := make([]int, len(cur.path), len(cur.path)+1)
			copy(path, cur.path)
			path = append(path, e.To)

			best[e.To] = next
			paths[e.To] = path
			heap.Push(pq, &state{node: e.To, cost: next, path: path})
		}
	}

	if paths[dst] == nil {
		return nil, false
	}
	return paths[dst], true
}

// PathCost sums the cheapest edge between each consecutive pair of path.
// It reports false if some consecutive pair is not connected.
func (g *Graph) PathCost(path []int) (int, bool) {
	total := 0
	for i := 1; i < len(path); i++ {
		g.mustHave(path[i-1])
		cheapest := -1
		for _, e := range g.edges[path[i-1]] {
			if e.To == path[i] && (cheapest < 0 || e.Cost < cheapest) {
				cheapest = e.Cost
			}
		}
		if cheapest < 0 {
			return 0, false
		}
		total += cheapest
	}
	return total, true
}

// state is a queue entry carrying the path that reached node at cost.
type state struct {
	node int
	cost int
	path []int
}

type statePQ []*state

func (pq statePQ) Len() int           { return len(pq) }
func (pq statePQ) Less(i, j int) bool { return pq[i].cost < pq[j].cost }
func (pq statePQ) Swap(i, j int)      { pq[i], pq[j] = pq[j], pq[i] }

func (pq *statePQ) Push(x any) {
	*pq = append(*pq, x.(*state))
}

func (pq *statePQ) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	*pq = old[:n-1]
	return item
}
