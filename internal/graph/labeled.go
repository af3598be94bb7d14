package graph

// Labeled is a Graph whose nodes are addressed by comparable keys. Each key
// is bound to exactly one index for the lifetime of the graph.
type Labeled[K comparable] struct {
	labels  map[K]int
	indices []K
	graph   *Graph
}

// NewLabeled creates an empty labeled graph.
func NewLabeled[K comparable]() *Labeled[K] {
	return &Labeled[K]{
		labels: make(map[K]int),
		graph:  New(),
	}
}

// AddNode registers k if it is not known yet and returns its index.
func (l *Labeled[K]) AddNode(k K) int {
	if i, ok := l.labels[k]; ok {
		return i
	}
	i := l.graph.AddNode()
	l.labels[k] = i
	l.indices = append(l.indices, k)
	return i
}

// Index returns the index bound to k.
func (l *Labeled[K]) Index(k K) (int, bool) {
	i, ok := l.labels[k]
	return i, ok
}

// Label returns the key bound to index i.
func (l *Labeled[K]) Label(i int) K {
	return l.indices[i]
}

// Has reports whether k is registered.
func (l *Labeled[K]) Has(k K) bool {
	_, ok := l.labels[k]
	return ok
}

// Len returns the number of registered keys.
func (l *Labeled[K]) Len() int {
	return len(l.indices)
}

// AddEdge registers both keys as needed and connects them.
func (l *Labeled[K]) AddEdge(src, dst K, cost int, directed bool) {
	s := l.AddNode(src)
	d := l.AddNode(dst)
	l.graph.AddEdge(s, d, cost, directed)
}

// ShortestPath returns the cheapest key path from src to dst. It reports
// false both when a key is unknown and when no route exists.
func (l *Labeled[K]) ShortestPath(src, dst K) ([]K, bool) {
	s, ok := l.labels[src]
	if !ok {
		return nil, false
	}
	d, ok := l.labels[dst]
	if !ok {
		return nil, false
	}
	idx, ok := l.graph.ShortestPath(s, d)
	if !ok {
		return nil, false
	}
	path := make([]K, len(idx))
	for i, n := range idx {
		path[i] = l.indices[n]
	}
	return path, true
}

// PathCost is Graph.PathCost over keys. It reports false when a key is
// unknown or two consecutive keys are not connected.
func (l *Labeled[K]) PathCost(path []K) (int, bool) {
	idx := make([]int, len(path))
	for i, k := range path {
		n, ok := l.labels[k]
		if !ok {
			return 0, false
		}
		idx[i] = n
	}
	return l.graph.PathCost(idx)
}
