package graph

import (
	"math"
	"slices"
)

// BFSResult encapsulates the result of an augmenting-path BFS.
type BFSResult struct {
	// Found reports whether the sink was reached.
	Found bool
	// Parent holds the predecessor node of every visited node, -1 otherwise.
	Parent []int
	// ParentEdge holds the index of the arc used to reach each node in the
	// adjacency list of its parent.
	ParentEdge []int
}

// BFS performs breadth-first search from source to sink over arcs with
// positive residual capacity. It stops as soon as the sink is reached.
//
// Arcs are scanned in insertion order, so the same network always yields the
// same shortest augmenting path.
//
// Time Complexity: O(V + E)
func BFS(g *ResidualGraph, source, sink int) *BFSResult {
	n := g.NodeCount()
	res := &BFSResult{
		Parent:     make([]int, n),
		ParentEdge: make([]int, n),
	}
	for i := range res.Parent {
		res.Parent[i] = -1
		res.ParentEdge[i] = -1
	}

	visited := make([]bool, n)
	visited[source] = true

	queue := NewQueue(n)
	queue.Push(source)

	for !queue.Empty() {
		u := queue.Pop()
		for i, e := range g.Edges(u) {
			if visited[e.To] || !e.HasCapacity() {
				continue
			}
			visited[e.To] = true
			res.Parent[e.To] = u
			res.ParentEdge[e.To] = i
			if e.To == sink {
				res.Found = true
				return res
			}
			queue.Push(e.To)
		}
	}

	return res
}

// =============================================================================
// Augmenting Paths
// =============================================================================

// AugmentingPath is a source-to-sink path in the residual network.
type AugmentingPath struct {
	// Nodes lists the nodes from source to sink.
	Nodes []int
	// Edges[i] is the arc index leaving Nodes[i] toward Nodes[i+1].
	Edges []int
}

// ReconstructPath rebuilds the path found by BFS. It returns nil if the sink
// was not reached or the parent chain is broken.
func ReconstructPath(res *BFSResult, source, sink int) *AugmentingPath {
	if !res.Found {
		return nil
	}

	var nodes, edges []int
	for v := sink; v != source; v = res.Parent[v] {
		if res.Parent[v] < 0 || len(nodes) > len(res.Parent) {
			return nil
		}
		nodes = append(nodes, v)
		edges = append(edges, res.ParentEdge[v])
	}
	nodes = append(nodes, source)

	// Разворачиваем: от истока к стоку
	slices.Reverse(nodes)
	slices.Reverse(edges)
	return &AugmentingPath{Nodes: nodes, Edges: edges}
}

// FindMinCapacityOnPath returns the bottleneck residual capacity of a path.
func FindMinCapacityOnPath(g *ResidualGraph, path *AugmentingPath) int {
	if path == nil || len(path.Edges) == 0 {
		return 0
	}
	minCapacity := math.MaxInt
	for i, idx := range path.Edges {
		if c := g.Edge(path.Nodes[i], idx).Capacity; c < minCapacity {
			minCapacity = c
		}
	}
	return minCapacity
}

// AugmentPath pushes flow along every arc of a path.
func AugmentPath(g *ResidualGraph, path *AugmentingPath, flow int) {
	for i, idx := range path.Edges {
		g.Push(path.Nodes[i], idx, flow)
	}
}
