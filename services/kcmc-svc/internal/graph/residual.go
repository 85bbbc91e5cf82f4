package graph

// =============================================================================
// Residual Edge
// =============================================================================

// ResidualEdge is an arc of the residual network.
//
// Each arc (u, v) with capacity c is stored together with a reverse arc
// (v, u) of capacity 0. Pushing f units along (u, v) lowers its residual
// capacity by f and raises the reverse arc's capacity by f, which lets later
// augmenting paths cancel earlier decisions.
type ResidualEdge struct {
	// To is the destination node.
	To int

	// Capacity is the current residual capacity.
	Capacity int

	// Flow is the flow currently on this arc. Only meaningful for forward arcs.
	Flow int

	// OriginalCapacity is the capacity the arc was created with.
	OriginalCapacity int

	// IsReverse marks automatically created backward arcs.
	IsReverse bool

	// Rev is the index of the paired arc in the adjacency list of To.
	Rev int
}

// HasCapacity returns true if the arc has positive residual capacity.
func (e *ResidualEdge) HasCapacity() bool {
	return e.Capacity > 0
}

// =============================================================================
// Residual Graph
// =============================================================================

// ResidualGraph is an integer-capacity flow network over dense node ids
// [0, NodeCount).
//
// Adjacency lists keep insertion order, so traversal is deterministic as long
// as arcs are added in a deterministic order.
//
// ResidualGraph is NOT thread-safe. Build one per computation.
type ResidualGraph struct {
	adj   [][]ResidualEdge
	edges int
}

// NewResidualGraph creates a network with the given number of nodes and no arcs.
func NewResidualGraph(nodes int) *ResidualGraph {
	return &ResidualGraph{adj: make([][]ResidualEdge, nodes)}
}

// NodeCount returns the number of nodes.
func (g *ResidualGraph) NodeCount() int {
	return len(g.adj)
}

// EdgeCount returns the number of forward arcs.
func (g *ResidualGraph) EdgeCount() int {
	return g.edges
}

// AddEdgeWithReverse adds the arc (from, to) with the given capacity and its
// zero-capacity reverse arc.
func (g *ResidualGraph) AddEdgeWithReverse(from, to, capacity int) {
	g.adj[from] = append(g.adj[from], ResidualEdge{
		To:               to,
		Capacity:         capacity,
		OriginalCapacity: capacity,
		Rev:              len(g.adj[to]),
	})
	g.adj[to] = append(g.adj[to], ResidualEdge{
		To:        from,
		IsReverse: true,
		Rev:       len(g.adj[from]) - 1,
	})
	g.edges++
}

// Edges returns the outgoing arcs of a node. The slice must not be modified.
func (g *ResidualGraph) Edges(u int) []ResidualEdge {
	return g.adj[u]
}

// Edge returns a pointer to the i-th outgoing arc of u.
func (g *ResidualGraph) Edge(u, i int) *ResidualEdge {
	return &g.adj[u][i]
}

// Push sends flow units along the i-th outgoing arc of u and updates the
// paired arc.
func (g *ResidualGraph) Push(u, i, flow int) {
	e := &g.adj[u][i]
	back := &g.adj[e.To][e.Rev]

	e.Capacity -= flow
	back.Capacity += flow

	if e.IsReverse {
		back.Flow -= flow
	} else {
		e.Flow += flow
	}
}

// OutFlow returns the total flow leaving a node on forward arcs.
func (g *ResidualGraph) OutFlow(u int) int {
	total := 0
	for _, e := range g.adj[u] {
		if !e.IsReverse {
			total += e.Flow
		}
	}
	return total
}
