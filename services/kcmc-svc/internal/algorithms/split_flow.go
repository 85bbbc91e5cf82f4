package algorithms

import (
	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/graph"
	"kcmc/services/kcmc-svc/internal/instance"
)

// SplitNetwork is the unit-capacity flow network of one POI over the
// vertex-split sensor graph.
type SplitNetwork struct {
	Graph  *graph.ResidualGraph
	Source int
	Sink   int
}

// BuildSplitNetwork builds the flow network that counts node-disjoint paths
// from poi to any sink.
//
// Node layout: in(s) = 2s, out(s) = 2s+1, source (the POI) = 2S, super sink = 2S+1.
// Arcs, all of capacity one:
//   - source -> in(s) for every sensor s covering the POI
//   - in(s) -> out(s) for every sensor
//   - out(a) -> in(b) for every communication link
//   - out(s) -> super sink for every sink-adjacent sensor
//
// Excluded sensors get no in -> out arc, which removes them from every path.
func BuildSplitNetwork(in *instance.Instance, poi int, exclusion domain.Set[int]) *SplitNetwork {
	split := in.SplitGraph()
	source, sink := split.Nodes, split.Nodes+1
	g := graph.NewResidualGraph(split.Nodes + 2)

	for _, s := range domain.Sorted(in.Covering(poi)) {
		if !exclusion.Has(s) {
			g.AddEdgeWithReverse(source, instance.In(s), 1)
		}
	}

	for node, arcs := range split.Arcs {
		for _, to := range arcs {
			if exclusion.Has(instance.SensorOf(node)) || exclusion.Has(instance.SensorOf(to)) {
				continue
			}
			g.AddEdgeWithReverse(node, to, 1)
		}
	}

	for s := 0; s < in.Sensors; s++ {
		if in.IsSinkAdjacent(s) && !exclusion.Has(s) {
			g.AddEdgeWithReverse(instance.Out(s), sink, 1)
		}
	}

	return &SplitNetwork{Graph: g, Source: source, Sink: sink}
}

// MaxDisjointPaths returns the exact number of node-disjoint paths from poi to
// any sink that avoid the exclusion set. A positive target stops the
// computation once that many paths are known to exist.
func MaxDisjointPaths(in *instance.Instance, poi int, exclusion domain.Set[int], target int) int {
	net := BuildSplitNetwork(in, poi, exclusion)
	return EdmondsKarp(net.Graph, net.Source, net.Sink, DefaultOptions().WithTarget(target)).MaxFlow
}

// SensorPaths decomposes the flow of a solved split network into sensor
// paths in POI-to-sink order. With unit capacities the paths are
// node-disjoint.
func (n *SplitNetwork) SensorPaths() [][]int {
	used := make(map[int]map[int]bool)
	take := func(u int) int {
		for i, e := range n.Graph.Edges(u) {
			if e.IsReverse || e.Flow <= 0 || used[u][i] {
				continue
			}
			if used[u] == nil {
				used[u] = make(map[int]bool)
			}
			used[u][i] = true
			return e.To
		}
		return -1
	}

	var paths [][]int
	for {
		next := take(n.Source)
		if next < 0 {
			return paths
		}
		var path []int
		for next >= 0 && next != n.Sink {
			if next%2 == 0 {
				path = append(path, instance.SensorOf(next))
			}
			next = take(next)
		}
		paths = append(paths, path)
	}
}
