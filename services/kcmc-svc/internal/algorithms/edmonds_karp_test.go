package algorithms

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/graph"
	"kcmc/services/kcmc-svc/internal/instance"
)

func TestEdmondsKarp(t *testing.T) {
	tests := []struct {
		name         string
		setupGraph   func() *graph.ResidualGraph
		source       int
		sink         int
		expectedFlow int
	}{
		{
			name: "simple_two_node",
			setupGraph: func() *graph.ResidualGraph {
				g := graph.NewResidualGraph(2)
				g.AddEdgeWithReverse(0, 1, 10)
				return g
			},
			source:       0,
			sink:         1,
			expectedFlow: 10,
		},
		{
			name: "bottleneck_in_middle",
			setupGraph: func() *graph.ResidualGraph {
				g := graph.NewResidualGraph(4)
				g.AddEdgeWithReverse(0, 1, 100)
				g.AddEdgeWithReverse(1, 2, 1) // узкое место
				g.AddEdgeWithReverse(2, 3, 100)
				return g
			},
			source:       0,
			sink:         3,
			expectedFlow: 1,
		},
		{
			name: "diamond_graph",
			setupGraph: func() *graph.ResidualGraph {
				g := graph.NewResidualGraph(4)
				g.AddEdgeWithReverse(0, 1, 10)
				g.AddEdgeWithReverse(0, 2, 10)
				g.AddEdgeWithReverse(1, 3, 10)
				g.AddEdgeWithReverse(2, 3, 10)
				return g
			},
			source:       0,
			sink:         3,
			expectedFlow: 20,
		},
		{
			name: "needs_flow_cancellation",
			setupGraph: func() *graph.ResidualGraph {
				// Кратчайший путь 0-1-2-5 блокирует оба других,
				// пока поток по 1-2 не будет отменён.
				g := graph.NewResidualGraph(6)
				g.AddEdgeWithReverse(0, 1, 1)
				g.AddEdgeWithReverse(0, 3, 1)
				g.AddEdgeWithReverse(1, 2, 1)
				g.AddEdgeWithReverse(1, 4, 1)
				g.AddEdgeWithReverse(3, 2, 1)
				g.AddEdgeWithReverse(2, 5, 1)
				g.AddEdgeWithReverse(4, 5, 1)
				return g
			},
			source:       0,
			sink:         5,
			expectedFlow: 2,
		},
		{
			name: "disconnected",
			setupGraph: func() *graph.ResidualGraph {
				g := graph.NewResidualGraph(4)
				g.AddEdgeWithReverse(0, 1, 10)
				g.AddEdgeWithReverse(2, 3, 10)
				return g
			},
			source:       0,
			sink:         3,
			expectedFlow: 0,
		},
		{
			name: "source_equals_sink",
			setupGraph: func() *graph.ResidualGraph {
				g := graph.NewResidualGraph(2)
				g.AddEdgeWithReverse(0, 1, 10)
				return g
			},
			source:       0,
			sink:         0,
			expectedFlow: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := tt.setupGraph()
			result := EdmondsKarp(g, tt.source, tt.sink, nil)

			require.NotNil(t, result)
			assert.Equal(t, tt.expectedFlow, result.MaxFlow)
			if tt.source != tt.sink {
				assert.Equal(t, tt.expectedFlow, g.OutFlow(tt.source), "flow leaving the source")
			}
		})
	}
}

func TestEdmondsKarp_Options(t *testing.T) {
	build := func() *graph.ResidualGraph {
		g := graph.NewResidualGraph(5)
		for mid := 1; mid <= 3; mid++ {
			g.AddEdgeWithReverse(0, mid, 1)
			g.AddEdgeWithReverse(mid, 4, 1)
		}
		return g
	}

	full := EdmondsKarp(build(), 0, 4, DefaultOptions().WithReturnPaths(true))
	assert.Equal(t, 3, full.MaxFlow)
	assert.Equal(t, 3, full.Iterations)
	assert.Equal(t, [][]int{{0, 1, 4}, {0, 2, 4}, {0, 3, 4}}, full.Paths)

	target := EdmondsKarp(build(), 0, 4, DefaultOptions().WithTarget(2))
	assert.Equal(t, 2, target.MaxFlow)

	limited := EdmondsKarp(build(), 0, 4, DefaultOptions().WithMaxIterations(1))
	assert.Equal(t, 1, limited.MaxFlow)
	assert.Nil(t, limited.Paths)
}

// ladder: два непересекающихся пути POI0 -> s0 -> s2 -> s4 -> sink и
// POI0 -> s1 -> s3 -> s5 -> sink с перемычкой s2 - s3.
func ladder(t *testing.T) *instance.Instance {
	t.Helper()
	in, err := instance.NewBuilder(instance.Params{POIs: 1, Sensors: 6, Sinks: 1}).
		Cover(0, 0).Cover(0, 1).
		Link(0, 2).Link(2, 4).
		Link(1, 3).Link(3, 5).
		Link(2, 3).
		LinkSink(4, 0).LinkSink(5, 0).
		Build()
	require.NoError(t, err)
	return in
}

func TestMaxDisjointPaths(t *testing.T) {
	in := ladder(t)

	tests := []struct {
		name      string
		exclusion domain.Set[int]
		target    int
		expected  int
	}{
		{"full", nil, 0, 2},
		{"target_reached_early", nil, 1, 1},
		{"bridge_cut", domain.NewSet(2), 0, 1},
		{"both_sink_neighbors_cut", domain.NewSet(4, 5), 0, 0},
		{"crossing_still_gives_one", domain.NewSet(4, 1), 0, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MaxDisjointPaths(in, 0, tt.exclusion, tt.target))
		})
	}
}

func TestSplitNetwork_SensorPaths(t *testing.T) {
	in := ladder(t)
	net := BuildSplitNetwork(in, 0, nil)

	// source->in для 2 сенсоров, 6 внутренних дуг, 5 связей в обе стороны, 2 дуги к стоку
	assert.Equal(t, 2+6+10+2, net.Graph.EdgeCount())

	result := EdmondsKarp(net.Graph, net.Source, net.Sink, nil)
	require.Equal(t, 2, result.MaxFlow)

	paths := net.SensorPaths()
	require.Len(t, paths, 2)

	seen := domain.NewSet[int]()
	for _, p := range paths {
		require.NotEmpty(t, p)
		assert.True(t, in.Covers(p[0], 0), "path starts at a covering sensor")
		assert.True(t, in.IsSinkAdjacent(p[len(p)-1]), "path ends next to a sink")
		for i, s := range p {
			assert.False(t, seen.Has(s), "sensor %d shared between paths", s)
			seen.Add(s)
			if i > 0 {
				assert.True(t, in.Linked(p[i-1], s))
			}
		}
	}
}

func TestMaxDisjointPaths_CrossingLinks(t *testing.T) {
	// Жадный поиск по уровням берёт s0 -> s3 и отрезает s2;
	// поток находит s0 -> s4 и s2 -> s3.
	in, err := instance.NewBuilder(instance.Params{POIs: 1, Sensors: 5, Sinks: 1}).
		Cover(0, 0).Cover(0, 2).
		Link(0, 3).Link(0, 4).Link(2, 3).
		LinkSink(3, 0).LinkSink(4, 0).
		Build()
	require.NoError(t, err)

	assert.Equal(t, 2, MaxDisjointPaths(in, 0, nil, 0))
}
