package instance

import (
	"kcmc/pkg/domain"
)

// SplitGraph is the directed vertex-split view of the sensor graph. Every
// sensor s becomes an in-node 2s and an out-node 2s+1 joined by the arc
// in(s) -> out(s). Every communication link {a, b} becomes the arcs
// out(a) -> in(b) and out(b) -> in(a).
//
// Unit capacities on this graph turn node-disjoint sensor paths into
// arc-disjoint paths, so a max-flow routine can count them exactly.
type SplitGraph struct {
	// Nodes is the number of split nodes (2 x Sensors).
	Nodes int
	// Arcs lists outgoing arcs per node in ascending target order.
	Arcs [][]int
}

// In returns the in-node of a sensor.
func In(sensor int) int { return 2 * sensor }

// Out returns the out-node of a sensor.
func Out(sensor int) int { return 2*sensor + 1 }

// SensorOf returns the sensor a split node belongs to.
func SensorOf(node int) int { return node / 2 }

// SplitGraph returns the vertex-split graph, building it on first use.
// It is safe for concurrent use.
func (in *Instance) SplitGraph() *SplitGraph {
	in.splitOnce.Do(func() {
		in.split = buildSplit(in)
	})
	return in.split
}

func buildSplit(in *Instance) *SplitGraph {
	g := &SplitGraph{
		Nodes: 2 * in.Sensors,
		Arcs:  make([][]int, 2*in.Sensors),
	}
	for s := 0; s < in.Sensors; s++ {
		g.Arcs[In(s)] = []int{Out(s)}

		neighbors := domain.Sorted(in.sensorSensor.Get(s))
		arcs := make([]int, 0, len(neighbors))
		for _, n := range neighbors {
			arcs = append(arcs, In(n))
		}
		g.Arcs[Out(s)] = arcs
	}
	return g
}

// ArcCount returns the total number of arcs.
func (g *SplitGraph) ArcCount() int {
	n := 0
	for _, arcs := range g.Arcs {
		n += len(arcs)
	}
	return n
}
