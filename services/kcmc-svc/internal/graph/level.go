package graph

import (
	"kcmc/pkg/domain"
)

// Network is the read-only view of an instance graph needed by the searches.
type Network interface {
	POICount() int
	SensorCount() int
	SinkCount() int
	Covering(poi int) domain.Set[int]
	Neighbors(sensor int) domain.Set[int]
	SinkNeighbors(sink int) domain.Set[int]
	IsSinkAdjacent(sensor int) bool
}

// =============================================================================
// Level BFS
// =============================================================================

// Levels labels every sensor with its hop distance to the nearest sink using
// only non-excluded sensors.
//
// Non-excluded sensors adjacent to a sink get level 0. Each further hop
// through a sensor-sensor link adds one. Excluded and unreachable sensors get
// domain.LevelInfinity.
//
// Levels depend on the exclusion set and must be recomputed whenever it
// changes.
//
// Time Complexity: O(S + L) for S sensors and L links
func Levels(n Network, exclusion domain.Set[int]) []int {
	level := make([]int, n.SensorCount())
	for i := range level {
		level[i] = domain.LevelInfinity
	}

	queue := NewQueue(n.SensorCount())
	for sink := 0; sink < n.SinkCount(); sink++ {
		for s := range n.SinkNeighbors(sink) {
			if exclusion.Has(s) || level[s] == 0 {
				continue
			}
			level[s] = 0
			queue.Push(s)
		}
	}

	for !queue.Empty() {
		u := queue.Pop()
		for v := range n.Neighbors(u) {
			if exclusion.Has(v) || level[v] != domain.LevelInfinity {
				continue
			}
			level[v] = level[u] + 1
			queue.Push(v)
		}
	}

	return level
}

// MaxLevel returns the largest finite level, or -1 if no sensor reaches a sink.
func MaxLevel(level []int) int {
	maxLevel := -1
	for _, l := range level {
		if domain.IsReachable(l) && l > maxLevel {
			maxLevel = l
		}
	}
	return maxLevel
}
