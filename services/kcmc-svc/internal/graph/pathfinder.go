package graph

import (
	"slices"

	"kcmc/pkg/apperror"
	"kcmc/pkg/domain"
)

// =============================================================================
// Path
// =============================================================================

// Path is a sequence of distinct sensors leading from a POI to a sink.
// The first sensor covers the POI, the last one is adjacent to a sink.
type Path []int

// First returns the POI-side sensor.
func (p Path) First() int { return p[0] }

// Last returns the sink-side sensor.
func (p Path) Last() int { return p[len(p)-1] }

// Set returns the sensors of the path as a set.
func (p Path) Set() domain.Set[int] {
	return domain.NewSet(p...)
}

// =============================================================================
// Path Finder
// =============================================================================

// PathFinder performs level-guided best-first searches for node-disjoint
// POI-to-sink paths.
//
// The frontier is ordered by (priority[sensor], sensor id). With the level
// array as priority the search heads straight for the sink. With a reuse
// cost array it prefers sensors already chosen by other paths.
//
// A PathFinder is not safe for concurrent use. Call Release when done so its
// predecessor buffer returns to the pool.
type PathFinder struct {
	net      Network
	pool     *BufferPool
	pred     *[]int
	touched  []int
	frontier *Frontier
}

// NewPathFinder creates a path finder bound to a network.
func NewPathFinder(n Network) *PathFinder {
	pool := GetPool()
	return &PathFinder{
		net:      n,
		pool:     pool,
		pred:     pool.AcquireInts(n.SensorCount(), domain.PredecessorNone),
		frontier: NewFrontier(nil),
	}
}

// Release returns the finder's buffers to the pool. The finder must not be
// used afterwards.
func (f *PathFinder) Release() {
	f.pool.ReleaseInts(f.pred)
	f.pred = nil
}

// Find searches for one path from poi to any sink that avoids every sensor in
// used. It returns found=false when the frontier empties without reaching a
// sink.
//
// The search is seeded with every non-used sensor covering the POI. The
// lowest-priority sensor is popped; if it is sink-adjacent the path is
// rebuilt from the predecessor chain, otherwise its non-used, not yet
// enqueued neighbors are pushed with the popped sensor as predecessor.
//
// used is only read. Callers add the returned path to it when they commit to
// the path.
//
// A broken predecessor chain is reported as an INVARIANT_VIOLATION error.
func (f *PathFinder) Find(poi int, used domain.Set[int], priority []int) (Path, bool, error) {
	defer f.reset()

	pred := *f.pred
	f.frontier.Reset(priority)

	for s := range f.net.Covering(poi) {
		if used.Has(s) {
			continue
		}
		pred[s] = domain.PredecessorPOI
		f.touched = append(f.touched, s)
		f.frontier.Push(s)
	}

	for !f.frontier.Empty() {
		u := f.frontier.Pop()

		if f.net.IsSinkAdjacent(u) {
			path, err := f.reconstruct(u)
			if err != nil {
				return nil, false, err
			}
			return path, true, nil
		}

		for v := range f.net.Neighbors(u) {
			if used.Has(v) || pred[v] != domain.PredecessorNone {
				continue
			}
			pred[v] = u
			f.touched = append(f.touched, v)
			f.frontier.Push(v)
		}
	}

	return nil, false, nil
}

// reconstruct walks predecessors from the sink-side sensor back to the POI
// and returns the path in POI-to-sink order.
func (f *PathFinder) reconstruct(last int) (Path, error) {
	pred := *f.pred
	path := Path{last}
	seen := domain.NewSet(last)

	for cur := pred[last]; cur != domain.PredecessorPOI; cur = pred[cur] {
		if cur == domain.PredecessorNone {
			return nil, apperror.Invariant("predecessor chain of sensor %d reaches a sensor that was never enqueued", last).
				WithDetails("path", slices.Clone(path))
		}
		if seen.Has(cur) {
			return nil, apperror.Invariant("sensor %d repeated in predecessor chain", cur).
				WithDetails("path", slices.Clone(path))
		}
		seen.Add(cur)
		path = append(path, cur)
	}

	slices.Reverse(path)
	return path, nil
}

func (f *PathFinder) reset() {
	pred := *f.pred
	for _, s := range f.touched {
		pred[s] = domain.PredecessorNone
	}
	f.touched = f.touched[:0]
}

// =============================================================================
// Disjoint Paths
// =============================================================================

// DisjointPaths greedily collects up to limit node-disjoint paths from poi to
// the sinks. Sensors in exclusion are never used. Each found path is added to
// a local used set before the next search.
//
// The search uses a single priority array, normally the level array for the
// same exclusion set. A limit of zero or less means "as many as exist".
func DisjointPaths(n Network, poi int, exclusion domain.Set[int], priority []int, limit int) ([]Path, error) {
	finder := NewPathFinder(n)
	defer finder.Release()

	used := exclusion.Clone()
	var paths []Path
	for limit <= 0 || len(paths) < limit {
		path, found, err := finder.Find(poi, used, priority)
		if err != nil {
			return paths, err
		}
		if !found {
			break
		}
		paths = append(paths, path)
		used.Add(path...)
	}
	return paths, nil
}
