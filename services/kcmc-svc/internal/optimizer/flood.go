package optimizer

import (
	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/graph"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/validator"
)

// =============================================================================
// Flood
// =============================================================================
//
// Flood widens every path the level-guided search commits to. For each hop it
// activates all non-excluded sensors that could take the place of that hop:
//
//   - single-sensor path: sensors covering the POI that are sink-adjacent
//   - first hop: sensors covering the POI that link to the second hop
//   - last hop: neighbors of the previous hop that are sink-adjacent
//   - inner hop: neighbors of the previous hop that link to the next hop
//
// Every activation is a vote. The vote tally is the flood frequency that the
// Reuse heuristic feeds on.
//
// Minimal mode commits to exactly M paths per POI. Full mode keeps going
// while the next path is no longer than the longest of the first M paths, and
// stops at the first longer path (which is not flooded) or at the first
// failure.
// =============================================================================

// Flood runs the flood heuristic. full selects full mode.
func Flood(in *instance.Instance, k, m int, full bool, exclusion domain.Set[int]) (*Result, error) {
	if _, err := requireCoverage(in, k, exclusion); err != nil {
		return nil, err
	}

	method := MethodMinFlood
	if full {
		method = MethodMaxFlood
	}
	res := &Result{Method: method, Active: domain.NewSet[int](), Tally: domain.NewTally[int]()}
	vote := func(s int) {
		res.Tally.Vote(s)
		res.Active.Add(s)
	}

	for poi := 0; poi < in.POIs; poi++ {
		for _, s := range domain.Sorted(in.Covering(poi)) {
			if !exclusion.Has(s) {
				vote(s)
			}
		}
	}

	level := graph.Levels(in, exclusion)
	finder := graph.NewPathFinder(in)
	defer finder.Release()

	for poi := 0; poi < in.POIs; poi++ {
		used := exclusion.Clone()
		found, longest := 0, 0

		for full || found < m {
			path, ok, err := finder.Find(poi, used, level)
			if err != nil {
				return nil, err
			}
			if !ok {
				break
			}
			if found >= m && len(path) > longest {
				break
			}

			found++
			if found <= m {
				longest = max(longest, len(path))
			}
			used.Add(path...)
			for _, s := range floodPath(in, poi, path, exclusion) {
				vote(s)
			}
		}

		if found < m {
			return nil, insufficientConnectivity(validator.Report{
				Property: validator.PropertyConnectivity,
				POI:      poi,
				Achieved: found,
				Required: m,
			})
		}
		res.Paths += found
	}

	return res, nil
}

// floodPath returns every sensor that can fill some hop of path, in hop
// order and ascending id within a hop. A sensor may appear once per hop it
// qualifies for.
func floodPath(in *instance.Instance, poi int, path graph.Path, exclusion domain.Set[int]) []int {
	var out []int
	add := func(candidates domain.Set[int], keep func(int) bool) {
		for _, s := range domain.Sorted(candidates) {
			if !exclusion.Has(s) && keep(s) {
				out = append(out, s)
			}
		}
	}

	last := len(path) - 1
	if last == 0 {
		add(in.Covering(poi), in.IsSinkAdjacent)
		return out
	}

	for i := range path {
		switch i {
		case 0:
			next := path[1]
			add(in.Covering(poi), func(s int) bool { return in.Linked(s, next) })
		case last:
			add(in.Neighbors(path[i-1]), in.IsSinkAdjacent)
		default:
			next := path[i+1]
			add(in.Neighbors(path[i-1]), func(s int) bool { return in.Linked(s, next) })
		}
	}
	return out
}
