package optimizer

import (
	"fmt"

	"kcmc/pkg/apperror"
	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/graph"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/validator"
)

// =============================================================================
// Reuse
// =============================================================================
//
// Reuse steers the path search toward sensors that many paths would like to
// use, so that POIs end up sharing relays.
//
//  1. A usage frequency per sensor is taken from one of three regimes:
//     the plain M-path tally, the minimal flood or the full flood.
//  2. cost[s] = -frequency[s], so frequent sensors are popped first.
//  3. For each POI, M disjoint paths are searched with cost as priority. If
//     that fails, the POI is retried with the level array as priority.
//  4. K-coverage is topped up per POI from the cheapest covering candidates.
//  5. POIs the connectivity checker rejects on the result get the checker's
//     own paths merged in, until the set validates.
// =============================================================================

// Regime selects the usage frequency source of Reuse.
type Regime int

const (
	RegimeNone Regime = iota
	RegimeMin
	RegimeMax
)

// Regimes lists the regimes in tie-breaking order of BestReuse.
var Regimes = []Regime{RegimeNone, RegimeMin, RegimeMax}

func (r Regime) String() string {
	switch r {
	case RegimeNone:
		return "no"
	case RegimeMin:
		return "min"
	case RegimeMax:
		return "max"
	default:
		return fmt.Sprintf("regime(%d)", int(r))
	}
}

func (r Regime) method() Method {
	switch r {
	case RegimeMin:
		return MethodMinReuse
	case RegimeMax:
		return MethodMaxReuse
	default:
		return MethodNoReuse
	}
}

// Frequency returns the usage tally of a regime.
func Frequency(in *instance.Instance, k, m int, regime Regime, exclusion domain.Set[int]) (domain.Tally[int], error) {
	switch regime {
	case RegimeMin, RegimeMax:
		res, err := Flood(in, k, m, regime == RegimeMax, exclusion)
		if err != nil {
			return nil, err
		}
		return res.Tally, nil
	case RegimeNone:
		if _, err := requireCoverage(in, k, exclusion); err != nil {
			return nil, err
		}
		conn, err := validator.Connectivity(in, m, exclusion)
		if err != nil {
			return nil, err
		}
		if !conn.OK {
			return nil, insufficientConnectivity(conn.Report)
		}
		tally := domain.NewTally[int]()
		for _, paths := range conn.Paths {
			for _, p := range paths {
				for _, s := range p {
					tally.Vote(s)
				}
			}
		}
		return tally, nil
	default:
		return nil, unknownRegime(regime)
	}
}

// Reuse runs the reuse heuristic under the given frequency regime.
func Reuse(in *instance.Instance, k, m int, regime Regime, exclusion domain.Set[int]) (*Result, error) {
	tally, err := Frequency(in, k, m, regime, exclusion)
	if err != nil {
		return nil, err
	}

	cost := make([]int, in.Sensors)
	for s := range cost {
		cost[s] = -tally.Count(s)
	}

	res := &Result{
		Method: regime.method(),
		Active: domain.NewSet[int](),
		Tally:  tally,
		Regime: regime,
	}

	var level []int
	for poi := 0; poi < in.POIs; poi++ {
		paths, err := graph.DisjointPaths(in, poi, exclusion, cost, m)
		if err != nil {
			return nil, err
		}
		if len(paths) < m {
			if level == nil {
				level = graph.Levels(in, exclusion)
			}
			if paths, err = graph.DisjointPaths(in, poi, exclusion, level, m); err != nil {
				return nil, err
			}
		}
		if len(paths) < m {
			return nil, insufficientConnectivity(validator.Report{
				Property: validator.PropertyConnectivity,
				POI:      poi,
				Achieved: len(paths),
				Required: m,
			})
		}

		for _, p := range paths {
			res.Active.Add(p...)
		}
		res.Paths += len(paths)
	}

	res.Added, err = TopUpCoverage(in, k, res.Active, cost, exclusion)
	if err != nil {
		return nil, err
	}
	if err := repairConnectivity(in, k, m, res, exclusion); err != nil {
		return nil, err
	}
	return res, nil
}

// repairConnectivity grows res.Active until the connectivity checker accepts
// it. Paths found by cost do not always survive the level-ordered search, so
// each failing POI gets the paths the checker itself finds for it under the
// caller's exclusion. If that stalls, the Local-Optimum set is merged in.
func repairConnectivity(in *instance.Instance, k, m int, res *Result, exclusion domain.Set[int]) error {
	var base *validator.Result
	merged := false

	for {
		conn, err := validator.Connectivity(in, m, in.Invert(res.Active))
		if err != nil {
			return err
		}
		if conn.OK {
			return nil
		}

		if base == nil {
			if base, err = validator.Connectivity(in, m, exclusion); err != nil {
				return err
			}
			if !base.OK {
				return insufficientConnectivity(base.Report)
			}
		}

		before := res.Active.Len()
		for _, p := range base.Paths[conn.POI] {
			res.Active.Add(p...)
		}
		if res.Active.Len() == before {
			if merged {
				return apperror.Invariant("%s: %s rejected after merging the local optimum", res.Method, conn.Report)
			}
			local, err := LocalOptimum(in, k, m, exclusion)
			if err != nil {
				return err
			}
			res.Active.Merge(local.Active)
			merged = true
		}
		res.Added += res.Active.Len() - before
	}
}

// BestReuse runs Reuse under every regime and keeps the smallest active set.
// Ties go to the earlier regime in Regimes.
func BestReuse(in *instance.Instance, k, m int, exclusion domain.Set[int]) (*Result, error) {
	var best *Result
	for _, regime := range Regimes {
		res, err := Reuse(in, k, m, regime, exclusion)
		if err != nil {
			return nil, err
		}
		if best == nil || res.Size() < best.Size() {
			best = res
		}
	}
	best.Method = MethodBestReuse
	return best, nil
}

// TopUpCoverage adds sensors to active until every POI is covered by at least
// k of them and returns the number of sensors added.
//
// Missing coverage is filled from the POI's non-excluded covering sensors in
// ascending (cost, id) order. A nil cost ranks candidates by id. Running out of
// candidates is a fatal INSUFFICIENT_COVERAGE error.
func TopUpCoverage(in *instance.Instance, k int, active domain.Set[int], cost []int, exclusion domain.Set[int]) (int, error) {
	if k < 1 {
		return 0, nil
	}
	if cost == nil {
		cost = make([]int, in.Sensors)
	}

	added := 0
	candidates := graph.NewFrontier(cost)
	for poi := 0; poi < in.POIs; poi++ {
		covering := in.Covering(poi)
		have := covering.Len() - domain.CountMissing(covering, active)
		if have >= k {
			continue
		}

		candidates.Reset(cost)
		for s := range covering {
			if !active.Has(s) && !exclusion.Has(s) {
				candidates.Push(s)
			}
		}
		for have < k && !candidates.Empty() {
			active.Add(candidates.Pop())
			have++
			added++
		}
		if have < k {
			return added, insufficientCoverage(validator.Report{
				Property: validator.PropertyCoverage,
				POI:      poi,
				Achieved: have,
				Required: k,
			})
		}
	}
	return added, nil
}
