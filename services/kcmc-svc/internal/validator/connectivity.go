package validator

import (
	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/graph"
	"kcmc/services/kcmc-svc/internal/instance"
)

// =============================================================================
// M-Connectivity
// =============================================================================
//
// Every POI needs m node-disjoint paths of active sensors to the sinks.
// Paths are disjoint per POI only; two POIs may share sensors.
//
// The level array is built once for the exclusion set and drives every
// search. Each POI starts from its own copy of the exclusion set, and every
// path found for it is added to that copy before the next search.
// =============================================================================

// Connectivity checks M-connectivity. POIs are examined in index order and
// the first POI short of m paths stops the check.
//
// The witness holds every sensor of every path found, including the partial
// paths of the failing POI. With m < 1 the check succeeds with an empty witness.
func Connectivity(in *instance.Instance, m int, exclusion domain.Set[int]) (*Result, error) {
	res := &Result{
		Report:  success(PropertyConnectivity, m),
		Witness: domain.NewSet[int](),
		Paths:   make(map[int][]graph.Path),
	}
	if m < 1 {
		return res, nil
	}

	level := graph.Levels(in, exclusion)
	for poi := 0; poi < in.POIs; poi++ {
		paths, err := graph.DisjointPaths(in, poi, exclusion, level, m)
		if err != nil {
			return nil, err
		}
		res.Paths[poi] = paths
		for _, p := range paths {
			res.Witness.Add(p...)
		}
		if len(paths) < m {
			res.Report = failure(PropertyConnectivity, m, poi, len(paths))
			return res, nil
		}
	}
	return res, nil
}

// Validate runs the coverage check followed by the connectivity check. Both
// checks always run so the outcome can report each of them.
func Validate(in *instance.Instance, k, m int, exclusion domain.Set[int]) (*Outcome, error) {
	cov := Coverage(in, k, exclusion)
	conn, err := Connectivity(in, m, exclusion)
	if err != nil {
		return nil, err
	}
	return &Outcome{Coverage: cov, Connectivity: conn}, nil
}

// Satisfies reports whether the exclusion set keeps both K-coverage and
// M-connectivity.
func Satisfies(in *instance.Instance, k, m int, exclusion domain.Set[int]) (bool, error) {
	if !Coverage(in, k, exclusion).OK {
		return false, nil
	}
	conn, err := Connectivity(in, m, exclusion)
	if err != nil {
		return false, err
	}
	return conn.OK, nil
}
