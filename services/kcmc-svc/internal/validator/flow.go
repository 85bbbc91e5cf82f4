package validator

import (
	"fmt"

	"kcmc/pkg/apperror"
	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/algorithms"
	"kcmc/services/kcmc-svc/internal/graph"
	"kcmc/services/kcmc-svc/internal/instance"
)

// FlowConnectivity checks M-connectivity with exact max-flow on the
// vertex-split graph. It is an oracle for the greedy check and is never used
// by the minimizers.
func FlowConnectivity(in *instance.Instance, m int, exclusion domain.Set[int]) *Result {
	res := &Result{
		Report:  success(PropertyConnectivity, m),
		Witness: domain.NewSet[int](),
		Paths:   make(map[int][]graph.Path),
	}
	if m < 1 {
		return res
	}

	for poi := 0; poi < in.POIs; poi++ {
		net := algorithms.BuildSplitNetwork(in, poi, exclusion)
		flow := algorithms.EdmondsKarp(net.Graph, net.Source, net.Sink, algorithms.DefaultOptions().WithTarget(m))

		for _, p := range net.SensorPaths() {
			res.Paths[poi] = append(res.Paths[poi], graph.Path(p))
			res.Witness.Add(p...)
		}
		if flow.MaxFlow < m {
			res.Report = failure(PropertyConnectivity, m, poi, flow.MaxFlow)
			return res
		}
	}
	return res
}

// CrossCheck compares the number of disjoint paths the greedy search finds
// for every POI with the exact maximum.
//
// Greedy below the maximum is recorded as a FLOW_MISMATCH warning. Greedy
// above the maximum means the search returned overlapping paths and is
// recorded as a critical invariant violation.
func CrossCheck(in *instance.Instance, exclusion domain.Set[int]) (*apperror.ValidationErrors, error) {
	report := apperror.NewValidationErrors()
	level := graph.Levels(in, exclusion)

	for poi := 0; poi < in.POIs; poi++ {
		paths, err := graph.DisjointPaths(in, poi, exclusion, level, 0)
		if err != nil {
			return nil, err
		}
		greedy := len(paths)
		exact := algorithms.MaxDisjointPaths(in, poi, exclusion, 0)

		switch {
		case greedy > exact:
			report.Add(apperror.Invariant("POI %d: greedy found %d paths, max-flow %d", poi, greedy, exact).
				WithField(fmt.Sprintf("poi[%d]", poi)))
		case greedy < exact:
			report.Add(apperror.NewWarning(apperror.CodeFlowMismatch,
				fmt.Sprintf("POI %d: greedy found %d of %d disjoint paths", poi, greedy, exact)).
				WithField(fmt.Sprintf("poi[%d]", poi)).
				WithDetails("greedy", greedy).
				WithDetails("exact", exact))
		}
	}
	return report, nil
}
