package optimizer

import (
	"kcmc/pkg/apperror"
	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/validator"
)

// LocalOptimum validates the instance once and keeps only the sensors the
// validation relied on: the active covering sensors of every POI and the
// sensors of the M paths found per POI.
func LocalOptimum(in *instance.Instance, k, m int, exclusion domain.Set[int]) (*Result, error) {
	cov, err := requireCoverage(in, k, exclusion)
	if err != nil {
		return nil, err
	}

	conn, err := validator.Connectivity(in, m, exclusion)
	if err != nil {
		return nil, err
	}
	if !conn.OK {
		return nil, insufficientConnectivity(conn.Report)
	}

	return &Result{
		Method: MethodLocal,
		Active: domain.Union(cov.Witness, conn.Witness),
		Paths:  conn.PathCount(),
	}, nil
}

// requireCoverage runs the coverage check and turns a failure into a fatal error.
func requireCoverage(in *instance.Instance, k int, exclusion domain.Set[int]) (*validator.Result, error) {
	cov := validator.Coverage(in, k, exclusion)
	if !cov.OK {
		return nil, insufficientCoverage(cov.Report)
	}
	return cov, nil
}

func insufficientCoverage(r validator.Report) *apperror.Error {
	return apperror.NewCritical(apperror.CodeInsufficientCoverage, r.String()).
		WithDetails("poi", r.POI).
		WithDetails("coverage", r.Achieved).
		WithDetails("k", r.Required)
}

func insufficientConnectivity(r validator.Report) *apperror.Error {
	return apperror.NewCritical(apperror.CodeInsufficientConnectivity, r.String()).
		WithDetails("poi", r.POI).
		WithDetails("paths", r.Achieved).
		WithDetails("m", r.Required)
}
