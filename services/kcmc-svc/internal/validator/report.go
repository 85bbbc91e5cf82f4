// Package validator checks K-coverage and M-connectivity of an instance under
// an exclusion set of inactive sensors.
//
// An unsatisfied requirement is an ordinary Report value, not an error. Errors
// are returned only for broken internal invariants of the path search.
package validator

import (
	"fmt"

	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/graph"
)

// Property названия проверяемых свойств
type Property string

const (
	PropertyCoverage     Property = "COVERAGE"
	PropertyConnectivity Property = "CONNECTIVITY"
)

// Report is the outcome of a single property check.
type Report struct {
	Property Property
	OK       bool
	// POI is the first POI that failed the check, -1 on success.
	POI int
	// Achieved is the coverage or the number of paths reached by the failing POI.
	Achieved int
	Required int
}

func success(p Property, required int) Report {
	return Report{Property: p, OK: true, POI: -1, Required: required}
}

func failure(p Property, required, poi, achieved int) Report {
	return Report{Property: p, POI: poi, Achieved: achieved, Required: required}
}

// String renders "SUCCESS" or "POI <p> <PROPERTY> <achieved>".
func (r Report) String() string {
	if r.OK {
		return "SUCCESS"
	}
	return fmt.Sprintf("POI %d %s %d", r.POI, r.Property, r.Achieved)
}

// Result is a Report together with the sensors the check relied on.
type Result struct {
	Report

	// Witness is a set of active sensors that is sufficient for the POIs examined.
	Witness domain.Set[int]

	// Paths holds the node-disjoint paths found per POI. Connectivity only.
	Paths map[int][]graph.Path
}

// PathCount returns the total number of paths in the result.
func (r *Result) PathCount() int {
	total := 0
	for _, paths := range r.Paths {
		total += len(paths)
	}
	return total
}

// Outcome объединяет обе проверки
type Outcome struct {
	Coverage     *Result
	Connectivity *Result
}

// Valid reports whether both properties hold.
func (o *Outcome) Valid() bool {
	return o.Coverage.OK && o.Connectivity.OK
}

// String renders the evaluator line.
func (o *Outcome) String() string {
	return fmt.Sprintf("K-COV: %s\t|\tM-CON: %s", o.Coverage, o.Connectivity)
}

// Witness returns the union of both witnesses.
func (o *Outcome) Witness() domain.Set[int] {
	return domain.Union(o.Coverage.Witness, o.Connectivity.Witness)
}
