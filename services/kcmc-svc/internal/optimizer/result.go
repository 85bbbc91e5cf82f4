// Package optimizer implements the minimization heuristics of the KCMC engine.
//
// Every heuristic takes an instance, the K and M requirements and an exclusion
// set of sensors that must stay inactive, and returns a small active set whose
// complement still satisfies K-coverage and M-connectivity.
//
// # Methods
//
//   - LocalOptimum: union of the coverage and connectivity witnesses
//   - Flood: every path hop is widened to all sensors that can play its role
//   - Reuse: paths prefer sensors that other paths are likely to use
//   - BestReuse: smallest Reuse result over the three frequency regimes
//
// # Determinism
//
// All heuristics are deterministic: candidate order is fixed by (priority, id).
//
// # Errors
//
// Running a heuristic on an instance that does not satisfy the requested K or
// M under the given exclusion set returns a critical INSUFFICIENT_COVERAGE or
// INSUFFICIENT_CONNECTIVITY error.
package optimizer

import (
	"fmt"
	"strings"

	"kcmc/pkg/domain"
)

// Result is the outcome of a single minimizer run.
type Result struct {
	// Method is the heuristic that produced the result.
	Method Method

	// Active is the set of sensors left on.
	Active domain.Set[int]

	// Added counts sensors added after the paths were chosen: the K-coverage
	// top-up and the connectivity repair. Reuse only.
	Added int

	// Paths is the number of POI-to-sink paths the heuristic committed to.
	Paths int

	// Tally holds the vote count per sensor. For Flood it is the flood
	// frequency, for Reuse the frequency regime it was driven by.
	Tally domain.Tally[int]

	// Regime is the frequency regime of a Reuse run.
	Regime Regime
}

// Size returns the number of active sensors.
func (r *Result) Size() int {
	return r.Active.Len()
}

// Inactive returns the exclusion set matching the active set.
func (r *Result) Inactive(sensors int) domain.Set[int] {
	out := make(domain.Set[int], max(sensors-r.Active.Len(), 0))
	for s := 0; s < sensors; s++ {
		if !r.Active.Has(s) {
			out.Add(s)
		}
	}
	return out
}

// Compression is the fraction of sensors that can be turned off.
func (r *Result) Compression(sensors int) float64 {
	if sensors <= 0 {
		return 0
	}
	return float64(sensors-r.Active.Len()) / float64(sensors)
}

// Bitmap renders the active set as a string of 0/1 characters indexed by sensor id.
func (r *Result) Bitmap(sensors int) string {
	var b strings.Builder
	b.Grow(sensors)
	for s := 0; s < sensors; s++ {
		if r.Active.Has(s) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// Operation is the method label used in runtime reports. Flood labels carry
// the number of paths, Reuse labels the number of top-up sensors.
func (r *Result) Operation() string {
	switch r.Method {
	case MethodMinFlood, MethodMaxFlood:
		return fmt.Sprintf("%s_%d", r.Method, r.Paths)
	case MethodNoReuse, MethodMinReuse, MethodMaxReuse, MethodBestReuse:
		return fmt.Sprintf("%s_%d", r.Method, r.Added)
	default:
		return string(r.Method)
	}
}
