// Package fitness scores candidate active sets for an evolutionary search.
//
// An individual is a bitmap over sensor ids: '1' keeps the sensor active,
// '0' turns it off. Its fitness is the fraction of sensors turned off,
// scaled by a weight that separates valid individuals (those that keep
// K-coverage and M-connectivity) from invalid ones. Scores are memoized per
// bitmap in an LRU cache, since populations revisit the same individuals.
package fitness

import (
	"fmt"
	"strings"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"

	"kcmc/pkg/apperror"
	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/optimizer"
	"kcmc/services/kcmc-svc/internal/validator"
)

// Default weights: valid individuals score in [0, 1], invalid ones in [-1, 0].
const (
	DefaultValidWeight   = 1.0
	DefaultInvalidWeight = -1.0
	DefaultMemoSize      = 4096
)

// Weights scales the inactive fraction of valid and invalid individuals.
type Weights struct {
	Valid   float64
	Invalid float64
}

// DefaultWeights returns the standard two-tier weights.
func DefaultWeights() Weights {
	return Weights{Valid: DefaultValidWeight, Invalid: DefaultInvalidWeight}
}

// Score is the evaluation of one individual.
type Score struct {
	Fitness  float64 `json:"fitness"`
	Valid    bool    `json:"valid"`
	Inactive int     `json:"inactive"`
	Outcome  string  `json:"outcome"`
}

// Stats reports memo effectiveness.
type Stats struct {
	Hits    int64 `json:"hits"`
	Misses  int64 `json:"misses"`
	Entries int   `json:"entries"`
}

// =============================================================================
// Evaluator
// =============================================================================

// Evaluator scores individuals of one instance against fixed K and M.
// It is safe for concurrent use.
type Evaluator struct {
	in      *instance.Instance
	k, m    int
	weights Weights
	memo    *lru.Cache[string, Score]

	hits   atomic.Int64
	misses atomic.Int64
}

// New creates an evaluator. memoSize <= 0 uses DefaultMemoSize.
func New(in *instance.Instance, k, m int, weights Weights, memoSize int) (*Evaluator, error) {
	if in == nil {
		return nil, apperror.ErrNilInstance
	}
	if k < 0 || m < 0 {
		return nil, apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("k and m must be non-negative, got k=%d m=%d", k, m), "k")
	}
	if memoSize <= 0 {
		memoSize = DefaultMemoSize
	}

	memo, err := lru.New[string, Score](memoSize)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to create fitness memo")
	}

	return &Evaluator{
		in:      in,
		k:       k,
		m:       m,
		weights: weights,
		memo:    memo,
	}, nil
}

// Evaluate scores a bitmap individual.
func (e *Evaluator) Evaluate(bitmap string) (Score, error) {
	if score, ok := e.memo.Get(bitmap); ok {
		e.hits.Add(1)
		return score, nil
	}
	e.misses.Add(1)

	inactive, err := ParseBitmap(bitmap, e.in.Sensors)
	if err != nil {
		return Score{}, err
	}

	outcome, err := validator.Validate(e.in, e.k, e.m, inactive)
	if err != nil {
		return Score{}, err
	}

	score := Score{
		Valid:    outcome.Valid(),
		Inactive: inactive.Len(),
		Outcome:  outcome.String(),
	}
	fraction := float64(inactive.Len()) / float64(e.in.Sensors)
	if score.Valid {
		score.Fitness = fraction * e.weights.Valid
	} else {
		score.Fitness = fraction * e.weights.Invalid
	}

	e.memo.Add(bitmap, score)
	return score, nil
}

// EvaluateAll scores a population. Results keep the input order; the first
// error aborts the evaluation.
func (e *Evaluator) EvaluateAll(population []string) ([]Score, error) {
	scores := make([]Score, len(population))
	for i, bitmap := range population {
		score, err := e.Evaluate(bitmap)
		if err != nil {
			return nil, apperror.Wrap(err, apperror.Code(err), fmt.Sprintf("individual %d", i)).
				WithDetails("individual", i)
		}
		scores[i] = score
	}
	return scores, nil
}

// Best returns the index of the fittest individual. Ties go to the lower
// index. Returns -1 for an empty population.
func Best(scores []Score) int {
	best := -1
	for i, s := range scores {
		if best < 0 || s.Fitness > scores[best].Fitness {
			best = i
		}
	}
	return best
}

// Idealize replaces a valid individual by the local optimum of its active
// set: only sensors some witness needs stay on. The result never scores
// worse than the input.
func (e *Evaluator) Idealize(bitmap string) (string, error) {
	inactive, err := ParseBitmap(bitmap, e.in.Sensors)
	if err != nil {
		return "", err
	}

	result, err := optimizer.LocalOptimum(e.in, e.k, e.m, inactive)
	if err != nil {
		return "", err
	}
	return result.Bitmap(e.in.Sensors), nil
}

// Stats returns memo statistics.
func (e *Evaluator) Stats() Stats {
	return Stats{
		Hits:    e.hits.Load(),
		Misses:  e.misses.Load(),
		Entries: e.memo.Len(),
	}
}

// =============================================================================
// Bitmaps
// =============================================================================

// ParseBitmap returns the inactive sensors of a bitmap individual.
func ParseBitmap(bitmap string, sensors int) (domain.Set[int], error) {
	if len(bitmap) != sensors {
		return nil, apperror.NewWithField(apperror.CodeInvalidArgument,
			fmt.Sprintf("bitmap has %d genes, instance has %d sensors", len(bitmap), sensors), "bitmap")
	}

	inactive := domain.NewSet[int]()
	for i := 0; i < len(bitmap); i++ {
		switch bitmap[i] {
		case '0':
			inactive.Add(i)
		case '1':
		default:
			return nil, apperror.NewWithField(apperror.CodeInvalidArgument,
				fmt.Sprintf("invalid gene %q at %d", bitmap[i], i), "bitmap")
		}
	}
	return inactive, nil
}

// FromInactive renders an exclusion set as a bitmap individual.
func FromInactive(inactive domain.Set[int], sensors int) string {
	var b strings.Builder
	b.Grow(sensors)
	for s := 0; s < sensors; s++ {
		if inactive.Has(s) {
			b.WriteByte('0')
		} else {
			b.WriteByte('1')
		}
	}
	return b.String()
}
