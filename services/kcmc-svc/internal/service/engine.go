package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kcmc/pkg/apperror"
	"kcmc/pkg/cache"
	"kcmc/pkg/config"
	"kcmc/pkg/domain"
	"kcmc/pkg/logger"
	"kcmc/pkg/metrics"
	"kcmc/pkg/telemetry"
	"kcmc/services/kcmc-svc/internal/fitness"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/optimizer"
	"kcmc/services/kcmc-svc/internal/validator"
)

// evaluatorCacheSize bounds the number of fitness evaluators kept alive.
const evaluatorCacheSize = 64

// EngineService is the facade over the KCMC engine used by the CLI and the
// HTTP API. It adds logging, metrics, tracing and result caching around the
// engine packages, which stay free of those concerns.
type EngineService struct {
	version    string
	cfg        config.EngineConfig
	metrics    *metrics.Metrics
	results    *cache.ResultCache
	pool       *optimizer.Pool
	evaluators *lru.Cache[string, *fitness.Evaluator]
}

// NewEngineService creates the service. results may be nil, in which case
// every run is computed.
func NewEngineService(version string, cfg config.EngineConfig, results *cache.ResultCache) (*EngineService, error) {
	evaluators, err := lru.New[string, *fitness.Evaluator](evaluatorCacheSize)
	if err != nil {
		return nil, apperror.Wrap(err, apperror.CodeInternal, "failed to create evaluator cache")
	}

	return &EngineService{
		version:    version,
		cfg:        cfg,
		metrics:    metrics.Get(),
		results:    results,
		pool:       optimizer.NewPool(cfg.Workers),
		evaluators: evaluators,
	}, nil
}

// Version returns the service version.
func (s *EngineService) Version() string {
	return s.version
}

// =============================================================================
// Requests
// =============================================================================

// Problem is an instance in text form together with the requirements and the
// sensors that must stay inactive.
type Problem struct {
	Instance string `json:"instance"`
	K        int    `json:"k"`
	M        int    `json:"m"`
	Inactive []int  `json:"inactive,omitempty"`
}

// Check returns all request-level problems of p without parsing the instance.
func (p Problem) Check() *apperror.ValidationErrors {
	errs := apperror.NewValidationErrors()
	if p.Instance == "" {
		errs.AddErrorWithField(apperror.CodeInvalidArgument, "instance is required", "instance")
	}
	if p.K < 0 {
		errs.AddErrorWithField(apperror.CodeInvalidArgument, fmt.Sprintf("k must be non-negative, got %d", p.K), "k")
	}
	if p.M < 0 {
		errs.AddErrorWithField(apperror.CodeInvalidArgument, fmt.Sprintf("m must be non-negative, got %d", p.M), "m")
	}
	return errs
}

// =============================================================================
// Instances
// =============================================================================

// Load parses an instance and enforces the configured size limit.
func (s *EngineService) Load(ctx context.Context, text string) (*instance.Instance, error) {
	ctx, span := telemetry.StartSpan(ctx, "EngineService.Load")
	defer span.End()

	in, err := instance.Parse(text)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	if err := s.admit(in); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	span.SetAttributes(
		attribute.String(telemetry.AttrInstanceKey, in.Key()),
		attribute.Int(telemetry.AttrInstanceSensors, in.Sensors),
	)
	return in, nil
}

// Generate builds an instance from geometry parameters.
func (s *EngineService) Generate(ctx context.Context, params instance.Params) (*instance.Instance, error) {
	ctx, span := telemetry.StartSpan(ctx, "EngineService.Generate",
		trace.WithAttributes(attribute.String(telemetry.AttrInstanceKey, params.Key())),
	)
	defer span.End()

	in, err := instance.Generate(params)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	if err := s.admit(in); err != nil {
		return nil, err
	}

	coverage, links, sinkLinks := in.EdgeCounts()
	logger.Log.Debug("Instance generated",
		"key", in.Key(),
		"coverage_edges", coverage,
		"links", links,
		"sink_links", sinkLinks,
	)
	return in, nil
}

// DefaultSeedBudget is the number of consecutive seeds GenerateFeasible tries.
const DefaultSeedBudget = 10000

// GenerateFeasible looks for the first seed starting at params.Seed whose
// instance satisfies K-coverage and M-connectivity with every sensor active.
// At most budget+1 seeds are tried.
func (s *EngineService) GenerateFeasible(ctx context.Context, params instance.Params, k, m, budget int) (*instance.Instance, error) {
	ctx, span := telemetry.StartSpan(ctx, "EngineService.GenerateFeasible",
		trace.WithAttributes(
			attribute.String(telemetry.AttrInstanceKey, params.Key()),
			attribute.Int("k", k),
			attribute.Int("m", m),
		),
	)
	defer span.End()

	if budget < 0 {
		budget = DefaultSeedBudget
	}
	if err := params.Validate(); err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	base := params.Seed
	for i := 0; i <= budget; i++ {
		if err := ctx.Err(); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeTimeout, "seed search cancelled")
		}

		params.Seed = base + int64(i)
		in, err := instance.Generate(params)
		if err != nil {
			telemetry.SetError(ctx, err)
			return nil, err
		}

		ok, err := validator.Satisfies(in, k, m, nil)
		if err != nil {
			telemetry.SetError(ctx, err)
			return nil, err
		}
		if !ok {
			continue
		}

		if err := s.admit(in); err != nil {
			return nil, err
		}
		span.SetAttributes(attribute.Int("attempts", i+1))
		logger.Log.Debug("Feasible instance found",
			"key", in.Key(),
			"k", k,
			"m", m,
			"attempts", i+1,
		)
		return in, nil
	}

	err := apperror.New(apperror.CodeInvalidInstance,
		fmt.Sprintf("no seed in [%d, %d] yields a K%dM%d feasible instance", base, base+int64(budget), k, m)).
		WithDetails("budget", budget)
	telemetry.SetError(ctx, err)
	return nil, err
}

func (s *EngineService) admit(in *instance.Instance) error {
	if s.cfg.MaxSensors > 0 && in.Sensors > s.cfg.MaxSensors {
		return apperror.NewWithField(apperror.CodeInvalidInstance,
			fmt.Sprintf("instance has %d sensors, limit is %d", in.Sensors, s.cfg.MaxSensors), "sensors")
	}
	if s.metrics != nil {
		s.metrics.RecordInstanceSize(in.POIs, in.Sensors)
	}
	return nil
}

// prepare checks a problem, loads its instance and builds the exclusion set.
func (s *EngineService) prepare(ctx context.Context, p Problem) (*instance.Instance, domain.Set[int], error) {
	if errs := p.Check(); errs.HasErrors() {
		return nil, nil, errs.First()
	}

	in, err := s.Load(ctx, p.Instance)
	if err != nil {
		return nil, nil, err
	}

	exclusion := domain.NewSet[int]()
	for _, id := range p.Inactive {
		if id < 0 || id >= in.Sensors {
			return nil, nil, apperror.NewWithField(apperror.CodeInvalidArgument,
				fmt.Sprintf("inactive sensor %d out of range [0, %d)", id, in.Sensors), "inactive").
				WithDetails("sensor", id)
		}
		exclusion.Add(id)
	}
	return in, exclusion, nil
}

// =============================================================================
// Validation
// =============================================================================

// PropertyReport is the JSON view of a single property check.
type PropertyReport struct {
	Property string `json:"property"`
	OK       bool   `json:"ok"`
	POI      int    `json:"poi"`
	Achieved int    `json:"achieved"`
	Required int    `json:"required"`
	Message  string `json:"message"`
}

func newPropertyReport(r validator.Report) PropertyReport {
	return PropertyReport{
		Property: string(r.Property),
		OK:       r.OK,
		POI:      r.POI,
		Achieved: r.Achieved,
		Required: r.Required,
		Message:  r.String(),
	}
}

// Validation is the outcome of a K-coverage and M-connectivity check.
type Validation struct {
	Key          string         `json:"key"`
	K            int            `json:"k"`
	M            int            `json:"m"`
	Coverage     PropertyReport `json:"coverage"`
	Connectivity PropertyReport `json:"connectivity"`
	Valid        bool           `json:"valid"`
	Line         string         `json:"line"`
	Paths        int            `json:"paths"`
	Warnings     []string       `json:"warnings,omitempty"`
	RuntimeUs    int64          `json:"runtime_us"`
}

// Validate checks a problem. With crossCheck the greedy path count of every
// POI is compared against the exact split-vertex max-flow.
func (s *EngineService) Validate(ctx context.Context, p Problem, crossCheck bool) (*Validation, error) {
	ctx, span := telemetry.StartSpan(ctx, "EngineService.Validate",
		trace.WithAttributes(attribute.Bool("cross_check", crossCheck)),
	)
	defer span.End()

	in, exclusion, err := s.prepare(ctx, p)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	span.SetAttributes(telemetry.InstanceAttributes(in.Key(), in.POIs, in.Sensors, p.K, p.M, exclusion.Len())...)

	start := time.Now()
	outcome, err := validator.Validate(in, p.K, p.M, exclusion)
	elapsed := time.Since(start)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	for _, r := range []*validator.Result{outcome.Coverage, outcome.Connectivity} {
		if s.metrics != nil {
			s.metrics.RecordValidation(string(r.Property), r.OK)
		}
		telemetry.AddEvent(ctx, "property_checked",
			telemetry.ValidationAttributes(string(r.Property), r.POI, r.OK)...)
	}

	v := &Validation{
		Key:          in.Key(),
		K:            p.K,
		M:            p.M,
		Coverage:     newPropertyReport(outcome.Coverage.Report),
		Connectivity: newPropertyReport(outcome.Connectivity.Report),
		Valid:        outcome.Valid(),
		Line:         outcome.String(),
		Paths:        outcome.Connectivity.PathCount(),
		RuntimeUs:    elapsed.Microseconds(),
	}

	if crossCheck {
		report, err := validator.CrossCheck(in, exclusion)
		if err != nil {
			telemetry.SetError(ctx, err)
			return nil, err
		}
		if report.HasErrors() {
			first := report.First()
			telemetry.SetError(ctx, first)
			return nil, first
		}
		v.Warnings = report.WarningMessages()
	}

	logger.Log.Info("Validation finished",
		"key", v.Key,
		"k", p.K,
		"m", p.M,
		"excluded", exclusion.Len(),
		"valid", v.Valid,
		"duration", elapsed,
	)
	return v, nil
}

// =============================================================================
// Fitness
// =============================================================================

// FitnessRequest asks for the fitness of a population of active bitmaps.
type FitnessRequest struct {
	Instance   string   `json:"instance"`
	K          int      `json:"k"`
	M          int      `json:"m"`
	Population []string `json:"population"`
	// Idealize reduces the best valid individual to its local optimum.
	Idealize bool `json:"idealize,omitempty"`
}

// FitnessResult holds the scores in population order.
type FitnessResult struct {
	Key    string          `json:"key"`
	Scores []fitness.Score `json:"scores"`
	Best   int             `json:"best"`
	Ideal  string          `json:"ideal,omitempty"`
	Stats  fitness.Stats   `json:"stats"`
}

// Fitness scores a population. Evaluators and their memos are reused across
// calls for the same instance and requirements.
func (s *EngineService) Fitness(ctx context.Context, req FitnessRequest) (*FitnessResult, error) {
	ctx, span := telemetry.StartSpan(ctx, "EngineService.Fitness",
		trace.WithAttributes(attribute.Int("population", len(req.Population))),
	)
	defer span.End()

	if len(req.Population) == 0 {
		err := apperror.NewWithField(apperror.CodeInvalidArgument, "population is empty", "population")
		telemetry.SetError(ctx, err)
		return nil, err
	}

	eval, key, err := s.evaluator(ctx, req)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	scores, err := eval.EvaluateAll(req.Population)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	result := &FitnessResult{Key: key, Scores: scores, Best: fitness.Best(scores)}
	if req.Idealize && result.Best >= 0 && scores[result.Best].Valid {
		ideal, err := eval.Idealize(req.Population[result.Best])
		if err != nil {
			telemetry.SetError(ctx, err)
			return nil, err
		}
		result.Ideal = ideal
	}
	result.Stats = eval.Stats()

	logger.Log.Debug("Population evaluated",
		"key", key,
		"size", len(scores),
		"best", result.Best,
		"memo_hits", result.Stats.Hits,
	)
	return result, nil
}

func (s *EngineService) evaluator(ctx context.Context, req FitnessRequest) (*fitness.Evaluator, string, error) {
	in, err := s.Load(ctx, req.Instance)
	if err != nil {
		return nil, "", err
	}

	memoKey := in.Encode() + "|" + strconv.Itoa(req.K) + "|" + strconv.Itoa(req.M)
	if eval, ok := s.evaluators.Get(memoKey); ok {
		s.recordCache("fitness", true)
		return eval, in.Key(), nil
	}
	s.recordCache("fitness", false)

	weights := fitness.Weights{Valid: s.cfg.FitnessValidWeight, Invalid: s.cfg.FitnessInvalidWeight}
	if weights == (fitness.Weights{}) {
		weights = fitness.DefaultWeights()
	}

	eval, err := fitness.New(in, req.K, req.M, weights, s.cfg.FitnessMemoSize)
	if err != nil {
		return nil, "", err
	}
	s.evaluators.Add(memoKey, eval)
	return eval, in.Key(), nil
}

func (s *EngineService) recordCache(name string, hit bool) {
	if s.metrics != nil {
		s.metrics.RecordCache(name, hit)
	}
}
