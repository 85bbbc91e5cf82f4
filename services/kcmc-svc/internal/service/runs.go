package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"kcmc/pkg/apperror"
	"kcmc/pkg/cache"
	"kcmc/pkg/domain"
	"kcmc/pkg/logger"
	"kcmc/pkg/telemetry"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/optimizer"
)

// FailedBitmap stands in for the bitmap of a run that produced no active set.
const FailedBitmap = "-"

// =============================================================================
// Runs
// =============================================================================

// Run is one minimizer run on a problem.
type Run struct {
	Method      string  `json:"method"`
	Operation   string  `json:"operation"`
	Active      []int   `json:"active"`
	ActiveCount int     `json:"active_count"`
	Added       int     `json:"added"`
	Paths       int     `json:"paths"`
	Regime      string  `json:"regime,omitempty"`
	Compression float64 `json:"compression"`
	Bitmap      string  `json:"bitmap"`
	Valid       bool    `json:"valid"`
	RuntimeUs   int64   `json:"runtime_us"`
	Cached      bool    `json:"cached"`
	Error       string  `json:"error,omitempty"`

	err error
}

// Err returns the error of a failed run.
func (r *Run) Err() error {
	return r.err
}

// Suite is a set of minimizer runs on the same problem.
type Suite struct {
	RunID     string        `json:"run_id"`
	Key       string        `json:"key"`
	K         int           `json:"k"`
	M         int           `json:"m"`
	POIs      int           `json:"pois"`
	Sensors   int           `json:"sensors"`
	Excluded  int           `json:"excluded"`
	Runs      []*Run        `json:"runs"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

// Best returns the valid run with the fewest active sensors, or nil.
// Ties keep the earlier run.
func (s *Suite) Best() *Run {
	var best *Run
	for _, r := range s.Runs {
		if r.err != nil || !r.Valid {
			continue
		}
		if best == nil || r.ActiveCount < best.ActiveCount {
			best = r
		}
	}
	return best
}

// Optimize runs one minimizer. A run that fails returns its error, so that
// an infeasible problem maps to INSUFFICIENT_COVERAGE or
// INSUFFICIENT_CONNECTIVITY.
func (s *EngineService) Optimize(ctx context.Context, p Problem, method string) (*Run, error) {
	m, err := optimizer.ParseMethod(method)
	if err != nil {
		return nil, err
	}

	suite, err := s.Suite(ctx, p, []string{string(m)})
	if err != nil {
		return nil, err
	}

	run := suite.Runs[0]
	if run.err != nil {
		return run, run.err
	}
	return run, nil
}

// Suite runs the given methods on one problem. An empty list falls back to
// the configured methods and then to every minimizer.
//
// Failed runs are reported inside the suite. Only request problems and
// cancellation fail the whole call.
func (s *EngineService) Suite(ctx context.Context, p Problem, methods []string) (*Suite, error) {
	runID := uuid.New().String()

	ctx, span := telemetry.StartSpan(ctx, "EngineService.Suite",
		trace.WithAttributes(attribute.String(telemetry.AttrRunID, runID)),
	)
	defer span.End()

	plan, err := s.plan(methods)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}

	in, exclusion, err := s.prepare(ctx, p)
	if err != nil {
		telemetry.SetError(ctx, err)
		return nil, err
	}
	span.SetAttributes(telemetry.InstanceAttributes(in.Key(), in.POIs, in.Sensors, p.K, p.M, exclusion.Len())...)

	if s.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.RunTimeout)
		defer cancel()
	}

	suite := &Suite{
		RunID:     runID,
		Key:       in.Key(),
		K:         p.K,
		M:         p.M,
		POIs:      in.POIs,
		Sensors:   in.Sensors,
		Excluded:  exclusion.Len(),
		Runs:      make([]*Run, len(plan)),
		StartedAt: time.Now(),
	}
	log := logger.WithRun(runID, suite.Key, p.K, p.M)

	cacheKey := in.Encode()
	excluded := domain.Sorted(exclusion)

	// Кэшированные результаты не пересчитываем
	var tasks []optimizer.Task
	var slots []int
	for i, method := range plan {
		if run := s.lookup(ctx, cacheKey, method, p.K, p.M, excluded, in.Sensors); run != nil {
			suite.Runs[i] = run
			continue
		}
		tasks = append(tasks, optimizer.Task{
			Method:    method,
			Instance:  in,
			K:         p.K,
			M:         p.M,
			Exclusion: exclusion,
		})
		slots = append(slots, i)
	}

	if err := ctx.Err(); err != nil {
		err = apperror.Wrap(err, apperror.CodeTimeout, "suite cancelled before start")
		telemetry.SetError(ctx, err)
		return nil, err
	}

	for j, exec := range s.pool.Batch(ctx, tasks) {
		run := s.finish(ctx, runID, in, exec)
		suite.Runs[slots[j]] = run
		if run.err == nil {
			s.store(ctx, cacheKey, p.K, p.M, excluded, run)
		}
	}
	suite.Duration = time.Since(suite.StartedAt)

	for _, run := range suite.Runs {
		if run.err != nil {
			log.Warn("Minimizer failed",
				"method", run.Method,
				"code", apperror.Code(run.err),
				"error", run.err,
			)
			continue
		}
		log.Info("Minimizer finished",
			"method", run.Method,
			"operation", run.Operation,
			"active", run.ActiveCount,
			"compression", run.Compression,
			"valid", run.Valid,
			"runtime_us", run.RuntimeUs,
			"cached", run.Cached,
		)
	}

	if err := ctx.Err(); err != nil {
		err = apperror.Wrap(err, apperror.CodeTimeout, "suite did not finish in time").
			WithDetails("run_id", runID)
		telemetry.SetError(ctx, err)
		return nil, err
	}
	return suite, nil
}

func (s *EngineService) plan(methods []string) ([]optimizer.Method, error) {
	if len(methods) == 0 {
		methods = s.cfg.Methods
	}
	if len(methods) == 0 {
		return optimizer.AllMethods, nil
	}

	plan := make([]optimizer.Method, 0, len(methods))
	for _, name := range methods {
		m, err := optimizer.ParseMethod(name)
		if err != nil {
			return nil, err
		}
		plan = append(plan, m)
	}
	return plan, nil
}

// finish turns a timed execution into a run and records it.
func (s *EngineService) finish(ctx context.Context, runID string, in *instance.Instance, exec optimizer.Execution) *Run {
	run := &Run{
		Method:    string(exec.Method),
		Operation: string(exec.Method),
		Bitmap:    FailedBitmap,
		RuntimeUs: exec.Duration.Microseconds(),
	}

	if exec.Error != nil {
		run.err = exec.Error
		run.Error = exec.Error.Error()
		telemetry.RecordError(ctx, exec.Error)
	} else {
		res := exec.Result
		run.Operation = res.Operation()
		run.Active = domain.Sorted(res.Active)
		run.ActiveCount = res.Size()
		run.Added = res.Added
		run.Paths = res.Paths
		run.Compression = res.Compression(in.Sensors)
		run.Bitmap = res.Bitmap(in.Sensors)
		run.Valid = exec.Valid
		if res.Method == optimizer.MethodNoReuse || res.Method == optimizer.MethodMinReuse ||
			res.Method == optimizer.MethodMaxReuse || res.Method == optimizer.MethodBestReuse {
			run.Regime = res.Regime.String()
		}
	}

	telemetry.AddEvent(ctx, "minimizer_finished",
		telemetry.RunAttributes(runID, run.Method, run.ActiveCount, run.Paths, run.Compression, run.Valid)...)

	if s.metrics != nil {
		s.metrics.RecordMinimizerRun(run.Method, run.err == nil, exec.Duration, run.ActiveCount, run.Paths, run.Compression)
	}
	return run
}

// =============================================================================
// Result cache
// =============================================================================

func (s *EngineService) lookup(ctx context.Context, key string, method optimizer.Method, k, m int, excluded []int, sensors int) *Run {
	if s.results == nil {
		return nil
	}

	cached, found, err := s.results.Get(ctx, key, string(method), k, m, excluded)
	if err != nil {
		logger.Log.Warn("Failed to read cached result", "method", method, "error", err)
		return nil
	}
	s.recordCache("result", found)
	if !found {
		return nil
	}

	telemetry.AddEvent(ctx, "cache_hit", attribute.String(telemetry.AttrMethod, string(method)))
	return runFromCache(cached, sensors)
}

func (s *EngineService) store(ctx context.Context, key string, k, m int, excluded []int, run *Run) {
	if s.results == nil {
		return
	}

	entry := &cache.CachedResult{
		Method:    run.Method,
		Active:    run.Active,
		Added:     run.Added,
		Paths:     run.Paths,
		Regime:    run.Regime,
		Valid:     run.Valid,
		RuntimeUs: run.RuntimeUs,
	}
	if err := s.results.Set(ctx, key, k, m, excluded, entry, 0); err != nil {
		logger.Log.Warn("Failed to cache minimizer result", "method", run.Method, "error", err)
	}
}

// runFromCache rebuilds a run from a cached entry. The operation label is
// recomputed the same way optimizer.Result does it.
func runFromCache(c *cache.CachedResult, sensors int) *Run {
	res := &optimizer.Result{
		Method: optimizer.Method(c.Method),
		Active: domain.NewSet(c.Active...),
		Added:  c.Added,
		Paths:  c.Paths,
	}
	return &Run{
		Method:      c.Method,
		Operation:   res.Operation(),
		Active:      domain.Sorted(res.Active),
		ActiveCount: res.Size(),
		Added:       c.Added,
		Paths:       c.Paths,
		Regime:      c.Regime,
		Compression: res.Compression(sensors),
		Bitmap:      res.Bitmap(sensors),
		Valid:       c.Valid,
		RuntimeUs:   c.RuntimeUs,
		Cached:      true,
	}
}
