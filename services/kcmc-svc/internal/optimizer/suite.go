package optimizer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"kcmc/pkg/apperror"
	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/validator"
)

// =============================================================================
// Methods
// =============================================================================

// Method names a minimizer.
type Method string

const (
	MethodLocal     Method = "local"
	MethodMinFlood  Method = "min_flood"
	MethodMaxFlood  Method = "max_flood"
	MethodNoReuse   Method = "no_reuse"
	MethodMinReuse  Method = "min_reuse"
	MethodMaxReuse  Method = "max_reuse"
	MethodBestReuse Method = "best_reuse"
)

// AllMethods lists every minimizer in runtime report order.
var AllMethods = []Method{
	MethodLocal,
	MethodMinFlood,
	MethodMaxFlood,
	MethodNoReuse,
	MethodMinReuse,
	MethodMaxReuse,
	MethodBestReuse,
}

// ParseMethod resolves a method name, case-insensitively.
func ParseMethod(name string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(name)))
	for _, known := range AllMethods {
		if m == known {
			return m, nil
		}
	}
	return "", apperror.NewWithField(apperror.CodeUnknownMethod,
		fmt.Sprintf("unknown method %q", name), "method")
}

func unknownRegime(r Regime) *apperror.Error {
	return apperror.New(apperror.CodeUnknownMethod, fmt.Sprintf("unknown reuse regime %d", int(r)))
}

// Run dispatches a single minimizer.
func Run(in *instance.Instance, method Method, k, m int, exclusion domain.Set[int]) (*Result, error) {
	if in == nil {
		return nil, apperror.ErrNilInstance
	}

	switch method {
	case MethodLocal:
		return LocalOptimum(in, k, m, exclusion)
	case MethodMinFlood:
		return Flood(in, k, m, false, exclusion)
	case MethodMaxFlood:
		return Flood(in, k, m, true, exclusion)
	case MethodNoReuse:
		return Reuse(in, k, m, RegimeNone, exclusion)
	case MethodMinReuse:
		return Reuse(in, k, m, RegimeMin, exclusion)
	case MethodMaxReuse:
		return Reuse(in, k, m, RegimeMax, exclusion)
	case MethodBestReuse:
		return BestReuse(in, k, m, exclusion)
	default:
		return nil, apperror.NewWithField(apperror.CodeUnknownMethod,
			fmt.Sprintf("unknown method %q", method), "method")
	}
}

// =============================================================================
// Runtime Suite
// =============================================================================

// Execution is one timed minimizer run, checked against the requirements.
type Execution struct {
	Method   Method
	Result   *Result
	Valid    bool
	Duration time.Duration
	Error    error
}

// Task is a single suite entry.
type Task struct {
	Method    Method
	Instance  *instance.Instance
	K, M      int
	Exclusion domain.Set[int]
}

// Pool limits how many minimizers run at the same time.
//
// Minimizers are CPU-bound and read the instance only, so tasks on the same
// instance may run concurrently.
type Pool struct {
	workers chan struct{}
}

// NewPool creates a pool with the given concurrency. maxConcurrency <= 0
// defaults to 4.
func NewPool(maxConcurrency int) *Pool {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	return &Pool{workers: make(chan struct{}, maxConcurrency)}
}

// Acquire blocks until a worker slot is free or ctx is done.
func (p *Pool) Acquire(ctx context.Context) error {
	select {
	case p.workers <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release returns a worker slot. Call exactly once per successful Acquire.
func (p *Pool) Release() {
	<-p.workers
}

// dispatch runs the minimizer of a task; tests replace it.
var dispatch = Run

// Execute runs one task in a worker slot and re-validates its result.
// A panic in the minimizer is returned as a critical INTERNAL_ERROR.
func (p *Pool) Execute(ctx context.Context, t Task) (run Execution) {
	run.Method = t.Method
	defer func() {
		if r := recover(); r != nil {
			run.Result, run.Valid = nil, false
			run.Error = apperror.NewCritical(apperror.CodeInternal, fmt.Sprintf("%s panicked: %v", t.Method, r))
		}
	}()

	if err := p.Acquire(ctx); err != nil {
		run.Error = apperror.Wrap(err, apperror.CodeTimeout, "waiting for a worker slot")
		return run
	}
	defer p.Release()

	start := time.Now()
	run.Result, run.Error = dispatch(t.Instance, t.Method, t.K, t.M, t.Exclusion)
	run.Duration = time.Since(start)
	if run.Error != nil {
		return run
	}

	run.Valid, run.Error = validator.Satisfies(t.Instance, t.K, t.M, run.Result.Inactive(t.Instance.Sensors))
	return run
}

// Batch runs the tasks concurrently. Results keep the order of tasks.
func (p *Pool) Batch(ctx context.Context, tasks []Task) []Execution {
	runs := make([]Execution, len(tasks))
	var wg sync.WaitGroup

	for i, task := range tasks {
		wg.Add(1)
		go func(idx int, t Task) {
			defer wg.Done()
			runs[idx] = p.Execute(ctx, t)
		}(i, task)
	}

	wg.Wait()
	return runs
}

// Suite runs the given methods on one instance. An empty method list runs
// AllMethods.
func (p *Pool) Suite(ctx context.Context, in *instance.Instance, k, m int, exclusion domain.Set[int], methods ...Method) []Execution {
	if len(methods) == 0 {
		methods = AllMethods
	}
	tasks := make([]Task, len(methods))
	for i, method := range methods {
		tasks[i] = Task{Method: method, Instance: in, K: k, M: m, Exclusion: exclusion}
	}
	return p.Batch(ctx, tasks)
}
