package optimizer

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kcmc/pkg/apperror"
	"kcmc/pkg/domain"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/validator"
)

type link struct{ a, b int }

func build(t *testing.T, sensors int, cover []int, links []link, sinkAdjacent []int) *instance.Instance {
	t.Helper()
	b := instance.NewBuilder(instance.Params{POIs: 1, Sensors: sensors, Sinks: 1})
	for _, s := range cover {
		b.Cover(0, s)
	}
	for _, l := range links {
		b.Link(l.a, l.b)
	}
	for _, s := range sinkAdjacent {
		b.LinkSink(s, 0)
	}
	in, err := b.Build()
	require.NoError(t, err)
	return in
}

// single: POI0 -> A -> sink
func single(t *testing.T) *instance.Instance {
	return build(t, 1, []int{0}, nil, []int{0})
}

// independent: два сенсора, каждый покрывает POI и видит сток
func independent(t *testing.T) *instance.Instance {
	return build(t, 2, []int{0, 1}, nil, []int{0, 1})
}

// chain: POI0 -> s0 -> s1 -> sink
func chain(t *testing.T) *instance.Instance {
	return build(t, 2, []int{0}, []link{{0, 1}}, []int{1})
}

// fork: POI0 -> s0, у s0 два соседа s1 и s2, оба видят сток
func fork(t *testing.T) *instance.Instance {
	return build(t, 3, []int{0}, []link{{0, 1}, {0, 2}}, []int{1, 2})
}

// shortAndLong: два пути из одного сенсора (s0, s1) и один длинный s2 -> s3
func shortAndLong(t *testing.T) *instance.Instance {
	return build(t, 4, []int{0, 1, 2}, []link{{2, 3}}, []int{0, 1, 3})
}

func generated(t *testing.T, seed int64) *instance.Instance {
	t.Helper()
	in, err := instance.Generate(instance.Params{
		POIs: 3, Sensors: 60, Sinks: 1, AreaSide: 100, CoverageRadius: 40, CommunicationRadius: 40, Seed: seed,
	})
	require.NoError(t, err)
	return in
}

func TestScenarios(t *testing.T) {
	tests := []struct {
		name   string
		in     func(*testing.T) *instance.Instance
		k, m   int
		active []int
	}{
		{"single_k1_m1", single, 1, 1, []int{0}},
		{"independent_k2_m2", independent, 2, 2, []int{0, 1}},
		{"chain_k1_m1", chain, 1, 1, []int{0, 1}},
	}

	for _, tt := range tests {
		for _, method := range AllMethods {
			t.Run(tt.name+"/"+string(method), func(t *testing.T) {
				res, err := Run(tt.in(t), method, tt.k, tt.m, nil)
				require.NoError(t, err)
				assert.Equal(t, tt.active, domain.Sorted(res.Active))
				assert.Equal(t, method, res.Method)
			})
		}
	}
}

func TestInfeasible(t *testing.T) {
	tests := []struct {
		name string
		in   func(*testing.T) *instance.Instance
		k, m int
		code apperror.ErrorCode
	}{
		{"coverage", single, 2, 1, apperror.CodeInsufficientCoverage},
		{"connectivity", independent, 1, 3, apperror.CodeInsufficientConnectivity},
	}

	for _, tt := range tests {
		for _, method := range AllMethods {
			t.Run(tt.name+"/"+string(method), func(t *testing.T) {
				_, err := Run(tt.in(t), method, tt.k, tt.m, nil)
				require.Error(t, err)
				assert.True(t, apperror.Is(err, tt.code), "got %v", err)
				assert.True(t, apperror.IsCritical(err))
			})
		}
	}
}

func TestInfeasible_ExclusionApplied(t *testing.T) {
	_, err := LocalOptimum(chain(t), 1, 1, domain.NewSet(1))
	require.Error(t, err)
	assert.Equal(t, apperror.CodeInsufficientConnectivity, apperror.Code(err))
	assert.Equal(t, "POI 0 CONNECTIVITY 0", apperror.From(err).Message)
}

func TestFlood_Roles(t *testing.T) {
	in := fork(t)

	local, err := LocalOptimum(in, 1, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, domain.Sorted(local.Active))

	flood, err := Flood(in, 1, 1, false, nil)
	require.NoError(t, err)
	// s2 может заменить последний шаг s1
	assert.Equal(t, []int{0, 1, 2}, domain.Sorted(flood.Active))
	assert.Equal(t, 1, flood.Paths)
	assert.Equal(t, 2, flood.Tally.Count(0))
	assert.Equal(t, 1, flood.Tally.Count(1))
	assert.Equal(t, 1, flood.Tally.Count(2))
}

func TestFlood_ExclusionNeverFlooded(t *testing.T) {
	flood, err := Flood(fork(t), 1, 1, true, domain.NewSet(2))
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, domain.Sorted(flood.Active))
	assert.Zero(t, flood.Tally.Count(2))
}

func TestFlood_FullStopsAtLongerPath(t *testing.T) {
	in := shortAndLong(t)

	minimal, err := Flood(in, 1, 1, false, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, minimal.Paths)
	assert.Equal(t, "min_flood_1", minimal.Operation())

	full, err := Flood(in, 1, 1, true, nil)
	require.NoError(t, err)
	// [0], затем [1] той же длины; [2 3] длиннее и не затапливается
	assert.Equal(t, 2, full.Paths)
	assert.Equal(t, "max_flood_2", full.Operation())
	assert.Equal(t, []int{0, 1, 2}, domain.Sorted(full.Active))
	assert.Zero(t, full.Tally.Count(3))
	assert.Greater(t, full.Tally.Count(0), minimal.Tally.Count(0))
}

func TestFlood_ChainEqualsLocal(t *testing.T) {
	in := chain(t)
	local, err := LocalOptimum(in, 1, 1, nil)
	require.NoError(t, err)
	full, err := Flood(in, 1, 1, true, nil)
	require.NoError(t, err)
	assert.True(t, local.Active.Equal(full.Active))
}

func TestSizeOrdering(t *testing.T) {
	tested := 0
	for seed := int64(1); seed <= 6; seed++ {
		in := generated(t, seed)
		if ok, err := validator.Satisfies(in, 2, 2, nil); err != nil || !ok {
			continue
		}
		tested++

		local, err := LocalOptimum(in, 2, 2, nil)
		require.NoError(t, err)
		minimal, err := Flood(in, 2, 2, false, nil)
		require.NoError(t, err)
		full, err := Flood(in, 2, 2, true, nil)
		require.NoError(t, err)

		assert.LessOrEqual(t, local.Size(), minimal.Size(), "seed %d", seed)
		assert.LessOrEqual(t, minimal.Size(), full.Size(), "seed %d", seed)
		assert.Zero(t, domain.CountMissing(local.Active, minimal.Active), "seed %d: local not inside min flood", seed)
		assert.Zero(t, domain.CountMissing(minimal.Active, full.Active), "seed %d: min flood not inside full flood", seed)
	}
	require.NotZero(t, tested, "no feasible generated instance")
}

func TestReuse_ResultsRevalidate(t *testing.T) {
	pairs := []struct{ k, m int }{{1, 1}, {1, 2}, {2, 2}, {2, 3}}

	tested := 0
	for seed := int64(1); seed <= 60; seed++ {
		in, err := instance.Generate(instance.Params{
			POIs: 8, Sensors: 60, Sinks: 1, AreaSide: 100, CoverageRadius: 40, CommunicationRadius: 40, Seed: seed,
		})
		require.NoError(t, err)

		for _, p := range pairs {
			if ok, err := validator.Satisfies(in, p.k, p.m, nil); err != nil || !ok {
				continue
			}
			tested++

			for _, regime := range Regimes {
				res, err := Reuse(in, p.k, p.m, regime, nil)
				require.NoError(t, err, "seed %d K%dM%d regime %s", seed, p.k, p.m, regime)

				ok, err := validator.Satisfies(in, p.k, p.m, res.Inactive(in.Sensors))
				require.NoError(t, err)
				assert.True(t, ok, "seed %d K%dM%d regime %s", seed, p.k, p.m, regime)
				assert.Equal(t, p.m*in.POIs, res.Paths)
			}

			best, err := BestReuse(in, p.k, p.m, nil)
			require.NoError(t, err)
			ok, err := validator.Satisfies(in, p.k, p.m, best.Inactive(in.Sensors))
			require.NoError(t, err)
			assert.True(t, ok, "seed %d K%dM%d best_reuse", seed, p.k, p.m)
		}
	}
	require.NotZero(t, tested, "no feasible generated instance")
}

func TestRepairConnectivity(t *testing.T) {
	in := chain(t)

	// s1 отсутствует: проверка отвергает POI 0 и добавляет её путь
	res := &Result{Method: MethodNoReuse, Active: domain.NewSet(0)}
	require.NoError(t, repairConnectivity(in, 1, 1, res, nil))
	assert.Equal(t, []int{0, 1}, domain.Sorted(res.Active))
	assert.Equal(t, 1, res.Added)

	// Уже допустимый набор не меняется
	res = &Result{Method: MethodNoReuse, Active: domain.NewSet(0, 1)}
	require.NoError(t, repairConnectivity(in, 1, 1, res, nil))
	assert.Equal(t, 2, res.Active.Len())
	assert.Zero(t, res.Added)

	// Исключённый s1 делает экземпляр недопустимым
	res = &Result{Method: MethodNoReuse, Active: domain.NewSet(0)}
	err := repairConnectivity(in, 1, 1, res, domain.NewSet(1))
	assert.True(t, apperror.Is(err, apperror.CodeInsufficientConnectivity))
}

func TestReuse_TopUp(t *testing.T) {
	in := independent(t)

	res, err := Reuse(in, 2, 1, RegimeNone, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, domain.Sorted(res.Active))
	assert.Equal(t, 1, res.Added)
	assert.Equal(t, "no_reuse_1", res.Operation())
}

func TestReuse_PrefersFrequentSensors(t *testing.T) {
	// POI0 видит только s1, POI1 видит s0 и s1. Оба сенсора у стока.
	in, err := instance.NewBuilder(instance.Params{POIs: 2, Sensors: 2, Sinks: 1}).
		Cover(0, 1).Cover(1, 0).Cover(1, 1).
		LinkSink(0, 0).LinkSink(1, 0).
		Build()
	require.NoError(t, err)

	local, err := LocalOptimum(in, 1, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1}, domain.Sorted(local.Active))

	// Затопление голосует за s1 чаще, и POI1 переиспользует его
	res, err := Reuse(in, 1, 1, RegimeMin, nil)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, domain.Sorted(res.Active))
	assert.Greater(t, res.Tally.Count(1), res.Tally.Count(0))
}

func TestBestReuse(t *testing.T) {
	res, err := BestReuse(chain(t), 1, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, MethodBestReuse, res.Method)
	// при равенстве побеждает первый режим
	assert.Equal(t, RegimeNone, res.Regime)
	assert.Equal(t, "best_reuse_0", res.Operation())

	in := generated(t, 3)
	if ok, _ := validator.Satisfies(in, 1, 2, nil); ok {
		best, err := BestReuse(in, 1, 2, nil)
		require.NoError(t, err)
		for _, regime := range Regimes {
			res, err := Reuse(in, 1, 2, regime, nil)
			require.NoError(t, err)
			assert.LessOrEqual(t, best.Size(), res.Size())
		}
	}
}

func TestTopUpCoverage(t *testing.T) {
	in := build(t, 3, []int{0, 1, 2}, nil, []int{0})

	tests := []struct {
		name      string
		k         int
		active    []int
		cost      []int
		exclusion domain.Set[int]
		added     int
		want      []int
		code      apperror.ErrorCode
	}{
		{"already_covered", 1, []int{2}, nil, nil, 0, []int{2}, ""},
		{"by_id", 2, nil, nil, nil, 2, []int{0, 1}, ""},
		{"by_cost", 1, nil, []int{0, -5, -1}, nil, 1, []int{1}, ""},
		{"skip_excluded", 2, nil, []int{0, -5, -1}, domain.NewSet(1), 2, []int{0, 2}, ""},
		{"k_zero", 0, nil, nil, nil, 0, nil, ""},
		{"not_enough", 3, nil, nil, domain.NewSet(0), 2, []int{1, 2}, apperror.CodeInsufficientCoverage},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			active := domain.NewSet(tt.active...)
			added, err := TopUpCoverage(in, tt.k, active, tt.cost, tt.exclusion)
			if tt.code != "" {
				assert.True(t, apperror.Is(err, tt.code))
			} else {
				require.NoError(t, err)
			}
			assert.Equal(t, tt.added, added)
			assert.ElementsMatch(t, tt.want, domain.Sorted(active))
		})
	}
}

func TestResult(t *testing.T) {
	res := &Result{Method: MethodLocal, Active: domain.NewSet(0, 3)}

	assert.Equal(t, 2, res.Size())
	assert.Equal(t, "1001", res.Bitmap(4))
	assert.InDelta(t, 0.5, res.Compression(4), 1e-9)
	assert.Zero(t, res.Compression(0))
	assert.Equal(t, []int{1, 2}, domain.Sorted(res.Inactive(4)))
	assert.Equal(t, "local", res.Operation())
}

func TestParseMethod(t *testing.T) {
	m, err := ParseMethod(" Max_Flood ")
	require.NoError(t, err)
	assert.Equal(t, MethodMaxFlood, m)

	_, err = ParseMethod("dinic")
	assert.True(t, apperror.Is(err, apperror.CodeUnknownMethod))

	_, err = Run(chain(t), Method("dinic"), 1, 1, nil)
	assert.True(t, apperror.Is(err, apperror.CodeUnknownMethod))

	_, err = Run(nil, MethodLocal, 1, 1, nil)
	assert.True(t, apperror.Is(err, apperror.CodeNilInput))
}

func TestPool_Suite(t *testing.T) {
	pool := NewPool(3)
	runs := pool.Suite(context.Background(), chain(t), 1, 1, nil)

	require.Len(t, runs, len(AllMethods))
	for i, run := range runs {
		assert.Equal(t, AllMethods[i], run.Method, "order preserved")
		require.NoError(t, run.Error)
		assert.True(t, run.Valid)
		assert.Equal(t, []int{0, 1}, domain.Sorted(run.Result.Active))
	}

	runs = pool.Suite(context.Background(), single(t), 2, 1, nil, MethodLocal)
	require.Len(t, runs, 1)
	assert.True(t, apperror.Is(runs[0].Error, apperror.CodeInsufficientCoverage))
	assert.False(t, runs[0].Valid)
}

func TestPool_CanceledWhileWaiting(t *testing.T) {
	pool := NewPool(1)
	require.NoError(t, pool.Acquire(context.Background()))
	defer pool.Release()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run := pool.Execute(ctx, Task{Method: MethodLocal, Instance: chain(t), K: 1, M: 1})
	assert.True(t, apperror.Is(run.Error, apperror.CodeTimeout))
	assert.Nil(t, run.Result)
}

func TestPool_RecoversPanic(t *testing.T) {
	dispatch = func(in *instance.Instance, method Method, k, m int, exclusion domain.Set[int]) (*Result, error) {
		if method == MethodMaxFlood {
			panic("boom")
		}
		return Run(in, method, k, m, exclusion)
	}
	t.Cleanup(func() { dispatch = Run })

	pool := NewPool(1)
	runs := pool.Suite(context.Background(), chain(t), 1, 1, nil, MethodLocal, MethodMaxFlood, MethodNoReuse)
	require.Len(t, runs, 3)

	assert.True(t, runs[0].Valid)
	assert.True(t, runs[2].Valid)

	assert.Equal(t, MethodMaxFlood, runs[1].Method)
	assert.Nil(t, runs[1].Result)
	assert.False(t, runs[1].Valid)
	require.True(t, apperror.Is(runs[1].Error, apperror.CodeInternal))
	assert.Contains(t, runs[1].Error.Error(), "boom")

	// Слот освобождён после паники
	require.NoError(t, pool.Acquire(context.Background()))
	pool.Release()
}
