package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"

	"kcmc/pkg/config"
)

func newTestLimiter(t *testing.T, requests int, window time.Duration, strategy string) *MemoryLimiter {
	t.Helper()
	l := NewMemoryLimiter(&Config{
		Requests:        requests,
		Window:          window,
		Strategy:        strategy,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func TestFromConfig(t *testing.T) {
	cfg := FromConfig(
		config.RateLimitConfig{Requests: 5, Window: 10 * time.Second, Backend: "redis"},
		config.CacheConfig{Host: "cache", Port: 6380, Password: "secret", DB: 2},
	)

	if cfg.Requests != 5 || cfg.Window != 10*time.Second {
		t.Errorf("limits not applied: %+v", cfg)
	}
	// Пустые поля берутся из DefaultConfig
	if cfg.Strategy != StrategySlidingWindow || cfg.BurstSize != 10 {
		t.Errorf("defaults lost: %+v", cfg)
	}
	if cfg.RedisAddr != "cache:6380" || cfg.RedisPassword != "secret" || cfg.RedisDB != 2 {
		t.Errorf("redis settings not taken from cache section: %+v", cfg)
	}
}

func TestMemoryLimiter_SlidingWindow(t *testing.T) {
	l := newTestLimiter(t, 3, time.Minute, StrategySlidingWindow)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := l.Allow(ctx, "a")
		if err != nil || !allowed {
			t.Fatalf("request %d: allowed=%v err=%v", i+1, allowed, err)
		}
	}
	if allowed, _ := l.Allow(ctx, "a"); allowed {
		t.Error("4th request should be denied")
	}

	// Ключи независимы
	if allowed, _ := l.Allow(ctx, "b"); !allowed {
		t.Error("other key should not be limited")
	}
}

func TestMemoryLimiter_AllowN(t *testing.T) {
	l := newTestLimiter(t, 10, time.Minute, StrategySlidingWindow)
	ctx := context.Background()

	if allowed, _ := l.AllowN(ctx, "k", 7); !allowed {
		t.Fatal("7 of 10 should be allowed")
	}
	if allowed, _ := l.AllowN(ctx, "k", 4); allowed {
		t.Error("batch over the limit should be denied as a whole")
	}
	if allowed, _ := l.AllowN(ctx, "k", 3); !allowed {
		t.Error("remaining 3 should be allowed")
	}
}

func TestMemoryLimiter_WindowExpires(t *testing.T) {
	l := newTestLimiter(t, 1, 50*time.Millisecond, StrategySlidingWindow)
	ctx := context.Background()

	if allowed, _ := l.Allow(ctx, "k"); !allowed {
		t.Fatal("first request should be allowed")
	}
	if allowed, _ := l.Allow(ctx, "k"); allowed {
		t.Fatal("second request should be denied")
	}

	time.Sleep(80 * time.Millisecond)

	if allowed, _ := l.Allow(ctx, "k"); !allowed {
		t.Error("request after the window should be allowed")
	}
}

func TestMemoryLimiter_Reset(t *testing.T) {
	l := newTestLimiter(t, 1, time.Minute, StrategySlidingWindow)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "k")
	if allowed, _ := l.Allow(ctx, "k"); allowed {
		t.Fatal("should be limited")
	}

	if err := l.Reset(ctx, "k"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if allowed, _ := l.Allow(ctx, "k"); !allowed {
		t.Error("should be allowed after reset")
	}
}

func TestMemoryLimiter_GetInfo(t *testing.T) {
	l := newTestLimiter(t, 2, time.Minute, StrategySlidingWindow)
	ctx := context.Background()

	info, err := l.GetInfo(ctx, "k")
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.Limit != 2 || info.Remaining != 2 || info.RetryAfter != 0 {
		t.Errorf("unexpected initial info %+v", info)
	}

	_, _ = l.Allow(ctx, "k")
	_, _ = l.Allow(ctx, "k")

	info, _ = l.GetInfo(ctx, "k")
	if info.Remaining != 0 {
		t.Errorf("Remaining = %d, want 0", info.Remaining)
	}
	if info.RetryAfter <= 0 || info.RetryAfter > time.Minute {
		t.Errorf("RetryAfter = %v, want within the window", info.RetryAfter)
	}
}

func TestMemoryLimiter_TokenBucket(t *testing.T) {
	l := NewMemoryLimiter(&Config{
		Requests:        5,
		Window:          time.Minute,
		Strategy:        StrategyTokenBucket,
		BurstSize:       2,
		CleanupInterval: time.Minute,
	})
	defer l.Close()
	ctx := context.Background()

	// Requests + BurstSize
	for i := 0; i < 7; i++ {
		if allowed, _ := l.Allow(ctx, "k"); !allowed {
			t.Fatalf("request %d should be allowed with burst", i+1)
		}
	}
	if allowed, _ := l.Allow(ctx, "k"); allowed {
		t.Error("bucket should be empty")
	}

	info, err := l.GetInfo(ctx, "k")
	if err != nil {
		t.Fatalf("GetInfo() error = %v", err)
	}
	if info.Remaining != 0 || info.RetryAfter <= 0 {
		t.Errorf("unexpected info for empty bucket %+v", info)
	}
}

func TestMemoryLimiter_Close(t *testing.T) {
	l := NewMemoryLimiter(nil)

	if err := l.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := l.Close(); err != nil {
		t.Errorf("double Close() error = %v", err)
	}

	ctx := context.Background()
	if _, err := l.Allow(ctx, "k"); !errors.Is(err, ErrLimiterClosed) {
		t.Errorf("Allow after close: got %v, want ErrLimiterClosed", err)
	}
	if _, err := l.GetInfo(ctx, "k"); !errors.Is(err, ErrLimiterClosed) {
		t.Errorf("GetInfo after close: got %v, want ErrLimiterClosed", err)
	}
}

func TestMemoryLimiter_Cleanup(t *testing.T) {
	l := newTestLimiter(t, 5, 10*time.Millisecond, StrategySlidingWindow)
	ctx := context.Background()

	_, _ = l.Allow(ctx, "stale")
	time.Sleep(30 * time.Millisecond)
	l.doCleanup()

	l.mu.Lock()
	_, ok := l.buckets["stale"]
	l.mu.Unlock()
	if ok {
		t.Error("stale bucket should be removed")
	}
}

func TestTrim(t *testing.T) {
	base := time.Unix(100, 0)
	requests := []time.Time{base, base.Add(time.Second), base.Add(2 * time.Second)}

	if got := trim(requests, base.Add(time.Second)); len(got) != 1 {
		t.Errorf("trim kept %d, want 1", len(got))
	}
	if got := trim(requests, base.Add(-time.Second)); len(got) != 3 {
		t.Errorf("trim kept %d, want 3", len(got))
	}
}

func TestNew(t *testing.T) {
	for _, backend := range []string{"memory", ""} {
		l, err := New(&Config{Backend: backend, Requests: 1, Window: time.Second, CleanupInterval: time.Minute})
		if err != nil {
			t.Fatalf("New(%q) error = %v", backend, err)
		}
		_ = l.Close()
	}

	l, err := New(nil)
	if err != nil {
		t.Fatalf("New(nil) error = %v", err)
	}
	_ = l.Close()

	if _, err := New(&Config{Backend: "etcd"}); err == nil {
		t.Error("expected error for unknown backend")
	}
}
