package cache

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func newBenchMemory(b *testing.B, maxEntries int) *MemoryCache {
	b.Helper()
	c, err := NewMemoryCache(&Options{MaxEntries: maxEntries, DefaultTTL: time.Hour})
	if err != nil {
		b.Fatalf("NewMemoryCache() error = %v", err)
	}
	b.Cleanup(func() { c.Close() })
	return c
}

func BenchmarkMemoryCache_Set(b *testing.B) {
	c := newBenchMemory(b, 10000)
	ctx := context.Background()
	value := make([]byte, 1024)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(ctx, fmt.Sprintf("key-%d", i%10000), value, time.Minute)
	}
}

func BenchmarkMemoryCache_Get(b *testing.B) {
	c := newBenchMemory(b, 10000)
	ctx := context.Background()
	c.Set(ctx, "benchmark-key", []byte("benchmark-value"), time.Hour)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Get(ctx, "benchmark-key")
	}
}

// Ключей больше ёмкости: каждая вставка вытесняет запись
func BenchmarkMemoryCache_Eviction(b *testing.B) {
	c := newBenchMemory(b, 1000)
	ctx := context.Background()
	value := []byte("value")

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		c.Set(ctx, fmt.Sprintf("key-%d", i), value, time.Minute)
	}
}

func BenchmarkMemoryCache_Concurrent(b *testing.B) {
	c := newBenchMemory(b, 10000)
	ctx := context.Background()
	value := []byte("test-value")

	b.RunParallel(func(pb *testing.PB) {
		i := 0
		for pb.Next() {
			key := fmt.Sprintf("key-%d", i%1000)
			c.Set(ctx, key, value, time.Minute)
			c.Get(ctx, key)
			i++
		}
	})
}

func BenchmarkResultCache_SetGet(b *testing.B) {
	rc := NewResultCache(newBenchMemory(b, 10000), time.Hour)
	ctx := context.Background()
	instance := "KCMC;10 100 1;1000 100 200;42;END"
	exclusion := []int{3, 17, 42}
	result := &CachedResult{Method: "local", Active: make([]int, 40), Paths: 2, Valid: true}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		k := 1 + i%3
		rc.Set(ctx, instance, k, 2, exclusion, result, 0)
		rc.Get(ctx, instance, "local", k, 2, exclusion)
	}
}

func BenchmarkBuildResultKey(b *testing.B) {
	instance := "KCMC;10 100 1;1000 100 200;42;END"
	exclusion := []int{3, 17, 42, 64, 99}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		BuildResultKey(instance, "best_reuse", 2, 2, exclusion)
	}
}
