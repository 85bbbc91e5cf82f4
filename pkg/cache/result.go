package cache

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// ResultCache специализированный кэш для результатов минимизаторов
type ResultCache struct {
	cache      Cache
	defaultTTL time.Duration
}

// CachedResult кэшированный результат прогона
type CachedResult struct {
	Method     string    `json:"method"`
	Active     []int     `json:"active"`
	Added      int       `json:"added,omitempty"`
	Paths      int       `json:"paths"`
	Regime     string    `json:"regime,omitempty"`
	Valid      bool      `json:"valid"`
	RuntimeUs  int64     `json:"runtime_us"`
	ComputedAt time.Time `json:"computed_at"`
}

// NewResultCache создаёт кэш результатов
func NewResultCache(cache Cache, defaultTTL time.Duration) *ResultCache {
	if defaultTTL <= 0 {
		defaultTTL = time.Hour
	}
	return &ResultCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Get получает кэшированный результат
func (rc *ResultCache) Get(ctx context.Context, instanceKey, method string, k, m int, exclusion []int) (*CachedResult, bool, error) {
	key := BuildResultKey(instanceKey, method, k, m, exclusion)

	data, err := rc.cache.Get(ctx, key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}

	var result CachedResult
	if err := json.Unmarshal(data, &result); err != nil {
		// Повреждённая запись: удаляем и считаем промахом
		_ = rc.cache.Delete(ctx, key) //nolint:errcheck // best effort cleanup
		return nil, false, nil
	}

	return &result, true, nil
}

// Set сохраняет результат в кэш
func (rc *ResultCache) Set(ctx context.Context, instanceKey string, k, m int, exclusion []int, result *CachedResult, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = rc.defaultTTL
	}

	key := BuildResultKey(instanceKey, result.Method, k, m, exclusion)
	result.ComputedAt = time.Now()

	data, err := json.Marshal(result)
	if err != nil {
		return err
	}

	return rc.cache.Set(ctx, key, data, ttl)
}

// Invalidate удаляет все результаты экземпляра
func (rc *ResultCache) Invalidate(ctx context.Context, instanceKey string) (int64, error) {
	return rc.cache.DeleteByPattern(ctx, InstancePattern(instanceKey))
}

// InvalidateAll удаляет все кэшированные результаты
func (rc *ResultCache) InvalidateAll(ctx context.Context) (int64, error) {
	return rc.cache.DeleteByPattern(ctx, resultPrefix+":*")
}

// Stats возвращает статистику нижележащего кэша
func (rc *ResultCache) Stats(ctx context.Context) (*Stats, error) {
	return rc.cache.Stats(ctx)
}
