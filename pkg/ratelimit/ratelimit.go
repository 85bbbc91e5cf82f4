package ratelimit

import (
	"context"
	"errors"
	"fmt"
	"time"

	"kcmc/pkg/config"
)

// Стандартные ошибки
var (
	ErrRateLimitExceeded = errors.New("rate limit exceeded")
	ErrLimiterClosed     = errors.New("limiter is closed")
)

// Стратегии
const (
	StrategySlidingWindow = "sliding_window"
	StrategyTokenBucket   = "token_bucket"
)

// Limiter интерфейс ограничителя запросов
type Limiter interface {
	// Allow проверяет, разрешён ли запрос
	Allow(ctx context.Context, key string) (bool, error)

	// AllowN проверяет, разрешены ли n запросов
	AllowN(ctx context.Context, key string, n int) (bool, error)

	// Reset сбрасывает лимит для ключа
	Reset(ctx context.Context, key string) error

	// GetInfo возвращает информацию о текущем состоянии
	GetInfo(ctx context.Context, key string) (*LimitInfo, error)

	// Close закрывает лимитер
	Close() error
}

// LimitInfo информация о состоянии лимита
type LimitInfo struct {
	Limit      int           `json:"limit"`
	Remaining  int           `json:"remaining"`
	ResetAt    time.Time     `json:"reset_at"`
	RetryAfter time.Duration `json:"retry_after,omitempty"`
}

// Config конфигурация rate limiter
type Config struct {
	// Requests количество запросов в окне
	Requests int

	// Window временное окно
	Window time.Duration

	// Strategy стратегия (sliding_window, token_bucket)
	Strategy string

	// Backend хранилище (memory, redis)
	Backend string

	// BurstSize размер burst для token bucket
	BurstSize int

	// CleanupInterval интервал очистки для in-memory
	CleanupInterval time.Duration

	// Redis настройки Redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		Requests:        60,
		Window:          time.Minute,
		Strategy:        StrategySlidingWindow,
		Backend:         "memory",
		BurstSize:       10,
		CleanupInterval: 5 * time.Minute,
	}
}

// FromConfig собирает конфигурацию лимитера. Redis берётся из секции cache.
func FromConfig(rl config.RateLimitConfig, cache config.CacheConfig) *Config {
	cfg := DefaultConfig()
	if rl.Requests > 0 {
		cfg.Requests = rl.Requests
	}
	if rl.Window > 0 {
		cfg.Window = rl.Window
	}
	if rl.Strategy != "" {
		cfg.Strategy = rl.Strategy
	}
	if rl.Backend != "" {
		cfg.Backend = rl.Backend
	}
	if rl.BurstSize > 0 {
		cfg.BurstSize = rl.BurstSize
	}
	cfg.RedisAddr = cache.Address()
	cfg.RedisPassword = cache.Password
	cfg.RedisDB = cache.DB
	return cfg
}

// New создаёт лимитер на основе конфигурации
func New(cfg *Config) (Limiter, error) {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	switch cfg.Backend {
	case "redis":
		return NewRedisLimiter(cfg)
	case "memory", "":
		return NewMemoryLimiter(cfg), nil
	default:
		return nil, fmt.Errorf("unknown rate limit backend %q", cfg.Backend)
	}
}
