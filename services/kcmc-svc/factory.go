// services/kcmc-svc/factory.go
package kcmcsvc

import (
	"context"
	"net/http"

	"kcmc/pkg/cache"
	"kcmc/pkg/config"
	"kcmc/pkg/logger"
	"kcmc/pkg/ratelimit"
	"kcmc/services/kcmc-svc/internal/handlers"
	"kcmc/services/kcmc-svc/internal/service"
)

// App собирает движок и его опциональные зависимости из конфигурации
type App struct {
	Config  *config.Config
	Engine  *service.EngineService
	Limiter ratelimit.Limiter

	store cache.Cache
}

// New создаёт приложение. Ошибка кэша или лимитера не фатальна:
// сервис продолжает работу без них.
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	var results *cache.ResultCache
	if cfg.Cache.Enabled {
		store, err := cache.New(cache.FromConfig(&cfg.Cache))
		if err != nil {
			logger.Log.Warn("Failed to create cache, continuing without cache", "error", err)
		} else {
			app.store = store
			results = cache.NewResultCache(store, cfg.Cache.DefaultTTL)
			logger.Log.Info("Result cache initialized",
				"driver", cfg.Cache.Driver,
				"ttl", cfg.Cache.DefaultTTL,
			)
		}
	}

	engine, err := service.NewEngineService(cfg.App.Version, cfg.Engine, results)
	if err != nil {
		app.Close(context.Background())
		return nil, err
	}
	app.Engine = engine

	return app, nil
}

// NewBenchmarkEngine создаёт движок без кэша для внешних бенчмарков
func NewBenchmarkEngine() (*service.EngineService, error) {
	return service.NewEngineService("benchmark", config.EngineConfig{}, nil)
}

// Router создаёт HTTP обработчик, при rate_limit.enabled подключает лимитер
func (a *App) Router() http.Handler {
	opts := handlers.RouterOptions{}

	if a.Config.RateLimit.Enabled && a.Limiter == nil {
		limiter, err := ratelimit.New(ratelimit.FromConfig(a.Config.RateLimit, a.Config.Cache))
		if err != nil {
			logger.Log.Warn("Failed to create rate limiter, continuing without it", "error", err)
		} else {
			a.Limiter = limiter
			logger.Log.Info("Rate limiter initialized",
				"requests", a.Config.RateLimit.Requests,
				"window", a.Config.RateLimit.Window,
				"strategy", a.Config.RateLimit.Strategy,
				"backend", a.Config.RateLimit.Backend,
			)
		}
	}
	if a.Limiter != nil {
		opts.Limiter = a.Limiter
		opts.KeyFunc = ratelimit.KeyFuncByName(a.Config.RateLimit.KeyFunc)
	}

	return handlers.New(a.Engine, a.Config).Routes(opts)
}

// Close освобождает кэш и лимитер
func (a *App) Close(_ context.Context) error {
	if a.Limiter != nil {
		if err := a.Limiter.Close(); err != nil {
			logger.Log.Warn("Failed to close rate limiter", "error", err)
		}
		a.Limiter = nil
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Log.Warn("Failed to close cache", "error", err)
		}
		a.store = nil
	}
	return nil
}
