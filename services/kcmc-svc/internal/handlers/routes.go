package handlers

import (
	"net/http"

	"kcmc/gen/openapi"
	"kcmc/pkg/logger"
	"kcmc/pkg/metrics"
	"kcmc/pkg/ratelimit"
	"kcmc/pkg/swagger"
	"kcmc/services/kcmc-svc/internal/middleware"
)

// RouterOptions configures the optional parts of the router.
type RouterOptions struct {
	// Limiter guards the /v1 routes when set.
	Limiter ratelimit.Limiter
	KeyFunc ratelimit.KeyFunc
}

// Routes builds the HTTP router. Every route gets its own middleware chain so
// that logs, metrics and spans carry the route pattern.
func (h *Handler) Routes(opts RouterOptions) http.Handler {
	mux := http.NewServeMux()
	inFlight := metrics.NewInFlight(metrics.Get().HTTPRequestsInFlight)

	api := func(pattern, route string, fn http.HandlerFunc) {
		var handler http.Handler = fn
		if opts.Limiter != nil {
			handler = ratelimit.Middleware(opts.Limiter, opts.KeyFunc, handler)
		}
		mux.Handle(pattern, middleware.Chain(handler,
			middleware.Recover(),
			middleware.Logging(route),
			middleware.Metrics(route, inFlight),
			middleware.Tracing(route),
		))
	}

	api("POST /v1/generate", "/v1/generate", h.Generate)
	api("POST /v1/validate", "/v1/validate", h.Validate)
	api("POST /v1/optimize", "/v1/optimize", h.Optimize)
	api("POST /v1/suite", "/v1/suite", h.Suite)
	api("POST /v1/fitness", "/v1/fitness", h.Fitness)

	// Служебные маршруты без лимита и логирования
	mux.HandleFunc("GET /health", h.Health)
	if h.config.Metrics.Enabled {
		path := h.config.Metrics.Path
		if path == "" {
			path = "/metrics"
		}
		mux.Handle("GET "+path, metrics.Handler())
	}
	if h.config.HTTP.DocsPath != "" {
		docs := swagger.DefaultConfig()
		docs.BasePath = h.config.HTTP.DocsPath
		if ui, err := swagger.NewHandler(docs, openapi.MustGetSpec()); err != nil {
			logger.Log.Warn("Swagger UI disabled", "error", err)
		} else {
			mux.Handle(ui.Pattern(), ui)
		}
	}

	return middleware.Chain(mux, middleware.RequestID())
}
