package ratelimit

import (
	"encoding/json"
	"fmt"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kcmc/pkg/apperror"
	"kcmc/pkg/logger"
)

// KeyFunc извлекает ключ лимита из запроса
type KeyFunc func(r *http.Request) string

// ClientIP ключ по адресу клиента с учётом прокси
func ClientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if ip := strings.TrimSpace(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return "unknown"
}

// RouteKey ключ по методу и пути
func RouteKey(r *http.Request) string {
	return r.Method + " " + r.URL.Path
}

// Composite комбинирует несколько ключей через ":"
func Composite(fns ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, len(fns))
		for i, fn := range fns {
			parts[i] = fn(r)
		}
		return strings.Join(parts, ":")
	}
}

// KeyFuncByName возвращает извлекатель по имени из конфигурации (ip, route, ip_route)
func KeyFuncByName(name string) KeyFunc {
	switch name {
	case "route":
		return RouteKey
	case "ip_route":
		return Composite(ClientIP, RouteKey)
	default:
		return ClientIP
	}
}

// Middleware ограничивает запросы. Ошибка лимитера пропускает запрос (fail open).
func Middleware(limiter Limiter, keyFn KeyFunc, next http.Handler) http.Handler {
	if keyFn == nil {
		keyFn = ClientIP
	}

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		key := keyFn(r)

		allowed, err := limiter.Allow(ctx, key)
		if err != nil {
			logger.Log.Warn("Rate limit check failed", "error", err, "key", key)
			next.ServeHTTP(w, r)
			return
		}

		info, infoErr := limiter.GetInfo(ctx, key)
		if infoErr != nil {
			logger.Log.Debug("Failed to get rate limit info", "error", infoErr, "key", key)
			info = &LimitInfo{ResetAt: time.Now().Add(time.Minute), RetryAfter: time.Minute}
		}

		h := w.Header()
		h.Set("X-RateLimit-Limit", strconv.Itoa(info.Limit))
		h.Set("X-RateLimit-Remaining", strconv.Itoa(info.Remaining))
		h.Set("X-RateLimit-Reset", info.ResetAt.UTC().Format(time.RFC3339))

		if allowed {
			next.ServeHTTP(w, r)
			return
		}

		logger.Log.Warn("Rate limit exceeded", "key", key, "limit", info.Limit)

		retry := max(int(math.Ceil(info.RetryAfter.Seconds())), 1)
		h.Set("Retry-After", strconv.Itoa(retry))
		h.Set("X-RateLimit-Remaining", "0")

		appErr := apperror.Wrap(ErrRateLimitExceeded, apperror.CodeRateLimited,
			fmt.Sprintf("rate limit exceeded: %d requests per window", info.Limit))
		h.Set("Content-Type", "application/json")
		w.WriteHeader(appErr.HTTPStatus())
		_ = json.NewEncoder(w).Encode(map[string]any{
			"error": map[string]any{
				"code":    appErr.Code,
				"message": appErr.Message,
			},
		})
	})
}
