// Package client - HTTP клиент kcmc-svc
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"kcmc/pkg/apperror"
	"kcmc/pkg/logger"
)

// Config конфигурация клиента
type Config struct {
	BaseURL      string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
	UserAgent    string
}

// DefaultConfig возвращает конфигурацию по умолчанию
func DefaultConfig() *Config {
	return &Config{
		BaseURL:      "http://localhost:8080",
		Timeout:      5 * time.Minute,
		MaxRetries:   3,
		RetryBackoff: 200 * time.Millisecond,
		UserAgent:    "kcmc-client",
	}
}

// Client клиент kcmc-svc. Повторяет запросы при 429, 502, 503 и 504.
type Client struct {
	cfg  *Config
	http *http.Client
}

// New создаёт клиента
func New(cfg *Config) *Client {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// =============================================================================
// Wire types
// =============================================================================

// Problem экземпляр с требованиями
type Problem struct {
	Instance string `json:"instance"`
	K        int    `json:"k"`
	M        int    `json:"m"`
	Inactive []int  `json:"inactive,omitempty"`
}

// Property результат проверки одного свойства
type Property struct {
	Property string `json:"property"`
	OK       bool   `json:"ok"`
	POI      int    `json:"poi"`
	Achieved int    `json:"achieved"`
	Required int    `json:"required"`
	Message  string `json:"message"`
}

// Validation результат проверки K-покрытия и M-связности
type Validation struct {
	Key          string   `json:"key"`
	K            int      `json:"k"`
	M            int      `json:"m"`
	Coverage     Property `json:"coverage"`
	Connectivity Property `json:"connectivity"`
	Valid        bool     `json:"valid"`
	Line         string   `json:"line"`
	Paths        int      `json:"paths"`
	Warnings     []string `json:"warnings,omitempty"`
	RuntimeUs    int64    `json:"runtime_us"`
}

// Run прогон одного минимизатора
type Run struct {
	Method      string  `json:"method"`
	Operation   string  `json:"operation"`
	Active      []int   `json:"active"`
	ActiveCount int     `json:"active_count"`
	Compression float64 `json:"compression"`
	Bitmap      string  `json:"bitmap"`
	Valid       bool    `json:"valid"`
	RuntimeUs   int64   `json:"runtime_us"`
	Cached      bool    `json:"cached"`
	Error       string  `json:"error,omitempty"`
}

// Suite набор прогонов на одной задаче
type Suite struct {
	RunID string `json:"run_id"`
	Key   string `json:"key"`
	K     int    `json:"k"`
	M     int    `json:"m"`
	Runs  []*Run `json:"runs"`
}

// Health ответ /health
type Health struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

// =============================================================================
// Calls
// =============================================================================

// Health проверяет доступность сервиса
func (c *Client) Health(ctx context.Context) (*Health, error) {
	var out Health
	body, err := c.do(ctx, http.MethodGet, "/health", nil)
	if err != nil {
		return nil, err
	}
	return &out, decodeInto(body, &out)
}

// Validate проверяет задачу
func (c *Client) Validate(ctx context.Context, p Problem, crossCheck bool) (*Validation, error) {
	req := struct {
		Problem
		CrossCheck bool `json:"cross_check,omitempty"`
	}{p, crossCheck}

	body, err := c.do(ctx, http.MethodPost, "/v1/validate", req)
	if err != nil {
		return nil, err
	}
	var out Validation
	return &out, decodeInto(body, &out)
}

// Suite запускает минимизаторы и возвращает набор прогонов
func (c *Client) Suite(ctx context.Context, p Problem, methods []string) (*Suite, error) {
	body, err := c.do(ctx, http.MethodPost, "/v1/suite", suiteRequest{Problem: p, Methods: methods})
	if err != nil {
		return nil, err
	}
	var out Suite
	return &out, decodeInto(body, &out)
}

// Report запускает минимизаторы и возвращает отчёт в формате format
func (c *Client) Report(ctx context.Context, p Problem, methods []string, format string) ([]byte, error) {
	if format == "" {
		return nil, apperror.NewWithField(apperror.CodeInvalidArgument, "format is required", "format")
	}
	return c.do(ctx, http.MethodPost, "/v1/suite", suiteRequest{Problem: p, Methods: methods, Format: format})
}

type suiteRequest struct {
	Problem
	Methods []string `json:"methods,omitempty"`
	Format  string   `json:"format,omitempty"`
}

// =============================================================================
// Transport
// =============================================================================

func (c *Client) do(ctx context.Context, method, path string, payload any) ([]byte, error) {
	var encoded []byte
	if payload != nil {
		var err error
		if encoded, err = json.Marshal(payload); err != nil {
			return nil, apperror.Wrap(err, apperror.CodeInvalidArgument, "cannot encode request")
		}
	}

	var (
		attempt int
		lastErr *apperror.Error
	)
	operation := func() ([]byte, error) {
		attempt++
		body, status, header, err := c.send(ctx, method, path, encoded)
		if err != nil {
			// Сетевые ошибки повторяем
			logger.Log.Debug("Request failed", "path", path, "attempt", attempt, "error", err)
			lastErr = nil
			return nil, err
		}
		if status < http.StatusBadRequest {
			return body, nil
		}

		apiErr := decodeError(status, body)
		lastErr = apiErr
		switch status {
		case http.StatusTooManyRequests:
			if secs, err := strconv.Atoi(header.Get("Retry-After")); err == nil && secs > 0 {
				return nil, backoff.RetryAfter(secs)
			}
			return nil, apiErr
		case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			return nil, apiErr
		default:
			return nil, backoff.Permanent(apiErr)
		}
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.cfg.RetryBackoff

	body, err := backoff.Retry(ctx, operation,
		backoff.WithBackOff(policy),
		backoff.WithMaxTries(uint(max(c.cfg.MaxRetries, 0)+1)),
	)
	if err != nil {
		if lastErr != nil {
			return nil, lastErr
		}
		var apiErr *apperror.Error
		if errors.As(err, &apiErr) {
			return nil, apiErr
		}
		if ctx.Err() != nil {
			return nil, apperror.Wrap(err, apperror.CodeTimeout, fmt.Sprintf("%s %s cancelled", method, path))
		}
		return nil, apperror.Wrap(err, apperror.CodeInternal, fmt.Sprintf("%s %s failed", method, path))
	}
	return body, nil
}

func (c *Client) send(ctx context.Context, method, path string, payload []byte) ([]byte, int, http.Header, error) {
	var reader io.Reader
	if payload != nil {
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return nil, 0, nil, backoff.Permanent(err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.cfg.UserAgent != "" {
		req.Header.Set("User-Agent", c.cfg.UserAgent)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, nil, err
	}
	return body, resp.StatusCode, resp.Header, nil
}

type errorBody struct {
	Error struct {
		Code      apperror.ErrorCode `json:"code"`
		Message   string             `json:"message"`
		Field     string             `json:"field,omitempty"`
		RequestID string             `json:"request_id,omitempty"`
	} `json:"error"`
}

// decodeError восстанавливает *apperror.Error из тела ответа
func decodeError(status int, body []byte) *apperror.Error {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err != nil || eb.Error.Code == "" {
		return apperror.New(apperror.CodeInternal, fmt.Sprintf("unexpected status %d", status)).
			WithDetails("status", status)
	}

	e := apperror.New(eb.Error.Code, eb.Error.Message).WithDetails("status", status)
	if eb.Error.Field != "" {
		e = e.WithField(eb.Error.Field)
	}
	if eb.Error.RequestID != "" {
		e = e.WithDetails("request_id", eb.Error.RequestID)
	}
	return e
}

func decodeInto(body []byte, out any) error {
	if err := json.Unmarshal(body, out); err != nil {
		return apperror.Wrap(err, apperror.CodeInternal, "malformed response body")
	}
	return nil
}
