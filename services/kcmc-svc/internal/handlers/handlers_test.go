package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kcmc/pkg/config"
	"kcmc/pkg/logger"
	"kcmc/pkg/ratelimit"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/service"
)

func init() {
	logger.Init("error")
}

// chain: POI0 -> s0 -> s1 -> сток
func chainText(t *testing.T) string {
	t.Helper()
	in, err := instance.NewBuilder(instance.Params{POIs: 1, Sensors: 2, Sinks: 1}).
		Cover(0, 0).
		Link(0, 1).
		LinkSink(1, 0).
		Build()
	require.NoError(t, err)
	return in.Encode()
}

func testConfig() *config.Config {
	return &config.Config{
		App:     config.AppConfig{Name: "kcmc-svc", Version: "test"},
		HTTP:    config.HTTPConfig{MaxBodyBytes: 1 << 20},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Report:  config.ReportConfig{Title: "Runtime", Author: "tests"},
	}
}

func newRouter(t *testing.T, cfg *config.Config, opts RouterOptions) http.Handler {
	t.Helper()
	svc, err := service.NewEngineService("test", cfg.Engine, nil)
	require.NoError(t, err)
	return New(svc, cfg).Routes(opts)
}

func post(t *testing.T, h http.Handler, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	switch b := body.(type) {
	case string:
		buf.WriteString(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	r := httptest.NewRequest(http.MethodPost, path, &buf)
	r.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) ErrorBody {
	t.Helper()
	var body ErrorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func TestHealth(t *testing.T) {
	h := newRouter(t, testConfig(), RouterOptions{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestMetricsEndpoint(t *testing.T) {
	h := newRouter(t, testConfig(), RouterOptions{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestDocs(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.DocsPath = "/docs"
	h := newRouter(t, cfg, RouterOptions{})

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/openapi.json", nil))
	require.Equal(t, http.StatusOK, w.Code)

	var doc struct {
		Paths map[string]any `json:"paths"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &doc))
	for _, path := range []string{"/v1/generate", "/v1/validate", "/v1/optimize", "/v1/suite", "/v1/fitness"} {
		assert.Contains(t, doc.Paths, path)
	}

	// Без docs_path маршрута нет
	w = httptest.NewRecorder()
	newRouter(t, testConfig(), RouterOptions{}).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/docs/", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestValidate(t *testing.T) {
	h := newRouter(t, testConfig(), RouterOptions{})

	tests := []struct {
		name  string
		k, m  int
		valid bool
		line  string
	}{
		{"satisfied", 1, 1, true, "SUCCESS"},
		{"coverage short", 2, 1, false, "K-COV: POI 0 COVERAGE 1\t|\tM-CON: SUCCESS"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := post(t, h, "/v1/validate", ValidateRequest{
				Problem:    service.Problem{Instance: chainText(t), K: tt.k, M: tt.m},
				CrossCheck: true,
			})
			require.Equal(t, http.StatusOK, w.Code, w.Body.String())

			var v service.Validation
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v))
			assert.Equal(t, tt.valid, v.Valid)
			assert.Equal(t, tt.line, v.Line)
		})
	}
}

func TestValidate_RequestErrors(t *testing.T) {
	h := newRouter(t, testConfig(), RouterOptions{})

	t.Run("violations", func(t *testing.T) {
		w := post(t, h, "/v1/validate", map[string]any{"k": -1, "m": -1})
		require.Equal(t, http.StatusBadRequest, w.Code)

		body := decodeError(t, w)
		assert.Equal(t, "INVALID_ARGUMENT", string(body.Error.Code))
		require.Len(t, body.Error.Violations, 3)
		assert.Equal(t, "instance", body.Error.Violations[0].Field)
		assert.NotEmpty(t, body.Error.RequestID)
	})

	t.Run("malformed json", func(t *testing.T) {
		w := post(t, h, "/v1/validate", "{")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_ARGUMENT", string(decodeError(t, w).Error.Code))
	})

	t.Run("unknown field", func(t *testing.T) {
		w := post(t, h, "/v1/validate", `{"instance":"x","k":1,"m":1,"extra":true}`)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("empty body", func(t *testing.T) {
		w := post(t, h, "/v1/validate", "")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("parse error", func(t *testing.T) {
		w := post(t, h, "/v1/validate", ValidateRequest{Problem: service.Problem{Instance: "garbage", K: 1, M: 1}})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "PARSE_ERROR", string(decodeError(t, w).Error.Code))
	})

	t.Run("wrong method", func(t *testing.T) {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/v1/validate", nil))
		assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
	})
}

func TestValidate_BodyLimit(t *testing.T) {
	cfg := testConfig()
	cfg.HTTP.MaxBodyBytes = 16
	h := newRouter(t, cfg, RouterOptions{})

	w := post(t, h, "/v1/validate", ValidateRequest{Problem: service.Problem{Instance: chainText(t), K: 1, M: 1}})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decodeError(t, w).Error.Message, "exceeds 16 bytes")
}

func TestOptimize(t *testing.T) {
	h := newRouter(t, testConfig(), RouterOptions{})

	w := post(t, h, "/v1/optimize", OptimizeRequest{
		Problem: service.Problem{Instance: chainText(t), K: 1, M: 1},
		Method:  "local",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var run service.Run
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &run))
	assert.Equal(t, "11", run.Bitmap)
	assert.Equal(t, 2, run.ActiveCount)
}

func TestOptimize_Errors(t *testing.T) {
	h := newRouter(t, testConfig(), RouterOptions{})
	problem := service.Problem{Instance: chainText(t), K: 1, M: 1}

	t.Run("missing method", func(t *testing.T) {
		w := post(t, h, "/v1/optimize", OptimizeRequest{Problem: problem})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "method", decodeError(t, w).Error.Field)
	})

	t.Run("unknown method", func(t *testing.T) {
		w := post(t, h, "/v1/optimize", OptimizeRequest{Problem: problem, Method: "annealing"})
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "UNKNOWN_METHOD", string(decodeError(t, w).Error.Code))
	})

	t.Run("infeasible", func(t *testing.T) {
		w := post(t, h, "/v1/optimize", OptimizeRequest{
			Problem: service.Problem{Instance: chainText(t), K: 1, M: 2},
			Method:  "min_flood",
		})
		require.Equal(t, http.StatusUnprocessableEntity, w.Code)

		body := decodeError(t, w)
		assert.Equal(t, "INSUFFICIENT_CONNECTIVITY", string(body.Error.Code))
		run, ok := body.Run.(map[string]any)
		require.True(t, ok, "failed run should be attached")
		assert.Equal(t, service.FailedBitmap, run["bitmap"])
	})
}

func TestSuite_JSON(t *testing.T) {
	h := newRouter(t, testConfig(), RouterOptions{})

	w := post(t, h, "/v1/suite", SuiteRequest{
		Problem: service.Problem{Instance: chainText(t), K: 1, M: 1},
		Methods: []string{"local", "no_reuse"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var suite service.Suite
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &suite))
	require.Len(t, suite.Runs, 2)
	assert.NotEmpty(t, suite.RunID)
	for _, run := range suite.Runs {
		assert.Equal(t, "11", run.Bitmap)
	}
}

func TestSuite_Report(t *testing.T) {
	h := newRouter(t, testConfig(), RouterOptions{})
	problem := service.Problem{Instance: chainText(t), K: 1, M: 1}

	w := post(t, h, "/v1/suite", SuiteRequest{Problem: problem, Methods: []string{"local"}, Format: "tsv"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	assert.True(t, strings.HasPrefix(w.Header().Get("Content-Type"), "text/tab-separated-values"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".tsv")
	fields := strings.Split(strings.TrimSpace(w.Body.String()), "\t")
	require.Len(t, fields, 9)
	assert.Equal(t, "local", fields[3])
	assert.Equal(t, "OK", fields[5])
	assert.Equal(t, "11", fields[8])

	w = post(t, h, "/v1/suite", SuiteRequest{Problem: problem, Format: "docx"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "format", decodeError(t, w).Error.Field)
}

func TestGenerate(t *testing.T) {
	h := newRouter(t, testConfig(), RouterOptions{})

	req := GenerateRequest{POIs: 3, Sensors: 20, Sinks: 1, AreaSide: 100, CoverageRadius: 30, CommunicationRadius: 40, Seed: 7}
	w := post(t, h, "/v1/generate", req)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp GenerateResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, req.params().Key(), resp.Key)
	assert.Equal(t, 20, resp.Sensors)

	// Ответ можно сразу отдать в /v1/validate
	w = post(t, h, "/v1/validate", ValidateRequest{Problem: service.Problem{Instance: resp.Instance}})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = post(t, h, "/v1/generate", GenerateRequest{Sensors: 1, Sinks: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFitness(t *testing.T) {
	h := newRouter(t, testConfig(), RouterOptions{})

	w := post(t, h, "/v1/fitness", service.FitnessRequest{
		Instance:   chainText(t),
		K:          1,
		M:          1,
		Population: []string{"11", "10"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var res service.FitnessResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	require.Len(t, res.Scores, 2)
	assert.Equal(t, 0, res.Best)

	w = post(t, h, "/v1/fitness", service.FitnessRequest{Instance: chainText(t), K: 1, M: 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(&ratelimit.Config{
		Requests:        1,
		Window:          time.Minute,
		Strategy:        ratelimit.StrategySlidingWindow,
		CleanupInterval: time.Minute,
	})
	t.Cleanup(func() { _ = limiter.Close() })

	h := newRouter(t, testConfig(), RouterOptions{Limiter: limiter, KeyFunc: ratelimit.ClientIP})
	req := ValidateRequest{Problem: service.Problem{Instance: chainText(t), K: 1, M: 1}}

	assert.Equal(t, http.StatusOK, post(t, h, "/v1/validate", req).Code)

	w := post(t, h, "/v1/validate", req)
	require.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, "RATE_LIMITED", string(decodeError(t, w).Error.Code))

	// Health не лимитируется
	hw := httptest.NewRecorder()
	h.ServeHTTP(hw, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, hw.Code)
}
