package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"kcmc/pkg/apperror"
	"kcmc/pkg/config"
	"kcmc/pkg/logger"
	"kcmc/services/kcmc-svc/internal/instance"
	"kcmc/services/kcmc-svc/internal/middleware"
	"kcmc/services/kcmc-svc/internal/report"
	"kcmc/services/kcmc-svc/internal/service"
)

// Handler serves the KCMC HTTP API on top of EngineService.
type Handler struct {
	svc       *service.EngineService
	config    *config.Config
	startedAt time.Time
}

// New creates the handler.
func New(svc *service.EngineService, cfg *config.Config) *Handler {
	return &Handler{
		svc:       svc,
		config:    cfg,
		startedAt: time.Now(),
	}
}

// ==================== Requests ====================

// ValidateRequest is the body of POST /v1/validate.
type ValidateRequest struct {
	service.Problem
	CrossCheck bool `json:"cross_check,omitempty"`
}

// OptimizeRequest is the body of POST /v1/optimize.
type OptimizeRequest struct {
	service.Problem
	Method string `json:"method"`
}

// SuiteRequest is the body of POST /v1/suite. With Format set the response is
// a rendered report instead of the JSON suite.
type SuiteRequest struct {
	service.Problem
	Methods []string `json:"methods,omitempty"`
	Format  string   `json:"format,omitempty"`
}

// GenerateRequest is the body of POST /v1/generate.
type GenerateRequest struct {
	POIs                int   `json:"pois"`
	Sensors             int   `json:"sensors"`
	Sinks               int   `json:"sinks"`
	AreaSide            int   `json:"area_side"`
	CoverageRadius      int   `json:"coverage_radius"`
	CommunicationRadius int   `json:"communication_radius"`
	Seed                int64 `json:"seed"`
}

func (r GenerateRequest) params() instance.Params {
	return instance.Params{
		POIs:                r.POIs,
		Sensors:             r.Sensors,
		Sinks:               r.Sinks,
		AreaSide:            r.AreaSide,
		CoverageRadius:      r.CoverageRadius,
		CommunicationRadius: r.CommunicationRadius,
		Seed:                r.Seed,
	}
}

// GenerateResponse carries the generated instance in its text form.
type GenerateResponse struct {
	Key       string `json:"key"`
	Instance  string `json:"instance"`
	POIs      int    `json:"pois"`
	Sensors   int    `json:"sensors"`
	Sinks     int    `json:"sinks"`
	Coverage  int    `json:"coverage_edges"`
	Links     int    `json:"link_edges"`
	SinkLinks int    `json:"sink_edges"`
}

// ==================== Health ====================

// Health reports liveness and the service version.
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"version":        h.svc.Version(),
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
	})
}

// ==================== Engine ====================

// Generate builds an instance from geometry parameters.
func (h *Handler) Generate(w http.ResponseWriter, r *http.Request) {
	var req GenerateRequest
	if !h.decode(w, r, &req) {
		return
	}

	in, err := h.svc.Generate(r.Context(), req.params())
	if err != nil {
		writeError(w, r, err)
		return
	}

	coverage, links, sinkLinks := in.EdgeCounts()
	writeJSON(w, http.StatusOK, GenerateResponse{
		Key:       in.Key(),
		Instance:  in.Encode(),
		POIs:      in.POIs,
		Sensors:   in.Sensors,
		Sinks:     in.Sinks,
		Coverage:  coverage,
		Links:     links,
		SinkLinks: sinkLinks,
	})
}

// Validate checks K-coverage and M-connectivity.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req ValidateRequest
	if !h.decode(w, r, &req) || !checkProblem(w, r, req.Problem) {
		return
	}

	v, err := h.svc.Validate(r.Context(), req.Problem, req.CrossCheck)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// Optimize runs one minimizer. An infeasible problem answers 422 with the
// failed run attached.
func (h *Handler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if !h.decode(w, r, &req) || !checkProblem(w, r, req.Problem) {
		return
	}
	if req.Method == "" {
		writeError(w, r, apperror.NewWithField(apperror.CodeInvalidArgument, "method is required", "method"))
		return
	}

	run, err := h.svc.Optimize(r.Context(), req.Problem, req.Method)
	if err != nil {
		writeErrorWith(w, r, err, run)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// Suite runs several minimizers and returns the suite or a rendered report.
func (h *Handler) Suite(w http.ResponseWriter, r *http.Request) {
	var req SuiteRequest
	if !h.decode(w, r, &req) || !checkProblem(w, r, req.Problem) {
		return
	}

	var format report.Format
	if req.Format != "" {
		f, err := report.ParseFormat(req.Format)
		if err != nil {
			writeError(w, r, err)
			return
		}
		format = f
	}

	suite, err := h.svc.Suite(r.Context(), req.Problem, req.Methods)
	if err != nil {
		writeError(w, r, err)
		return
	}

	if format == "" {
		writeJSON(w, http.StatusOK, suite)
		return
	}

	body, err := report.Render(r.Context(), format, &report.Data{
		Title:   h.config.Report.Title,
		Author:  h.config.Report.Author,
		Version: h.svc.Version(),
		Suites:  []*service.Suite{suite},
	})
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf(`attachment; filename="kcmc-%s%s"`, suite.RunID, format.Extension()))
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

// Fitness scores a population of bitmaps.
func (h *Handler) Fitness(w http.ResponseWriter, r *http.Request) {
	var req service.FitnessRequest
	if !h.decode(w, r, &req) {
		return
	}
	if !checkProblem(w, r, service.Problem{Instance: req.Instance, K: req.K, M: req.M}) {
		return
	}

	res, err := h.svc.Fitness(r.Context(), req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ==================== Encoding ====================

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
	Run   any         `json:"run,omitempty"`
}

// ErrorDetail describes one error.
type ErrorDetail struct {
	Code       apperror.ErrorCode `json:"code"`
	Message    string             `json:"message"`
	Field      string             `json:"field,omitempty"`
	Details    map[string]any     `json:"details,omitempty"`
	Violations []ErrorDetail      `json:"violations,omitempty"`
	RequestID  string             `json:"request_id,omitempty"`
}

func detailOf(e *apperror.Error) ErrorDetail {
	d := ErrorDetail{Code: e.Code, Message: e.Message, Field: e.Field}
	if len(e.Details) > 0 {
		d.Details = e.Details
	}
	return d
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	limit := h.config.HTTP.MaxBodyBytes
	if limit > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.As(err, &tooLarge):
			writeError(w, r, apperror.New(apperror.CodeInvalidArgument,
				fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit)))
		case errors.Is(err, io.EOF):
			writeError(w, r, apperror.New(apperror.CodeInvalidArgument, "request body is empty"))
		default:
			writeError(w, r, apperror.Wrap(err, apperror.CodeInvalidArgument, "malformed JSON body"))
		}
		return false
	}
	return true
}

// checkProblem answers 400 with every request-level violation at once.
func checkProblem(w http.ResponseWriter, r *http.Request, p service.Problem) bool {
	errs := p.Check()
	if errs.IsValid() {
		return true
	}

	first := errs.First()
	body := ErrorBody{Error: ErrorDetail{
		Code:      first.Code,
		Message:   "request validation failed",
		RequestID: middleware.GetRequestID(r.Context()),
	}}
	for _, e := range errs.Errors {
		body.Error.Violations = append(body.Error.Violations, detailOf(e))
	}
	writeJSON(w, first.HTTPStatus(), body)
	return false
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	writeErrorWith(w, r, err, nil)
}

func writeErrorWith(w http.ResponseWriter, r *http.Request, err error, run *service.Run) {
	appErr := apperror.From(err)
	status := appErr.HTTPStatus()

	if status >= http.StatusInternalServerError {
		logger.WithRequestID(middleware.GetRequestID(r.Context())).Error("Request error",
			"code", appErr.Code,
			"error", err,
		)
	}

	body := ErrorBody{Error: detailOf(appErr)}
	body.Error.RequestID = middleware.GetRequestID(r.Context())
	if run != nil {
		body.Run = run
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		// Заголовки уже отправлены
		logger.Log.Debug("Failed to encode response", "error", err)
	}
}
