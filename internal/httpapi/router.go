// Package httpapi serves the trend analysis over HTTP next to the health
// and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/godilite/sales-trends/internal/service"
)

const (
	healthTimeout   = 2 * time.Second
	analysisTimeout = 2 * time.Minute
)

type AnalysisService interface {
	RunAnalysis(ctx context.Context, req service.AnalysisRequest) (*service.AnalysisReport, error)
	ListRuns(ctx context.Context, limit int) ([]service.RunSummary, error)
	SegmentHistory(ctx context.Context, segment string, limit int) ([]service.SegmentHistoryEntry, error)
}

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) error

type Handlers struct {
	analysis AnalysisService
	checks   map[string]HealthCheck
	metrics  http.Handler
	logger   *zap.Logger
}

// NewRouter builds the HTTP routes. metrics may be nil when no exporter is configured.
func NewRouter(analysis AnalysisService, checks map[string]HealthCheck, metrics http.Handler, logger *zap.Logger) http.Handler {
	if analysis == nil {
		panic("nil AnalysisService provided to NewRouter")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handlers{
		analysis: analysis,
		checks:   checks,
		metrics:  metrics,
		logger:   logger.Named("http-handler"),
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(h.requestLogger)

	r.Get("/healthz", h.health)
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/trends", h.trends)
		r.Get("/runs", h.runs)
		r.Get("/segments/{segment}/history", h.segmentHistory)
	})

	return r
}

func (h *Handlers) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		h.logger.Info("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// respondJSON writes data with the given status. The status is already on
// the wire when encoding fails, so the failure is only logged.
func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", zap.Int("status", status), zap.Error(err))
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}

func (h *Handlers) handleError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(r.Context().Err(), context.DeadlineExceeded):
		h.logger.Warn("request timeout", zap.String("op", op))
		h.respondError(w, http.StatusGatewayTimeout, "request timed out")
	case errors.Is(err, service.ErrNoData):
		h.respondError(w, http.StatusNotFound, "no data found")
	case errors.Is(err, service.ErrInvalidRequest):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("request failed", zap.String("op", op), zap.Error(err))
		h.respondError(w, http.StatusInternalServerError, fmt.Sprintf("%s failed", op))
	}
}

func queryLimit(r *http.Request) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: limit must be a non-negative integer", service.ErrInvalidRequest)
	}
	return n, nil
}

func (h *Handlers) health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := http.StatusOK
	results := make(map[string]string, len(names))
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.logger.Warn("health check failed", zap.String("check", name), zap.Error(err))
			results[name] = err.Error()
			status = http.StatusServiceUnavailable
			continue
		}
		results[name] = "ok"
	}

	overall := "ok"
	if status != http.StatusOK {
		overall = "degraded"
	}
	h.respondJSON(w, status, map[string]any{"status": overall, "checks": results})
}

func (h *Handlers) trends(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	format := q.Get("format")
	if format == "" {
		format = "json"
	}
	if format != "json" && format != "markdown" {
		h.respondError(w, http.StatusBadRequest, fmt.Sprintf("unknown format %q", format))
		return
	}

	req := service.AnalysisRequest{
		Level:         q.Get("aggregation_level"),
		SegmentColumn: q.Get("segment_column"),
		ValueColumn:   q.Get("value_column"),
	}

	ctx, cancel := context.WithTimeout(r.Context(), analysisTimeout)
	defer cancel()

	report, err := h.analysis.RunAnalysis(ctx, req)
	if err != nil {
		h.handleError(w, r.WithContext(ctx), "analyze trends", err)
		return
	}

	if format == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(report.Markdown()))
		return
	}
	h.respondJSON(w, http.StatusOK, report)
}

func (h *Handlers) runs(w http.ResponseWriter, r *http.Request) {
	limit, err := queryLimit(r)
	if err != nil {
		h.handleError(w, r, "list runs", err)
		return
	}

	runs, err := h.analysis.ListRuns(r.Context(), limit)
	if err != nil {
		h.handleError(w, r, "list runs", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"runs": runs})
}

func (h *Handlers) segmentHistory(w http.ResponseWriter, r *http.Request) {
	segment, err := url.PathUnescape(chi.URLParam(r, "segment"))
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "malformed segment")
		return
	}
	limit, err := queryLimit(r)
	if err != nil {
		h.handleError(w, r, "segment history", err)
		return
	}

	history, err := h.analysis.SegmentHistory(r.Context(), segment, limit)
	if err != nil {
		h.handleError(w, r, "segment history", err)
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{"segment": segment, "history": history})
}

// NewServer wraps the router in an http.Server listening on port.
func NewServer(port int, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      analysisTimeout + 10*time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
