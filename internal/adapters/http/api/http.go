// Package api serves the bot's operational HTTP endpoints.
//
// Routes:
//
//	GET  /healthz      -> readiness
//	GET  /stats        -> service.Stats as JSON
//	POST /sweep        -> queue a sweep
//	GET  /metrics      -> Prometheus exposition
//	GET  /openapi.yaml -> embedded OpenAPI document
package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	service "github.com/okian/buffcal/internal/app"
	"github.com/okian/buffcal/pkg/logger"
	"github.com/okian/buffcal/pkg/metrics"
)

// Dependencies required by HTTP handlers.
type Dependencies interface {
	StatsProvider
	ReadinessChecker
	SweepRequester
}

// Server wires HTTP routes for the ops API.
type Server struct {
	healthHandler *HealthHandler
	statsHandler  *StatsHandler
	sweepHandler  *SweepHandler
	logger        logger.Logger
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies) *Server {
	return &Server{
		healthHandler: NewHealthHandler(deps),
		statsHandler:  NewStatsHandler(deps),
		sweepHandler:  NewSweepHandler(deps),
		logger:        logger.Get().Named("http"),
	}
}

// Router builds the chi router serving every route.
func (s *Server) Router(ctx context.Context) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(Metrics)

	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Get("/stats", s.statsHandler.HandleStats)
	r.Post("/sweep", s.sweepHandler.HandleSweep)
	r.Get("/openapi.yaml", handleOpenAPI)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(metrics.GetRegistry(), promhttp.HandlerOpts{}))

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusNotFound, "not_found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method_not_allowed", nil)
	})

	s.logger.Debug(ctx, "ops routes registered")
	return r
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

var _ Dependencies = (*service.Service)(nil)
