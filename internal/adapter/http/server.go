package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/facility-survey-forecast/internal/service"
)

// ReadinessChecker reports whether the service is ready to serve traffic.
type ReadinessChecker interface {
	CheckReadiness(ctx context.Context) error
}

// Snapshots provides the current snapshot and reloads it on demand.
type Snapshots interface {
	ReadinessChecker
	Current() (*service.Snapshot, error)
	Reload(ctx context.Context) (*service.Snapshot, error)
}

// Server exposes the forecast API plus health, readiness, and metrics endpoints.
type Server struct {
	httpServer *http.Server
	store      Snapshots
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api routes.
func NewServer(addr string, store Snapshots, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:        addr,
			Handler:     mux,
			ReadTimeout: 10 * time.Second,
			// Reloads re-read every input file.
			WriteTimeout: 2 * time.Minute,
			IdleTimeout:  60 * time.Second,
		},
		store:  store,
		logger: logger,
	}

	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", handleReady(store))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/resolve", s.handleResolve)
	mux.HandleFunc("GET /api/peers/{ccn}", s.handlePeers)
	mux.HandleFunc("GET /api/peer-survey-dates/{ccn}", s.handlePeerSurveyDates)
	mux.HandleFunc("GET /api/interval/{ccn}", s.handleInterval)
	mux.HandleFunc("POST /api/forecast", s.handleForecast)
	mux.HandleFunc("GET /api/facilities/{state}", s.handleFacilities)
	mux.HandleFunc("GET /api/survey-dates/{ccn}", s.handleSurveyDates)
	mux.HandleFunc("GET /api/deficiency-trends/{state}", s.handleDeficiencyTrends)
	mux.HandleFunc("GET /api/monthly-surveys/{state}", s.handleMonthlySurveys)
	mux.HandleFunc("POST /api/reload", s.handleReload)

	return s
}

// Start begins listening. Returns http.ErrServerClosed on graceful shutdown.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully drains connections within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ServeHTTP delegates to the underlying handler, useful for testing.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.httpServer.Handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func handleReady(checker ReadinessChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := checker.CheckReadiness(ctx); err != nil {
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{
				"status": "not ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v) //nolint:errcheck // best-effort response
}
