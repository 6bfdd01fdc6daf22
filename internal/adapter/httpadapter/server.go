// Package httpadapter serves the mileage API alongside health, readiness,
// and metrics endpoints.
package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/couchcryptid/freight-mileage-service/internal/domain"
)

const (
	// writeTimeout bounds a whole response, batch resolution included.
	writeTimeout = 2 * time.Minute

	// batchTimeout leaves room to encode and flush the batch response
	// before writeTimeout cuts the connection.
	batchTimeout = writeTimeout - 10*time.Second
)

// LaneResolver resolves single lanes and reports provider status.
type LaneResolver interface {
	Resolve(ctx context.Context, lane domain.Lane) (domain.DistanceResult, error)
	Status() domain.ProviderStatus
}

// BatchResolver resolves many lanes, preserving order.
type BatchResolver interface {
	ResolveBatch(ctx context.Context, lanes []domain.Lane) []domain.DistanceResult
}

// Server exposes the mileage API plus /healthz, /readyz, and /metrics.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates the HTTP server. maxBatch caps the lanes accepted by
// the batch endpoint.
func NewServer(addr string, resolver LaneResolver, batch BatchResolver, maxBatch int, ready sharedobs.ReadinessChecker, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: writeTimeout,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger,
	}

	api := newAPI(resolver, batch, maxBatch, batchTimeout, logger)
	mux.HandleFunc("GET /api/v1/mileage", api.handleDistance)
	mux.HandleFunc("GET /api/v1/mileage/status", api.handleStatus)
	mux.HandleFunc("POST /api/v1/mileage/batch", api.handleBatch)

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(ready))
	mux.Handle("GET /metrics", promhttp.Handler())

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
