package httpadapter

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/couchcryptid/occurrence-aggregator/internal/domain"
	"github.com/couchcryptid/occurrence-aggregator/internal/observability"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Datasets yields the loaded dataset and reports readiness. dataset.Holder
// satisfies it.
type Datasets interface {
	sharedobs.ReadinessChecker
	Current() *domain.Dataset
}

// Server exposes health, readiness, metrics, and the species report API.
type Server struct {
	httpServer *http.Server
	data       Datasets
	opts       domain.ReportOptions
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewServer creates an HTTP server with /healthz, /readyz, /metrics and the
// /api/species routes.
func NewServer(addr string, data Datasets, opts domain.ReportOptions, metrics *observability.Metrics, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		httpServer: &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		data:    data,
		opts:    opts,
		metrics: metrics,
		logger:  logger,
	}

	mux.HandleFunc("GET /healthz", sharedobs.LivenessHandler())
	mux.HandleFunc("GET /readyz", sharedobs.ReadinessHandler(data))
	mux.Handle("GET /metrics", promhttp.Handler())

	mux.HandleFunc("GET /api/species", s.withDataset(s.handleSpecies))
	mux.HandleFunc("GET /api/species/{name}/report", s.withDataset(s.handleReport))
	mux.HandleFunc("GET /api/species/{name}/points", s.withDataset(s.handlePoints))
	mux.HandleFunc("GET /api/species/{name}/choropleth/{level}", s.withDataset(s.handleChoropleth))

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
