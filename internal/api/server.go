// Package api exposes dashboards, widgets and data sources over HTTP JSON.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/yourorg/datalens/internal/connector"
	"github.com/yourorg/datalens/internal/dashboard"
	"golang.org/x/time/rate"
)

// DefaultUserHeader carries the caller identity set by the auth proxy.
const DefaultUserHeader = "X-User-Id"

// Options configures the HTTP layer.
type Options struct {
	// UserHeader names the identity header; empty means DefaultUserHeader
	UserHeader string

	// FetchTimeout bounds data source requests and dashboard renders
	FetchTimeout time.Duration

	// Limiter throttles /api requests when set
	Limiter *rate.Limiter

	// Registerer receives request metrics; nil disables them
	Registerer prometheus.Registerer

	// Gatherer backs /metrics; nil disables the endpoint
	Gatherer prometheus.Gatherer

	// Ping reports storage health for /health
	Ping func(ctx context.Context) error
}

// Server holds the HTTP handlers.
type Server struct {
	dashboards *dashboard.Service
	connectors *connector.Registry
	opts       Options
	metrics    *httpMetrics
	started    time.Time
}

// New creates a Server.
func New(dashboards *dashboard.Service, connectors *connector.Registry, opts Options) *Server {
	if opts.UserHeader == "" {
		opts.UserHeader = DefaultUserHeader
	}
	s := &Server{
		dashboards: dashboards,
		connectors: connectors,
		opts:       opts,
		started:    time.Now(),
	}
	if opts.Registerer != nil {
		s.metrics = newHTTPMetrics(opts.Registerer)
	}
	return s
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.logRequests)
	r.Use(middleware.Recoverer)
	if s.metrics != nil {
		r.Use(s.instrument)
	}

	r.Get("/health", s.handleHealth)
	if s.opts.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Use(s.identify)

		r.Get("/dashboards/{id}", s.getDashboard)
		r.Get("/dashboards/{id}/data", s.renderDashboard)

		r.Group(func(r chi.Router) {
			r.Use(requireUser)

			r.Get("/dashboards", s.listDashboards)
			r.Post("/dashboards", s.createDashboard)
			r.Put("/dashboards/{id}", s.updateDashboard)
			r.Delete("/dashboards/{id}", s.deleteDashboard)

			r.Post("/widgets", s.createWidget)
			r.Put("/widgets/{id}", s.updateWidget)
			r.Delete("/widgets/{id}", s.deleteWidget)
		})

		r.Get("/data-sources", s.listDataSources)
		r.Get("/data-sources/{provider}", s.fetchDataSource)
	})

	return r
}

// handleHealth reports liveness and storage reachability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status, code := "ok", http.StatusOK
	if s.opts.Ping != nil {
		if err := s.opts.Ping(r.Context()); err != nil {
			status, code = "unavailable", http.StatusServiceUnavailable
		}
	}
	writeJSON(w, code, map[string]any{
		"status":     status,
		"uptime":     time.Since(s.started).Round(time.Second).String(),
		"connectors": len(s.connectors.All()),
	})
}

// withFetchTimeout bounds upstream work started by a request.
func (s *Server) withFetchTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opts.FetchTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opts.FetchTimeout)
}
