package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/artpar/contentgate/adapters/metrics"
)

// RouterConfig holds optional configuration for the router.
type RouterConfig struct {
	Metrics  *metrics.Collector
	Gatherer prometheus.Gatherer // Serves /metrics; defaults to the global registry
	Timeout  time.Duration
}

// NewRouter creates the main HTTP router.
func NewRouter(source ArtifactSource, logger zerolog.Logger, cfg RouterConfig) chi.Router {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(NewLoggingMiddleware(logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(cfg.Timeout))

	if cfg.Metrics != nil {
		r.Use(NewMetricsMiddleware(cfg.Metrics))
	}

	health := NewHealthHandler(source)
	r.Get("/health", health.Liveness)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Metrics != nil {
		if cfg.Gatherer != nil {
			r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
		} else {
			r.Handle("/metrics", promhttp.Handler())
		}
	}

	r.Method(http.MethodGet, "/schema.graphql", NewSchemaHandler(source))

	r.Group(func(r chi.Router) {
		r.Use(TenantMiddleware)
		r.Use(PerspectiveMiddleware)

		gql := NewGraphQLHandler(source, logger)
		r.Method(http.MethodGet, "/graphql", gql)
		r.Method(http.MethodPost, "/graphql", gql)
	})

	return r
}
