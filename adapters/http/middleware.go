package http

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"

	"github.com/artpar/contentgate/adapters/metrics"
	"github.com/artpar/contentgate/core/resolver"
	"github.com/artpar/contentgate/domain/document"
	"github.com/artpar/contentgate/domain/tenant"
)

// Request headers read by the middleware.
const (
	HeaderTenant      = "X-Tenant-ID"
	HeaderPerspective = "X-Perspective"
)

// TenantMiddleware scopes the request context to the X-Tenant-ID header.
func TenantMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get(HeaderTenant)); id != "" {
			r = r.WithContext(tenant.With(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}

// PerspectiveMiddleware sets the request perspective from X-Perspective.
// Query arguments still take precedence.
func PerspectiveMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		v := strings.TrimSpace(r.Header.Get(HeaderPerspective))
		if v == "" {
			next.ServeHTTP(w, r)
			return
		}
		p, ok := document.ParsePerspective(v)
		if !ok {
			writeError(w, http.StatusBadRequest, "invalid perspective "+v, "BAD_REQUEST")
			return
		}
		next.ServeHTTP(w, r.WithContext(resolver.WithPerspective(r.Context(), p)))
	})
}

// NewMetricsMiddleware creates middleware that records request metrics.
func NewMetricsMiddleware(m *metrics.Collector) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			// Skip metrics for internal endpoints
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			m.RequestsInFlight.Inc()
			defer m.RequestsInFlight.Dec()

			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

			next.ServeHTTP(ww, r)

			status := statusLabel(ww.Status())
			path := metrics.NormalizePath(r.URL.Path)

			m.RequestsTotal.WithLabelValues(r.Method, path, status).Inc()
			m.RequestDuration.WithLabelValues(r.Method, path, status).Observe(time.Since(start).Seconds())
		})
	}
}

// statusLabel returns a string label for the status code.
func statusLabel(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "other"
	}
}

// NewLoggingMiddleware logs HTTP requests.
func NewLoggingMiddleware(logger zerolog.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			// Skip logging for health checks and metrics
			if strings.HasPrefix(r.URL.Path, "/health") || r.URL.Path == "/metrics" {
				return
			}

			logger.Debug().
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", ww.Status()).
				Int("bytes", ww.BytesWritten()).
				Dur("duration", time.Since(start)).
				Str("tenant", tenant.From(r.Context())).
				Str("request_id", middleware.GetReqID(r.Context())).
				Msg("http request")
		})
	}
}
