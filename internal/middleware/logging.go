package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/igrejaonline/portal/internal/metrics"
)

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
		rw.ResponseWriter.WriteHeader(code)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

// Paths to skip logging (health checks and scrapes)
var skipLoggingPaths = []string{
	"/healthz",
	"/metrics",
}

// RouteOf reports the route pattern that serves r, empty when none does.
type RouteOf func(r *http.Request) string

// MuxRoute resolves routes against mux without serving the request.
func MuxRoute(mux *http.ServeMux) RouteOf {
	return func(r *http.Request) string {
		_, pattern := mux.Handler(r)
		return pattern
	}
}

// RequestLogging logs HTTP requests with method, path, status, and duration
// and records them in m under the route routeOf reports. Skips paths defined
// in skipLoggingPaths
func RequestLogging(m *metrics.Metrics, routeOf RouteOf) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, prefix := range skipLoggingPaths {
				if strings.HasPrefix(r.URL.Path, prefix) {
					next.ServeHTTP(w, r)
					return
				}
			}

			start := time.Now()

			rw := &responseWriter{
				ResponseWriter: w,
				statusCode:     http.StatusOK,
				written:        false,
			}

			next.ServeHTTP(rw, r)

			duration := time.Since(start)
			route := ""
			if routeOf != nil {
				route = routeOf(r)
			}
			if m != nil {
				m.RecordRequest(r.Method, route, rw.statusCode, duration)
			}

			slog.Info("http request",
				"method", r.Method,
				"path", r.URL.Path,
				"route", route,
				"status", rw.statusCode,
				"duration_ms", duration.Milliseconds(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}
