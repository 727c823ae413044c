package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/pooi/redsearch/pkg/metrics"
)

// Metrics returns middleware that records HTTP request count, latency, and
// in-flight gauge.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			duration := time.Since(start).Seconds()
			path := normalizePath(r.URL.Path)

			m.HTTPRequestsTotal.WithLabelValues(
				r.Method,
				path,
				strconv.Itoa(sw.status),
			).Inc()

			m.HTTPRequestDuration.WithLabelValues(
				r.Method,
				path,
			).Observe(duration)
		})
	}
}

// statusWriter wraps http.ResponseWriter to capture the response status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (sw *statusWriter) WriteHeader(code int) {
	sw.status = code
	sw.ResponseWriter.WriteHeader(code)
}

// normalizePath collapses per-resource path segments so metric cardinality
// stays bounded (index names and document ids become placeholders).
func normalizePath(path string) string {
	parts := strings.Split(strings.Trim(path, "/"), "/")
	// /api/v1/index/{index}/doc/{id}, /api/v1/search/{index}
	for i := 0; i < len(parts); i++ {
		switch {
		case i > 0 && (parts[i-1] == "index" || parts[i-1] == "search" || parts[i-1] == "doc"):
			parts[i] = ":name"
		}
	}
	return "/" + strings.Join(parts, "/")
}
