// Package accesslog emits one structured log line per request and records
// the request duration metric. Client IP and User-Agent are parked on the
// context for handlers that want them.
package accesslog

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/mssola/useragent"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"sunset/pkg/requestcontext"
)

var requestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
	Name:    "sunset_http_request_duration_seconds",
	Help:    "Duration of HTTP requests by method, route pattern, and status",
	Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
}, []string{"method", "route", "status"})

// statusRecorder captures the response status for the log line.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// AccessLog logs every request after it completes. Apply inside the router
// so the chi route pattern is available for the metric label.
func AccessLog(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}

			ip := clientIP(r)
			rawUA := r.Header.Get("User-Agent")
			ctx := requestcontext.WithClientMetadata(r.Context(), ip, rawUA)

			next.ServeHTTP(rec, r.WithContext(ctx))

			elapsed := time.Since(start)
			route := r.URL.Path
			if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
				route = rctx.RoutePattern()
			}
			requestDuration.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Observe(elapsed.Seconds())

			logger.InfoContext(ctx, "http request",
				"request_id", requestcontext.RequestID(ctx),
				"method", r.Method,
				"path", r.URL.Path,
				"status", rec.status,
				"client_ip", ip,
				"user_agent", agentFamily(rawUA),
				"duration_ms", elapsed.Milliseconds(),
			)
		})
	}
}

// agentFamily reduces a raw User-Agent to a stable family name for logs.
// Raw UA strings are high-cardinality and often noise; the family is enough
// to tell a browser from a bot from curl.
func agentFamily(raw string) string {
	if raw == "" {
		return "unknown"
	}
	ua := useragent.New(raw)
	if ua.Bot() {
		return "bot"
	}
	if name, _ := ua.Browser(); name != "" {
		return name
	}
	return "unknown"
}

// clientIP extracts the real client IP, preferring proxy headers over the
// socket address.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if addr := r.RemoteAddr; addr != "" {
		if idx := strings.LastIndex(addr, ":"); idx != -1 {
			return addr[:idx]
		}
		return addr
	}
	return "unknown"
}
