package ratelimit

import (
	"log/slog"
	"net/http"
	"strconv"

	dErrors "sunset/pkg/domain-errors"
	"sunset/pkg/platform/httputil"
	"sunset/pkg/requestcontext"
)

// Middleware enforces the limiter per client IP. Requests carry
// X-RateLimit-* headers whether or not they are allowed; denied requests get
// a 429 with Retry-After. A nil limiter disables enforcement entirely.
func Middleware(limiter *Limiter, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limiter == nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			key := requestcontext.ClientIP(ctx)
			if key == "" {
				key = r.RemoteAddr
			}

			decision := limiter.Allow(key)
			setHeaders(w, decision)

			if !decision.Allowed {
				logger.DebugContext(ctx, "client rate limited",
					"request_id", requestcontext.RequestID(ctx),
					"client_ip", key,
					"path", r.URL.Path,
				)
				retryAfter := int(decision.ResetAt.Sub(limiter.clock()).Seconds()) + 1
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "rate limit exceeded, retry later"))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func setHeaders(w http.ResponseWriter, d Decision) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
}
