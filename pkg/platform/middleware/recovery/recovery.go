// Package recovery turns handler panics into 500 responses instead of
// dropped connections.
package recovery

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	dErrors "sunset/pkg/domain-errors"
	"sunset/pkg/platform/httputil"
	"sunset/pkg/requestcontext"
)

// Recovery returns the panic-recovery middleware. Apply it inside the
// access log so a panicking request still produces a log line and a
// duration observation.
func Recovery(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					ctx := r.Context()
					logger.ErrorContext(ctx, "handler panic",
						"request_id", requestcontext.RequestID(ctx),
						"path", r.URL.Path,
						"panic", rec,
						"stack", string(debug.Stack()),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
