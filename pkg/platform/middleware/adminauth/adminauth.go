// Package adminauth guards admin routes. A request passes with either a
// bearer token carrying the admin scope or an X-API-Key matching one of the
// configured bcrypt hashes. With no credentials configured the middleware
// waves everything through; main logs the dev-mode warning at startup.
package adminauth

import (
	"log/slog"
	"net/http"
	"strings"

	dErrors "sunset/pkg/domain-errors"
	"sunset/pkg/platform/httputil"
	"sunset/pkg/platform/secrets"
	"sunset/pkg/requestcontext"
)

// APIKeyHeader carries the static admin key.
const APIKeyHeader = "X-API-Key"

// Require returns the middleware for the given verifier.
func Require(verifier *secrets.Verifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if !verifier.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			if token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok {
				subject, err := verifier.VerifyToken(token)
				if err != nil {
					logger.WarnContext(ctx, "admin token rejected",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
					httputil.WriteError(w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithAdminSubject(ctx, subject)))
				return
			}

			if key := r.Header.Get(APIKeyHeader); key != "" {
				name, err := verifier.VerifyAPIKey(key)
				if err != nil {
					logger.WarnContext(ctx, "admin API key rejected",
						"request_id", requestcontext.RequestID(ctx),
						"error", err,
					)
					httputil.WriteError(w, err)
					return
				}
				next.ServeHTTP(w, r.WithContext(requestcontext.WithAdminSubject(ctx, name)))
				return
			}

			logger.WarnContext(ctx, "admin request without credentials",
				"request_id", requestcontext.RequestID(ctx),
				"path", r.URL.Path,
			)
			httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "admin credentials required"))
		})
	}
}
