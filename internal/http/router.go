// Package httpapi assembles the HTTP surface: the middleware chain, the
// resolution routes, the credential-guarded admin routes, and the
// operational endpoints.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"sunset/internal/eol/handler"
	"sunset/internal/ratelimit"
	dErrors "sunset/pkg/domain-errors"
	"sunset/pkg/platform/httputil"
	"sunset/pkg/platform/middleware/accesslog"
	"sunset/pkg/platform/middleware/adminauth"
	"sunset/pkg/platform/middleware/recovery"
	"sunset/pkg/platform/middleware/requestid"
	"sunset/pkg/platform/secrets"
)

// Readiness reports whether the service can resolve queries.
type Readiness interface {
	Ready(ctx context.Context) error
}

// Deps carries everything the router mounts. A nil Limiter leaves the
// resolve routes unthrottled.
type Deps struct {
	Handler  *handler.Handler
	Verifier *secrets.Verifier
	Logger   *slog.Logger
	Ready    Readiness
	Limiter  *ratelimit.Limiter
}

// New assembles the router. Request IDs come first so every log line
// carries one; recovery sits inside the access log so a panicking request
// is still logged as a 500 with its duration.
func New(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(requestid.RequestID)
	r.Use(accesslog.AccessLog(d.Logger))
	r.Use(recovery.Recovery(d.Logger))

	r.Group(func(public chi.Router) {
		public.Use(ratelimit.Middleware(d.Limiter, d.Logger))
		d.Handler.Register(public)
	})

	r.Group(func(admin chi.Router) {
		admin.Use(adminauth.Require(d.Verifier, d.Logger))
		d.Handler.RegisterAdmin(admin)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, req *http.Request) {
		if err := d.Ready.Ready(req.Context()); err != nil {
			httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeUnavailable, "not ready"))
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Handle("/metrics", promhttp.Handler())

	return r
}
