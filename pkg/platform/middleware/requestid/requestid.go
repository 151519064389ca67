// Package requestid assigns every request a request ID: the inbound
// X-Request-ID header when the caller supplied one, a fresh UUID otherwise.
// The ID rides the context and is echoed on the response so callers can
// correlate logs across systems.
package requestid

import (
	"net/http"

	"github.com/google/uuid"

	"sunset/pkg/requestcontext"
)

// Header carries the request ID on both request and response.
const Header = "X-Request-ID"

// RequestID is the middleware. Apply it first so everything downstream,
// including the access log, sees the ID.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(Header)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(Header, id)
		next.ServeHTTP(w, r.WithContext(requestcontext.WithRequestID(r.Context(), id)))
	})
}
