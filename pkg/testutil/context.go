package testutil

import (
	"net/http"

	"sunset/pkg/requestcontext"
)

// WithAdminSubject adds a verified admin identity to the request context.
// This simulates what the admin auth middleware would do for credentialed
// requests.
func WithAdminSubject(req *http.Request, subject string) *http.Request {
	return req.WithContext(requestcontext.WithAdminSubject(req.Context(), subject))
}

// WithRequestID adds a request ID to the request context, simulating the
// request ID middleware.
func WithRequestID(req *http.Request, requestID string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), requestID))
}
