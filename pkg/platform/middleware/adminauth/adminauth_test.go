package adminauth_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"sunset/pkg/platform/middleware/adminauth"
	"sunset/pkg/platform/secrets"
	"sunset/pkg/requestcontext"
)

const signingKey = "unit-test-signing-key-keep-it-long"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// protect wraps a probe handler that records the admin subject it ran as.
func protect(verifier *secrets.Verifier) (http.Handler, *string) {
	var subject string
	h := adminauth.Require(verifier, discardLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		subject = requestcontext.AdminSubject(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &subject
}

func TestBearerTokenGrantsAccess(t *testing.T) {
	verifier := secrets.NewVerifier(signingKey, "sunset", nil)
	token, err := verifier.MintToken("ops@example.com", time.Minute)
	require.NoError(t, err)

	h, subject := protect(verifier)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/cache/purge-all", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "ops@example.com", *subject)
}

func TestRejectsMangledToken(t *testing.T) {
	verifier := secrets.NewVerifier(signingKey, "sunset", nil)

	h, _ := protect(verifier)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/cache/purge-all", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "unauthorized")
}

func TestAPIKeyGrantsAccess(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sk-patch-bot-key"), bcrypt.MinCost)
	require.NoError(t, err)
	verifier := secrets.NewVerifier("", "sunset", map[string]string{"patch-bot": string(hash)})

	h, subject := protect(verifier)
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/cache/stats", nil)
	req.Header.Set(adminauth.APIKeyHeader, "sk-patch-bot-key")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "patch-bot", *subject)
}

func TestRejectsUnknownAPIKey(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("sk-patch-bot-key"), bcrypt.MinCost)
	require.NoError(t, err)
	verifier := secrets.NewVerifier("", "sunset", map[string]string{"patch-bot": string(hash)})

	h, _ := protect(verifier)
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/cache/stats", nil)
	req.Header.Set(adminauth.APIKeyHeader, "sk-wrong")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRejectsMissingCredentials(t *testing.T) {
	verifier := secrets.NewVerifier(signingKey, "sunset", nil)

	h, _ := protect(verifier)
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/cache/purge", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnauthorized, rec.Code)
	require.Contains(t, rec.Body.String(), "admin credentials required")
}

func TestDisabledVerifierPassesThrough(t *testing.T) {
	verifier := secrets.NewVerifier("", "sunset", nil)

	h, subject := protect(verifier)
	req := httptest.NewRequest(http.MethodGet, "/v1/admin/cache/stats", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Empty(t, *subject)
}
