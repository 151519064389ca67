// Package secrets verifies the two admin credential kinds: HS256 bearer
// tokens carrying the admin scope, and static API keys checked against
// bcrypt hashes from configuration.
package secrets

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	dErrors "sunset/pkg/domain-errors"
)

// AdminScope is the scope claim an admin token must carry.
const AdminScope = "eol:admin"

// AdminClaims represents the claims on admin access tokens.
type AdminClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// Verifier checks admin credentials. The zero configuration (no signing key,
// no API key hashes) disables verification entirely; callers decide what
// disabled means for them.
type Verifier struct {
	signingKey []byte
	issuer     string
	// apiKeys maps a key name to its bcrypt hash. The name identifies the
	// caller in logs; the raw key never appears in configuration.
	apiKeys map[string]string
}

// NewVerifier builds a verifier from the configured signing key and API key
// hashes. Either may be empty.
func NewVerifier(signingKey, issuer string, apiKeyHashes map[string]string) *Verifier {
	return &Verifier{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		apiKeys:    apiKeyHashes,
	}
}

// Enabled reports whether any admin credential is configured.
func (v *Verifier) Enabled() bool {
	return len(v.signingKey) > 0 || len(v.apiKeys) > 0
}

// MintToken issues an admin token for the subject. Used by operator tooling
// and tests; the service itself only verifies.
func (v *Verifier) MintToken(subject string, ttl time.Duration) (string, error) {
	if len(v.signingKey) == 0 {
		return "", dErrors.New(dErrors.CodeInternal, "no signing key configured")
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, AdminClaims{
		Scope: AdminScope,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    v.issuer,
			ID:        uuid.NewString(),
		},
	})
	return token.SignedString(v.signingKey)
}

// VerifyToken validates an HS256 bearer token and its scope claim, returning
// the token subject.
func (v *Verifier) VerifyToken(tokenString string) (string, error) {
	if len(v.signingKey) == 0 {
		return "", dErrors.New(dErrors.CodeUnauthorized, "bearer tokens are not configured")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &AdminClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "token has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	if !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token")
	}
	claims, ok := parsed.Claims.(*AdminClaims)
	if !ok {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid token claims")
	}
	if claims.Scope != AdminScope {
		return "", dErrors.New(dErrors.CodeForbidden, "token lacks the admin scope")
	}
	return claims.Subject, nil
}

// VerifyAPIKey matches the presented key against the configured hashes and
// returns the name of the matching key.
func (v *Verifier) VerifyAPIKey(key string) (string, error) {
	for name, hash := range v.apiKeys {
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(key)) == nil {
			return name, nil
		}
	}
	return "", dErrors.New(dErrors.CodeUnauthorized, "unknown API key")
}
