package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mintToken(t *testing.T, secret, subject string, ttl time.Duration) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subject,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		IssuedAt:  jwt.NewNumericDate(time.Now()),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestIdentityFromValidToken(t *testing.T) {
	auth := NewAuth("test-secret")
	token := mintToken(t, "test-secret", "Alice@X.com", time.Hour)

	identity, err := auth.Identity(token)
	require.NoError(t, err)
	assert.Equal(t, "alice@x.com", identity, "identity is normalized to lower case")
}

func TestIdentityRejectsBadTokens(t *testing.T) {
	auth := NewAuth("test-secret")

	cases := map[string]string{
		"wrong secret": mintToken(t, "other-secret", "alice@x.com", time.Hour),
		"expired":      mintToken(t, "test-secret", "alice@x.com", -time.Hour),
		"garbage":      "not.a.token",
	}
	for name, token := range cases {
		if _, err := auth.Identity(token); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestRequireAuth(t *testing.T) {
	auth := NewAuth("test-secret")
	var seen string
	handler := auth.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = IdentityFromContext(r.Context())
	}))

	// Missing token.
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("GET", "/ws", nil))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Bearer header.
	req := httptest.NewRequest("GET", "/ws", nil)
	req.Header.Set("Authorization", "Bearer "+mintToken(t, "test-secret", "alice@x.com", time.Hour))
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "alice@x.com", seen)

	// Query parameter fallback for WebSocket upgrades.
	req = httptest.NewRequest("GET", "/ws?token="+mintToken(t, "test-secret", "bob@x.com", time.Hour), nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "bob@x.com", seen)
}
