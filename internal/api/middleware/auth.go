package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const identityContextKey contextKey = "identity"

// Auth verifies bearer tokens issued by the external identity
// provider. The relay never authenticates users itself; it only checks
// that a token was minted with the shared secret and extracts the
// subject claim, which is the user's identity (email key).
type Auth struct {
	secret []byte
}

// NewAuth creates the verifier with the identity provider's shared
// HS256 secret.
func NewAuth(secret string) *Auth {
	return &Auth{secret: []byte(secret)}
}

// Identity validates tokenString and returns the subject identity.
func (a *Auth) Identity(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return "", err
	}

	subject, err := token.Claims.GetSubject()
	if err != nil {
		return "", err
	}
	if subject == "" {
		return "", jwt.ErrTokenInvalidSubject
	}
	return strings.ToLower(subject), nil
}

// RequireAuth rejects requests without a valid identity-provider token
// and injects the verified identity into the request context. Browser
// WebSocket clients cannot set headers on the upgrade request, so a
// "token" query parameter is accepted as a fallback.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			tokenString = r.URL.Query().Get("token")
		}
		if tokenString == "" {
			http.Error(w, `{"error":"authentication required"}`, http.StatusUnauthorized)
			return
		}

		identity, err := a.Identity(tokenString)
		if err != nil {
			http.Error(w, `{"error":"invalid token"}`, http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), identityContextKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// WithIdentity returns a context carrying a verified identity. Used by
// handler tests to stand in for RequireAuth.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, identityContextKey, identity)
}

// IdentityFromContext returns the verified identity, or "" when the
// request did not pass RequireAuth.
func IdentityFromContext(ctx context.Context) string {
	identity, _ := ctx.Value(identityContextKey).(string)
	return identity
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}
