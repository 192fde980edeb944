package http

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type userKey struct{}

// UserFromContext returns the caller identity set by Authenticator.Middleware.
func UserFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userKey{}).(string)
	return userID, ok && userID != ""
}

func withUser(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// Authenticator resolves the caller from an HS256 bearer token (subject = user id)
// or, when no token is sent, from the X-User-ID header set by a trusted gateway.
type Authenticator struct {
	hmac        []byte
	trustHeader bool
}

// AuthOption configures an Authenticator.
type AuthOption func(*Authenticator)

// WithTrustedUserHeader accepts X-User-ID even when tokens are enabled. Only use it
// behind a gateway that strips the header from client requests.
func WithTrustedUserHeader() AuthOption {
	return func(a *Authenticator) { a.trustHeader = true }
}

// NewAuthenticator builds an authenticator. An empty secret disables tokens and
// falls back to the X-User-ID header; with a secret the header is ignored unless
// WithTrustedUserHeader is given.
func NewAuthenticator(secret string, opts ...AuthOption) *Authenticator {
	a := &Authenticator{hmac: []byte(secret), trustHeader: secret == ""}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// IssueToken signs a token for userID.
func (a *Authenticator) IssueToken(userID string, ttl time.Duration) (string, error) {
	if len(a.hmac) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   userID,
		Issuer:    "quiz-attempt-service",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.hmac)
}

// Parse validates a token and returns its subject.
func (a *Authenticator) Parse(tokenStr string) (string, error) {
	if len(a.hmac) == 0 {
		return "", errors.New("jwt secret not configured")
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return a.hmac, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", err
	}
	if !token.Valid || claims.Subject == "" {
		return "", errors.New("token has no subject")
	}
	return claims.Subject, nil
}

// Middleware attaches the caller identity to the request context. A malformed or
// expired token is rejected; a request without any identity passes through.
// Browsers cannot set headers on websocket upgrades, so the token may also come
// from the access_token query parameter.
func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := ""
		if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
			token = strings.TrimPrefix(h, "Bearer ")
		} else if q := r.URL.Query().Get("access_token"); q != "" {
			token = q
		}

		if token != "" {
			userID, err := a.Parse(token)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, errorPayload{Message: "invalid token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
			return
		}
		if !a.trustHeader {
			next.ServeHTTP(w, r)
			return
		}
		if userID := strings.TrimSpace(r.Header.Get("X-User-ID")); userID != "" {
			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), userID)))
			return
		}
		next.ServeHTTP(w, r)
	})
}
