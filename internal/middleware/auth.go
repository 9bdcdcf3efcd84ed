// Package middleware provides HTTP middleware for the parse API: Firebase
// token verification, CORS and request identification.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"firebase.google.com/go/v4/auth"
)

type contextKey string

const (
	userIDKey    contextKey = "userID"
	requestIDKey contextKey = "requestID"
)

// TokenVerifier verifies a Firebase ID token. *auth.Client satisfies it;
// tests substitute fakes.
type TokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*auth.Token, error)
}

// Auth validates bearer tokens on protected routes.
type Auth struct {
	verifier TokenVerifier
}

// NewAuth creates auth middleware over a token verifier.
func NewAuth(verifier TokenVerifier) *Auth {
	return &Auth{verifier: verifier}
}

// RequireAuth rejects requests without a valid bearer token and stores the
// authenticated user ID in the request context.
func (a *Auth) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			http.Error(w, "Missing authorization header", http.StatusUnauthorized)
			return
		}

		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			http.Error(w, "Invalid authorization header format", http.StatusUnauthorized)
			return
		}

		decoded, err := a.verifier.VerifyIDToken(r.Context(), token)
		if err != nil {
			http.Error(w, "Invalid token", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userIDKey, decoded.UID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// UserID extracts the authenticated user ID from the context.
func UserID(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userIDKey).(string)
	return id, ok
}
