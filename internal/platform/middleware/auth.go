package middleware

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// IdentityValidator validates a bearer token and returns the identity it carries.
type IdentityValidator interface {
	ValidateToken(tokenString string) (*IdentityClaims, error)
}

// IdentityClaims are the claims the middleware needs from a validated token.
type IdentityClaims struct {
	Identity string
	TokenID  string
}

type contextKeyIdentity struct{}
type contextKeyTokenID struct{}

// GetIdentity retrieves the authenticated identity from the context.
func GetIdentity(ctx context.Context) string {
	identity, ok := ctx.Value(contextKeyIdentity{}).(string)
	if !ok {
		return ""
	}
	return identity
}

func GetTokenID(ctx context.Context) string {
	id, ok := ctx.Value(contextKeyTokenID{}).(string)
	if !ok {
		return ""
	}
	return id
}

// WithIdentity injects an authenticated identity into a context.
// Useful for handler tests that don't run the full middleware chain.
func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, contextKeyIdentity{}, identity)
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// RequireIdentity rejects requests without a valid bearer token and stores
// the token's identity in the request context.
func RequireIdentity(validator IdentityValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := GetRequestID(ctx)

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - missing token",
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", requestID,
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			ctx = WithIdentity(ctx, claims.Identity)
			ctx = context.WithValue(ctx, contextKeyTokenID{}, claims.TokenID)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
