package testutil

import (
	"net/http"

	"securetransfer/internal/platform/middleware"
)

// WithIdentity places identity in the request context the same way
// RequireIdentity does after validating a token.
func WithIdentity(req *http.Request, identity string) *http.Request {
	return req.WithContext(middleware.WithIdentity(req.Context(), identity))
}

// WithBearer sets an "Authorization: Bearer" header.
func WithBearer(req *http.Request, token string) *http.Request {
	req.Header.Set("Authorization", "Bearer "+token)
	return req
}
