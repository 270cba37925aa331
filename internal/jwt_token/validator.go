package jwttoken

import (
	"securetransfer/internal/platform/middleware"
)

// IdentityValidator satisfies middleware.IdentityValidator using signed
// identity tokens.
type IdentityValidator struct {
	tokens *JWTService
}

func NewIdentityValidator(tokens *JWTService) *IdentityValidator {
	return &IdentityValidator{tokens: tokens}
}

// ValidateToken checks the token and returns the caller it was issued to.
// Validation errors are returned unchanged so callers can match
// ErrTokenExpired.
func (v *IdentityValidator) ValidateToken(token string) (*middleware.IdentityClaims, error) {
	claims, err := v.tokens.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &middleware.IdentityClaims{Identity: claims.Identity, TokenID: claims.ID}, nil
}
