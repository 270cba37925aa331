package jwttoken

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Issuer and audience shared by the API server and transferctl.
const (
	DefaultIssuer   = "securetransfer"
	DefaultAudience = "securetransfer-api"
)

var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims binds a bearer token to one transfer identity.
type Claims struct {
	Identity string `json:"identity"`
	jwt.RegisteredClaims
}

// JWTService issues and validates HS256 identity tokens.
type JWTService struct {
	signingKey []byte
	issuer     string
	audience   string
	clock      clock.Clock
}

type Option func(*JWTService)

// WithClock overrides the time source used for issuing and validating.
func WithClock(c clock.Clock) Option {
	return func(s *JWTService) {
		if c != nil {
			s.clock = c
		}
	}
}

func NewJWTService(signingKey string, issuer string, audience string, opts ...Option) (*JWTService, error) {
	if signingKey == "" {
		return nil, errors.New("signing key is required")
	}
	s := &JWTService{
		signingKey: []byte(signingKey),
		issuer:     issuer,
		audience:   audience,
		clock:      clock.New(),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// GenerateToken issues a token for identity that expires after expiresIn.
func (s *JWTService) GenerateToken(identity string, expiresIn time.Duration) (string, error) {
	identity = strings.ToLower(strings.TrimSpace(identity))
	if identity == "" {
		return "", errors.New("identity is required")
	}
	now := s.clock.Now()
	newToken := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Identity: identity,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    s.issuer,
			Audience:  []string{s.audience},
			ID:        uuid.NewString(),
		},
	})

	signedToken, err := newToken.SignedString(s.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signedToken, nil
}

func (s *JWTService) ValidateToken(tokenString string) (*Claims, error) {
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return s.signingKey, nil
	},
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithTimeFunc(s.clock.Now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.Identity == "" {
		return nil, ErrTokenInvalid
	}
	return claims, nil
}
