package jwttoken

import (
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newService(t *testing.T, c clock.Clock) *JWTService {
	t.Helper()
	s, err := NewJWTService("test-signing-key", "test-issuer", "test-audience", WithClock(c))
	require.NoError(t, err)
	return s
}

func Test_GenerateToken(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	jwtService := newService(t, mock)

	token, err := jwtService.GenerateToken(" Alice ", time.Hour)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := jwtService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", claims.Identity)
	assert.Equal(t, "alice", claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, mock.Now().Add(time.Hour).Equal(claims.ExpiresAt.Time))
}

func Test_GenerateToken_RequiresIdentity(t *testing.T) {
	_, err := newService(t, clock.NewMock()).GenerateToken("  ", time.Hour)
	require.Error(t, err)
}

func Test_NewJWTService_RequiresKey(t *testing.T) {
	_, err := NewJWTService("", "iss", "aud")
	require.ErrorContains(t, err, "signing key is required")
}

func Test_ValidateToken_InvalidToken(t *testing.T) {
	_, err := newService(t, clock.NewMock()).ValidateToken("invalid-token-string")
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func Test_ValidateToken_ExpiredToken(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	jwtService := newService(t, mock)

	token, err := jwtService.GenerateToken("bob", time.Minute)
	require.NoError(t, err)

	mock.Add(2 * time.Minute)
	_, err = jwtService.ValidateToken(token)
	require.ErrorIs(t, err, ErrTokenExpired)
}

func Test_ValidateToken_WrongKey(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	token, err := newService(t, mock).GenerateToken("bob", time.Hour)
	require.NoError(t, err)

	other, err := NewJWTService("another-key", "test-issuer", "test-audience", WithClock(mock))
	require.NoError(t, err)
	_, err = other.ValidateToken(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func Test_ValidateToken_WrongAudience(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	token, err := newService(t, mock).GenerateToken("bob", time.Hour)
	require.NoError(t, err)

	other, err := NewJWTService("test-signing-key", "test-issuer", "other-audience", WithClock(mock))
	require.NoError(t, err)
	_, err = other.ValidateToken(token)
	require.ErrorIs(t, err, ErrTokenInvalid)
}

func Test_IdentityValidator(t *testing.T) {
	mock := clock.NewMock()
	mock.Set(time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC))
	jwtService := newService(t, mock)
	token, err := jwtService.GenerateToken("charlie", time.Hour)
	require.NoError(t, err)

	claims, err := NewIdentityValidator(jwtService).ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "charlie", claims.Identity)
	assert.NotEmpty(t, claims.TokenID)
}
