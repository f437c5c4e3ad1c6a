package service

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/sma-records-api/internal/models"
	appErrors "github.com/noah-isme/sma-records-api/pkg/errors"
)

func TestTokenServiceRoundTrip(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "records", Audience: []string{"records-api"}, TTL: time.Minute})

	token, expiresAt, err := svc.Issue("user-1", "tenant-a", models.RoleRegistrar)
	require.NoError(t, err)
	assert.True(t, expiresAt.After(time.Now()))

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "tenant-a", claims.TenantID)
	assert.Equal(t, models.RoleRegistrar, claims.Role)
	assert.Equal(t, models.Actor{TenantID: "tenant-a", UserID: "user-1", Type: models.ActorUser}, claims.Actor())
}

func TestTokenServiceRejectsForeignAndExpiredTokens(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret", Issuer: "records", TTL: time.Minute})
	other := NewTokenService(TokenConfig{Secret: "other", Issuer: "records", TTL: time.Minute})

	foreign, _, err := other.Issue("user-1", "tenant-a", models.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.ValidateToken(foreign)
	require.True(t, errors.Is(err, appErrors.ErrUnauthorized))

	svc.now = func() time.Time { return time.Now().Add(-time.Hour) }
	stale, _, err := svc.Issue("user-1", "tenant-a", models.RoleAdmin)
	require.NoError(t, err)
	svc.now = time.Now
	_, err = svc.ValidateToken(stale)
	require.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}

func TestTokenServiceRequiresTenantClaim(t *testing.T) {
	svc := NewTokenService(TokenConfig{Secret: "secret"})
	_, _, err := svc.Issue("user-1", "", models.RoleAdmin)
	require.Error(t, err)

	claims := &models.JWTClaims{UserID: "user-1", Role: models.RoleAdmin, RegisteredClaims: jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.ValidateToken(signed)
	require.True(t, errors.Is(err, appErrors.ErrUnauthorized))
}
