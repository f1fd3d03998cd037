package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) TokenService {
	t.Helper()
	svc, err := NewTokenService(accessTTL, refreshTTL, "lantern-test", "lantern-admin", false, "", "", "test-secret-key-with-enough-length")
	require.NoError(t, err)
	return svc
}

func TestTokenService(t *testing.T) {
	t.Run("GenerateAndValidate", func(t *testing.T) {
		svc := newTestTokenService(t, time.Hour, 24*time.Hour)

		accessToken, refreshToken, err := svc.GenerateAdminTokens(7)
		require.NoError(t, err)
		require.NotEmpty(t, accessToken)
		require.NotEmpty(t, refreshToken)
		assert.NotEqual(t, accessToken, refreshToken)

		claims, err := svc.ValidateAdminToken(accessToken)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.AdminID)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEmpty(t, claims.TokenID)
		assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))

		refreshClaims, err := svc.ValidateAdminToken(refreshToken)
		require.NoError(t, err)
		assert.Equal(t, "refresh", refreshClaims.TokenType)
	})

	t.Run("GarbageTokenRejected", func(t *testing.T) {
		svc := newTestTokenService(t, time.Hour, 24*time.Hour)

		_, err := svc.ValidateAdminToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("TamperedSignatureRejected", func(t *testing.T) {
		svc := newTestTokenService(t, time.Hour, 24*time.Hour)
		other := newTestTokenService(t, time.Hour, 24*time.Hour)

		accessToken, _, err := svc.GenerateAdminTokens(7)
		require.NoError(t, err)

		// A token signed with a different secret must not validate
		otherSvc, err := NewTokenService(time.Hour, 24*time.Hour, "lantern-test", "lantern-admin", false, "", "", "a-completely-different-secret-key!")
		require.NoError(t, err)
		_, err = otherSvc.ValidateAdminToken(accessToken)
		assert.ErrorIs(t, err, ErrTokenInvalid)

		_, err = other.ValidateAdminToken(accessToken)
		assert.NoError(t, err)
	})

	t.Run("ExpiredTokenRejected", func(t *testing.T) {
		svc := newTestTokenService(t, -time.Minute, -time.Minute)

		accessToken, _, err := svc.GenerateAdminTokens(7)
		require.NoError(t, err)

		_, err = svc.ValidateAdminToken(accessToken)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("RefreshRotatesTokens", func(t *testing.T) {
		svc := newTestTokenService(t, time.Hour, 24*time.Hour)

		_, refreshToken, err := svc.GenerateAdminTokens(7)
		require.NoError(t, err)

		newAccess, newRefresh, err := svc.RefreshAdminToken(refreshToken)
		require.NoError(t, err)
		require.NotEmpty(t, newAccess)
		require.NotEmpty(t, newRefresh)

		claims, err := svc.ValidateAdminToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.AdminID)
		assert.Equal(t, "access", claims.TokenType)
	})

	t.Run("AccessTokenCannotRefresh", func(t *testing.T) {
		svc := newTestTokenService(t, time.Hour, 24*time.Hour)

		accessToken, _, err := svc.GenerateAdminTokens(7)
		require.NoError(t, err)

		_, _, err = svc.RefreshAdminToken(accessToken)
		assert.Error(t, err)
	})
}
