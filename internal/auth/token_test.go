package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-portal/internal/config"
)

func TestTokenRoundTrip(t *testing.T) {
	tm := NewTokenManager(config.AuthConfig{JWTSecret: "s3cret", Issuer: "idp.example.com", AccessTokenTTLMinutes: 15})

	token, expiresAt, err := tm.GenerateToken("u-hana", "hana@example.com")
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, 5*time.Second)

	claims, err := tm.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u-hana", claims.Subject)
	assert.Equal(t, "hana@example.com", claims.Email)
	assert.Equal(t, "idp.example.com", claims.Issuer)
}

func TestParseTokenRejects(t *testing.T) {
	tm := NewTokenManager(config.AuthConfig{JWTSecret: "s3cret", Issuer: "idp.example.com"})

	t.Run("other secret", func(t *testing.T) {
		other := NewTokenManager(config.AuthConfig{JWTSecret: "different", Issuer: "idp.example.com"})
		token, _, err := other.GenerateToken("u-hana", "")
		require.NoError(t, err)
		_, err = tm.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("other issuer", func(t *testing.T) {
		other := NewTokenManager(config.AuthConfig{JWTSecret: "s3cret", Issuer: "elsewhere"})
		token, _, err := other.GenerateToken("u-hana", "")
		require.NoError(t, err)
		_, err = tm.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("expired", func(t *testing.T) {
		past := NewTokenManager(config.AuthConfig{JWTSecret: "s3cret", Issuer: "idp.example.com", AccessTokenTTLMinutes: 1})
		past.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
		token, _, err := past.GenerateToken("u-hana", "")
		require.NoError(t, err)
		_, err = tm.ParseToken(token)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		_, err := tm.ParseToken("not-a-jwt")
		assert.Error(t, err)
	})

	t.Run("missing subject", func(t *testing.T) {
		_, _, err := tm.GenerateToken("", "")
		assert.Error(t, err)
	})
}
