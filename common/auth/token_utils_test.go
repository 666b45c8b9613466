package auth_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shopswift/storefront/common/auth"
)

func TestParseAndValidateToken(t *testing.T) {
	v := auth.NewTokenVerifier("test-secret")
	token, err := v.SignAccessToken(jwt.MapClaims{
		"sub":  "user-1",
		"role": "admin",
		"typ":  "access",
		"exp":  time.Now().Add(time.Hour).Unix(),
	})
	require.NoError(t, err)

	claims, err := v.ParseAndValidateToken(token, "access")
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "admin", claims.Role)
}

func TestParseAndValidateToken_Rejects(t *testing.T) {
	v := auth.NewTokenVerifier("test-secret")

	expired, _ := v.SignAccessToken(jwt.MapClaims{"sub": "user-1", "exp": time.Now().Add(-time.Minute).Unix()})
	_, err := v.ParseAndValidateToken(expired, "")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	other := auth.NewTokenVerifier("other-secret")
	foreign, _ := other.SignAccessToken(jwt.MapClaims{"sub": "user-1"})
	_, err = v.ParseAndValidateToken(foreign, "")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)

	refresh, _ := v.SignAccessToken(jwt.MapClaims{"sub": "user-1", "typ": "refresh"})
	_, err = v.ParseAndValidateToken(refresh, "access")
	assert.Error(t, err)

	noSubject, _ := v.SignAccessToken(jwt.MapClaims{"role": "admin"})
	_, err = v.ParseAndValidateToken(noSubject, "")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}
