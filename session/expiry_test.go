package session

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenExpiry(t *testing.T) {
	expiry := time.Now().Add(45 * time.Minute).Truncate(time.Second)
	token := makeAccessToken(t, expiry)

	got, err := TokenExpiry(token)
	require.NoError(t, err)
	assert.True(t, got.Equal(expiry), "got %v, want %v", got, expiry)
}

func TestTokenExpiry_NotAJWT(t *testing.T) {
	_, err := TokenExpiry("definitely-not-a-jwt")
	require.Error(t, err)
}

func TestTokenExpiry_MissingClaim(t *testing.T) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{"sub": "user-1"})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)

	_, err = TokenExpiry(signed)
	require.Error(t, err)
}
