package jwt

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAccessTokenRoundtrip(t *testing.T) {
	manager := NewManager("unit-test-secret", time.Hour)
	tokenID := uuid.NewString()

	token, err := manager.GenerateAccessToken("user-1", "user@example.com", "admin", tokenID)
	require.NoError(t, err)

	claims, err := manager.ValidateAccessToken(token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "admin", claims.Role)
	assert.Equal(t, "access", claims.Type)
	assert.Equal(t, tokenID, claims.ID)
}

func TestValidateRejects(t *testing.T) {
	manager := NewManager("unit-test-secret", time.Hour)

	t.Run("garbage token", func(t *testing.T) {
		_, err := manager.ValidateAccessToken("not.a.token")
		assert.Error(t, err)
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewManager("another-secret", time.Hour)
		token, err := other.GenerateAccessToken("user-1", "user@example.com", "user", uuid.NewString())
		require.NoError(t, err)

		_, err = manager.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("expired token", func(t *testing.T) {
		short := NewManager("unit-test-secret", time.Nanosecond)
		token, err := short.GenerateAccessToken("user-1", "user@example.com", "user", uuid.NewString())
		require.NoError(t, err)
		time.Sleep(5 * time.Millisecond)

		_, err = manager.ValidateAccessToken(token)
		assert.Error(t, err)
	})

	t.Run("non-access token type", func(t *testing.T) {
		claims := Claims{
			UserID: "user-1",
			Type:   "refresh",
			RegisteredClaims: gojwt.RegisteredClaims{
				ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
			},
		}
		raw := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
		token, err := raw.SignedString([]byte("unit-test-secret"))
		require.NoError(t, err)

		_, err = manager.ValidateAccessToken(token)
		assert.ErrorContains(t, err, "invalid token type")
	})
}
