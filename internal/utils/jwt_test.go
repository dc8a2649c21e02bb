package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/performance-reporting/internal/model"
)

func TestNewAccessTokenClaims(t *testing.T) {
	p := model.Principal{
		UserID:       42,
		Role:         model.RoleDRI,
		Home:         model.Assignment{Kind: model.KindDRI, Code: "R1"},
		IsSuperAdmin: false,
	}
	at, err := NewAccessToken("secret", p, "sess-1", 15)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().UTC().Add(15*time.Minute), at.Exp, 2*time.Second)

	parsed, err := jwt.Parse(at.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)

	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, float64(42), claims["sub"])
	assert.Equal(t, model.RoleDRI, claims["role"])
	assert.Equal(t, "DRI", claims["kind"])
	assert.Equal(t, "R1", claims["code"])
	assert.Equal(t, false, claims["super"])
	assert.Equal(t, "sess-1", claims["sid"])
}

func TestAccessTokenWrongSecretRejected(t *testing.T) {
	at, err := NewAccessToken("secret", model.Principal{UserID: 1}, "s", 15)
	require.NoError(t, err)

	_, err = jwt.Parse(at.Token, func(*jwt.Token) (interface{}, error) {
		return []byte("other"), nil
	})
	assert.Error(t, err)
}

func TestNewRefreshToken(t *testing.T) {
	rt, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.Len(t, rt.Raw, 96)
	assert.WithinDuration(t, time.Now().UTC().Add(7*24*time.Hour), rt.Exp, 2*time.Second)

	rt2, err := NewRefreshToken(7)
	require.NoError(t, err)
	assert.NotEqual(t, rt.Raw, rt2.Raw)
}

func TestHashRefreshRaw(t *testing.T) {
	h := HashRefreshRaw("token")
	assert.Len(t, h, 64)
	assert.Equal(t, h, HashRefreshRaw("token"), "hashing is deterministic")
	assert.NotEqual(t, h, HashRefreshRaw("other"))
	assert.NotContains(t, h, "token")
}

func TestPasswordHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("s3cret!", 4)
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret!", hash)
	assert.True(t, VerifyPassword(hash, "s3cret!"))
	assert.False(t, VerifyPassword(hash, "wrong"))
}
