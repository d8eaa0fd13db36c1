package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/carelink/pkg/apperr"
	"github.com/platinummonkey/carelink/pkg/models"
)

func TestTokenManager_IssueAndParse(t *testing.T) {
	tm := NewTokenManager("secret", "carelink", 0)
	assert.Equal(t, 8*time.Hour, tm.TTL())

	token, expiresAt, err := tm.Issue(42, models.RoleUser)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(8*time.Hour), expiresAt, time.Minute)

	claims, err := tm.Parse(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.ID)
	assert.Equal(t, models.RoleUser, claims.Role)
	assert.Equal(t, "42", claims.Subject)
	assert.Equal(t, "carelink", claims.Issuer)
}

func TestTokenManager_Expired(t *testing.T) {
	tm := NewTokenManager("secret", "carelink", time.Hour)
	tm.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := tm.Issue(1, models.RoleUser)
	require.NoError(t, err)

	tm.now = time.Now
	_, err = tm.Parse(token)
	assert.True(t, errors.Is(err, apperr.ErrTokenExpired))
}

func TestTokenManager_WrongSecret(t *testing.T) {
	token, _, err := NewTokenManager("secret-a", "carelink", 0).Issue(1, models.RoleUser)
	require.NoError(t, err)

	_, err = NewTokenManager("secret-b", "carelink", 0).Parse(token)
	assert.True(t, errors.Is(err, apperr.ErrTokenInvalid))
}

func TestTokenManager_RejectsOtherAlgorithms(t *testing.T) {
	claims := Claims{
		ID:   0,
		Role: models.RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = NewTokenManager("secret", "carelink", 0).Parse(unsigned)
	assert.True(t, errors.Is(err, apperr.ErrTokenInvalid))
}

func TestTokenManager_Garbage(t *testing.T) {
	_, err := NewTokenManager("secret", "carelink", 0).Parse("not.a.token")
	assert.True(t, errors.Is(err, apperr.ErrTokenInvalid))
}

func TestTokenManager_UnknownRole(t *testing.T) {
	tm := NewTokenManager("secret", "carelink", 0)
	token, _, err := tm.Issue(3, models.Role("ROOT"))
	require.NoError(t, err)

	_, err = tm.Parse(token)
	assert.True(t, errors.Is(err, apperr.ErrTokenInvalid))
}
