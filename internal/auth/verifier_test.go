package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key"

func mintToken(t *testing.T, secret string, userID int64, expiresIn time.Duration) string {
	t.Helper()

	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return token
}

func TestVerifyValidToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := mintToken(t, testSecret, 42, time.Hour)

	claims, err := v.Verify(token)

	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
}

func TestVerifyExpiredToken(t *testing.T) {
	v := NewVerifier(testSecret)
	token := mintToken(t, testSecret, 42, -time.Minute)

	_, err := v.Verify(token)

	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestVerifyWrongSecret(t *testing.T) {
	v := NewVerifier(testSecret)
	token := mintToken(t, "some-other-secret", 42, time.Hour)

	_, err := v.Verify(token)

	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestVerifyGarbageToken(t *testing.T) {
	v := NewVerifier(testSecret)

	for _, token := range []string{"", "not-a-jwt", "a.b.c"} {
		_, err := v.Verify(token)
		assert.ErrorIs(t, err, ErrInvalidToken, "token %q", token)
	}
}

func TestVerifyRejectsUnsignedToken(t *testing.T) {
	v := NewVerifier(testSecret)

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: 42}).
		SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	_, err = v.Verify(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
