package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenRoundTrip(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tm := NewTokenManager("secret", "").WithClock(func() time.Time { return now })

	tok, exp, err := tm.GenerateToken("user-1", "u@example.com", 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, now.Add(15*time.Minute).Unix(), exp.Unix())

	claims, err := tm.ValidateToken(tok)
	require.NoError(t, err)
	assert.Equal(t, "user-1", claims.UserID)
	assert.Equal(t, "u@example.com", claims.Email)
	assert.Equal(t, "okrboard", claims.Issuer)
	assert.NotEmpty(t, claims.ID)
}

func TestValidateToken_Rejects(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	tm := NewTokenManager("secret", "okrboard").WithClock(func() time.Time { return now })
	tok, _, err := tm.GenerateToken("user-1", "u@example.com", time.Minute)
	require.NoError(t, err)

	_, err = NewTokenManager("other", "okrboard").WithClock(func() time.Time { return now }).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong secret")

	_, err = NewTokenManager("secret", "someone-else").WithClock(func() time.Time { return now }).ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong issuer")

	later := NewTokenManager("secret", "okrboard").WithClock(func() time.Time { return now.Add(2 * time.Minute) })
	_, err = later.ValidateToken(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)

	none := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{UserID: "user-1"})
	unsigned, err := none.SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	_, err = tm.ValidateToken(unsigned)
	assert.ErrorIs(t, err, ErrInvalidToken, "alg none")
}

func TestGenerateToken_RequiresUser(t *testing.T) {
	_, _, err := NewTokenManager("s", "").GenerateToken("", "x@example.com", time.Minute)
	assert.Error(t, err)
}

func TestExtractToken(t *testing.T) {
	tok, err := ExtractToken("Bearer abc.def")
	require.NoError(t, err)
	assert.Equal(t, "abc.def", tok)

	tok, err = ExtractToken("bearer  abc")
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	_, err = ExtractToken("")
	assert.ErrorIs(t, err, ErrMissingToken)
	_, err = ExtractToken("Basic abc")
	assert.ErrorIs(t, err, ErrInvalidAuthHeader)
	_, err = ExtractToken("Bearer")
	assert.ErrorIs(t, err, ErrInvalidAuthHeader)
}

func TestPasswordHashing(t *testing.T) {
	_, err := HashPassword("short")
	assert.ErrorIs(t, err, ErrWeakPassword)

	hash, err := HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, CheckPassword(hash, "correct horse"))
	assert.False(t, CheckPassword(hash, "wrong horse"))
	assert.False(t, CheckPassword("not-a-hash", "correct horse"))
}
