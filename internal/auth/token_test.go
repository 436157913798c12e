package auth

import (
	"testing"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "a-session-signing-key-for-tests-only"

var member = models.Params{Email: "johndoe@example.com", PhoneNumber: "08012345678"}

func TestGenerateSessionToken_RoundTrip(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)

	token, err := tm.GenerateSessionToken(member)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	claims, err := tm.ValidateSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "session", claims.Type)
	assert.Equal(t, member.PhoneNumber, claims.Subject)
	assert.Equal(t, member.Email, claims.Email)
	assert.NotEmpty(t, claims.ID)
}

func TestGenerateSessionToken_UniqueJTI(t *testing.T) {
	tm := NewTokenManager(testSecret, 0)

	first, err := tm.GenerateSessionToken(member)
	require.NoError(t, err)
	second, err := tm.GenerateSessionToken(member)
	require.NoError(t, err)

	c1, err := tm.ValidateSessionToken(first)
	require.NoError(t, err)
	c2, err := tm.ValidateSessionToken(second)
	require.NoError(t, err)
	assert.NotEqual(t, c1.ID, c2.ID)
	assert.Nil(t, c1.ExpiresAt)
}

func TestGenerateSessionToken_RequiresPhone(t *testing.T) {
	tm := NewTokenManager(testSecret, time.Hour)
	_, err := tm.GenerateSessionToken(models.Params{Email: "a@b.com"})
	assert.Error(t, err)
}

func TestValidateSessionToken_WrongSecret(t *testing.T) {
	token, err := NewTokenManager(testSecret, time.Hour).GenerateSessionToken(member)
	require.NoError(t, err)

	_, err = NewTokenManager("another-signing-key-entirely", time.Hour).ValidateSessionToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenSignatureInvalid)
}

func TestValidateSessionToken_Expired(t *testing.T) {
	clk := clock.Fake(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC))
	tm := NewTokenManager(testSecret, time.Hour).WithClock(clk)

	token, err := tm.GenerateSessionToken(member)
	require.NoError(t, err)

	clk.Advance(2 * time.Hour)
	_, err = tm.ValidateSessionToken(token)
	assert.ErrorIs(t, err, jwt.ErrTokenExpired)
}

func TestValidateSessionToken_WrongType(t *testing.T) {
	claims := &models.SessionClaims{Type: "access"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)

	_, err = NewTokenManager(testSecret, time.Hour).ValidateSessionToken(token)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected type")
}
