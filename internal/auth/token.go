package auth

import (
	"fmt"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const sessionTokenType = "session"

// TokenManager issues and validates the session token stored on the
// device once PIN setup completes.
type TokenManager struct {
	secret string
	expiry time.Duration
	clock  clock.Clock
}

// NewTokenManager creates a new TokenManager. A zero expiry issues
// tokens without an expiry claim.
func NewTokenManager(secret string, expiry time.Duration) *TokenManager {
	return &TokenManager{
		secret: secret,
		expiry: expiry,
		clock:  clock.Real(),
	}
}

// WithClock returns a copy of tm that reads time from clk.
func (tm *TokenManager) WithClock(clk clock.Clock) *TokenManager {
	cp := *tm
	cp.clock = clk
	return &cp
}

// GenerateSessionToken creates a signed session token for the member
// identified by phone.
func (tm *TokenManager) GenerateSessionToken(params models.Params) (string, error) {
	if params.PhoneNumber == "" {
		return "", fmt.Errorf("session token requires a phone number")
	}

	now := tm.clock.Now()
	claims := &models.SessionClaims{
		Type:  sessionTokenType,
		Email: params.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.New().String(),
			Subject:   params.PhoneNumber,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}
	if tm.expiry > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(tm.expiry))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(tm.secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign session token: %w", err)
	}
	return tokenString, nil
}

// ValidateSessionToken verifies a token and returns its claims
func (tm *TokenManager) ValidateSessionToken(tokenString string) (*models.SessionClaims, error) {
	claims := &models.SessionClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(tm.secret), nil
	}, jwt.WithTimeFunc(tm.clock.Now))
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	if !token.Valid {
		return nil, models.ErrUnauthorized
	}
	if claims.Type != sessionTokenType {
		return nil, fmt.Errorf("invalid token: unexpected type %q", claims.Type)
	}

	return claims, nil
}
