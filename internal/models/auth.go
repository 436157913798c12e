package models

import "github.com/golang-jwt/jwt/v5"

// AuthForm holds the fields entered on the Auth step. Which of them are
// required depends on the AuthMode.
type AuthForm struct {
	FirstName       string `json:"first_name,omitempty"`
	LastName        string `json:"last_name,omitempty"`
	Email           string `json:"email"`
	PhoneNumber     string `json:"phone_number"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"-"`
}

// Params returns the values carried forward into verification steps.
func (f AuthForm) Params() Params {
	return Params{Email: f.Email, PhoneNumber: f.PhoneNumber}
}

// SessionClaims are carried by the session token written at PIN setup.
type SessionClaims struct {
	Type  string `json:"type"`
	Email string `json:"email,omitempty"`
	jwt.RegisteredClaims
}
