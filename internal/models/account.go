package models

import (
	"time"
)

// Account is a member registered with the verifier.
type Account struct {
	ID              string
	FirstName       string
	LastName        string
	Email           string
	PhoneNumber     string
	PasswordHash    string
	OTPSecret       string // base32 TOTP secret for phone codes
	PhoneVerifiedAt *time.Time
	EmailVerifiedAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (a *Account) PhoneVerified() bool { return a.PhoneVerifiedAt != nil }

func (a *Account) EmailVerified() bool { return a.EmailVerifiedAt != nil }
