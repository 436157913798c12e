package auth

import (
	pkgauth "github.com/BradenHooton/alumni-onboard/pkg/auth"
)

// PINHasher hashes the device PIN before it is written to the session
// store.
type PINHasher struct {
	cost int
}

// NewPINHasher returns a hasher using bcrypt at cost.
func NewPINHasher(cost int) *PINHasher {
	return &PINHasher{cost: cost}
}

func (h *PINHasher) Hash(pin string) (string, error) {
	return pkgauth.HashPassword(pin, h.cost)
}

// Matches reports whether pin produced hash.
func (h *PINHasher) Matches(hash, pin string) bool {
	return pkgauth.ComparePassword(hash, pin) == nil
}
