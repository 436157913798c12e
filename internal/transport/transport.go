// Package transport provides the verification operations the onboarding
// steps consume: credential submission, OTP delivery, email verification
// and device permission grants.
package transport

import (
	"context"

	"github.com/BradenHooton/alumni-onboard/internal/emailverify"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/BradenHooton/alumni-onboard/internal/otp"
	"github.com/BradenHooton/alumni-onboard/internal/permissions"
)

// CredentialSubmitter sends the Auth step form to the membership backend.
type CredentialSubmitter interface {
	SubmitCredentials(ctx context.Context, mode models.AuthMode, form models.AuthForm) error
}

// Verifier is everything the flow needs from the membership backend.
type Verifier interface {
	CredentialSubmitter
	otp.Sender
	emailverify.Sender
}

// Transport adds device permission grants to a Verifier.
type Transport interface {
	Verifier
	permissions.Granter
}

type combined struct {
	Verifier
	permissions.Granter
}

// Combine joins a backend Verifier with a permission Granter.
func Combine(v Verifier, g permissions.Granter) Transport {
	return combined{Verifier: v, Granter: g}
}
