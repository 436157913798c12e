package models

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure conditions
var (
	ErrNotFound       = errors.New("resource not found")
	ErrConflict       = errors.New("resource already exists")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrBadRequest     = errors.New("bad request")
	ErrInternalServer = errors.New("internal server error")

	// Form validation
	ErrMissingRequiredField = errors.New("please fill in all required fields")
	ErrPasswordMismatch     = errors.New("passwords do not match")
	ErrInvalidPhoneFormat   = errors.New("please enter a valid Nigerian phone number")
	ErrInvalidPIN           = errors.New("PIN must be exactly 4 digits")
	ErrPINMismatch          = errors.New("PINs do not match")

	// Verification
	ErrIncompleteCode      = errors.New("verification code is incomplete")
	ErrInvalidDigit        = errors.New("code slots accept a single digit")
	ErrInvalidOTP          = errors.New("invalid verification code")
	ErrResendNotYetAllowed = errors.New("resend is not yet allowed")
	ErrNotYetVerified      = errors.New("email not verified yet")
	ErrEmailNotSent        = errors.New("verification email has not been sent yet")
	ErrOperationInProgress = errors.New("operation already in progress")

	// Permissions
	ErrUnknownPermission = errors.New("unknown permission")
	ErrPermissionDenied  = errors.New("permission denied")

	// Flow
	ErrInvalidTransition = errors.New("action not available on the current step")
	ErrStepClosed        = errors.New("step is no longer active")
	ErrInvalidSession    = errors.New("approval recorded without a session token")

	// ErrOperationFailure marks a failed transport or storage call. It is
	// always wrapped together with the underlying cause.
	ErrOperationFailure = errors.New("operation failed")
)

// ValidationError reports the first form rule that failed.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Err.Error())
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// OperationFailed wraps cause as an ErrOperationFailure for op.
func OperationFailed(op string, cause error) error {
	return fmt.Errorf("%w: %s: %w", ErrOperationFailure, op, cause)
}
