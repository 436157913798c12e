package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/BradenHooton/alumni-onboard/internal/transport"
	pkghttp "github.com/BradenHooton/alumni-onboard/pkg/http"
)

// OTPServiceInterface defines the interface for phone code business logic
type OTPServiceInterface interface {
	SendCode(ctx context.Context, phone string) error
	VerifyCode(ctx context.Context, phone, code string) (bool, error)
}

// EmailVerificationServiceInterface defines the interface for email verification
type EmailVerificationServiceInterface interface {
	SendVerificationEmail(ctx context.Context, email string) error
	VerifyEmail(ctx context.Context, plainToken string) (string, error)
	Status(ctx context.Context, email string) (bool, error)
}

// VerificationHandler serves the phone and email verification endpoints
type VerificationHandler struct {
	otp   OTPServiceInterface
	email EmailVerificationServiceInterface
}

// NewVerificationHandler creates a new VerificationHandler
func NewVerificationHandler(otp OTPServiceInterface, email EmailVerificationServiceInterface) *VerificationHandler {
	return &VerificationHandler{otp: otp, email: email}
}

// SendOTP texts a code to the phone. Unknown numbers get the same 202.
// @Router /v1/otp/send [post]
func (h *VerificationHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req transport.PhoneRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.otp.SendCode(r.Context(), req.PhoneNumber); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If the number is registered, a code is on its way.",
	})
}

// VerifyOTP checks a 6-digit code
// @Router /v1/otp/verify [post]
func (h *VerificationHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req transport.VerifyOTPRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	ok, err := h.otp.VerifyCode(r.Context(), req.PhoneNumber, req.Code)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, transport.VerifiedResponse{Verified: ok})
}

// SendEmail mails a fresh verification link
// @Router /v1/email/send [post]
func (h *VerificationHandler) SendEmail(w http.ResponseWriter, r *http.Request) {
	var req transport.EmailRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	if err := h.email.SendVerificationEmail(r.Context(), req.Email); err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusAccepted, map[string]string{
		"message": "If an account exists with this email, a verification email will be sent.",
	})
}

// EmailStatus reports whether the address has been confirmed
// @Router /v1/email/status [post]
func (h *VerificationHandler) EmailStatus(w http.ResponseWriter, r *http.Request) {
	var req transport.EmailRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	verified, err := h.email.Status(r.Context(), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, transport.VerifiedResponse{Verified: verified})
}

// ConfirmEmail is the target of the emailed link
// @Router /v1/email/verify [get]
func (h *VerificationHandler) ConfirmEmail(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		pkghttp.WriteBadRequest(w, "Missing verification token")
		return
	}

	if _, err := h.email.VerifyEmail(r.Context(), token); err != nil {
		if errors.Is(err, models.ErrUnauthorized) {
			pkghttp.WriteUnauthorized(w, "Invalid or expired verification link")
			return
		}
		pkghttp.WriteInternalError(w, "Internal server error")
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]string{
		"message": "Email verified. Return to the app to continue.",
	})
}
