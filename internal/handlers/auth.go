package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/BradenHooton/alumni-onboard/internal/services"
	"github.com/BradenHooton/alumni-onboard/internal/transport"
	pkghttp "github.com/BradenHooton/alumni-onboard/pkg/http"
)

// AccountServiceInterface defines the interface for account business logic
type AccountServiceInterface interface {
	Signup(ctx context.Context, in services.SignupInput) (*models.Account, error)
	Login(ctx context.Context, email, phone, password string) (*models.Account, error)
}

// AccountResponse is returned by signup and login.
type AccountResponse struct {
	AccountID     string `json:"account_id"`
	PhoneVerified bool   `json:"phone_verified"`
	EmailVerified bool   `json:"email_verified"`
}

func newAccountResponse(a *models.Account) AccountResponse {
	return AccountResponse{
		AccountID:     a.ID,
		PhoneVerified: a.PhoneVerified(),
		EmailVerified: a.EmailVerified(),
	}
}

// AuthHandler handles credential submissions from the onboarding client
type AuthHandler struct {
	service AccountServiceInterface
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(service AccountServiceInterface) *AuthHandler {
	return &AuthHandler{service: service}
}

// Signup registers a member and texts the first code
// @Router /v1/auth/signup [post]
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req transport.SignupRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	account, err := h.service.Signup(r.Context(), services.SignupInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Password:    req.Password,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, newAccountResponse(account))
}

// Login checks a member's credentials
// @Router /v1/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req transport.LoginRequest
	if !decodeRequest(w, r, &req) {
		return
	}

	account, err := h.service.Login(r.Context(), req.Email, req.PhoneNumber, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, newAccountResponse(account))
}

// writeServiceError maps service errors onto HTTP responses. The client
// relies on 401, 409 and 429 carrying their meaning.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		pkghttp.WriteUnauthorized(w, "Authentication failed")
	case errors.Is(err, models.ErrConflict):
		pkghttp.WriteConflict(w, "An account with this email or phone number already exists")
	case errors.Is(err, models.ErrResendNotYetAllowed):
		pkghttp.WriteTooManyRequests(w, "Please wait before requesting another code")
	case errors.Is(err, models.ErrOperationFailure):
		pkghttp.WriteDeliveryFailed(w, "The message could not be delivered. Please try again.")
	default:
		pkghttp.WriteInternalError(w, "Internal server error")
	}
}
