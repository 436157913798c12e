package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/BradenHooton/alumni-onboard/internal/services"
	pkghttp "github.com/BradenHooton/alumni-onboard/pkg/http"
	"github.com/stretchr/testify/assert"
)

// NewTestRequest creates an HTTP request with JSON body for testing
func NewTestRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("failed to encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, url, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

// AssertJSONResponse checks that response has correct status and decodes JSON body
func AssertJSONResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, target interface{}) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	contentType := w.Header().Get("Content-Type")
	assert.Equal(t, "application/json", contentType, "Content-Type should be application/json")

	if target != nil {
		err := json.Unmarshal(w.Body.Bytes(), target)
		assert.NoError(t, err, "Failed to decode response JSON")
	}
}

// AssertErrorResponse checks that response is a valid error response
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")

	var resp pkghttp.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &resp)
	assert.NoError(t, err, "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error, "Error code mismatch")
	assert.NotEmpty(t, resp.Message, "Error message should not be empty")
}

// MockAccountService implements AccountServiceInterface for testing
type MockAccountService struct {
	SignupFunc func(ctx context.Context, in services.SignupInput) (*models.Account, error)
	LoginFunc  func(ctx context.Context, email, phone, password string) (*models.Account, error)
}

func (m *MockAccountService) Signup(ctx context.Context, in services.SignupInput) (*models.Account, error) {
	if m.SignupFunc != nil {
		return m.SignupFunc(ctx, in)
	}
	return &models.Account{ID: "acct_1"}, nil
}

func (m *MockAccountService) Login(ctx context.Context, email, phone, password string) (*models.Account, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, email, phone, password)
	}
	return nil, models.ErrUnauthorized
}

// MockOTPService implements OTPServiceInterface for testing
type MockOTPService struct {
	SendCodeFunc   func(ctx context.Context, phone string) error
	VerifyCodeFunc func(ctx context.Context, phone, code string) (bool, error)
}

func (m *MockOTPService) SendCode(ctx context.Context, phone string) error {
	if m.SendCodeFunc != nil {
		return m.SendCodeFunc(ctx, phone)
	}
	return nil
}

func (m *MockOTPService) VerifyCode(ctx context.Context, phone, code string) (bool, error) {
	if m.VerifyCodeFunc != nil {
		return m.VerifyCodeFunc(ctx, phone, code)
	}
	return false, nil
}

// MockEmailVerificationService implements EmailVerificationServiceInterface for testing
type MockEmailVerificationService struct {
	SendVerificationEmailFunc func(ctx context.Context, email string) error
	VerifyEmailFunc           func(ctx context.Context, plainToken string) (string, error)
	StatusFunc                func(ctx context.Context, email string) (bool, error)
}

func (m *MockEmailVerificationService) SendVerificationEmail(ctx context.Context, email string) error {
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email)
	}
	return nil
}

func (m *MockEmailVerificationService) VerifyEmail(ctx context.Context, plainToken string) (string, error) {
	if m.VerifyEmailFunc != nil {
		return m.VerifyEmailFunc(ctx, plainToken)
	}
	return "", models.ErrUnauthorized
}

func (m *MockEmailVerificationService) Status(ctx context.Context, email string) (bool, error) {
	if m.StatusFunc != nil {
		return m.StatusFunc(ctx, email)
	}
	return false, nil
}
