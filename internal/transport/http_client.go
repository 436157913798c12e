package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/models"
)

const defaultHTTPTimeout = 10 * time.Second

// Request and response bodies shared with the verifier service.
type (
	SignupRequest struct {
		FirstName   string `json:"first_name" validate:"required"`
		LastName    string `json:"last_name" validate:"required"`
		Email       string `json:"email" validate:"required,email"`
		PhoneNumber string `json:"phone_number" validate:"required,ngphone"`
		Password    string `json:"password" validate:"required,max=72"`
	}

	LoginRequest struct {
		Email       string `json:"email" validate:"required"`
		PhoneNumber string `json:"phone_number" validate:"required,ngphone"`
		Password    string `json:"password" validate:"required"`
	}

	PhoneRequest struct {
		PhoneNumber string `json:"phone_number" validate:"required,ngphone"`
	}

	VerifyOTPRequest struct {
		PhoneNumber string `json:"phone_number" validate:"required,ngphone"`
		Code        string `json:"code" validate:"required,len=6,numeric"`
	}

	EmailRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	VerifiedResponse struct {
		Verified bool `json:"verified"`
	}

	errorResponse struct {
		Error   string `json:"error"`
		Message string `json:"message"`
	}
)

// StatusError is returned for any non-2xx verifier response.
type StatusError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("verifier returned %d: %s", e.StatusCode, e.Message)
	}
	return fmt.Sprintf("verifier returned %d", e.StatusCode)
}

// Unwrap maps authentication failures onto ErrUnauthorized.
func (e *StatusError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return models.ErrUnauthorized
	case http.StatusConflict:
		return models.ErrConflict
	case http.StatusTooManyRequests:
		return models.ErrResendNotYetAllowed
	}
	return nil
}

// HTTPConfig holds configuration for creating an HTTPClient.
type HTTPConfig struct {
	// BaseURL is the verifier root, e.g. "http://localhost:8081".
	BaseURL string

	// HTTPClient defaults to a client with a 10 second timeout.
	HTTPClient *http.Client

	Logger *slog.Logger
}

// HTTPClient talks JSON to the verifier service.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a Verifier backed by the verifier service.
func NewHTTPClient(cfg HTTPConfig) (*HTTPClient, error) {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("transport: verifier URL must be http or https (got %q)", cfg.BaseURL)
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &HTTPClient{baseURL: baseURL, httpClient: httpClient, logger: logger}, nil
}

func (c *HTTPClient) SubmitCredentials(ctx context.Context, mode models.AuthMode, form models.AuthForm) error {
	if mode == models.AuthModeSignup {
		return c.post(ctx, "/v1/auth/signup", SignupRequest{
			FirstName:   form.FirstName,
			LastName:    form.LastName,
			Email:       form.Email,
			PhoneNumber: form.PhoneNumber,
			Password:    form.Password,
		}, nil)
	}
	return c.post(ctx, "/v1/auth/login", LoginRequest{
		Email:       form.Email,
		PhoneNumber: form.PhoneNumber,
		Password:    form.Password,
	}, nil)
}

func (c *HTTPClient) SendOTP(ctx context.Context, phone string) error {
	return c.post(ctx, "/v1/otp/send", PhoneRequest{PhoneNumber: phone}, nil)
}

func (c *HTTPClient) VerifyOTP(ctx context.Context, phone, code string) (bool, error) {
	var resp VerifiedResponse
	if err := c.post(ctx, "/v1/otp/verify", VerifyOTPRequest{PhoneNumber: phone, Code: code}, &resp); err != nil {
		return false, err
	}
	return resp.Verified, nil
}

func (c *HTTPClient) SendVerificationEmail(ctx context.Context, email string) error {
	return c.post(ctx, "/v1/email/send", EmailRequest{Email: email}, nil)
}

func (c *HTTPClient) CheckEmailVerified(ctx context.Context, email string) (bool, error) {
	var resp VerifiedResponse
	if err := c.post(ctx, "/v1/email/status", EmailRequest{Email: email}, &resp); err != nil {
		return false, err
	}
	return resp.Verified, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode %s request: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var errBody errorResponse
		if data, readErr := io.ReadAll(io.LimitReader(resp.Body, 1<<16)); readErr == nil && json.Unmarshal(data, &errBody) == nil {
			statusErr.Code = errBody.Error
			statusErr.Message = errBody.Message
		}
		c.logger.Warn("verifier request rejected",
			slog.String("path", path),
			slog.Int("status", resp.StatusCode),
			slog.String("error", statusErr.Code))
		return statusErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
