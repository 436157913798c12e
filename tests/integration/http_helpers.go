package integration

import (
	"context"
	"io"
	"log/slog"
	"net/http/httptest"
	"regexp"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/BradenHooton/alumni-onboard/internal/auth"
	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/database"
	"github.com/BradenHooton/alumni-onboard/internal/handlers"
	"github.com/BradenHooton/alumni-onboard/internal/repositories"
	"github.com/BradenHooton/alumni-onboard/internal/routes"
	"github.com/BradenHooton/alumni-onboard/internal/services"
	"github.com/BradenHooton/alumni-onboard/internal/transport"
	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
)

var codePattern = regexp.MustCompile(`\b\d{6}\b`)

// SentEmail is one verification email captured by EmailCapture
type SentEmail struct {
	To        string
	Token     string
	ExpiresAt time.Time
}

// EmailCapture implements services.EmailService by recording every email
type EmailCapture struct {
	mu     sync.Mutex
	emails []SentEmail
}

func (m *EmailCapture) SendVerificationEmail(ctx context.Context, email, token string, expiresAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emails = append(m.emails, SentEmail{To: email, Token: token, ExpiresAt: expiresAt})
	return nil
}

// GetLastEmail returns the most recent email, or nil if none was sent
func (m *EmailCapture) GetLastEmail() *SentEmail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.emails) == 0 {
		return nil
	}
	last := m.emails[len(m.emails)-1]
	return &last
}

// TestServer runs the verifier over a real database with captured
// delivery channels and a fake clock.
type TestServer struct {
	Server   *httptest.Server
	Client   *transport.HTTPClient
	Clock    *clock.FakeClock
	SMS      *services.MockSMSSender
	Emails   *EmailCapture
	Accounts *repositories.AccountRepository
	Tokens   *repositories.EmailVerificationRepository
	Email    *services.EmailVerificationService
}

// NewTestServer wires the verifier the way cmd/verifier does, minus the
// real SMS and email providers.
func NewTestServer(db *database.DB) (*TestServer, error) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	auditLogger := pkglogger.NewAuditLogger(logger)
	clk := clock.Fake(time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC))

	accounts, tokens := InitializeRepositories(db)
	sms := &services.MockSMSSender{}
	emails := &EmailCapture{}

	otpService := services.NewOTPService(accounts, sms, clk, services.DefaultOTPConfig, logger, auditLogger)
	accountService := services.NewAccountService(accounts, otpService, auth.NewTimingDelay(auth.TimingConfig{}, clk), 4, logger, auditLogger)
	emailService := services.NewEmailVerificationService(tokens, accounts, emails, clk, 24*time.Hour, logger, auditLogger)

	router := chi.NewRouter()
	routes.RegisterRoutes(router,
		handlers.NewAuthHandler(accountService),
		handlers.NewVerificationHandler(otpService, emailService),
		nil,
	)
	server := httptest.NewServer(router)

	client, err := transport.NewHTTPClient(transport.HTTPConfig{BaseURL: server.URL, Logger: logger})
	if err != nil {
		server.Close()
		return nil, err
	}

	return &TestServer{
		Server:   server,
		Client:   client,
		Clock:    clk,
		SMS:      sms,
		Emails:   emails,
		Accounts: accounts,
		Tokens:   tokens,
		Email:    emailService,
	}, nil
}

// Close shuts down the test server
func (ts *TestServer) Close() {
	ts.Server.Close()
}

// LastCode extracts the code from the most recent text message
func (ts *TestServer) LastCode() string {
	sent := ts.SMS.Sent()
	if len(sent) == 0 {
		return ""
	}
	return codePattern.FindString(sent[len(sent)-1])
}
