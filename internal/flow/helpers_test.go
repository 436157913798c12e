package flow

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/auth"
	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/BradenHooton/alumni-onboard/internal/session"
	"github.com/BradenHooton/alumni-onboard/internal/transport"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// MockTransport implements transport.Transport for testing. Unset funcs
// behave like the simulated transport.
type MockTransport struct {
	SubmitCredentialsFunc     func(ctx context.Context, mode models.AuthMode, form models.AuthForm) error
	SendOTPFunc               func(ctx context.Context, phone string) error
	VerifyOTPFunc             func(ctx context.Context, phone, code string) (bool, error)
	SendVerificationEmailFunc func(ctx context.Context, email string) error
	CheckEmailVerifiedFunc    func(ctx context.Context, email string) (bool, error)
	GrantPermissionFunc       func(ctx context.Context, id models.PermissionID) (bool, error)

	mu    sync.Mutex
	calls []string
}

var _ transport.Transport = (*MockTransport)(nil)

func (m *MockTransport) record(name string) {
	m.mu.Lock()
	m.calls = append(m.calls, name)
	m.mu.Unlock()
}

func (m *MockTransport) Calls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

func (m *MockTransport) SubmitCredentials(ctx context.Context, mode models.AuthMode, form models.AuthForm) error {
	m.record("SubmitCredentials:" + string(mode))
	if m.SubmitCredentialsFunc != nil {
		return m.SubmitCredentialsFunc(ctx, mode, form)
	}
	return nil
}

func (m *MockTransport) SendOTP(ctx context.Context, phone string) error {
	m.record("SendOTP")
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, phone)
	}
	return nil
}

func (m *MockTransport) VerifyOTP(ctx context.Context, phone, code string) (bool, error) {
	m.record("VerifyOTP")
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, phone, code)
	}
	return true, nil
}

func (m *MockTransport) SendVerificationEmail(ctx context.Context, email string) error {
	m.record("SendVerificationEmail")
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email)
	}
	return nil
}

func (m *MockTransport) CheckEmailVerified(ctx context.Context, email string) (bool, error) {
	m.record("CheckEmailVerified")
	if m.CheckEmailVerifiedFunc != nil {
		return m.CheckEmailVerifiedFunc(ctx, email)
	}
	return true, nil
}

func (m *MockTransport) GrantPermission(ctx context.Context, id models.PermissionID) (bool, error) {
	m.record("GrantPermission")
	if m.GrantPermissionFunc != nil {
		return m.GrantPermissionFunc(ctx, id)
	}
	return true, nil
}

// recorder collects every destination handed to the navigator.
type recorder struct {
	mu    sync.Mutex
	dests []models.Destination
}

func (r *recorder) Navigate(dest models.Destination) {
	r.mu.Lock()
	r.dests = append(r.dests, dest)
	r.mu.Unlock()
}

func (r *recorder) Steps() []models.Step {
	r.mu.Lock()
	defer r.mu.Unlock()
	steps := make([]models.Step, len(r.dests))
	for i, d := range r.dests {
		steps[i] = d.Step
	}
	return steps
}

func (r *recorder) Last() models.Destination {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.dests[len(r.dests)-1]
}

var signupForm = models.AuthForm{
	FirstName:       "Ada",
	LastName:        "Obi",
	Email:           "johndoe@x.com",
	PhoneNumber:     "08012345678",
	Password:        "correct horse",
	ConfirmPassword: "correct horse",
}

var loginForm = models.AuthForm{
	Email:       "johndoe@x.com",
	PhoneNumber: "+2348012345678",
	Password:    "correct horse",
}

type fixture struct {
	store     session.Store
	transport *MockTransport
	nav       *recorder
	clock     *clock.FakeClock
	tokens    *auth.TokenManager
}

func newFixture() *fixture {
	return &fixture{
		store:     session.NewMemoryStore(),
		transport: &MockTransport{},
		nav:       &recorder{},
		clock:     clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)),
		tokens:    auth.NewTokenManager("flow-test-signing-key-0123456789", 0),
	}
}

func (f *fixture) deps() Deps {
	return Deps{
		Store:     f.store,
		Transport: f.transport,
		Tokens:    f.tokens,
		PINs:      auth.NewPINHasher(bcrypt.MinCost),
		Navigator: f.nav,
		Clock:     f.clock,
		Logger:    slog.Default(),
	}
}

func (f *fixture) start(t *testing.T, policy Policy) *Controller {
	t.Helper()
	c, err := New(context.Background(), f.deps(), policy)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

// toOTP drives a fresh controller from Landing through a valid signup.
func toOTP(t *testing.T, c *Controller) {
	t.Helper()
	require.NoError(t, c.ChooseSignup())
	require.NoError(t, c.SubmitAuth(context.Background(), signupForm))
	require.Equal(t, models.StepOTP, c.Current().Step)
}

func toEmail(t *testing.T, c *Controller) {
	t.Helper()
	toOTP(t, c)
	step, err := c.OTP()
	require.NoError(t, err)
	for i, d := range "123456" {
		require.NoError(t, step.EnterDigit(context.Background(), i, string(d)))
	}
	require.Equal(t, models.StepEmailVerification, c.Current().Step)
}

func toPinSetup(t *testing.T, c *Controller) {
	t.Helper()
	toEmail(t, c)
	step, err := c.Email()
	require.NoError(t, err)
	require.NoError(t, <-step.InitialSend())
	require.NoError(t, step.Check(context.Background()))
	require.Equal(t, models.StepPinSetup, c.Current().Step)
}
