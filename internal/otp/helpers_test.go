package otp

import (
	"context"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/stretchr/testify/require"
)

// MockSender implements Sender for testing
type MockSender struct {
	SendOTPFunc   func(ctx context.Context, phone string) error
	VerifyOTPFunc func(ctx context.Context, phone, code string) (bool, error)

	mu          sync.Mutex
	verifyCodes []string
	sends       int
}

func (m *MockSender) SendOTP(ctx context.Context, phone string) error {
	m.mu.Lock()
	m.sends++
	m.mu.Unlock()
	if m.SendOTPFunc != nil {
		return m.SendOTPFunc(ctx, phone)
	}
	return nil
}

func (m *MockSender) VerifyOTP(ctx context.Context, phone, code string) (bool, error) {
	m.mu.Lock()
	m.verifyCodes = append(m.verifyCodes, code)
	m.mu.Unlock()
	if m.VerifyOTPFunc != nil {
		return m.VerifyOTPFunc(ctx, phone, code)
	}
	return true, nil
}

func (m *MockSender) VerifyCodes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.verifyCodes...)
}

func (m *MockSender) Sends() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends
}

var testParams = models.Params{Email: "johndoe@example.com", PhoneNumber: "08012345678"}

func newFakeClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

type harness struct {
	clock    *clock.FakeClock
	sender   *MockSender
	ctrl     *Controller
	verified chan models.Params
}

// newHarness opens a controller with zero latency so only the countdown
// registers timers on the fake clock.
func newHarness(t *testing.T, sender *MockSender) *harness {
	t.Helper()
	h := &harness{
		clock:    newFakeClock(),
		sender:   sender,
		verified: make(chan models.Params, 4),
	}
	h.ctrl = Open(context.Background(), Config{
		Sender: sender,
		Clock:  h.clock,
		Logger: slog.Default(),
	}, testParams, func(p models.Params) { h.verified <- p })
	t.Cleanup(h.ctrl.Close)
	return h
}

// tickSecond advances the countdown by one second and waits for the
// controller to observe it.
func (h *harness) tickSecond(t *testing.T) {
	t.Helper()
	before := h.ctrl.State().SecondsRemaining

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, h.clock.BlockUntil(ctx, 1))
	h.clock.Advance(time.Second)

	require.Eventually(t, func() bool {
		return h.ctrl.State().SecondsRemaining == before-1
	}, 2*time.Second, time.Millisecond)
}

func (h *harness) enterCode(t *testing.T, code string) error {
	t.Helper()
	var err error
	for i, r := range code {
		err = h.ctrl.EnterDigit(context.Background(), i, string(r))
		if i < len(code)-1 {
			require.NoError(t, err)
		}
	}
	return err
}
