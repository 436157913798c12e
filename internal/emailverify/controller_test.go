package emailverify

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// MockSender implements Sender for testing
type MockSender struct {
	SendVerificationEmailFunc func(ctx context.Context, email string) error
	CheckEmailVerifiedFunc    func(ctx context.Context, email string) (bool, error)

	mu     sync.Mutex
	sends  int
	checks int
}

func (m *MockSender) SendVerificationEmail(ctx context.Context, email string) error {
	m.mu.Lock()
	m.sends++
	m.mu.Unlock()
	if m.SendVerificationEmailFunc != nil {
		return m.SendVerificationEmailFunc(ctx, email)
	}
	return nil
}

func (m *MockSender) CheckEmailVerified(ctx context.Context, email string) (bool, error) {
	m.mu.Lock()
	m.checks++
	m.mu.Unlock()
	if m.CheckEmailVerifiedFunc != nil {
		return m.CheckEmailVerifiedFunc(ctx, email)
	}
	return true, nil
}

func (m *MockSender) counts() (sends, checks int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.sends, m.checks
}

var testParams = models.Params{Email: "johndoe@x.com", PhoneNumber: "08012345678"}

func newFakeClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

func open(t *testing.T, clk clock.Clock, delays Delays, sender Sender, onVerified func(models.Params)) *Controller {
	t.Helper()
	c := Open(context.Background(), Config{
		Sender: sender,
		Clock:  clk,
		Logger: slog.Default(),
		Delays: delays,
	}, testParams, onVerified)
	t.Cleanup(c.Close)
	return c
}

func TestOpen_SendsAfterDelay(t *testing.T) {
	clk := newFakeClock()
	sender := &MockSender{}
	c := open(t, clk, DefaultDelays(), sender, nil)

	assert.Equal(t, "j*****e@x.com", c.MaskedEmail())
	assert.Equal(t, testParams, c.Params())

	require.NoError(t, clk.BlockUntil(context.Background(), 1))
	assert.False(t, c.EmailSent())
	assert.ErrorIs(t, c.Check(context.Background()), models.ErrEmailNotSent)

	clk.Advance(1499 * time.Millisecond)
	assert.False(t, c.EmailSent())

	clk.Advance(time.Millisecond)
	require.NoError(t, <-c.InitialSend())
	<-c.SentC()
	assert.True(t, c.EmailSent())

	sends, checks := sender.counts()
	assert.Equal(t, 1, sends)
	assert.Equal(t, 0, checks)
}

func TestCheck_SuccessReportsCompletion(t *testing.T) {
	completed := make(chan models.Params, 1)
	c := open(t, newFakeClock(), Delays{}, &MockSender{}, func(p models.Params) { completed <- p })
	require.NoError(t, <-c.InitialSend())

	require.NoError(t, c.Check(context.Background()))
	assert.Equal(t, testParams, <-completed)
}

func TestCheck_NotYetVerified(t *testing.T) {
	sender := &MockSender{
		CheckEmailVerifiedFunc: func(ctx context.Context, email string) (bool, error) {
			return false, nil
		},
	}
	completed := make(chan models.Params, 1)
	c := open(t, newFakeClock(), Delays{}, sender, func(p models.Params) { completed <- p })
	require.NoError(t, <-c.InitialSend())

	assert.ErrorIs(t, c.Check(context.Background()), models.ErrNotYetVerified)
	assert.Empty(t, completed)
	assert.True(t, c.EmailSent())
}

func TestCheck_TransportFailure(t *testing.T) {
	boom := errors.New("mail api unavailable")
	sender := &MockSender{
		CheckEmailVerifiedFunc: func(ctx context.Context, email string) (bool, error) {
			return false, boom
		},
	}
	c := open(t, newFakeClock(), Delays{}, sender, nil)
	require.NoError(t, <-c.InitialSend())

	err := c.Check(context.Background())
	assert.ErrorIs(t, err, models.ErrOperationFailure)
	assert.ErrorIs(t, err, boom)
}

func TestInitialSendFailure_KeepsGateClosedUntilResend(t *testing.T) {
	var fail sync.Mutex
	failing := true
	sender := &MockSender{
		SendVerificationEmailFunc: func(ctx context.Context, email string) error {
			fail.Lock()
			defer fail.Unlock()
			if failing {
				return errors.New("smtp refused")
			}
			return nil
		},
	}
	c := open(t, newFakeClock(), Delays{}, sender, nil)

	err := <-c.InitialSend()
	assert.ErrorIs(t, err, models.ErrOperationFailure)
	assert.False(t, c.EmailSent())
	assert.ErrorIs(t, c.Check(context.Background()), models.ErrEmailNotSent)

	fail.Lock()
	failing = false
	fail.Unlock()

	require.NoError(t, c.Resend(context.Background()))
	assert.True(t, c.EmailSent())
	require.NoError(t, c.Check(context.Background()))
}

func TestResend_FailureDoesNotCloseGate(t *testing.T) {
	calls := 0
	var mu sync.Mutex
	sender := &MockSender{
		SendVerificationEmailFunc: func(ctx context.Context, email string) error {
			mu.Lock()
			defer mu.Unlock()
			calls++
			if calls > 1 {
				return errors.New("quota exceeded")
			}
			return nil
		},
	}
	c := open(t, newFakeClock(), Delays{}, sender, nil)
	require.NoError(t, <-c.InitialSend())

	err := c.Resend(context.Background())
	assert.ErrorIs(t, err, models.ErrOperationFailure)
	assert.True(t, c.EmailSent())
}

func TestResend_WaitsForLatency(t *testing.T) {
	clk := newFakeClock()
	sender := &MockSender{}
	c := open(t, clk, Delays{Resend: time.Second}, sender, nil)
	require.NoError(t, <-c.InitialSend())

	done := make(chan error, 1)
	go func() { done <- c.Resend(context.Background()) }()

	require.NoError(t, clk.BlockUntil(context.Background(), 1))
	assert.ErrorIs(t, c.Resend(context.Background()), models.ErrOperationInProgress)

	clk.Advance(time.Second)
	require.NoError(t, <-done)
	sends, _ := sender.counts()
	assert.Equal(t, 2, sends)
}

func TestClose_SuppressesPendingCheck(t *testing.T) {
	clk := newFakeClock()
	sender := &MockSender{}
	completed := make(chan models.Params, 1)
	c := open(t, clk, Delays{Check: 1500 * time.Millisecond}, sender, func(p models.Params) { completed <- p })
	require.NoError(t, <-c.InitialSend())

	done := make(chan error, 1)
	go func() { done <- c.Check(context.Background()) }()

	require.NoError(t, clk.BlockUntil(context.Background(), 1))
	c.Close()

	assert.ErrorIs(t, <-done, models.ErrStepClosed)
	assert.Empty(t, completed)
	_, checks := sender.counts()
	assert.Equal(t, 0, checks)
}

func TestClose_CancelsInitialSend(t *testing.T) {
	clk := newFakeClock()
	sender := &MockSender{}
	c := open(t, clk, DefaultDelays(), sender, nil)

	require.NoError(t, clk.BlockUntil(context.Background(), 1))
	c.Close()

	assert.ErrorIs(t, <-c.InitialSend(), context.Canceled)
	assert.False(t, c.EmailSent())
	sends, _ := sender.counts()
	assert.Equal(t, 0, sends)
}
