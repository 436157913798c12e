package otp

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// Entry and digit handling
// ============================================================================

func TestOpen_InitialState(t *testing.T) {
	h := newHarness(t, &MockSender{})
	state := h.ctrl.State()

	assert.Equal(t, [models.OTPCodeLength]string{}, state.Digits)
	assert.Equal(t, 0, state.Focus)
	assert.Equal(t, ResendCooldownSeconds, state.SecondsRemaining)
	assert.False(t, state.ResendAllowed)
	assert.False(t, state.Verifying)
	assert.Equal(t, testParams, h.ctrl.Params())
}

func TestEnterDigit_AdvancesFocus(t *testing.T) {
	h := newHarness(t, &MockSender{})

	require.NoError(t, h.ctrl.EnterDigit(context.Background(), 0, "4"))
	assert.Equal(t, 1, h.ctrl.State().Focus)

	require.NoError(t, h.ctrl.EnterDigit(context.Background(), 4, "2"))
	assert.Equal(t, 5, h.ctrl.State().Focus)
	assert.Equal(t, "4", h.ctrl.State().Digits[0])
	assert.Equal(t, "2", h.ctrl.State().Digits[4])
}

func TestEnterDigit_RejectsInvalidInput(t *testing.T) {
	h := newHarness(t, &MockSender{})

	assert.ErrorIs(t, h.ctrl.EnterDigit(context.Background(), 0, "a"), models.ErrInvalidDigit)
	assert.ErrorIs(t, h.ctrl.EnterDigit(context.Background(), 0, "12"), models.ErrInvalidDigit)
	assert.ErrorIs(t, h.ctrl.EnterDigit(context.Background(), 6, "1"), models.ErrInvalidDigit)
	assert.ErrorIs(t, h.ctrl.EnterDigit(context.Background(), -1, "1"), models.ErrInvalidDigit)
}

func TestEnterDigit_SixDigitsAutoVerifyExactlyOnce(t *testing.T) {
	sender := &MockSender{}
	h := newHarness(t, sender)

	require.NoError(t, h.enterCode(t, "123456"))

	assert.Equal(t, []string{"123456"}, sender.VerifyCodes())
	select {
	case p := <-h.verified:
		assert.Equal(t, testParams, p)
	default:
		t.Fatal("completion not reported")
	}
	assert.Empty(t, h.verified)
}

func TestEnterDigit_LastSlotThenBackspaceFirstNeverVerifies(t *testing.T) {
	sender := &MockSender{}
	h := newHarness(t, sender)

	require.NoError(t, h.ctrl.EnterDigit(context.Background(), 5, "9"))
	h.ctrl.Backspace(0)

	assert.Empty(t, sender.VerifyCodes())
	assert.Empty(t, h.verified)
	assert.Equal(t, "9", h.ctrl.State().Digits[5])
}

func TestBackspace(t *testing.T) {
	h := newHarness(t, &MockSender{})
	require.NoError(t, h.ctrl.EnterDigit(context.Background(), 0, "1"))
	require.NoError(t, h.ctrl.EnterDigit(context.Background(), 1, "2"))

	// empty slot moves focus back without touching digits
	h.ctrl.Backspace(2)
	state := h.ctrl.State()
	assert.Equal(t, 1, state.Focus)
	assert.Equal(t, "2", state.Digits[1])

	// filled slot is cleared
	h.ctrl.Backspace(1)
	state = h.ctrl.State()
	assert.Equal(t, "", state.Digits[1])
	assert.Equal(t, 1, state.Focus)

	// first slot never moves focus below zero
	h.ctrl.Backspace(0)
	h.ctrl.Backspace(0)
	assert.Equal(t, 0, h.ctrl.State().Focus)
}

// ============================================================================
// Verify
// ============================================================================

func TestVerify_IncompleteCode(t *testing.T) {
	sender := &MockSender{}
	h := newHarness(t, sender)
	require.NoError(t, h.ctrl.EnterDigit(context.Background(), 0, "1"))

	assert.ErrorIs(t, h.ctrl.Verify(context.Background()), models.ErrIncompleteCode)
	assert.Empty(t, sender.VerifyCodes())
	assert.False(t, h.ctrl.State().Verifying)
}

func TestVerify_InvalidCodeClearsSlots(t *testing.T) {
	sender := &MockSender{
		VerifyOTPFunc: func(ctx context.Context, phone, code string) (bool, error) {
			return false, nil
		},
	}
	h := newHarness(t, sender)

	err := h.enterCode(t, "000000")
	assert.ErrorIs(t, err, models.ErrInvalidOTP)

	state := h.ctrl.State()
	assert.Equal(t, [models.OTPCodeLength]string{}, state.Digits)
	assert.Equal(t, 0, state.Focus)
	assert.False(t, state.Verifying)
	assert.Empty(t, h.verified)
}

func TestVerify_TransportFailureKeepsState(t *testing.T) {
	boom := errors.New("network down")
	sender := &MockSender{
		VerifyOTPFunc: func(ctx context.Context, phone, code string) (bool, error) {
			return false, boom
		},
	}
	h := newHarness(t, sender)

	err := h.enterCode(t, "123456")
	assert.ErrorIs(t, err, models.ErrOperationFailure)
	assert.ErrorIs(t, err, boom)

	state := h.ctrl.State()
	assert.Equal(t, "123456", state.Code())
	assert.False(t, state.Verifying)
	assert.Empty(t, h.verified)

	sender.VerifyOTPFunc = nil
	require.NoError(t, h.ctrl.Verify(context.Background()))
	assert.Len(t, h.verified, 1)
	assert.Equal(t, []string{"123456", "123456"}, sender.VerifyCodes())
}

func TestVerify_WaitsForLatency(t *testing.T) {
	sender := &MockSender{}
	clk := newFakeClock()
	ctrl := Open(context.Background(), Config{
		Sender: sender,
		Clock:  clk,
		Logger: slog.Default(),
		Delays: DefaultDelays(),
	}, testParams, nil)
	defer ctrl.Close()

	for i := 0; i < 5; i++ {
		require.NoError(t, ctrl.EnterDigit(context.Background(), i, "1"))
	}

	done := make(chan error, 1)
	go func() { done <- ctrl.EnterDigit(context.Background(), 5, "1") }()

	// countdown timer + verify latency
	require.NoError(t, clk.BlockUntil(context.Background(), 2))
	assert.True(t, ctrl.State().Verifying)
	assert.ErrorIs(t, ctrl.EnterDigit(context.Background(), 0, "2"), models.ErrOperationInProgress)
	assert.Empty(t, sender.VerifyCodes())

	clk.Advance(2 * time.Second)
	require.NoError(t, <-done)
	assert.Equal(t, []string{"111111"}, sender.VerifyCodes())
	assert.False(t, ctrl.State().Verifying)
}

func TestVerify_CloseWhilePendingSuppressesCompletion(t *testing.T) {
	sender := &MockSender{}
	clk := newFakeClock()
	completed := make(chan models.Params, 1)
	ctrl := Open(context.Background(), Config{
		Sender: sender,
		Clock:  clk,
		Logger: slog.Default(),
		Delays: DefaultDelays(),
	}, testParams, func(p models.Params) { completed <- p })

	for i := 0; i < 5; i++ {
		require.NoError(t, ctrl.EnterDigit(context.Background(), i, "1"))
	}
	done := make(chan error, 1)
	go func() { done <- ctrl.EnterDigit(context.Background(), 5, "1") }()

	require.NoError(t, clk.BlockUntil(context.Background(), 2))
	ctrl.Close()

	assert.ErrorIs(t, <-done, models.ErrStepClosed)
	assert.Empty(t, completed)
	assert.Empty(t, sender.VerifyCodes())
	assert.ErrorIs(t, ctrl.Verify(context.Background()), models.ErrStepClosed)
}

// ============================================================================
// Countdown and resend
// ============================================================================

func TestCountdown_ResendAllowedExactlyAtZero(t *testing.T) {
	h := newHarness(t, &MockSender{})

	for i := 0; i < ResendCooldownSeconds-1; i++ {
		h.tickSecond(t)
		state := h.ctrl.State()
		assert.False(t, state.ResendAllowed, "resend allowed with %d seconds left", state.SecondsRemaining)
	}
	assert.Equal(t, 1, h.ctrl.State().SecondsRemaining)
	assert.ErrorIs(t, h.ctrl.Resend(context.Background()), models.ErrResendNotYetAllowed)

	h.tickSecond(t)
	state := h.ctrl.State()
	assert.Equal(t, 0, state.SecondsRemaining)
	assert.True(t, state.ResendAllowed)
}

func TestResend_ResetsCooldownAndSlots(t *testing.T) {
	sender := &MockSender{}
	h := newHarness(t, sender)
	for i := 0; i < ResendCooldownSeconds; i++ {
		h.tickSecond(t)
	}
	require.NoError(t, h.ctrl.EnterDigit(context.Background(), 0, "7"))
	require.NoError(t, h.ctrl.EnterDigit(context.Background(), 1, "7"))

	require.NoError(t, h.ctrl.Resend(context.Background()))

	state := h.ctrl.State()
	assert.Equal(t, 1, sender.Sends())
	assert.Equal(t, ResendCooldownSeconds, state.SecondsRemaining)
	assert.False(t, state.ResendAllowed)
	assert.Equal(t, [models.OTPCodeLength]string{}, state.Digits)
	assert.Equal(t, 0, state.Focus)

	// the restarted countdown keeps ticking
	h.tickSecond(t)
	assert.Equal(t, ResendCooldownSeconds-1, h.ctrl.State().SecondsRemaining)
}

func TestResend_FailureLeavesResendAvailable(t *testing.T) {
	sender := &MockSender{
		SendOTPFunc: func(ctx context.Context, phone string) error {
			return errors.New("sms gateway down")
		},
	}
	h := newHarness(t, sender)
	for i := 0; i < ResendCooldownSeconds; i++ {
		h.tickSecond(t)
	}
	require.NoError(t, h.ctrl.EnterDigit(context.Background(), 0, "3"))

	err := h.ctrl.Resend(context.Background())
	assert.ErrorIs(t, err, models.ErrOperationFailure)

	state := h.ctrl.State()
	assert.True(t, state.ResendAllowed)
	assert.Equal(t, 0, state.SecondsRemaining)
	assert.Equal(t, "3", state.Digits[0])
}

func TestClose_StopsCountdown(t *testing.T) {
	h := newHarness(t, &MockSender{})
	require.NoError(t, h.clock.BlockUntil(context.Background(), 1))

	h.ctrl.Close()
	h.ctrl.Close()

	assert.Eventually(t, func() bool { return h.clock.Pending() == 0 }, time.Second, time.Millisecond)
	h.clock.Advance(time.Minute)
	assert.Equal(t, ResendCooldownSeconds, h.ctrl.State().SecondsRemaining)
	assert.ErrorIs(t, h.ctrl.Resend(context.Background()), models.ErrStepClosed)
}
