// Package otp implements the one-time-code step: six digit slots,
// auto-submit, and a resend cooldown.
package otp

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/countdown"
	"github.com/BradenHooton/alumni-onboard/internal/lifecycle"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
)

// ResendCooldownSeconds is how long the user waits before a new code can
// be requested.
const ResendCooldownSeconds = 60

// Sender delivers and checks codes.
type Sender interface {
	SendOTP(ctx context.Context, phone string) error
	VerifyOTP(ctx context.Context, phone, code string) (bool, error)
}

// Delays is the latency each operation waits before reaching the Sender.
type Delays struct {
	Verify time.Duration
	Resend time.Duration
}

// DefaultDelays returns the latencies of the reference client.
func DefaultDelays() Delays {
	return Delays{
		Verify: 2 * time.Second,
		Resend: 1 * time.Second,
	}
}

// Config holds the collaborators of a Controller.
type Config struct {
	Sender Sender
	Clock  clock.Clock
	Logger *slog.Logger
	Delays Delays
}

// Controller owns the OTP step state for one visit to the step.
type Controller struct {
	cfg        Config
	params     models.Params
	onVerified func(models.Params)
	scope      *lifecycle.Scope

	mu        sync.Mutex
	state     models.OTPState
	timer     *countdown.Timer
	resending bool
}

// Open enters the OTP step: empty slots, a fresh 60 second cooldown, and
// a running countdown. onVerified is called once after a successful
// verification unless the step has been closed first.
func Open(ctx context.Context, cfg Config, params models.Params, onVerified func(models.Params)) *Controller {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	c := &Controller{
		cfg:        cfg,
		params:     params,
		onVerified: onVerified,
		scope:      lifecycle.New(ctx),
	}
	c.scope.OnRelease(c.stopCountdown)

	c.mu.Lock()
	c.restartCountdownLocked()
	c.mu.Unlock()

	cfg.Logger.Info("otp step opened", slog.String("phone", pkglogger.SanitizedPhone(params.PhoneNumber)))
	return c
}

// Close leaves the step. The countdown stops and pending operations are
// cancelled without reporting completion.
func (c *Controller) Close() {
	c.scope.Release()
}

// Params returns the values carried into the step.
func (c *Controller) Params() models.Params {
	return c.params
}

// State returns a snapshot of the step.
func (c *Controller) State() models.OTPState {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// EnterDigit fills slot index and advances focus. When the last empty
// slot is filled the code is verified and the verification result is
// returned.
func (c *Controller) EnterDigit(ctx context.Context, index int, digit string) error {
	if index < 0 || index >= models.OTPCodeLength || !isDigit(digit) {
		return models.ErrInvalidDigit
	}

	c.mu.Lock()
	if c.scope.Released() {
		c.mu.Unlock()
		return models.ErrStepClosed
	}
	if c.state.Verifying {
		c.mu.Unlock()
		return models.ErrOperationInProgress
	}

	c.state.Digits[index] = digit
	if index < models.OTPCodeLength-1 {
		c.state.Focus = index + 1
	}
	complete := c.state.Complete()
	c.mu.Unlock()

	if complete {
		return c.Verify(ctx)
	}
	return nil
}

// Backspace clears slot index. On an already empty slot focus moves to
// the previous slot instead.
func (c *Controller) Backspace(index int) {
	if index < 0 || index >= models.OTPCodeLength {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state.Verifying {
		return
	}

	if c.state.Digits[index] != "" {
		c.state.Digits[index] = ""
		c.state.Focus = index
		return
	}
	if index > 0 {
		c.state.Focus = index - 1
	}
}

// Verify checks the entered code. A rejected code clears every slot and
// returns ErrInvalidOTP. A transport failure leaves the slots untouched.
func (c *Controller) Verify(ctx context.Context) error {
	c.mu.Lock()
	if c.scope.Released() {
		c.mu.Unlock()
		return models.ErrStepClosed
	}
	if c.state.Verifying {
		c.mu.Unlock()
		return models.ErrOperationInProgress
	}
	if !c.state.Complete() {
		c.mu.Unlock()
		return models.ErrIncompleteCode
	}
	c.state.Verifying = true
	code := c.state.Code()
	c.mu.Unlock()

	ctx, cancel := c.scope.Bind(ctx)
	defer cancel()

	ok, err := c.verify(ctx, code)

	c.mu.Lock()
	c.state.Verifying = false
	if c.scope.Released() {
		c.mu.Unlock()
		return models.ErrStepClosed
	}
	if err != nil {
		c.mu.Unlock()
		c.cfg.Logger.Error("otp verification failed", slog.Any("error", err))
		return models.OperationFailed("verify otp", err)
	}
	if !ok {
		c.state.Digits = [models.OTPCodeLength]string{}
		c.state.Focus = 0
		c.mu.Unlock()
		c.cfg.Logger.Info("otp rejected", slog.String("phone", pkglogger.SanitizedPhone(c.params.PhoneNumber)))
		return models.ErrInvalidOTP
	}
	c.mu.Unlock()

	c.cfg.Logger.Info("otp verified", slog.String("phone", pkglogger.SanitizedPhone(c.params.PhoneNumber)))
	if c.onVerified != nil {
		c.onVerified(c.params)
	}
	return nil
}

// Resend requests a new code once the cooldown has run out. It resets
// the cooldown, clears the slots and refocuses the first one.
func (c *Controller) Resend(ctx context.Context) error {
	c.mu.Lock()
	if c.scope.Released() {
		c.mu.Unlock()
		return models.ErrStepClosed
	}
	if !c.state.ResendAllowed {
		c.mu.Unlock()
		return models.ErrResendNotYetAllowed
	}
	if c.resending {
		c.mu.Unlock()
		return models.ErrOperationInProgress
	}
	c.resending = true
	c.mu.Unlock()

	ctx, cancel := c.scope.Bind(ctx)
	defer cancel()

	err := clock.Wait(ctx, c.cfg.Clock, c.cfg.Delays.Resend)
	if err == nil {
		err = c.cfg.Sender.SendOTP(ctx, c.params.PhoneNumber)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.resending = false
	if c.scope.Released() {
		return models.ErrStepClosed
	}
	if err != nil {
		c.cfg.Logger.Error("otp resend failed", slog.Any("error", err))
		return models.OperationFailed("resend otp", err)
	}

	c.state.Digits = [models.OTPCodeLength]string{}
	c.state.Focus = 0
	c.restartCountdownLocked()
	c.cfg.Logger.Info("otp resent", slog.String("phone", pkglogger.SanitizedPhone(c.params.PhoneNumber)))
	return nil
}

func (c *Controller) verify(ctx context.Context, code string) (bool, error) {
	if err := clock.Wait(ctx, c.cfg.Clock, c.cfg.Delays.Verify); err != nil {
		return false, err
	}
	return c.cfg.Sender.VerifyOTP(ctx, c.params.PhoneNumber, code)
}

func (c *Controller) restartCountdownLocked() {
	if c.timer != nil {
		c.timer.Cancel()
	}
	c.state.SecondsRemaining = ResendCooldownSeconds
	c.state.ResendAllowed = false

	timer := countdown.Start(c.cfg.Clock, ResendCooldownSeconds)
	c.timer = timer
	go c.watch(timer)
}

// watch applies ticks from timer until it ends. Ticks from a replaced
// timer are dropped.
func (c *Controller) watch(timer *countdown.Timer) {
	for remaining := range timer.C() {
		c.mu.Lock()
		if c.timer == timer {
			c.state.SecondsRemaining = remaining
			c.state.ResendAllowed = remaining == 0
		}
		c.mu.Unlock()
	}
}

func (c *Controller) stopCountdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.timer != nil {
		c.timer.Cancel()
	}
}

func isDigit(s string) bool {
	return len(s) == 1 && s[0] >= '0' && s[0] <= '9'
}
