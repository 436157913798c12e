// Package emailverify implements the email verification step.
package emailverify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/lifecycle"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
)

// Sender dispatches verification emails and reports whether the address
// has been confirmed.
type Sender interface {
	SendVerificationEmail(ctx context.Context, email string) error
	CheckEmailVerified(ctx context.Context, email string) (bool, error)
}

// Delays is the latency each operation waits before reaching the Sender.
type Delays struct {
	Send   time.Duration
	Check  time.Duration
	Resend time.Duration
}

// DefaultDelays returns the latencies of the reference client.
func DefaultDelays() Delays {
	return Delays{
		Send:   1500 * time.Millisecond,
		Check:  1500 * time.Millisecond,
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

// Controller owns the email verification step for one visit to it.
type Controller struct {
	cfg        Config
	params     models.Params
	onVerified func(models.Params)
	scope      *lifecycle.Scope

	sentC    chan struct{}
	sentOnce sync.Once
	initial  chan error

	mu        sync.Mutex
	checking  bool
	resending bool
}

// Open enters the step and starts sending the verification email in the
// background. Check is refused until a send has completed.
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
		sentC:      make(chan struct{}),
		initial:    make(chan error, 1),
	}

	go func() {
		err := c.send(c.scope.Context(), cfg.Delays.Send)
		if err != nil && !c.scope.Released() {
			cfg.Logger.Error("verification email send failed",
				slog.String("email", pkglogger.SanitizedEmail(params.Email)),
				slog.Any("error", err))
			err = models.OperationFailed("send verification email", err)
		}
		c.initial <- err
		close(c.initial)
	}()

	return c
}

// Close leaves the step, cancelling pending operations.
func (c *Controller) Close() {
	c.scope.Release()
}

// Params returns the values carried into the step.
func (c *Controller) Params() models.Params {
	return c.params
}

// MaskedEmail is the address as shown to the user.
func (c *Controller) MaskedEmail() string {
	return MaskEmail(c.params.Email)
}

// EmailSent reports whether a verification email has been sent.
func (c *Controller) EmailSent() bool {
	select {
	case <-c.sentC:
		return true
	default:
		return false
	}
}

// SentC is closed once a verification email has been sent.
func (c *Controller) SentC() <-chan struct{} {
	return c.sentC
}

// InitialSend yields the outcome of the send started by Open. The
// channel delivers one value and is then closed.
func (c *Controller) InitialSend() <-chan error {
	return c.initial
}

// Check asks whether the address has been confirmed. On success the
// completion callback runs; an unconfirmed address returns
// ErrNotYetVerified and the step stays open.
func (c *Controller) Check(ctx context.Context) error {
	if !c.EmailSent() {
		return models.ErrEmailNotSent
	}

	c.mu.Lock()
	if c.scope.Released() {
		c.mu.Unlock()
		return models.ErrStepClosed
	}
	if c.checking {
		c.mu.Unlock()
		return models.ErrOperationInProgress
	}
	c.checking = true
	c.mu.Unlock()

	ctx, cancel := c.scope.Bind(ctx)
	defer cancel()

	verified, err := c.check(ctx)

	c.mu.Lock()
	c.checking = false
	c.mu.Unlock()

	if c.scope.Released() {
		return models.ErrStepClosed
	}
	if err != nil {
		c.cfg.Logger.Error("email verification check failed", slog.Any("error", err))
		return models.OperationFailed("check email verification", err)
	}
	if !verified {
		return models.ErrNotYetVerified
	}

	c.cfg.Logger.Info("email verified", slog.String("email", pkglogger.SanitizedEmail(c.params.Email)))
	if c.onVerified != nil {
		c.onVerified(c.params)
	}
	return nil
}

// Resend sends the verification email again. It never closes the check
// gate; a successful resend opens it if the first send failed.
func (c *Controller) Resend(ctx context.Context) error {
	c.mu.Lock()
	if c.scope.Released() {
		c.mu.Unlock()
		return models.ErrStepClosed
	}
	if c.resending {
		c.mu.Unlock()
		return models.ErrOperationInProgress
	}
	c.resending = true
	c.mu.Unlock()

	ctx, cancel := c.scope.Bind(ctx)
	defer cancel()

	err := c.send(ctx, c.cfg.Delays.Resend)

	c.mu.Lock()
	c.resending = false
	c.mu.Unlock()

	if c.scope.Released() {
		return models.ErrStepClosed
	}
	if err != nil {
		c.cfg.Logger.Error("verification email resend failed", slog.Any("error", err))
		return models.OperationFailed("resend verification email", err)
	}
	return nil
}

func (c *Controller) send(ctx context.Context, delay time.Duration) error {
	if err := clock.Wait(ctx, c.cfg.Clock, delay); err != nil {
		return err
	}
	if err := c.cfg.Sender.SendVerificationEmail(ctx, c.params.Email); err != nil {
		return err
	}
	if c.scope.Released() {
		return models.ErrStepClosed
	}

	c.sentOnce.Do(func() { close(c.sentC) })
	c.cfg.Logger.Info("verification email sent", slog.String("email", pkglogger.SanitizedEmail(c.params.Email)))
	return nil
}

func (c *Controller) check(ctx context.Context) (bool, error) {
	if err := clock.Wait(ctx, c.cfg.Clock, c.cfg.Delays.Check); err != nil {
		return false, err
	}
	return c.cfg.Sender.CheckEmailVerified(ctx, c.params.Email)
}
