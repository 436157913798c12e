// Package flow sequences the onboarding steps and writes the session
// facts at the two checkpoints that change where a relaunch resumes.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/emailverify"
	"github.com/BradenHooton/alumni-onboard/internal/lifecycle"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/BradenHooton/alumni-onboard/internal/otp"
	"github.com/BradenHooton/alumni-onboard/internal/permissions"
	"github.com/BradenHooton/alumni-onboard/internal/session"
	"github.com/BradenHooton/alumni-onboard/internal/transport"
	"github.com/BradenHooton/alumni-onboard/internal/validation"
	pkglogger "github.com/BradenHooton/alumni-onboard/pkg/logger"
)

// Navigator receives every transition.
type Navigator interface {
	Navigate(dest models.Destination)
}

// NavigatorFunc adapts a function to a Navigator.
type NavigatorFunc func(dest models.Destination)

func (f NavigatorFunc) Navigate(dest models.Destination) { f(dest) }

// TokenIssuer creates the session token written at PIN setup.
type TokenIssuer interface {
	GenerateSessionToken(params models.Params) (string, error)
}

// PINHasher hashes the PIN before it is stored.
type PINHasher interface {
	Hash(pin string) (string, error)
}

// Delays groups the latency of every step operation.
type Delays struct {
	Submit      time.Duration
	OTP         otp.Delays
	Email       emailverify.Delays
	Permissions permissions.Delays
}

// DefaultDelays returns the latencies of the reference client.
func DefaultDelays() Delays {
	return Delays{
		Submit:      2 * time.Second,
		OTP:         otp.DefaultDelays(),
		Email:       emailverify.DefaultDelays(),
		Permissions: permissions.DefaultDelays(),
	}
}

// Policy holds the routing choices that are deliberate rather than
// structural.
type Policy struct {
	// LoginSkipsVerification sends a successful login straight to the
	// Dashboard without OTP or email verification and without writing
	// any session fact. When false, login goes through the same
	// verification steps as signup.
	LoginSkipsVerification bool
}

// DefaultPolicy matches the reference client.
func DefaultPolicy() Policy {
	return Policy{LoginSkipsVerification: true}
}

// Deps are the collaborators of a Controller.
type Deps struct {
	Store     session.Store
	Transport transport.Transport
	Tokens    TokenIssuer
	PINs      PINHasher
	Navigator Navigator
	Clock     clock.Clock
	Logger    *slog.Logger
	Delays    Delays
}

// Controller owns the current step. Exactly one step is current; each
// entry acquires a fresh scope that is released on every exit.
type Controller struct {
	deps   Deps
	policy Policy
	root   context.Context
	audit  *pkglogger.AuditLogger

	mu         sync.Mutex
	current    models.Destination
	facts      models.SessionFacts
	generation uint64
	scope      *lifecycle.Scope
	submitting bool
	verifyMode models.AuthMode // mode the verification steps were entered from
	otpStep    *otp.Controller
	emailStep  *emailverify.Controller
	permStep   *permissions.Aggregator
}

// New loads the session facts and enters the step Resume selects for
// them. ctx bounds the lifetime of the whole flow.
func New(ctx context.Context, deps Deps, policy Policy) (*Controller, error) {
	if deps.Store == nil || deps.Transport == nil || deps.Tokens == nil || deps.PINs == nil {
		return nil, fmt.Errorf("flow: store, transport, tokens and PIN hasher are required")
	}
	if deps.Clock == nil {
		deps.Clock = clock.Real()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	facts, err := session.LoadFacts(ctx, deps.Store, deps.Logger)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		deps:   deps,
		policy: policy,
		root:   ctx,
		audit:  pkglogger.NewAuditLogger(deps.Logger),
		facts:  facts,
	}

	step := Resume(facts)
	deps.Logger.Info("resuming onboarding", slog.String("step", step.String()), slog.Bool("approved", facts.Approved))
	c.transition(0, models.Destination{Step: step})
	return c, nil
}

// Current returns the current step and its parameters.
func (c *Controller) Current() models.Destination {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

// Facts returns the session facts as last read or written.
func (c *Controller) Facts() models.SessionFacts {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.facts
}

// Close releases the current step.
func (c *Controller) Close() {
	c.mu.Lock()
	scope := c.scope
	c.generation++
	c.mu.Unlock()
	if scope != nil {
		scope.Release()
	}
}

// ChooseLogin moves from Landing to the login form.
func (c *Controller) ChooseLogin() error {
	return c.move(models.StepLanding, models.Destination{Step: models.StepAuth, Mode: models.AuthModeLogin})
}

// ChooseSignup moves from Landing to the signup form.
func (c *Controller) ChooseSignup() error {
	return c.move(models.StepLanding, models.Destination{Step: models.StepAuth, Mode: models.AuthModeSignup})
}

// SwitchAuthMode re-enters Auth in the other mode. The caller discards
// any form input.
func (c *Controller) SwitchAuthMode() error {
	c.mu.Lock()
	cur := c.current
	gen := c.generation
	if cur.Step != models.StepAuth {
		c.mu.Unlock()
		return models.ErrInvalidTransition
	}
	c.mu.Unlock()

	if !c.transition(gen, models.Destination{Step: models.StepAuth, Mode: cur.Mode.Opposite()}) {
		return models.ErrStepClosed
	}
	return nil
}

// Back returns to the previous step. It never undoes a session write.
func (c *Controller) Back() error {
	c.mu.Lock()
	cur := c.current
	gen := c.generation
	mode := c.verifyMode
	c.mu.Unlock()
	if mode == "" {
		mode = models.AuthModeSignup
	}

	var dest models.Destination
	switch cur.Step {
	case models.StepAuth:
		dest = models.Destination{Step: models.StepLanding}
	case models.StepOTP:
		dest = models.Destination{Step: models.StepAuth, Mode: mode}
	case models.StepEmailVerification:
		dest = models.Destination{Step: models.StepOTP, Params: cur.Params}
	default:
		return models.ErrInvalidTransition
	}

	if !c.transition(gen, dest) {
		return models.ErrStepClosed
	}
	return nil
}

// SubmitAuth validates form for the current mode and submits it. A
// validation error is returned before anything is sent; on success the
// flow moves on according to the policy.
func (c *Controller) SubmitAuth(ctx context.Context, form models.AuthForm) error {
	c.mu.Lock()
	cur := c.current
	gen := c.generation
	scope := c.scope
	if cur.Step != models.StepAuth {
		c.mu.Unlock()
		return models.ErrInvalidTransition
	}
	if c.submitting {
		c.mu.Unlock()
		return models.ErrOperationInProgress
	}
	c.mu.Unlock()

	if err := validation.Validate(cur.Mode, form); err != nil {
		return err
	}

	c.mu.Lock()
	if c.generation != gen {
		c.mu.Unlock()
		return models.ErrStepClosed
	}
	c.submitting = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.submitting = false
		c.mu.Unlock()
	}()

	ctx, cancel := scope.Bind(ctx)
	defer cancel()

	params := form.Params()
	err := clock.Wait(ctx, c.deps.Clock, c.deps.Delays.Submit)
	if err == nil {
		err = c.deps.Transport.SubmitCredentials(ctx, cur.Mode, form)
	}
	verify := cur.Mode == models.AuthModeSignup || !c.policy.LoginSkipsVerification
	if err == nil && cur.Mode == models.AuthModeLogin && verify {
		err = c.deps.Transport.SendOTP(ctx, params.PhoneNumber)
	}
	if scope.Released() {
		return models.ErrStepClosed
	}
	if err != nil {
		c.deps.Logger.Error("credential submission failed",
			slog.String("mode", string(cur.Mode)),
			slog.String("email", pkglogger.SanitizedEmail(form.Email)),
			slog.Any("error", err))
		return models.OperationFailed("submit credentials", err)
	}

	dest := models.Destination{Step: models.StepOTP, Params: params}
	if !verify {
		dest = models.Destination{Step: models.StepDashboard, Params: params}
	}
	c.mu.Lock()
	if c.generation == gen && verify {
		c.verifyMode = cur.Mode
	}
	c.mu.Unlock()
	if !c.transition(gen, dest) {
		return models.ErrStepClosed
	}
	return nil
}

// OTP returns the controller of the OTP step.
func (c *Controller) OTP() (*otp.Controller, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Step != models.StepOTP || c.otpStep == nil {
		return nil, models.ErrInvalidTransition
	}
	return c.otpStep, nil
}

// Email returns the controller of the email verification step.
func (c *Controller) Email() (*emailverify.Controller, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Step != models.StepEmailVerification || c.emailStep == nil {
		return nil, models.ErrInvalidTransition
	}
	return c.emailStep, nil
}

// Permissions returns the aggregator of the permissions step.
func (c *Controller) Permissions() (*permissions.Aggregator, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.current.Step != models.StepPermissions || c.permStep == nil {
		return nil, models.ErrInvalidTransition
	}
	return c.permStep, nil
}

// CompletePINSetup validates the PIN, stores its hash and the session
// token, then moves to Permissions. Nothing moves if a write fails.
func (c *Controller) CompletePINSetup(ctx context.Context, pin, confirm string) error {
	c.mu.Lock()
	cur := c.current
	gen := c.generation
	c.mu.Unlock()
	if cur.Step != models.StepPinSetup {
		return models.ErrInvalidTransition
	}

	if err := validation.ValidatePIN(pin, confirm); err != nil {
		return err
	}

	hash, err := c.deps.PINs.Hash(pin)
	if err != nil {
		return models.OperationFailed("hash PIN", err)
	}
	token, err := c.deps.Tokens.GenerateSessionToken(cur.Params)
	if err != nil {
		return models.OperationFailed("issue session token", err)
	}

	if !c.stillCurrent(gen) {
		return models.ErrStepClosed
	}
	err = session.SavePINHash(ctx, c.deps.Store, hash)
	c.audit.LogSessionWrite(session.KeyPINHash, err)
	if err != nil {
		return err
	}
	err = session.SaveToken(ctx, c.deps.Store, token)
	c.audit.LogSessionWrite(session.KeyUserToken, err)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.facts.Token = token
	c.mu.Unlock()

	if !c.transition(gen, models.Destination{Step: models.StepPermissions, Params: cur.Params}) {
		return models.ErrStepClosed
	}
	return nil
}

// ContinueFromPermissions moves to Join whatever was granted.
func (c *Controller) ContinueFromPermissions() error {
	c.mu.Lock()
	cur := c.current
	gen := c.generation
	perms := c.permStep
	c.mu.Unlock()
	if cur.Step != models.StepPermissions {
		return models.ErrInvalidTransition
	}

	if perms != nil {
		c.deps.Logger.Info("leaving permissions", slog.Int("granted", perms.GrantedCount()))
		if !perms.CanContinue() {
			return models.ErrInvalidTransition
		}
	}
	if !c.transition(gen, models.Destination{Step: models.StepJoin, Params: cur.Params}) {
		return models.ErrStepClosed
	}
	return nil
}

// Join records membership approval and moves to the Dashboard.
func (c *Controller) Join(ctx context.Context) error {
	c.mu.Lock()
	cur := c.current
	gen := c.generation
	c.mu.Unlock()
	if cur.Step != models.StepJoin {
		return models.ErrInvalidTransition
	}

	err := session.MarkApproved(ctx, c.deps.Store)
	c.audit.LogSessionWrite(session.KeyApproved, err)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.facts.Approved = true
	c.mu.Unlock()

	if !c.transition(gen, models.Destination{Step: models.StepDashboard, Params: cur.Params}) {
		return models.ErrStepClosed
	}
	return nil
}

func (c *Controller) move(from models.Step, dest models.Destination) error {
	c.mu.Lock()
	cur := c.current
	gen := c.generation
	c.mu.Unlock()
	if cur.Step != from {
		return models.ErrInvalidTransition
	}
	if !c.transition(gen, dest) {
		return models.ErrStepClosed
	}
	return nil
}

func (c *Controller) stillCurrent(gen uint64) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.generation == gen
}

// transition leaves the current step and enters dest, provided no other
// transition happened since gen was read. It reports whether it ran.
func (c *Controller) transition(gen uint64, dest models.Destination) bool {
	c.mu.Lock()
	if c.generation != gen || c.root.Err() != nil {
		c.mu.Unlock()
		return false
	}
	prev := c.current
	old := c.scope
	c.generation++
	gen = c.generation
	c.current = dest
	c.otpStep, c.emailStep, c.permStep = nil, nil, nil
	c.submitting = false
	c.scope = lifecycle.New(c.root)
	c.enterLocked(gen, dest)
	c.mu.Unlock()

	if old != nil {
		old.Release()
		c.audit.LogTransition(stepLabel(prev), stepLabel(dest))
	}
	if c.deps.Navigator != nil {
		c.deps.Navigator.Navigate(dest)
	}
	return true
}

// enterLocked acquires the step's own controller under the new scope.
func (c *Controller) enterLocked(gen uint64, dest models.Destination) {
	scope := c.scope
	switch dest.Step {
	case models.StepOTP:
		step := otp.Open(scope.Context(), otp.Config{
			Sender: c.deps.Transport,
			Clock:  c.deps.Clock,
			Logger: c.deps.Logger,
			Delays: c.deps.Delays.OTP,
		}, dest.Params, func(p models.Params) {
			c.transition(gen, models.Destination{Step: models.StepEmailVerification, Params: p})
		})
		scope.OnRelease(step.Close)
		c.otpStep = step

	case models.StepEmailVerification:
		step := emailverify.Open(scope.Context(), emailverify.Config{
			Sender: c.deps.Transport,
			Clock:  c.deps.Clock,
			Logger: c.deps.Logger,
			Delays: c.deps.Delays.Email,
		}, dest.Params, func(p models.Params) {
			c.transition(gen, models.Destination{Step: models.StepPinSetup, Params: p})
		})
		scope.OnRelease(step.Close)
		c.emailStep = step

	case models.StepPermissions:
		step := permissions.Open(scope.Context(), permissions.Config{
			Granter: c.deps.Transport,
			Clock:   c.deps.Clock,
			Logger:  c.deps.Logger,
			Delays:  c.deps.Delays.Permissions,
		})
		scope.OnRelease(step.Close)
		c.permStep = step
	}
}

func stepLabel(d models.Destination) string {
	if d.Step == models.StepAuth {
		return d.Step.String() + ":" + string(d.Mode)
	}
	return d.Step.String()
}
