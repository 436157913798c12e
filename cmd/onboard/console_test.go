package main

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/auth"
	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/flow"
	"github.com/BradenHooton/alumni-onboard/internal/models"
	"github.com/BradenHooton/alumni-onboard/internal/session"
	"github.com/BradenHooton/alumni-onboard/internal/transport"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runScript(t *testing.T, store session.Store, script ...string) (string, *flow.Controller) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	var out bytes.Buffer
	c := newConsole(strings.NewReader(strings.Join(script, "\n")+"\n"), &out)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)

	ctrl, err := flow.New(ctx, flow.Deps{
		Store:     store,
		Transport: transport.NewSimulated(logger),
		Tokens:    auth.NewTokenManager("console-test-signing-key", 0),
		PINs:      auth.NewPINHasher(4),
		Navigator: c,
		Clock:     clock.Fake(time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)),
		Logger:    logger,
	}, flow.DefaultPolicy())
	require.NoError(t, err)
	t.Cleanup(ctrl.Close)

	require.NoError(t, c.Run(ctx, ctrl))
	return out.String(), ctrl
}

func TestConsole_SignupToDashboard(t *testing.T) {
	store := session.NewMemoryStore()

	out, ctrl := runScript(t, store,
		"signup",
		"submit", "Ada", "Obi", "ada@example.com", "08012345678", "s3cret!", "s3cret!",
		"482913",
		"check",
		"pin 1234 1234",
		"grant all",
		"continue",
		"join",
		"quit",
	)

	assert.Equal(t, models.StepDashboard, ctrl.Current().Step)
	assert.Contains(t, out, "-- verify your phone --")
	assert.Contains(t, out, "-- dashboard --")
	assert.Contains(t, out, "a*a@example.com")
	assert.Contains(t, out, "approved member")

	approved, _, err := store.Get(context.Background(), session.KeyApproved)
	require.NoError(t, err)
	assert.Equal(t, "true", approved)
}

func TestConsole_ReportsValidationErrors(t *testing.T) {
	out, ctrl := runScript(t, session.NewMemoryStore(),
		"signup",
		"submit", "Ada", "Obi", "ada@example.com", "12345", "s3cret!", "s3cret!",
		"quit",
	)

	assert.Equal(t, models.StepAuth, ctrl.Current().Step)
	assert.Contains(t, out, "! phoneNumber: "+models.ErrInvalidPhoneFormat.Error())
}

func TestConsole_UnknownCommand(t *testing.T) {
	out, ctrl := runScript(t, session.NewMemoryStore(), "join", "quit")

	assert.Equal(t, models.StepLanding, ctrl.Current().Step)
	assert.Contains(t, out, `unknown command "join" on landing`)
}

func TestConsole_ResumesApprovedSession(t *testing.T) {
	store := session.NewMemoryStore()
	require.NoError(t, store.Set(context.Background(), session.KeyUserToken, "tok"))
	require.NoError(t, store.Set(context.Background(), session.KeyApproved, "true"))

	out, ctrl := runScript(t, store, "card")

	assert.Equal(t, models.StepDashboard, ctrl.Current().Step)
	assert.Equal(t, 2, strings.Count(out, "approved member"))
}
