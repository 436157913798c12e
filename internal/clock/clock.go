// Package clock abstracts time so that countdowns and simulated latency can
// be driven deterministically in tests.
package clock

import (
	"context"
	"time"
)

// Clock is the subset of the time package the onboarding flow depends on.
type Clock interface {
	Now() time.Time
	// NewTimer returns a Timer that fires once d has elapsed. If d <= 0
	// the timer's channel is ready immediately.
	NewTimer(d time.Duration) *Timer
}

// Timer is a one-shot timer. Read from C; call Stop to release it early.
type Timer struct {
	C <-chan time.Time

	stopFunc func() bool
}

// Stop prevents the timer from firing. It reports whether the call
// stopped the timer.
func (t *Timer) Stop() bool { return t.stopFunc() }

// Real returns a Clock backed by the time package.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

func (realClock) NewTimer(d time.Duration) *Timer {
	t := time.NewTimer(d)
	return &Timer{C: t.C, stopFunc: t.Stop}
}

// Wait blocks for d on clk, returning early with ctx's error if ctx ends
// first.
func Wait(ctx context.Context, clk Clock, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if d <= 0 {
		return nil
	}
	timer := clk.NewTimer(d)
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		timer.Stop()
		return ctx.Err()
	}
}
