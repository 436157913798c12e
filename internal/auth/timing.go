package auth

import (
	"context"
	"crypto/rand"
	"encoding/binary"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
)

// TimingConfig holds configuration for timing attack prevention
type TimingConfig struct {
	BaseDelay      time.Duration
	RandomDelay    time.Duration // upper bound of the random part
	DelayOnSuccess bool
}

// DefaultTimingConfig is applied to failed verifier logins.
var DefaultTimingConfig = TimingConfig{
	BaseDelay:   250 * time.Millisecond,
	RandomDelay: 100 * time.Millisecond,
}

// TimingDelay pads authentication failures so that "no such account" and
// "wrong password" take about the same time.
type TimingDelay struct {
	config TimingConfig
	clock  clock.Clock
}

// NewTimingDelay creates a TimingDelay on clk (clock.Real() when nil).
func NewTimingDelay(config TimingConfig, clk clock.Clock) *TimingDelay {
	if clk == nil {
		clk = clock.Real()
	}
	return &TimingDelay{config: config, clock: clk}
}

// cryptoRandDuration returns a secure random duration in [0, max).
func cryptoRandDuration(max time.Duration) time.Duration {
	if max <= 0 {
		return 0
	}
	randomBytes := make([]byte, 8)
	if _, err := rand.Read(randomBytes); err != nil {
		return 0
	}
	return time.Duration(binary.BigEndian.Uint64(randomBytes) % uint64(max))
}

// Wait blocks for BaseDelay plus a random part after a failure, or after a
// success when DelayOnSuccess is set. It returns early if ctx ends.
func (td *TimingDelay) Wait(ctx context.Context, success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}
	_ = clock.Wait(ctx, td.clock, td.config.BaseDelay+cryptoRandDuration(td.config.RandomDelay))
}

// WaitFrom pads the time elapsed since start up to the target delay.
func (td *TimingDelay) WaitFrom(ctx context.Context, start time.Time, success bool) {
	if success && !td.config.DelayOnSuccess {
		return
	}
	target := td.config.BaseDelay + cryptoRandDuration(td.config.RandomDelay)
	if elapsed := td.clock.Now().Sub(start); elapsed < target {
		_ = clock.Wait(ctx, td.clock, target-elapsed)
	}
}
