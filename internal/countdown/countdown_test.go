package countdown

import (
	"context"
	"testing"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFakeClock() *clock.FakeClock {
	return clock.Fake(time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC))
}

// tick advances the fake clock by one second once the countdown has armed
// its timer, and returns the value delivered.
func tick(t *testing.T, c *clock.FakeClock, timer *Timer) (int, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, c.BlockUntil(ctx, 1))
	c.Advance(time.Second)
	select {
	case v, ok := <-timer.C():
		return v, ok
	case <-ctx.Done():
		t.Fatal("no tick delivered")
		return 0, false
	}
}

func TestTimer_CountsDownToZeroThenCloses(t *testing.T) {
	c := newFakeClock()
	timer := Start(c, 3)

	var got []int
	for i := 0; i < 3; i++ {
		v, ok := tick(t, c, timer)
		require.True(t, ok)
		got = append(got, v)
	}
	assert.Equal(t, []int{2, 1, 0}, got)

	_, ok := <-timer.C()
	assert.False(t, ok, "channel should close after reaching zero")
	assert.Equal(t, 0, c.Pending())
}

func TestTimer_NoTickBeforeSecondElapses(t *testing.T) {
	c := newFakeClock()
	timer := Start(c, 5)
	defer timer.Cancel()

	require.NoError(t, c.BlockUntil(context.Background(), 1))
	c.Advance(999 * time.Millisecond)

	select {
	case v := <-timer.C():
		t.Fatalf("unexpected tick %d", v)
	default:
	}
}

func TestTimer_CancelStopsTicksAndIsIdempotent(t *testing.T) {
	c := newFakeClock()
	timer := Start(c, 60)

	v, ok := tick(t, c, timer)
	require.True(t, ok)
	assert.Equal(t, 59, v)

	timer.Cancel()
	timer.Cancel()

	for range timer.C() {
		t.Fatal("tick delivered after cancel")
	}
	assert.Eventually(t, func() bool { return c.Pending() == 0 }, time.Second, 5*time.Millisecond)
}

func TestTimer_NonPositiveDurationClosesImmediately(t *testing.T) {
	timer := Start(newFakeClock(), 0)
	_, ok := <-timer.C()
	assert.False(t, ok)
}

func TestTimer_CancelWhileWaitingDeliversNothing(t *testing.T) {
	c := newFakeClock()
	timer := Start(c, 10)

	require.NoError(t, c.BlockUntil(context.Background(), 1))
	timer.Cancel()
	c.Advance(5 * time.Second)

	var got []int
	for v := range timer.C() {
		got = append(got, v)
	}
	assert.Empty(t, got)
}
