// Package countdown provides a cancellable once-per-second countdown.
package countdown

import (
	"sync"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
)

// Timer counts down from a fixed number of seconds. After each elapsed
// second it delivers the remaining count on C, ending with 0, then closes
// C.
type Timer struct {
	ticks chan int
	stop  chan struct{}
	once  sync.Once
}

// Start begins counting down seconds on clk. A non-positive duration
// yields a timer whose channel is already closed.
func Start(clk clock.Clock, seconds int) *Timer {
	t := &Timer{
		ticks: make(chan int),
		stop:  make(chan struct{}),
	}
	go t.run(clk, seconds)
	return t
}

// C returns the tick channel.
func (t *Timer) C() <-chan int {
	return t.ticks
}

// Cancel stops the countdown and C is closed shortly after. A tick whose
// send was already under way when Cancel ran may still be delivered, so
// receivers that care must check their own state. Safe to call more than
// once.
func (t *Timer) Cancel() {
	t.once.Do(func() { close(t.stop) })
}

func (t *Timer) run(clk clock.Clock, remaining int) {
	defer close(t.ticks)

	for remaining > 0 {
		timer := clk.NewTimer(time.Second)
		select {
		case <-timer.C:
		case <-t.stop:
			timer.Stop()
			return
		}

		remaining--
		select {
		case <-t.stop:
			return
		default:
		}
		select {
		case t.ticks <- remaining:
		case <-t.stop:
			return
		}
	}
}
