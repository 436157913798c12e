// Package lifecycle ties in-flight operations to the lifetime of the step
// that started them.
package lifecycle

import (
	"context"
	"sync"
)

// Scope is acquired when a step is entered and released when it is left.
// Operations bound to the scope are cancelled on release.
type Scope struct {
	ctx     context.Context
	cancel  context.CancelFunc
	once    sync.Once
	cleanup []func()
	mu      sync.Mutex
}

// New acquires a scope under parent.
func New(parent context.Context) *Scope {
	ctx, cancel := context.WithCancel(parent)
	return &Scope{ctx: ctx, cancel: cancel}
}

// Bind returns a context that ends when either ctx or the scope ends.
func (s *Scope) Bind(ctx context.Context) (context.Context, context.CancelFunc) {
	bound, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(s.ctx, cancel)
	return bound, func() {
		stop()
		cancel()
	}
}

// OnRelease registers fn to run when the scope is released. If the scope
// is already released fn runs immediately.
func (s *Scope) OnRelease(fn func()) {
	s.mu.Lock()
	if s.ctx.Err() == nil {
		s.cleanup = append(s.cleanup, fn)
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()
	fn()
}

// Release cancels bound operations and runs cleanup in reverse order.
// Safe to call more than once.
func (s *Scope) Release() {
	s.once.Do(func() {
		s.mu.Lock()
		s.cancel()
		cleanup := s.cleanup
		s.cleanup = nil
		s.mu.Unlock()

		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	})
}

// Released reports whether Release has been called or the parent ended.
func (s *Scope) Released() bool {
	return s.ctx.Err() != nil
}

// Context returns the scope's own context.
func (s *Scope) Context() context.Context {
	return s.ctx
}
