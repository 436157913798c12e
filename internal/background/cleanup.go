package background

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
)

// Cleaner removes expired rows and reports how many went.
type Cleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// CleanupManager periodically purges expired email verification tokens
type CleanupManager struct {
	cleaner  Cleaner
	clock    clock.Clock
	logger   *slog.Logger
	interval time.Duration

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewCleanupManager creates a new cleanup manager
func NewCleanupManager(cleaner Cleaner, clk clock.Clock, logger *slog.Logger, interval time.Duration) *CleanupManager {
	if clk == nil {
		clk = clock.Real()
	}
	return &CleanupManager{
		cleaner:  cleaner,
		clock:    clk,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs a cleanup immediately and then once per interval until ctx
// ends or Stop is called.
func (cm *CleanupManager) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() {
		select {
		case <-cm.stopCh:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		cm.runCleanup(ctx)
		if err := clock.Wait(ctx, cm.clock, cm.interval); err != nil {
			cm.logger.Info("cleanup manager stopped")
			return
		}
	}
}

func (cm *CleanupManager) runCleanup(ctx context.Context) {
	cleanupCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	rowsDeleted, err := cm.cleaner.CleanupExpired(cleanupCtx)
	if err != nil {
		cm.logger.Error("failed to cleanup expired tokens", slog.Any("error", err))
		return
	}

	if rowsDeleted > 0 {
		cm.logger.Info("expired token cleanup completed", slog.Int64("rows_deleted", rowsDeleted))
	}
}

// Stop signals the cleanup manager to stop
func (cm *CleanupManager) Stop() {
	cm.stopOnce.Do(func() { close(cm.stopCh) })
}
