// Package permissions tracks the advisory device permissions requested
// before joining.
package permissions

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/BradenHooton/alumni-onboard/internal/clock"
	"github.com/BradenHooton/alumni-onboard/internal/lifecycle"
	"github.com/BradenHooton/alumni-onboard/internal/models"
)

// Granter asks the platform for a permission. false means the user
// declined.
type Granter interface {
	GrantPermission(ctx context.Context, id models.PermissionID) (bool, error)
}

// Delays is the latency of a single request and of each item of a bulk
// request.
type Delays struct {
	One     time.Duration
	PerItem time.Duration
}

// DefaultDelays returns the latencies of the reference client.
func DefaultDelays() Delays {
	return Delays{
		One:     500 * time.Millisecond,
		PerItem: 300 * time.Millisecond,
	}
}

// Config holds the collaborators of an Aggregator. OnChange, if set, is
// called with the granted count after every individual grant.
type Config struct {
	Granter  Granter
	Clock    clock.Clock
	Logger   *slog.Logger
	Delays   Delays
	OnChange func(granted int)
}

// Aggregator holds the catalog records for one visit to the step.
type Aggregator struct {
	cfg   Config
	scope *lifecycle.Scope

	mu      sync.Mutex
	records []models.PermissionRecord
	busy    bool
}

// Open enters the step with every catalog permission pending.
func Open(ctx context.Context, cfg Config) *Aggregator {
	if cfg.Clock == nil {
		cfg.Clock = clock.Real()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	records := make([]models.PermissionRecord, len(models.PermissionCatalog))
	for i, id := range models.PermissionCatalog {
		records[i] = models.PermissionRecord{ID: id, Status: models.PermissionPending}
	}

	return &Aggregator{
		cfg:     cfg,
		scope:   lifecycle.New(ctx),
		records: records,
	}
}

// Close leaves the step, cancelling any pending grant.
func (a *Aggregator) Close() {
	a.scope.Release()
}

// Records returns a copy of the catalog records in catalog order.
func (a *Aggregator) Records() []models.PermissionRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	return slices.Clone(a.records)
}

// GrantedCount returns how many permissions have been granted.
func (a *Aggregator) GrantedCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.grantedLocked()
}

// AllGranted reports whether every catalog permission is granted.
func (a *Aggregator) AllGranted() bool {
	return a.GrantedCount() == len(models.PermissionCatalog)
}

// CanContinue reports whether the step may be left. Permissions are
// advisory so this is always true.
func (a *Aggregator) CanContinue() bool {
	return true
}

// RequestOne asks for a single permission.
func (a *Aggregator) RequestOne(ctx context.Context, id models.PermissionID) error {
	if !slices.Contains(models.PermissionCatalog, id) {
		return fmt.Errorf("%w: %s", models.ErrUnknownPermission, id)
	}
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	ctx, cancel := a.scope.Bind(ctx)
	defer cancel()

	return a.request(ctx, id, a.cfg.Delays.One)
}

// RequestAll asks for every permission not yet granted, one at a time in
// catalog order. Each grant is applied as soon as it completes. Declined
// permissions stay pending and are reported together once the pass ends;
// a transport failure stops the pass.
func (a *Aggregator) RequestAll(ctx context.Context) error {
	if err := a.begin(); err != nil {
		return err
	}
	defer a.end()

	ctx, cancel := a.scope.Bind(ctx)
	defer cancel()

	var denied []error
	for _, id := range models.PermissionCatalog {
		if a.granted(id) {
			continue
		}
		err := a.request(ctx, id, a.cfg.Delays.PerItem)
		if errors.Is(err, models.ErrPermissionDenied) {
			denied = append(denied, err)
			continue
		}
		if err != nil {
			return err
		}
	}
	return errors.Join(denied...)
}

func (a *Aggregator) request(ctx context.Context, id models.PermissionID, delay time.Duration) error {
	if err := clock.Wait(ctx, a.cfg.Clock, delay); err != nil {
		if a.scope.Released() {
			return models.ErrStepClosed
		}
		return models.OperationFailed("grant "+string(id), err)
	}

	ok, err := a.cfg.Granter.GrantPermission(ctx, id)
	if a.scope.Released() {
		return models.ErrStepClosed
	}
	if err != nil {
		a.cfg.Logger.Error("permission request failed", slog.String("permission", string(id)), slog.Any("error", err))
		return models.OperationFailed("grant "+string(id), err)
	}
	if !ok {
		a.cfg.Logger.Info("permission declined", slog.String("permission", string(id)))
		return fmt.Errorf("%w: %s", models.ErrPermissionDenied, id)
	}

	a.mu.Lock()
	for i := range a.records {
		if a.records[i].ID == id {
			a.records[i].Status = models.PermissionGranted
		}
	}
	granted := a.grantedLocked()
	a.mu.Unlock()

	a.cfg.Logger.Info("permission granted", slog.String("permission", string(id)), slog.Int("granted", granted))
	if a.cfg.OnChange != nil {
		a.cfg.OnChange(granted)
	}
	return nil
}

func (a *Aggregator) begin() error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.scope.Released() {
		return models.ErrStepClosed
	}
	if a.busy {
		return models.ErrOperationInProgress
	}
	a.busy = true
	return nil
}

func (a *Aggregator) end() {
	a.mu.Lock()
	a.busy = false
	a.mu.Unlock()
}

func (a *Aggregator) granted(id models.PermissionID) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, r := range a.records {
		if r.ID == id {
			return r.Status == models.PermissionGranted
		}
	}
	return false
}

func (a *Aggregator) grantedLocked() int {
	n := 0
	for _, r := range a.records {
		if r.Status == models.PermissionGranted {
			n++
		}
	}
	return n
}
