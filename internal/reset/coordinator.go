// Package reset wipes all shared state once per calendar month, exactly
// once across any number of concurrent server processes.
package reset

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/Yosshy-123/HARO-Chat/internal/metrics"
)

// LockTTL bounds how long the reset lock survives if the holder crashes
// mid-wipe.
const LockTTL = 30 * time.Second

// Store is the slice of the shared store the coordinator needs.
type Store interface {
	CurrentPeriod(ctx context.Context) (string, error)
	SetCurrentPeriod(ctx context.Context, period string) error
	AcquireResetLock(ctx context.Context, owner string, ttl time.Duration) (bool, error)
	ReleaseResetLock(ctx context.Context) error
	WipeAll(ctx context.Context) error
}

// Coordinator races other processes for the reset lock on month
// boundaries and performs the wipe when it wins.
type Coordinator struct {
	store  Store
	owner  string
	logger zerolog.Logger

	now func() time.Time
}

// NewCoordinator creates a coordinator. owner identifies this process in
// the lock record, for debugging stuck resets.
func NewCoordinator(store Store, owner string, logger zerolog.Logger) *Coordinator {
	return &Coordinator{
		store:  store,
		owner:  owner,
		logger: logger,
		now:    time.Now,
	}
}

// period returns the current calendar period key, e.g. "2026-09".
func (c *Coordinator) period() string {
	return c.now().UTC().Format("2006-01")
}

// Check compares the calendar period against the stored marker and, on a
// boundary, races for the lock and wipes. Losers of the race do nothing.
// Failures are logged and left for a later attempt; they never block
// message traffic.
func (c *Coordinator) Check(ctx context.Context) error {
	period := c.period()

	stored, err := c.store.CurrentPeriod(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("reset: period check failed")
		return err
	}
	if stored == period {
		return nil
	}

	acquired, err := c.store.AcquireResetLock(ctx, c.owner, LockTTL)
	if err != nil {
		c.logger.Error().Err(err).Msg("reset: lock acquire failed")
		return err
	}
	if !acquired {
		return nil
	}
	// Release even on failure so a retry is not blocked beyond the lock's
	// own expiry.
	defer func() {
		if err := c.store.ReleaseResetLock(ctx); err != nil {
			c.logger.Error().Err(err).Msg("reset: lock release failed")
		}
	}()

	// Re-check under the lock: another process may have completed the
	// reset between our first read and the acquire.
	stored, err = c.store.CurrentPeriod(ctx)
	if err != nil {
		c.logger.Error().Err(err).Msg("reset: period re-check failed")
		return err
	}
	if stored == period {
		return nil
	}

	c.logger.Info().
		Str("old_period", stored).
		Str("new_period", period).
		Msg("reset: wiping shared state")

	if err := c.store.WipeAll(ctx); err != nil {
		c.logger.Error().Err(err).Msg("reset: wipe failed")
		return err
	}

	if err := c.store.SetCurrentPeriod(ctx, period); err != nil {
		c.logger.Error().Err(err).Msg("reset: period marker write failed")
		return err
	}

	metrics.ResetsPerformed.Inc()
	c.logger.Info().Str("period", period).Msg("reset: completed")
	return nil
}

// Run checks once immediately, then on every tick until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, interval time.Duration) {
	_ = c.Check(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = c.Check(ctx)
		}
	}
}
