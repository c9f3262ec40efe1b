// Package reconciler runs the periodic job that finalizes state machines
// whose input stream has gone silent.
package reconciler

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"go.uber.org/zap"

	"voltlog/internal/service"
)

// Reconciler executes three independent sweeps per tick: stale trips, the
// stale charging session, and the refuel window. Sweeps run sequentially but
// are individually fault-isolated; a failure in one never blocks the others,
// and the next tick retries everything.
type Reconciler struct {
	samples  service.SampleStore
	trips    service.TripStore
	charging service.ChargingStore

	tripTracker     *service.TripTracker
	chargingTracker *service.ChargingTracker
	refuelDetector  *service.RefuelDetector

	interval        time.Duration
	tripTimeout     time.Duration
	chargingTimeout time.Duration
	refuelLookback  time.Duration

	logger *zap.Logger
	now    func() time.Time
}

// Options carries the timing knobs for the reconciler.
type Options struct {
	Interval        time.Duration
	TripTimeout     time.Duration
	ChargingTimeout time.Duration
	RefuelLookback  time.Duration
}

// New builds a reconciler.
func New(
	samples service.SampleStore,
	trips service.TripStore,
	charging service.ChargingStore,
	tripTracker *service.TripTracker,
	chargingTracker *service.ChargingTracker,
	refuelDetector *service.RefuelDetector,
	opts Options,
	logger *zap.Logger,
) *Reconciler {
	if opts.Interval <= 0 {
		opts.Interval = 5 * time.Minute
	}
	if opts.TripTimeout <= 0 {
		opts.TripTimeout = 10 * time.Minute
	}
	if opts.ChargingTimeout <= 0 {
		opts.ChargingTimeout = 15 * time.Minute
	}
	if opts.RefuelLookback <= 0 {
		opts.RefuelLookback = 30 * time.Minute
	}
	return &Reconciler{
		samples:         samples,
		trips:           trips,
		charging:        charging,
		tripTracker:     tripTracker,
		chargingTracker: chargingTracker,
		refuelDetector:  refuelDetector,
		interval:        opts.Interval,
		tripTimeout:     opts.TripTimeout,
		chargingTimeout: opts.ChargingTimeout,
		refuelLookback:  opts.RefuelLookback,
		logger:          logger,
		now:             time.Now,
	}
}

// Run ticks until the context is cancelled. It never blocks ingestion:
// correctness against racing writers comes from the store's row transactions
// plus the eligibility re-check inside each close.
func (r *Reconciler) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("reconciler started", zap.Duration("interval", r.interval))
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("reconciler stopped")
			return
		case <-ticker.C:
			r.RunOnce(ctx)
		}
	}
}

// RunOnce performs one tick: all three sweeps, each isolated.
func (r *Reconciler) RunOnce(ctx context.Context) {
	r.sweep(ctx, "stale_trips", r.sweepStaleTrips)
	r.sweep(ctx, "stale_charging", r.sweepStaleCharging)
	r.sweep(ctx, "refuel_window", r.sweepRefuelWindow)
}

// sweep runs one sweep function, containing both errors and panics so the
// remaining sweeps of this tick still execute.
func (r *Reconciler) sweep(ctx context.Context, name string, fn func(context.Context) error) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("sweep panicked",
				zap.String("sweep", name),
				zap.Any("panic", rec),
				zap.ByteString("stack", debug.Stack()),
			)
		}
	}()

	if err := fn(ctx); err != nil {
		r.logger.Error("sweep failed",
			zap.String("sweep", name),
			zap.Error(err),
		)
	}
}

func (r *Reconciler) sweepStaleTrips(ctx context.Context) error {
	cutoff := r.now().Add(-r.tripTimeout)
	stale, err := r.trips.OpenBefore(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("list stale trips: %w", err)
	}

	for i := range stale {
		trip := stale[i]
		last, err := r.samples.LastBySession(ctx, trip.SessionID)
		if err != nil {
			r.logger.Warn("last sample lookup failed",
				zap.Int64("trip_id", trip.ID),
				zap.Error(err),
			)
			continue
		}
		if err := r.tripTracker.Finalize(ctx, &trip, last); err != nil {
			// One stuck trip must not starve the rest of the sweep.
			r.logger.Warn("trip finalize failed",
				zap.Int64("trip_id", trip.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (r *Reconciler) sweepStaleCharging(ctx context.Context) error {
	session, err := r.charging.Open(ctx)
	if err != nil {
		return fmt.Errorf("open charging lookup: %w", err)
	}
	if session == nil {
		return nil
	}

	cutoff := r.now().Add(-r.chargingTimeout)
	if !session.LastSampleAt.Before(cutoff) {
		return nil
	}
	return r.chargingTracker.Finalize(ctx, session)
}

func (r *Reconciler) sweepRefuelWindow(ctx context.Context) error {
	cutoff := r.now().Add(-r.refuelLookback)
	window, err := r.samples.Since(ctx, cutoff)
	if err != nil {
		return fmt.Errorf("sample window: %w", err)
	}
	return r.refuelDetector.Scan(ctx, window)
}
