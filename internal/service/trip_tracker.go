package service

import (
	"context"

	"go.uber.org/zap"

	"voltlog/internal/calc"
	"voltlog/internal/models"
)

// TripTracker maintains the per-session trip state machine:
// OPEN -> OPEN+GAS_MODE (sustained RPM+SOC condition) -> CLOSED (timeout).
// All state lives in the store; the tracker itself is stateless and safe for
// concurrent use across ingestion workers.
type TripTracker struct {
	trips TripStore

	rpmThreshold float64
	socThreshold float64
	consecutive  int

	notifier Notifier
	logger   *zap.Logger
}

// NewTripTracker builds the tracker.
func NewTripTracker(trips TripStore, rpmThreshold, socThreshold float64, consecutive int, notifier Notifier, logger *zap.Logger) *TripTracker {
	if consecutive < 1 {
		consecutive = 1
	}
	return &TripTracker{
		trips:        trips,
		rpmThreshold: rpmThreshold,
		socThreshold: socThreshold,
		consecutive:  consecutive,
		notifier:     notifier,
		logger:       logger,
	}
}

// OpenOrUpdate applies one sample to its session's trip, creating the trip
// from the first sample. Samples without a session id carry no trip signal
// and are skipped.
func (t *TripTracker) OpenOrUpdate(ctx context.Context, sample *models.TelemetrySample) error {
	if sample.SessionID == "" {
		return nil
	}

	seed := &models.Trip{
		SessionID:     sample.SessionID,
		StartTime:     sample.RecordedAt,
		StartOdometer: sample.OdometerMiles,
		StartSOC:      sample.SOCPercent,
		LastSampleAt:  sample.RecordedAt,
	}
	trip, err := t.trips.GetOrCreate(ctx, seed)
	if err != nil {
		return err
	}

	if trip.Closed {
		t.logger.Warn("sample arrived for closed trip, ignoring",
			zap.String("session_id", sample.SessionID),
			zap.Int64("trip_id", trip.ID),
		)
		return nil
	}

	// Backfill start fields only while unpopulated. Presence check, never
	// truthiness: zero is a real odometer and a real SOC.
	if trip.StartOdometer == nil && sample.OdometerMiles != nil {
		trip.StartOdometer = sample.OdometerMiles
	}
	if trip.StartSOC == nil && sample.SOCPercent != nil {
		trip.StartSOC = sample.SOCPercent
	}
	if sample.RecordedAt.After(trip.LastSampleAt) {
		trip.LastSampleAt = sample.RecordedAt
	}

	if !trip.GasModeEntered {
		if confirmed, err := t.trackGasMode(ctx, trip, sample); err != nil || confirmed {
			return err
		}
	}

	return t.trips.UpdateTracking(ctx, trip)
}

// trackGasMode advances or resets the hysteresis run and reports whether this
// sample confirmed the transition (in which case the trip is already
// persisted via ConfirmGasMode).
func (t *TripTracker) trackGasMode(ctx context.Context, trip *models.Trip, sample *models.TelemetrySample) (bool, error) {
	qualifies := sample.EngineRPM != nil && *sample.EngineRPM > t.rpmThreshold &&
		sample.SOCPercent != nil && *sample.SOCPercent < t.socThreshold

	if !qualifies {
		// A single non-qualifying sample breaks the run. This is what
		// rejects the momentary RPM spike.
		trip.GasCandidateCount = 0
		trip.GasCandidateSOC = nil
		trip.GasCandidateOdometer = nil
		trip.GasCandidateTime = nil
		trip.GasCandidateTemp = nil
		return false, nil
	}

	if trip.GasCandidateCount == 0 {
		// Snapshot the first qualifying sample; the confirmed transition
		// reports this sample, not the one that completed the run.
		ts := sample.RecordedAt
		trip.GasCandidateSOC = sample.SOCPercent
		trip.GasCandidateOdometer = sample.OdometerMiles
		trip.GasCandidateTime = &ts
		trip.GasCandidateTemp = sample.AmbientTempF
	}
	trip.GasCandidateCount++

	if trip.GasCandidateCount < t.consecutive {
		return false, nil
	}

	transition := &models.SocTransition{
		TripID:        trip.ID,
		SOCPercent:    *trip.GasCandidateSOC,
		OccurredAt:    *trip.GasCandidateTime,
		OdometerMiles: trip.GasCandidateOdometer,
		AmbientTempF:  trip.GasCandidateTemp,
	}
	trip.GasModeEntered = true
	trip.SOCAtGasTransition = trip.GasCandidateSOC
	trip.TransitionOdometer = trip.GasCandidateOdometer

	if err := t.trips.ConfirmGasMode(ctx, trip, transition); err != nil {
		return false, err
	}

	t.logger.Info("gas mode confirmed",
		zap.Int64("trip_id", trip.ID),
		zap.Float64("soc_at_transition", transition.SOCPercent),
	)
	return true, nil
}

// Finalize closes a trip against its last known sample. A trip with no
// samples stays open for a later sweep; that is a log line, not an error.
func (t *TripTracker) Finalize(ctx context.Context, trip *models.Trip, last *models.TelemetrySample) error {
	if last == nil {
		t.logger.Warn("trip has no samples, leaving open",
			zap.Int64("trip_id", trip.ID),
			zap.String("session_id", trip.SessionID),
		)
		return nil
	}

	end := last.RecordedAt
	trip.EndTime = &end
	trip.EndOdometer = last.OdometerMiles

	// Distance fails closed: a missing endpoint or a regressed odometer
	// yields null, never a guess.
	trip.DistanceMiles = nil
	trip.ElectricMiles = nil
	trip.GasMiles = nil
	if trip.StartOdometer != nil && trip.EndOdometer != nil {
		distance, err := calc.TripDistance(*trip.StartOdometer, *trip.EndOdometer)
		if err != nil {
			t.logger.Warn("trip distance unavailable",
				zap.Int64("trip_id", trip.ID),
				zap.Error(err),
			)
		} else {
			trip.DistanceMiles = &distance
			electric, gas := splitMiles(trip, distance)
			trip.ElectricMiles = &electric
			trip.GasMiles = &gas
		}
	}

	closed, err := t.trips.Close(ctx, trip)
	if err != nil {
		return err
	}
	if !closed {
		// Another sweep got there first; nothing to redo.
		t.logger.Debug("trip already closed", zap.Int64("trip_id", trip.ID))
		return nil
	}
	trip.Closed = true

	t.logger.Info("trip closed",
		zap.Int64("trip_id", trip.ID),
		zap.String("session_id", trip.SessionID),
		zap.Bool("gas_mode", trip.GasModeEntered),
	)
	if t.notifier != nil {
		t.notifier.TripClosed(trip)
	}
	return nil
}

// splitMiles divides a trip's distance at the first confirmed transition
// odometer: everything before it is electric, everything after is gas. A trip
// that never transitioned is entirely electric. Later returns to electric
// mode within the same trip are deliberately not re-split.
func splitMiles(trip *models.Trip, distance float64) (electric, gas float64) {
	if !trip.GasModeEntered || trip.TransitionOdometer == nil || trip.StartOdometer == nil || trip.EndOdometer == nil {
		return distance, 0
	}
	electric = clampNonNegative(*trip.TransitionOdometer - *trip.StartOdometer)
	gas = clampNonNegative(*trip.EndOdometer - *trip.TransitionOdometer)
	return electric, gas
}

func clampNonNegative(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}
