package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voltlog/internal/models"
	"voltlog/internal/service/servicetest"
)

func newTestTripTracker(store TripStore) *TripTracker {
	return NewTripTracker(store, 500, 20, 3, nil, zap.NewNop())
}

func driveSample(session string, at time.Time, odo, soc, rpm float64) *models.TelemetrySample {
	return &models.TelemetrySample{
		SessionID:     session,
		RecordedAt:    at,
		OdometerMiles: fptr(odo),
		SOCPercent:    fptr(soc),
		EngineRPM:     fptr(rpm),
	}
}

func TestOpenOrUpdateCreatesTripFromFirstSample(t *testing.T) {
	store := servicetest.NewFakeTripStore()
	tracker := newTestTripTracker(store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base, 1000, 80, 0)))

	trip := store.Get("s1")
	assert.Equal(t, base, trip.StartTime)
	require.NotNil(t, trip.StartOdometer)
	assert.InDelta(t, 1000, *trip.StartOdometer, 1e-9)
	require.NotNil(t, trip.StartSOC)
	assert.InDelta(t, 80, *trip.StartSOC, 1e-9)
	assert.False(t, trip.Closed)
}

func TestOpenOrUpdateBackfillsZeroValues(t *testing.T) {
	store := servicetest.NewFakeTripStore()
	tracker := newTestTripTracker(store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	// First sample has no odometer and no SOC.
	require.NoError(t, tracker.OpenOrUpdate(ctx, &models.TelemetrySample{
		SessionID:  "s1",
		RecordedAt: base,
	}))
	// Second sample backfills both with literal zeros.
	require.NoError(t, tracker.OpenOrUpdate(ctx, &models.TelemetrySample{
		SessionID:     "s1",
		RecordedAt:    base.Add(10 * time.Second),
		OdometerMiles: fptr(0),
		SOCPercent:    fptr(0),
	}))

	trip := store.Get("s1")
	require.NotNil(t, trip.StartOdometer)
	assert.Zero(t, *trip.StartOdometer)
	require.NotNil(t, trip.StartSOC)
	assert.Zero(t, *trip.StartSOC)

	// A later, different reading must not overwrite the populated zero.
	require.NoError(t, tracker.OpenOrUpdate(ctx, &models.TelemetrySample{
		SessionID:     "s1",
		RecordedAt:    base.Add(20 * time.Second),
		OdometerMiles: fptr(5),
		SOCPercent:    fptr(50),
	}))
	trip = store.Get("s1")
	assert.Zero(t, *trip.StartOdometer)
	assert.Zero(t, *trip.StartSOC)
}

func TestGasModeRejectsSingleSpike(t *testing.T) {
	store := servicetest.NewFakeTripStore()
	tracker := newTestTripTracker(store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base, 1000, 18, 0)))
	// One qualifying spike surrounded by normal samples.
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(10*time.Second), 1001, 18, 2200)))
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(20*time.Second), 1002, 18, 0)))
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(30*time.Second), 1003, 18, 2200)))
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(40*time.Second), 1004, 18, 2200)))

	trip := store.Get("s1")
	assert.False(t, trip.GasModeEntered)
	assert.Zero(t, store.TransitionCount())
}

func TestGasModeConfirmedAfterSustainedRun(t *testing.T) {
	store := servicetest.NewFakeTripStore()
	tracker := newTestTripTracker(store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base, 1000, 25, 0)))
	// Three consecutive qualifying samples with falling SOC.
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(10*time.Second), 1002, 19, 1500)))
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(20*time.Second), 1004, 18, 1600)))
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(30*time.Second), 1006, 17, 1700)))

	trip := store.Get("s1")
	assert.True(t, trip.GasModeEntered)
	require.Equal(t, 1, store.TransitionCount())

	// Both the transition row and the trip report the FIRST qualifying
	// sample of the run, not the confirming one.
	transition := store.Transition(trip.ID)
	assert.InDelta(t, 19, transition.SOCPercent, 1e-9)
	assert.Equal(t, base.Add(10*time.Second), transition.OccurredAt)
	require.NotNil(t, transition.OdometerMiles)
	assert.InDelta(t, 1002, *transition.OdometerMiles, 1e-9)
	require.NotNil(t, trip.SOCAtGasTransition)
	assert.InDelta(t, 19, *trip.SOCAtGasTransition, 1e-9)
	require.NotNil(t, trip.TransitionOdometer)
	assert.InDelta(t, 1002, *trip.TransitionOdometer, 1e-9)
}

func TestGasModeRequiresBothConditions(t *testing.T) {
	store := servicetest.NewFakeTripStore()
	tracker := newTestTripTracker(store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	// High RPM but healthy SOC: engine warmup, not gas propulsion.
	for i := 0; i < 5; i++ {
		require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(time.Duration(i)*10*time.Second), 1000+float64(i), 80, 1800)))
	}

	trip := store.Get("s1")
	assert.False(t, trip.GasModeEntered)
}

func TestFinalizeComputesDistanceAndSplit(t *testing.T) {
	store := servicetest.NewFakeTripStore()
	tracker := newTestTripTracker(store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base, 1000, 25, 0)))
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(10*time.Second), 1004, 19, 1500)))
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(20*time.Second), 1006, 18, 1600)))
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(30*time.Second), 1008, 17, 1700)))

	trip := store.Get("s1")
	last := driveSample("s1", base.Add(40*time.Second), 1010, 16, 1700)
	require.NoError(t, tracker.Finalize(ctx, &trip, last))

	closed := store.Get("s1")
	assert.True(t, closed.Closed)
	require.NotNil(t, closed.DistanceMiles)
	assert.InDelta(t, 10, *closed.DistanceMiles, 1e-9)
	// Transition at odometer 1004: 4 electric miles, 6 gas miles.
	require.NotNil(t, closed.ElectricMiles)
	assert.InDelta(t, 4, *closed.ElectricMiles, 1e-9)
	require.NotNil(t, closed.GasMiles)
	assert.InDelta(t, 6, *closed.GasMiles, 1e-9)
}

func TestFinalizeWithoutTransitionIsAllElectric(t *testing.T) {
	store := servicetest.NewFakeTripStore()
	tracker := newTestTripTracker(store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base, 1000, 80, 0)))

	trip := store.Get("s1")
	require.NoError(t, tracker.Finalize(ctx, &trip, driveSample("s1", base.Add(time.Minute), 1012, 70, 0)))

	closed := store.Get("s1")
	require.NotNil(t, closed.DistanceMiles)
	assert.InDelta(t, 12, *closed.DistanceMiles, 1e-9)
	assert.InDelta(t, 12, *closed.ElectricMiles, 1e-9)
	assert.Zero(t, *closed.GasMiles)
}

func TestFinalizeFailsClosedOnMissingOdometer(t *testing.T) {
	store := servicetest.NewFakeTripStore()
	tracker := newTestTripTracker(store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.OpenOrUpdate(ctx, &models.TelemetrySample{
		SessionID:  "s1",
		RecordedAt: base,
		SOCPercent: fptr(80),
	}))

	trip := store.Get("s1")
	last := &models.TelemetrySample{SessionID: "s1", RecordedAt: base.Add(time.Minute)}
	require.NoError(t, tracker.Finalize(ctx, &trip, last))

	closed := store.Get("s1")
	assert.True(t, closed.Closed)
	assert.Nil(t, closed.DistanceMiles)
	assert.Nil(t, closed.ElectricMiles)
	assert.Nil(t, closed.GasMiles)
}

func TestFinalizeLeavesSamplelessTripOpen(t *testing.T) {
	store := servicetest.NewFakeTripStore()
	tracker := newTestTripTracker(store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base, 1000, 80, 0)))

	trip := store.Get("s1")
	require.NoError(t, tracker.Finalize(ctx, &trip, nil))

	assert.False(t, store.Get("s1").Closed)
}

func TestOpenOrUpdateIgnoresClosedTrips(t *testing.T) {
	store := servicetest.NewFakeTripStore()
	tracker := newTestTripTracker(store)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base, 1000, 80, 0)))
	trip := store.Get("s1")
	require.NoError(t, tracker.Finalize(ctx, &trip, driveSample("s1", base.Add(time.Minute), 1010, 70, 0)))

	// A straggler sample after close must not reopen or mutate the trip.
	require.NoError(t, tracker.OpenOrUpdate(ctx, driveSample("s1", base.Add(2*time.Minute), 1020, 60, 0)))
	closed := store.Get("s1")
	assert.True(t, closed.Closed)
	assert.InDelta(t, 10, *closed.DistanceMiles, 1e-9)
}
