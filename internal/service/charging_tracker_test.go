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

func newTestChargingTracker(store ChargingStore, maxCurvePoints int) *ChargingTracker {
	return NewChargingTracker(store, 2.0, 20.0, 18.4, 0.13, maxCurvePoints, nil, zap.NewNop())
}

func chargeSample(at time.Time, soc, power float64) *models.TelemetrySample {
	return &models.TelemetrySample{
		RecordedAt:       at,
		SOCPercent:       fptr(soc),
		ChargerConnected: bptr(true),
		ChargerPowerKW:   fptr(power),
	}
}

func TestClassify(t *testing.T) {
	tracker := newTestChargingTracker(servicetest.NewFakeChargingStore(), 500)

	tests := []struct {
		name  string
		power *float64
		want  string
	}{
		{name: "level one", power: fptr(1.4), want: models.ChargeTypeL1},
		{name: "level two", power: fptr(6.6), want: models.ChargeTypeL2},
		{name: "dc fast", power: fptr(50), want: models.ChargeTypeDCFC},
		{name: "null power defaults L1", power: nil, want: models.ChargeTypeL1},
		{name: "zero power defaults L1", power: fptr(0), want: models.ChargeTypeL1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tracker.Classify(tt.power))
		})
	}
}

func TestObserveStartsSingleGlobalSession(t *testing.T) {
	store := servicetest.NewFakeChargingStore()
	tracker := newTestChargingTracker(store, 500)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.Observe(ctx, chargeSample(base, 30, 6.6)))
	require.NoError(t, tracker.Observe(ctx, chargeSample(base.Add(time.Minute), 31, 6.6)))

	open, err := store.Open(ctx)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, base, open.StartTime)
	require.NotNil(t, open.StartSOC)
	assert.InDelta(t, 30, *open.StartSOC, 1e-9)
	assert.Equal(t, models.ChargeTypeL2, open.ChargeType)
	assert.Equal(t, 1, store.SessionCount())
}

func TestObserveIgnoresSamplesWithoutChargerFlag(t *testing.T) {
	store := servicetest.NewFakeChargingStore()
	tracker := newTestChargingTracker(store, 500)
	ctx := context.Background()

	require.NoError(t, tracker.Observe(ctx, &models.TelemetrySample{
		RecordedAt: time.Now(),
		SOCPercent: fptr(50),
	}))

	open, err := store.Open(ctx)
	require.NoError(t, err)
	assert.Nil(t, open)
}

func TestUpdateKeepsZeroEndSOC(t *testing.T) {
	store := servicetest.NewFakeChargingStore()
	tracker := newTestChargingTracker(store, 500)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.Observe(ctx, chargeSample(base, 5, 1.4)))
	// A zero SOC reading is a reading, not an absent field.
	require.NoError(t, tracker.Observe(ctx, chargeSample(base.Add(time.Minute), 0, 1.4)))

	open, err := store.Open(ctx)
	require.NoError(t, err)
	require.NotNil(t, open.EndSOC)
	assert.Zero(t, *open.EndSOC)
}

func TestUpdateTracksPeakAndReclassifies(t *testing.T) {
	store := servicetest.NewFakeChargingStore()
	tracker := newTestChargingTracker(store, 500)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	// Charger handshakes at zero watts, then ramps into DCFC territory.
	require.NoError(t, tracker.Observe(ctx, chargeSample(base, 30, 0)))
	require.NoError(t, tracker.Observe(ctx, chargeSample(base.Add(time.Minute), 31, 48)))
	require.NoError(t, tracker.Observe(ctx, chargeSample(base.Add(2*time.Minute), 33, 50)))
	require.NoError(t, tracker.Observe(ctx, chargeSample(base.Add(3*time.Minute), 35, 42)))

	open, err := store.Open(ctx)
	require.NoError(t, err)
	require.NotNil(t, open.PeakPowerKW)
	assert.InDelta(t, 50, *open.PeakPowerKW, 1e-9)
	assert.Equal(t, models.ChargeTypeDCFC, open.ChargeType)
}

func TestCurveCapMarksTruncated(t *testing.T) {
	store := servicetest.NewFakeChargingStore()
	tracker := newTestChargingTracker(store, 3)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		require.NoError(t, tracker.Observe(ctx, chargeSample(base.Add(time.Duration(i)*time.Minute), 30+float64(i), 6.6)))
	}

	open, err := store.Open(ctx)
	require.NoError(t, err)
	assert.Len(t, open.Curve, 3)
	assert.True(t, open.CurveTruncated)
}

func TestFinalizeComputesEnergyFromZeroStartSOC(t *testing.T) {
	store := servicetest.NewFakeChargingStore()
	tracker := newTestChargingTracker(store, 500)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	// Start SOC is exactly zero: populated, not missing.
	require.NoError(t, tracker.Observe(ctx, chargeSample(base, 0, 6.6)))
	require.NoError(t, tracker.Observe(ctx, chargeSample(base.Add(time.Hour), 50, 6.6)))

	open, err := store.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, tracker.Finalize(ctx, open))

	done := store.ByID(open.ID)
	assert.True(t, done.Completed)
	require.NotNil(t, done.EnergyAddedKWh)
	assert.InDelta(t, 9.2, *done.EnergyAddedKWh, 1e-9)
	require.NotNil(t, done.Cost)
	assert.InDelta(t, 9.2*0.13, *done.Cost, 1e-9)
	require.NotNil(t, done.EndTime)
	assert.Equal(t, base.Add(time.Hour), *done.EndTime)
}

func TestFinalizeNegativeDeltaYieldsNullEnergy(t *testing.T) {
	store := servicetest.NewFakeChargingStore()
	tracker := newTestChargingTracker(store, 500)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.Observe(ctx, chargeSample(base, 60, 1.4)))
	// Observed mid-window discharge.
	require.NoError(t, tracker.Observe(ctx, chargeSample(base.Add(time.Minute), 55, 1.4)))

	open, err := store.Open(ctx)
	require.NoError(t, err)
	require.NoError(t, tracker.Finalize(ctx, open))

	done := store.ByID(open.ID)
	assert.True(t, done.Completed)
	assert.Nil(t, done.EnergyAddedKWh)
	assert.Nil(t, done.Cost)
}

func TestDisconnectClosesImmediately(t *testing.T) {
	store := servicetest.NewFakeChargingStore()
	tracker := newTestChargingTracker(store, 500)
	ctx := context.Background()

	base := time.Date(2025, 6, 1, 22, 0, 0, 0, time.UTC)
	require.NoError(t, tracker.Observe(ctx, chargeSample(base, 30, 6.6)))
	require.NoError(t, tracker.Observe(ctx, chargeSample(base.Add(time.Hour), 80, 6.6)))

	require.NoError(t, tracker.Observe(ctx, &models.TelemetrySample{
		RecordedAt:       base.Add(61 * time.Minute),
		ChargerConnected: bptr(false),
	}))

	open, err := store.Open(ctx)
	require.NoError(t, err)
	assert.Nil(t, open)

	done := store.ByID(1)
	assert.True(t, done.Completed)
	require.NotNil(t, done.EnergyAddedKWh)
	assert.InDelta(t, 18.4*0.5, *done.EnergyAddedKWh, 1e-9)
	require.NotNil(t, done.AvgPowerKW)
	assert.InDelta(t, 6.6, *done.AvgPowerKW, 1e-9)
}

func TestFinalizeFallsBackToWallClock(t *testing.T) {
	store := servicetest.NewFakeChargingStore()
	tracker := newTestChargingTracker(store, 500)
	now := time.Date(2025, 6, 2, 7, 0, 0, 0, time.UTC)
	tracker.now = func() time.Time { return now }
	ctx := context.Background()

	session, err := store.Create(ctx, &models.ChargingSession{
		StartTime:  now.Add(-time.Hour),
		ChargeType: models.ChargeTypeL1,
	})
	require.NoError(t, err)
	require.NoError(t, tracker.Finalize(ctx, session))

	done := store.ByID(session.ID)
	require.NotNil(t, done.EndTime)
	assert.Equal(t, now, *done.EndTime)
}
