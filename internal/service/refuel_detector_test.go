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

func fuelSample(at time.Time, level float64) models.TelemetrySample {
	return models.TelemetrySample{
		RecordedAt:       at,
		FuelLevelPercent: fptr(level),
	}
}

func TestRefuelJumpRecordsOneEvent(t *testing.T) {
	store := servicetest.NewFakeFuelStore()
	detector := NewRefuelDetector(store, 8, 8.9, zap.NewNop())
	ctx := context.Background()

	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	samples := []models.TelemetrySample{
		fuelSample(t1, 40),
		fuelSample(t1.Add(time.Minute), 90),
	}
	require.NoError(t, detector.Scan(ctx, samples))

	require.Len(t, store.Events(), 1)
	event := store.Events()[0]
	assert.Equal(t, t1.Add(time.Minute), event.OccurredAt)
	assert.InDelta(t, 40, event.BeforePercent, 1e-9)
	assert.InDelta(t, 90, event.AfterPercent, 1e-9)
	assert.InDelta(t, 0.5*8.9, event.GallonsAdded, 1e-9)
}

func TestFuelDropRecordsNothing(t *testing.T) {
	store := servicetest.NewFakeFuelStore()
	detector := NewRefuelDetector(store, 8, 8.9, zap.NewNop())
	ctx := context.Background()

	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	samples := []models.TelemetrySample{
		fuelSample(t1, 90),
		fuelSample(t1.Add(time.Minute), 40),
	}
	require.NoError(t, detector.Scan(ctx, samples))

	assert.Empty(t, store.Events())
}

func TestSmallJumpBelowThresholdIgnored(t *testing.T) {
	store := servicetest.NewFakeFuelStore()
	detector := NewRefuelDetector(store, 8, 8.9, zap.NewNop())
	ctx := context.Background()

	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	samples := []models.TelemetrySample{
		fuelSample(t1, 40),
		fuelSample(t1.Add(time.Minute), 45), // sensor slosh, not a refuel
	}
	require.NoError(t, detector.Scan(ctx, samples))

	assert.Empty(t, store.Events())
}

func TestOverlappingScansDeduplicate(t *testing.T) {
	store := servicetest.NewFakeFuelStore()
	detector := NewRefuelDetector(store, 8, 8.9, zap.NewNop())
	ctx := context.Background()

	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	samples := []models.TelemetrySample{
		fuelSample(t1, 40),
		fuelSample(t1.Add(time.Minute), 90),
		fuelSample(t1.Add(2*time.Minute), 89),
	}
	require.NoError(t, detector.Scan(ctx, samples))
	// Reconciler reprocesses an overlapping tail on the next tick.
	require.NoError(t, detector.Scan(ctx, samples))

	assert.Len(t, store.Events(), 1)
}

func TestScanSkipsSamplesWithoutFuelReading(t *testing.T) {
	store := servicetest.NewFakeFuelStore()
	detector := NewRefuelDetector(store, 8, 8.9, zap.NewNop())
	ctx := context.Background()

	t1 := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	samples := []models.TelemetrySample{
		fuelSample(t1, 40),
		{RecordedAt: t1.Add(30 * time.Second)}, // no fuel field
		fuelSample(t1.Add(time.Minute), 90),
	}
	require.NoError(t, detector.Scan(ctx, samples))

	// The gap sample is transparent; the jump is still between neighbors
	// that carry readings.
	assert.Len(t, store.Events(), 1)
}
