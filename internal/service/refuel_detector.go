package service

import (
	"context"

	"go.uber.org/zap"

	"voltlog/internal/calc"
	"voltlog/internal/models"
)

// RefuelDetector is a stateless comparison of consecutive fuel readings,
// independent of trip boundaries. It runs once on the live ingest path and
// again inside the reconciler's windowed sweep; the timestamp dedup keeps the
// two from double-recording the same jump.
type RefuelDetector struct {
	fuel FuelStore

	jumpPercent float64
	tankGallons float64

	logger *zap.Logger
}

// NewRefuelDetector builds the detector.
func NewRefuelDetector(fuel FuelStore, jumpPercent, tankCapacityGal float64, logger *zap.Logger) *RefuelDetector {
	return &RefuelDetector{
		fuel:        fuel,
		jumpPercent: jumpPercent,
		tankGallons: tankCapacityGal,
		logger:      logger,
	}
}

// CheckPair compares one sample against its immediate predecessor and records
// a FuelEvent when the fuel level jumped by at least the threshold.
func (d *RefuelDetector) CheckPair(ctx context.Context, prev, cur *models.TelemetrySample) error {
	if prev == nil || cur == nil {
		return nil
	}
	if prev.FuelLevelPercent == nil || cur.FuelLevelPercent == nil {
		return nil
	}

	delta := *cur.FuelLevelPercent - *prev.FuelLevelPercent
	if delta < d.jumpPercent {
		return nil
	}

	exists, err := d.fuel.ExistsAt(ctx, cur.RecordedAt)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	gallons, err := calc.GallonsFromLevelDelta(delta, d.tankGallons)
	if err != nil {
		d.logger.Warn("refuel gallons unavailable", zap.Error(err))
		return nil
	}

	event := &models.FuelEvent{
		OccurredAt:    cur.RecordedAt,
		BeforePercent: *prev.FuelLevelPercent,
		AfterPercent:  *cur.FuelLevelPercent,
		GallonsAdded:  gallons,
		OdometerMiles: cur.OdometerMiles,
	}
	if err := d.fuel.Insert(ctx, event); err != nil {
		return err
	}

	d.logger.Info("refuel detected",
		zap.Time("occurred_at", event.OccurredAt),
		zap.Float64("gallons_added", event.GallonsAdded),
	)
	return nil
}

// Scan walks a window of samples in timestamp order, applying CheckPair to
// each consecutive pair that carries a fuel reading. Safe to rerun over
// overlapping windows.
func (d *RefuelDetector) Scan(ctx context.Context, samples []models.TelemetrySample) error {
	var prev *models.TelemetrySample
	for i := range samples {
		cur := &samples[i]
		if cur.FuelLevelPercent == nil {
			continue
		}
		if prev != nil {
			if err := d.CheckPair(ctx, prev, cur); err != nil {
				return err
			}
		}
		prev = cur
	}
	return nil
}
