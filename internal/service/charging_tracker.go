package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"voltlog/internal/calc"
	"voltlog/internal/models"
)

// ChargingTracker maintains the single global charging state machine:
// ABSENT -> OPEN (charger newly connected) -> CLOSED (timeout or disconnect).
// The open session is the highest-contention row in the system, so every
// path re-fetches it from the store before writing.
type ChargingTracker struct {
	sessions ChargingStore

	l1MaxKW         float64
	l2MaxKW         float64
	batteryCapacity float64
	electricityRate float64
	maxCurvePoints  int

	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewChargingTracker builds the tracker.
func NewChargingTracker(sessions ChargingStore, l1MaxKW, l2MaxKW, batteryCapacityKWh, electricityRate float64, maxCurvePoints int, notifier Notifier, logger *zap.Logger) *ChargingTracker {
	if maxCurvePoints < 1 {
		maxCurvePoints = 500
	}
	return &ChargingTracker{
		sessions:        sessions,
		l1MaxKW:         l1MaxKW,
		l2MaxKW:         l2MaxKW,
		batteryCapacity: batteryCapacityKWh,
		electricityRate: electricityRate,
		maxCurvePoints:  maxCurvePoints,
		notifier:        notifier,
		logger:          logger,
		now:             time.Now,
	}
}

// Observe applies one sample to the charging state machine. Samples without a
// charger-connected flag say nothing about charging and are skipped.
func (c *ChargingTracker) Observe(ctx context.Context, sample *models.TelemetrySample) error {
	if sample.ChargerConnected == nil {
		return nil
	}

	session, err := c.sessions.Open(ctx)
	if err != nil {
		return err
	}

	if !*sample.ChargerConnected {
		if session == nil {
			return nil
		}
		// Explicit disconnect closes immediately instead of waiting for
		// the reconciler timeout.
		return c.Finalize(ctx, session)
	}

	if session == nil {
		seed := &models.ChargingSession{
			StartTime:    sample.RecordedAt,
			StartSOC:     sample.SOCPercent,
			ChargeType:   c.Classify(sample.ChargerPowerKW),
			Latitude:     sample.Latitude,
			Longitude:    sample.Longitude,
			LastSampleAt: sample.RecordedAt,
		}
		session, err = c.sessions.Create(ctx, seed)
		if err != nil {
			return err
		}
		c.logger.Info("charging session started",
			zap.Int64("charging_session_id", session.ID),
			zap.String("charge_type", session.ChargeType),
		)
	}

	return c.update(ctx, session, sample)
}

func (c *ChargingTracker) update(ctx context.Context, session *models.ChargingSession, sample *models.TelemetrySample) error {
	// Any present SOC updates the end SOC, including exactly zero.
	if sample.SOCPercent != nil {
		session.EndSOC = sample.SOCPercent
	}

	if sample.ChargerPowerKW != nil {
		power := *sample.ChargerPowerKW
		if session.PeakPowerKW == nil || power > *session.PeakPowerKW {
			session.PeakPowerKW = &power
		}
		session.PowerSumKW += power
		session.PowerSamples++
		// Reclassify from peak power: the first connected sample often
		// reports zero watts before the charger ramps.
		session.ChargeType = c.Classify(session.PeakPowerKW)

		if len(session.Curve) < c.maxCurvePoints {
			point := models.CurvePoint{PowerKW: power, RecordedAt: sample.RecordedAt}
			if sample.SOCPercent != nil {
				point.SOCPercent = *sample.SOCPercent
			}
			session.Curve = append(session.Curve, point)
		} else if !session.CurveTruncated {
			session.CurveTruncated = true
			c.logger.Warn("charging curve capped, dropping further points",
				zap.Int64("charging_session_id", session.ID),
				zap.Int("max_points", c.maxCurvePoints),
			)
		}
	}

	if sample.RecordedAt.After(session.LastSampleAt) {
		session.LastSampleAt = sample.RecordedAt
	}

	return c.sessions.Update(ctx, session)
}

// Classify maps charger power to a charge type by ascending thresholds.
// Null or zero power defaults to L1.
func (c *ChargingTracker) Classify(powerKW *float64) string {
	if powerKW == nil || *powerKW <= 0 {
		return models.ChargeTypeL1
	}
	switch {
	case *powerKW < c.l1MaxKW:
		return models.ChargeTypeL1
	case *powerKW < c.l2MaxKW:
		return models.ChargeTypeL2
	default:
		return models.ChargeTypeDCFC
	}
}

// Finalize closes a charging session. End time comes from the last charging
// sample, falling back to the current time when the session never saw one.
func (c *ChargingTracker) Finalize(ctx context.Context, session *models.ChargingSession) error {
	end := session.LastSampleAt
	if end.IsZero() {
		end = c.now().UTC()
	}
	session.EndTime = &end

	// kWh added is recorded only for a positive SOC delta. An observed
	// mid-window discharge yields null, never a negative number.
	session.EnergyAddedKWh = nil
	session.Cost = nil
	if session.StartSOC != nil && session.EndSOC != nil {
		energy, err := calc.EnergyFromSOCDelta(*session.StartSOC, *session.EndSOC, c.batteryCapacity)
		switch {
		case err != nil:
			c.logger.Warn("charging energy unavailable",
				zap.Int64("charging_session_id", session.ID),
				zap.Error(err),
			)
		case energy > 0:
			session.EnergyAddedKWh = &energy
			if c.electricityRate > 0 {
				if cost, err := calc.ChargeCost(energy, c.electricityRate); err == nil {
					session.Cost = &cost
				}
			}
		}
	}

	if session.PowerSamples > 0 {
		avg := session.PowerSumKW / float64(session.PowerSamples)
		session.AvgPowerKW = &avg
	}

	closed, err := c.sessions.Close(ctx, session)
	if err != nil {
		return err
	}
	if !closed {
		c.logger.Debug("charging session already completed", zap.Int64("charging_session_id", session.ID))
		return nil
	}
	session.Completed = true

	c.logger.Info("charging session completed",
		zap.Int64("charging_session_id", session.ID),
		zap.String("charge_type", session.ChargeType),
	)
	if c.notifier != nil {
		c.notifier.ChargingCompleted(session)
	}
	return nil
}
