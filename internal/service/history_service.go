package service

import (
	"context"

	"go.uber.org/zap"

	"voltlog/internal/calc"
	"voltlog/internal/models"
)

// TripHistoryStore reads finished trips for the API.
type TripHistoryStore interface {
	List(ctx context.Context, limit int) ([]models.Trip, error)
	SoftDelete(ctx context.Context, id int64) (bool, error)
}

// ChargingHistoryStore reads completed charging sessions for the API.
type ChargingHistoryStore interface {
	Completed(ctx context.Context, limit int) ([]models.ChargingSession, error)
}

// FuelHistoryStore reads recorded fuel events for the API.
type FuelHistoryStore interface {
	List(ctx context.Context, limit int) ([]models.FuelEvent, error)
}

// BatteryHealth summarizes pack condition derived from metered charge cycles.
type BatteryHealth struct {
	RatedCapacityKWh     float64  `json:"rated_capacity_kwh"`
	EstimatedCapacityKWh *float64 `json:"estimated_capacity_kwh,omitempty"`
	DegradationKWhPerYr  *float64 `json:"degradation_kwh_per_year,omitempty"`
	SampleSessions       int      `json:"sample_sessions"`
}

// Minimum SOC rise for a session to contribute a capacity estimate; smaller
// deltas amplify charger meter noise beyond usefulness.
const minHealthSOCDelta = 20.0

// HistoryService serves the read API over reconstructed state.
type HistoryService struct {
	trips    TripHistoryStore
	charging ChargingHistoryStore
	fuel     FuelHistoryStore

	batteryCapacity float64
	logger          *zap.Logger
}

// NewHistoryService builds the service.
func NewHistoryService(trips TripHistoryStore, charging ChargingHistoryStore, fuel FuelHistoryStore, batteryCapacityKWh float64, logger *zap.Logger) *HistoryService {
	return &HistoryService{
		trips:           trips,
		charging:        charging,
		fuel:            fuel,
		batteryCapacity: batteryCapacityKWh,
		logger:          logger,
	}
}

// Trips returns recent trips.
func (s *HistoryService) Trips(ctx context.Context, limit int) ([]models.Trip, error) {
	return s.trips.List(ctx, limit)
}

// DeleteTrip soft-deletes a trip; it reports whether the trip existed.
func (s *HistoryService) DeleteTrip(ctx context.Context, id int64) (bool, error) {
	return s.trips.SoftDelete(ctx, id)
}

// ChargingSessions returns recent completed charge cycles.
func (s *HistoryService) ChargingSessions(ctx context.Context, limit int) ([]models.ChargingSession, error) {
	return s.charging.Completed(ctx, limit)
}

// FuelEvents returns recent refuels.
func (s *HistoryService) FuelEvents(ctx context.Context, limit int) ([]models.FuelEvent, error) {
	return s.fuel.List(ctx, limit)
}

// Battery estimates pack capacity and degradation from completed charging
// sessions whose curves metered enough energy across a large SOC rise.
func (s *HistoryService) Battery(ctx context.Context, limit int) (*BatteryHealth, error) {
	sessions, err := s.charging.Completed(ctx, limit)
	if err != nil {
		return nil, err
	}

	health := &BatteryHealth{RatedCapacityKWh: s.batteryCapacity}

	var times, capacities []float64
	for _, session := range sessions {
		if session.StartSOC == nil || session.EndSOC == nil {
			continue
		}
		socDelta := *session.EndSOC - *session.StartSOC
		if socDelta < minHealthSOCDelta {
			continue
		}
		metered, err := calc.CurveEnergyKWh(session.Curve)
		if err != nil {
			continue
		}
		capacity, err := calc.ImpliedCapacityKWh(metered, socDelta)
		if err != nil {
			continue
		}
		times = append(times, float64(session.StartTime.Unix()))
		capacities = append(capacities, capacity)
	}
	health.SampleSessions = len(capacities)

	if len(capacities) > 0 {
		var sum float64
		for _, c := range capacities {
			sum += c
		}
		mean := sum / float64(len(capacities))
		health.EstimatedCapacityKWh = &mean
	}

	if rate, err := calc.DegradationRate(times, capacities); err == nil {
		health.DegradationKWhPerYr = &rate
	}

	return health, nil
}
