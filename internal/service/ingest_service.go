package service

import (
	"context"

	"go.uber.org/zap"

	"voltlog/internal/models"
)

// StatePublisher pushes the latest accepted sample to a cache. Best-effort.
type StatePublisher interface {
	Publish(ctx context.Context, sample *models.TelemetrySample) error
}

// Broadcaster fans an accepted sample out to live subscribers. Best-effort.
type Broadcaster interface {
	Broadcast(sample *models.TelemetrySample)
}

// IngestService runs the per-sample pipeline: persist the sample, advance the
// trip and charging state machines, check for a refuel jump, then publish to
// the cache and the live feed. One call is one atomic sequence; a failure
// aborts only that call, and the boundary above still acknowledges the
// device.
type IngestService struct {
	samples  SampleStore
	trips    *TripTracker
	charging *ChargingTracker
	refuel   *RefuelDetector

	state  StatePublisher
	stream Broadcaster

	logger *zap.Logger
}

// NewIngestService builds the service. state and stream may be nil.
func NewIngestService(
	samples SampleStore,
	trips *TripTracker,
	charging *ChargingTracker,
	refuel *RefuelDetector,
	state StatePublisher,
	stream Broadcaster,
	logger *zap.Logger,
) *IngestService {
	return &IngestService{
		samples:  samples,
		trips:    trips,
		charging: charging,
		refuel:   refuel,
		state:    state,
		stream:   stream,
		logger:   logger,
	}
}

// Ingest processes one normalized sample.
func (s *IngestService) Ingest(ctx context.Context, sample *models.TelemetrySample) error {
	// The previous sample is read before this one lands so the live refuel
	// check compares true neighbors.
	prev, err := s.samples.LatestBefore(ctx, sample.RecordedAt)
	if err != nil {
		s.logger.Warn("previous sample lookup failed, skipping live refuel check", zap.Error(err))
		prev = nil
	}

	if err := s.samples.Insert(ctx, sample); err != nil {
		return err
	}

	if err := s.trips.OpenOrUpdate(ctx, sample); err != nil {
		return err
	}

	if err := s.charging.Observe(ctx, sample); err != nil {
		return err
	}

	if prev != nil {
		if err := s.refuel.CheckPair(ctx, prev, sample); err != nil {
			return err
		}
	}

	// Cache and stream are observers, never gating acceptance.
	if s.state != nil {
		if err := s.state.Publish(ctx, sample); err != nil {
			s.logger.Warn("latest-state cache update failed", zap.Error(err))
		}
	}
	if s.stream != nil {
		s.stream.Broadcast(sample)
	}
	return nil
}
