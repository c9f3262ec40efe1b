package service

import (
	"context"
	"time"

	"voltlog/internal/models"
)

// Store interfaces are consumer-side: the trackers name only the operations
// they use, and internal/repository satisfies them against Postgres. No
// implementation may cache row state between calls; every mutation path
// re-reads, because ingestion workers and the reconciler share nothing but
// the store.

// SampleStore reads and appends raw telemetry samples.
type SampleStore interface {
	Insert(ctx context.Context, s *models.TelemetrySample) error
	LastBySession(ctx context.Context, sessionID string) (*models.TelemetrySample, error)
	LatestBefore(ctx context.Context, before time.Time) (*models.TelemetrySample, error)
	Since(ctx context.Context, cutoff time.Time) ([]models.TelemetrySample, error)
}

// TripStore persists trips and SOC transitions.
type TripStore interface {
	GetOrCreate(ctx context.Context, seed *models.Trip) (*models.Trip, error)
	UpdateTracking(ctx context.Context, t *models.Trip) error
	ConfirmGasMode(ctx context.Context, t *models.Trip, tr *models.SocTransition) error
	OpenBefore(ctx context.Context, cutoff time.Time) ([]models.Trip, error)
	Close(ctx context.Context, t *models.Trip) (bool, error)
}

// ChargingStore persists charging sessions.
type ChargingStore interface {
	Open(ctx context.Context) (*models.ChargingSession, error)
	Create(ctx context.Context, seed *models.ChargingSession) (*models.ChargingSession, error)
	Update(ctx context.Context, s *models.ChargingSession) error
	Close(ctx context.Context, s *models.ChargingSession) (bool, error)
}

// FuelStore persists refuel events.
type FuelStore interface {
	ExistsAt(ctx context.Context, at time.Time) (bool, error)
	Insert(ctx context.Context, e *models.FuelEvent) error
}

// Notifier receives finalization events. Implementations must be safe to call
// from the reconciler goroutine; a nil Notifier disables notifications.
type Notifier interface {
	TripClosed(trip *models.Trip)
	ChargingCompleted(session *models.ChargingSession)
}
