package repository

import (
	"context"
	"database/sql"
	"time"

	"voltlog/internal/models"
)

// FuelRepository persists refuel events.
type FuelRepository struct {
	db *sql.DB
}

// NewFuelRepository returns repository.
func NewFuelRepository(db *sql.DB) *FuelRepository {
	return &FuelRepository{db: db}
}

// ExistsAt reports whether an event was already recorded for this timestamp.
// The detector checks this before inserting because reconciler sweeps
// reprocess overlapping sample windows.
func (r *FuelRepository) ExistsAt(ctx context.Context, at time.Time) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM fuel_events WHERE occurred_at = $1)`
	var exists bool
	err := r.db.QueryRowContext(ctx, query, at).Scan(&exists)
	return exists, err
}

// Insert stores a new fuel event. The unique occurred_at constraint backs the
// ExistsAt check, so two sweeps racing on the same jump cannot both insert.
func (r *FuelRepository) Insert(ctx context.Context, e *models.FuelEvent) error {
	const query = `
		INSERT INTO fuel_events (occurred_at, before_percent, after_percent, gallons_added, odometer_miles, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (occurred_at) DO NOTHING
		RETURNING id, created_at
	`
	err := r.db.QueryRowContext(ctx, query,
		e.OccurredAt,
		e.BeforePercent,
		e.AfterPercent,
		e.GallonsAdded,
		e.OdometerMiles,
	).Scan(&e.ID, &e.CreatedAt)
	if err == sql.ErrNoRows {
		// Lost the race to another sweep; the event exists, which is the goal.
		return nil
	}
	return err
}

// List returns recent fuel events, newest first.
func (r *FuelRepository) List(ctx context.Context, limit int) ([]models.FuelEvent, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT id, occurred_at, before_percent, after_percent, gallons_added, odometer_miles, created_at
		FROM fuel_events
		ORDER BY occurred_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.FuelEvent
	for rows.Next() {
		var e models.FuelEvent
		if err := rows.Scan(
			&e.ID,
			&e.OccurredAt,
			&e.BeforePercent,
			&e.AfterPercent,
			&e.GallonsAdded,
			&e.OdometerMiles,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		events = append(events, e)
	}
	return events, rows.Err()
}
