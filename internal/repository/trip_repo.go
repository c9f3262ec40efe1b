package repository

import (
	"context"
	"database/sql"
	"time"

	"voltlog/internal/models"
)

// TripRepository handles persistence of trips and their SOC transitions.
type TripRepository struct {
	db *sql.DB
}

// NewTripRepository returns repository.
func NewTripRepository(db *sql.DB) *TripRepository {
	return &TripRepository{db: db}
}

const tripColumns = `id, session_id, start_time, end_time, start_odometer, end_odometer,
	distance_miles, start_soc, soc_at_gas_transition, transition_odometer,
	electric_miles, gas_miles, gas_mode_entered,
	gas_candidate_count, gas_candidate_soc, gas_candidate_odometer,
	gas_candidate_time, gas_candidate_temp,
	last_sample_at, closed, deleted, created_at, updated_at`

// GetOrCreate inserts the seeded trip for its session id, or fetches the
// existing row when another writer won the insert race. The unique constraint
// on session_id is the arbiter; conflicts are expected, not errors.
func (r *TripRepository) GetOrCreate(ctx context.Context, seed *models.Trip) (*models.Trip, error) {
	const query = `
		INSERT INTO trips (session_id, start_time, start_odometer, start_soc, last_sample_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		ON CONFLICT (session_id) DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		seed.SessionID,
		seed.StartTime,
		seed.StartOdometer,
		seed.StartSOC,
		seed.LastSampleAt,
	).Scan(&seed.ID)
	if err == nil {
		// Insert won; re-read for the row defaults.
		return r.GetBySession(ctx, seed.SessionID)
	}
	if err != sql.ErrNoRows {
		return nil, err
	}
	return r.GetBySession(ctx, seed.SessionID)
}

// GetBySession returns the trip for a session id.
func (r *TripRepository) GetBySession(ctx context.Context, sessionID string) (*models.Trip, error) {
	const query = `SELECT ` + tripColumns + ` FROM trips WHERE session_id = $1`
	return scanTrip(r.db.QueryRowContext(ctx, query, sessionID))
}

// UpdateTracking persists the fields ingestion mutates on every sample:
// start-field backfills, the hysteresis candidate run and last activity.
func (r *TripRepository) UpdateTracking(ctx context.Context, t *models.Trip) error {
	const query = `
		UPDATE trips
		SET start_odometer = $2,
		    start_soc = $3,
		    gas_candidate_count = $4,
		    gas_candidate_soc = $5,
		    gas_candidate_odometer = $6,
		    gas_candidate_time = $7,
		    gas_candidate_temp = $8,
		    last_sample_at = $9,
		    updated_at = NOW()
		WHERE id = $1 AND NOT closed
	`
	_, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.StartOdometer,
		t.StartSOC,
		t.GasCandidateCount,
		t.GasCandidateSOC,
		t.GasCandidateOdometer,
		t.GasCandidateTime,
		t.GasCandidateTemp,
		t.LastSampleAt,
	)
	return err
}

// ConfirmGasMode records the confirmed electric-to-gas transition: one
// SocTransition row plus the trip flags, in a single transaction. The unique
// trip_id constraint makes a repeated confirmation a no-op.
func (r *TripRepository) ConfirmGasMode(ctx context.Context, t *models.Trip, tr *models.SocTransition) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const updateQuery = `
		UPDATE trips
		SET gas_mode_entered = TRUE,
		    soc_at_gas_transition = $2,
		    transition_odometer = $3,
		    start_odometer = $4,
		    start_soc = $5,
		    gas_candidate_count = 0,
		    gas_candidate_soc = NULL,
		    gas_candidate_odometer = NULL,
		    gas_candidate_time = NULL,
		    gas_candidate_temp = NULL,
		    last_sample_at = $6,
		    updated_at = NOW()
		WHERE id = $1 AND NOT closed
	`
	if _, err := tx.ExecContext(ctx, updateQuery,
		t.ID,
		t.SOCAtGasTransition,
		t.TransitionOdometer,
		t.StartOdometer,
		t.StartSOC,
		t.LastSampleAt,
	); err != nil {
		return err
	}

	const insertQuery = `
		INSERT INTO soc_transitions (trip_id, soc_percent, occurred_at, odometer_miles, ambient_temp_f, created_at)
		VALUES ($1, $2, $3, $4, $5, NOW())
		ON CONFLICT (trip_id) DO NOTHING
	`
	if _, err := tx.ExecContext(ctx, insertQuery,
		tr.TripID,
		tr.SOCPercent,
		tr.OccurredAt,
		tr.OdometerMiles,
		tr.AmbientTempF,
	); err != nil {
		return err
	}

	return tx.Commit()
}

// OpenBefore returns open trips whose last activity predates the cutoff.
func (r *TripRepository) OpenBefore(ctx context.Context, cutoff time.Time) ([]models.Trip, error) {
	const query = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE NOT closed AND NOT deleted AND last_sample_at < $1
		ORDER BY last_sample_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

// Close finalizes a trip. The WHERE clause re-checks eligibility inside the
// statement so a sweep racing another closer commits at most once; the return
// value reports whether this call performed the close.
func (r *TripRepository) Close(ctx context.Context, t *models.Trip) (bool, error) {
	const query = `
		UPDATE trips
		SET end_time = $2,
		    end_odometer = $3,
		    distance_miles = $4,
		    electric_miles = $5,
		    gas_miles = $6,
		    closed = TRUE,
		    updated_at = NOW()
		WHERE id = $1 AND NOT closed
	`
	result, err := r.db.ExecContext(ctx, query,
		t.ID,
		t.EndTime,
		t.EndOdometer,
		t.DistanceMiles,
		t.ElectricMiles,
		t.GasMiles,
	)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// List returns recent trips, newest first, excluding soft-deleted rows.
func (r *TripRepository) List(ctx context.Context, limit int) ([]models.Trip, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + tripColumns + `
		FROM trips
		WHERE NOT deleted
		ORDER BY start_time DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trips []models.Trip
	for rows.Next() {
		t, err := scanTrip(rows)
		if err != nil {
			return nil, err
		}
		trips = append(trips, *t)
	}
	return trips, rows.Err()
}

// SoftDelete flags a trip as deleted. Rows are never removed.
func (r *TripRepository) SoftDelete(ctx context.Context, id int64) (bool, error) {
	const query = `UPDATE trips SET deleted = TRUE, updated_at = NOW() WHERE id = $1 AND NOT deleted`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return false, err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return affected > 0, nil
}

// TransitionByTrip returns the recorded transition for a trip, or nil.
func (r *TripRepository) TransitionByTrip(ctx context.Context, tripID int64) (*models.SocTransition, error) {
	const query = `
		SELECT id, trip_id, soc_percent, occurred_at, odometer_miles, ambient_temp_f, created_at
		FROM soc_transitions
		WHERE trip_id = $1
	`
	var tr models.SocTransition
	err := r.db.QueryRowContext(ctx, query, tripID).Scan(
		&tr.ID,
		&tr.TripID,
		&tr.SOCPercent,
		&tr.OccurredAt,
		&tr.OdometerMiles,
		&tr.AmbientTempF,
		&tr.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &tr, nil
}

func scanTrip(row rowScanner) (*models.Trip, error) {
	var t models.Trip
	err := row.Scan(
		&t.ID,
		&t.SessionID,
		&t.StartTime,
		&t.EndTime,
		&t.StartOdometer,
		&t.EndOdometer,
		&t.DistanceMiles,
		&t.StartSOC,
		&t.SOCAtGasTransition,
		&t.TransitionOdometer,
		&t.ElectricMiles,
		&t.GasMiles,
		&t.GasModeEntered,
		&t.GasCandidateCount,
		&t.GasCandidateSOC,
		&t.GasCandidateOdometer,
		&t.GasCandidateTime,
		&t.GasCandidateTemp,
		&t.LastSampleAt,
		&t.Closed,
		&t.Deleted,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
