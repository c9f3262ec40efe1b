package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"voltlog/internal/models"
)

// ChargingRepository handles persistence of charging sessions. The partial
// unique index on (completed) WHERE NOT completed keeps the "at most one open
// session" invariant inside the store, never in process memory.
type ChargingRepository struct {
	db *sql.DB
}

// NewChargingRepository returns repository.
func NewChargingRepository(db *sql.DB) *ChargingRepository {
	return &ChargingRepository{db: db}
}

const chargingColumns = `id, start_time, end_time, start_soc, end_soc, energy_added_kwh,
	peak_power_kw, avg_power_kw, cost, charge_type, curve, curve_truncated,
	latitude, longitude, power_sum_kw, power_samples,
	last_sample_at, completed, created_at, updated_at`

// Open returns the single incomplete session, or nil when none exists.
func (r *ChargingRepository) Open(ctx context.Context) (*models.ChargingSession, error) {
	const query = `SELECT ` + chargingColumns + ` FROM charging_sessions WHERE NOT completed LIMIT 1`
	s, err := scanChargingSession(r.db.QueryRowContext(ctx, query))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// Create inserts a new open session, or returns the already-open one when a
// concurrent writer created it first. The partial unique index arbitrates.
func (r *ChargingRepository) Create(ctx context.Context, seed *models.ChargingSession) (*models.ChargingSession, error) {
	const query = `
		INSERT INTO charging_sessions (start_time, start_soc, charge_type, latitude, longitude, last_sample_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW(), NOW())
		ON CONFLICT (completed) WHERE NOT completed DO NOTHING
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		seed.StartTime,
		seed.StartSOC,
		seed.ChargeType,
		seed.Latitude,
		seed.Longitude,
		seed.LastSampleAt,
	).Scan(&seed.ID)
	if err != nil && err != sql.ErrNoRows {
		return nil, err
	}

	open, err := r.Open(ctx)
	if err != nil {
		return nil, err
	}
	if open == nil {
		return nil, fmt.Errorf("charging: open session vanished after create")
	}
	return open, nil
}

// Update persists the mutable fields of an open session.
func (r *ChargingRepository) Update(ctx context.Context, s *models.ChargingSession) error {
	curve, err := json.Marshal(s.Curve)
	if err != nil {
		return err
	}
	const query = `
		UPDATE charging_sessions
		SET end_soc = $2,
		    peak_power_kw = $3,
		    charge_type = $4,
		    curve = $5,
		    curve_truncated = $6,
		    power_sum_kw = $7,
		    power_samples = $8,
		    last_sample_at = $9,
		    updated_at = NOW()
		WHERE id = $1 AND NOT completed
	`
	_, err = r.db.ExecContext(ctx, query,
		s.ID,
		s.EndSOC,
		s.PeakPowerKW,
		s.ChargeType,
		curve,
		s.CurveTruncated,
		s.PowerSumKW,
		s.PowerSamples,
		s.LastSampleAt,
	)
	return err
}

// Close finalizes a session. Eligibility is re-checked in the statement; the
// return value reports whether this call performed the close.
func (r *ChargingRepository) Close(ctx context.Context, s *models.ChargingSession) (bool, error) {
	const query = `
		UPDATE charging_sessions
		SET end_time = $2,
		    end_soc = $3,
		    energy_added_kwh = $4,
		    avg_power_kw = $5,
		    cost = $6,
		    completed = TRUE,
		    updated_at = NOW()
		WHERE id = $1 AND NOT completed
	`
	result, err := r.db.ExecContext(ctx, query,
		s.ID,
		s.EndTime,
		s.EndSOC,
		s.EnergyAddedKWh,
		s.AvgPowerKW,
		s.Cost,
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

// Completed returns finished sessions, newest first.
func (r *ChargingRepository) Completed(ctx context.Context, limit int) ([]models.ChargingSession, error) {
	if limit <= 0 {
		limit = 50
	}
	const query = `
		SELECT ` + chargingColumns + `
		FROM charging_sessions
		WHERE completed
		ORDER BY start_time DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []models.ChargingSession
	for rows.Next() {
		s, err := scanChargingSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *s)
	}
	return sessions, rows.Err()
}

func scanChargingSession(row rowScanner) (*models.ChargingSession, error) {
	var (
		s     models.ChargingSession
		curve []byte
	)
	err := row.Scan(
		&s.ID,
		&s.StartTime,
		&s.EndTime,
		&s.StartSOC,
		&s.EndSOC,
		&s.EnergyAddedKWh,
		&s.PeakPowerKW,
		&s.AvgPowerKW,
		&s.Cost,
		&s.ChargeType,
		&curve,
		&s.CurveTruncated,
		&s.Latitude,
		&s.Longitude,
		&s.PowerSumKW,
		&s.PowerSamples,
		&s.LastSampleAt,
		&s.Completed,
		&s.CreatedAt,
		&s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(curve) > 0 {
		if err := json.Unmarshal(curve, &s.Curve); err != nil {
			return nil, err
		}
	}
	return &s, nil
}
