package repository

import (
	"context"
	"database/sql"
	"time"

	"voltlog/internal/models"
)

// SampleRepository persists raw telemetry samples. The table is append-only;
// nothing here mutates or deletes existing rows.
type SampleRepository struct {
	db *sql.DB
}

// NewSampleRepository returns repository.
func NewSampleRepository(db *sql.DB) *SampleRepository {
	return &SampleRepository{db: db}
}

const sampleColumns = `id, session_id, recorded_at, odometer_miles, soc_percent, fuel_level_percent,
	engine_rpm, charger_connected, charger_power_kw, latitude, longitude, ambient_temp_f, created_at`

// Insert stores a new sample.
func (r *SampleRepository) Insert(ctx context.Context, s *models.TelemetrySample) error {
	const query = `
		INSERT INTO telemetry_samples (session_id, recorded_at, odometer_miles, soc_percent,
			fuel_level_percent, engine_rpm, charger_connected, charger_power_kw,
			latitude, longitude, ambient_temp_f, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(ctx, query,
		s.SessionID,
		s.RecordedAt,
		s.OdometerMiles,
		s.SOCPercent,
		s.FuelLevelPercent,
		s.EngineRPM,
		s.ChargerConnected,
		s.ChargerPowerKW,
		s.Latitude,
		s.Longitude,
		s.AmbientTempF,
	).Scan(&s.ID, &s.CreatedAt)
}

// LastBySession returns the newest sample of one session, or nil when the
// session has no samples.
func (r *SampleRepository) LastBySession(ctx context.Context, sessionID string) (*models.TelemetrySample, error) {
	const query = `
		SELECT ` + sampleColumns + `
		FROM telemetry_samples
		WHERE session_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	s, err := scanSample(r.db.QueryRowContext(ctx, query, sessionID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// LatestBefore returns the newest sample recorded strictly before the given
// time, or nil when none exists.
func (r *SampleRepository) LatestBefore(ctx context.Context, before time.Time) (*models.TelemetrySample, error) {
	const query = `
		SELECT ` + sampleColumns + `
		FROM telemetry_samples
		WHERE recorded_at < $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`
	s, err := scanSample(r.db.QueryRowContext(ctx, query, before))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return s, err
}

// Since returns all samples recorded at or after the cutoff, oldest first.
func (r *SampleRepository) Since(ctx context.Context, cutoff time.Time) ([]models.TelemetrySample, error) {
	const query = `
		SELECT ` + sampleColumns + `
		FROM telemetry_samples
		WHERE recorded_at >= $1
		ORDER BY recorded_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var samples []models.TelemetrySample
	for rows.Next() {
		s, err := scanSample(rows)
		if err != nil {
			return nil, err
		}
		samples = append(samples, *s)
	}
	return samples, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSample(row rowScanner) (*models.TelemetrySample, error) {
	var s models.TelemetrySample
	err := row.Scan(
		&s.ID,
		&s.SessionID,
		&s.RecordedAt,
		&s.OdometerMiles,
		&s.SOCPercent,
		&s.FuelLevelPercent,
		&s.EngineRPM,
		&s.ChargerConnected,
		&s.ChargerPowerKW,
		&s.Latitude,
		&s.Longitude,
		&s.AmbientTempF,
		&s.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
