package models

import "time"

// Trip is the reconstructed drive cycle for one reporting session. The store
// enforces one trip per session id; at most one trip per session is ever open.
type Trip struct {
	ID                 int64      `db:"id" json:"id"`
	SessionID          string     `db:"session_id" json:"session_id"`
	StartTime          time.Time  `db:"start_time" json:"start_time"`
	EndTime            *time.Time `db:"end_time" json:"end_time,omitempty"`
	StartOdometer      *float64   `db:"start_odometer" json:"start_odometer,omitempty"`
	EndOdometer        *float64   `db:"end_odometer" json:"end_odometer,omitempty"`
	DistanceMiles      *float64   `db:"distance_miles" json:"distance_miles,omitempty"`
	StartSOC           *float64   `db:"start_soc" json:"start_soc,omitempty"`
	SOCAtGasTransition *float64   `db:"soc_at_gas_transition" json:"soc_at_gas_transition,omitempty"`
	TransitionOdometer *float64   `db:"transition_odometer" json:"transition_odometer,omitempty"`
	ElectricMiles      *float64   `db:"electric_miles" json:"electric_miles,omitempty"`
	GasMiles           *float64   `db:"gas_miles" json:"gas_miles,omitempty"`
	GasModeEntered     bool       `db:"gas_mode_entered" json:"gas_mode_entered"`

	// Hysteresis state for gas-mode detection. Persisted on the row because
	// ingestion workers share nothing in process: the candidate run must
	// survive across samples handled by different workers. The snapshot
	// fields hold the first qualifying sample of the current run.
	GasCandidateCount    int        `db:"gas_candidate_count" json:"-"`
	GasCandidateSOC      *float64   `db:"gas_candidate_soc" json:"-"`
	GasCandidateOdometer *float64   `db:"gas_candidate_odometer" json:"-"`
	GasCandidateTime     *time.Time `db:"gas_candidate_time" json:"-"`
	GasCandidateTemp     *float64   `db:"gas_candidate_temp" json:"-"`

	LastSampleAt time.Time `db:"last_sample_at" json:"last_sample_at"`
	Closed       bool      `db:"closed" json:"closed"`
	Deleted      bool      `db:"deleted" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// SocTransition records the confirmed electric-to-gas switch of one trip.
// Append-only, at most one per trip.
type SocTransition struct {
	ID            int64     `db:"id" json:"id"`
	TripID        int64     `db:"trip_id" json:"trip_id"`
	SOCPercent    float64   `db:"soc_percent" json:"soc_percent"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurred_at"`
	OdometerMiles *float64  `db:"odometer_miles" json:"odometer_miles,omitempty"`
	AmbientTempF  *float64  `db:"ambient_temp_f" json:"ambient_temp_f,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
