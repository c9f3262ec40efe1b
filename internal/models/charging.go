package models

import "time"

// Charge type classifications, ascending by power.
const (
	ChargeTypeL1   = "L1"
	ChargeTypeL2   = "L2"
	ChargeTypeDCFC = "DCFC"
)

// CurvePoint is one entry of the bounded charging-curve time series.
type CurvePoint struct {
	PowerKW    float64   `json:"power_kw"`
	SOCPercent float64   `json:"soc_percent"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ChargingSession represents one charge cycle. Charging is global, not scoped
// to a driving session: the store allows at most one incomplete row.
type ChargingSession struct {
	ID             int64        `db:"id" json:"id"`
	StartTime      time.Time    `db:"start_time" json:"start_time"`
	EndTime        *time.Time   `db:"end_time" json:"end_time,omitempty"`
	StartSOC       *float64     `db:"start_soc" json:"start_soc,omitempty"`
	EndSOC         *float64     `db:"end_soc" json:"end_soc,omitempty"`
	EnergyAddedKWh *float64     `db:"energy_added_kwh" json:"energy_added_kwh,omitempty"`
	PeakPowerKW    *float64     `db:"peak_power_kw" json:"peak_power_kw,omitempty"`
	AvgPowerKW     *float64     `db:"avg_power_kw" json:"avg_power_kw,omitempty"`
	Cost           *float64     `db:"cost" json:"cost,omitempty"`
	ChargeType     string       `db:"charge_type" json:"charge_type"`
	Curve          []CurvePoint `db:"curve" json:"curve"`
	CurveTruncated bool         `db:"curve_truncated" json:"curve_truncated"`
	Latitude       *float64     `db:"latitude" json:"latitude,omitempty"`
	Longitude      *float64     `db:"longitude" json:"longitude,omitempty"`

	// Running accumulators for average power, maintained per update so the
	// average stays correct after the curve hits its cap.
	PowerSumKW   float64 `db:"power_sum_kw" json:"-"`
	PowerSamples int     `db:"power_samples" json:"-"`

	LastSampleAt time.Time `db:"last_sample_at" json:"last_sample_at"`
	Completed    bool      `db:"completed" json:"completed"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}
