package models

import "time"

// TelemetrySample is one raw reading from the vehicle reporting device.
// Samples are append-only and never mutated after insert.
//
// Optional fields are pointers. The device omits fields freely and zero is a
// legitimate reading for SOC, odometer and fuel level, so absence must stay
// distinguishable from zero everywhere a sample is consumed.
type TelemetrySample struct {
	ID               int64     `db:"id" json:"id"`
	SessionID        string    `db:"session_id" json:"session_id"`
	RecordedAt       time.Time `db:"recorded_at" json:"recorded_at"`
	OdometerMiles    *float64  `db:"odometer_miles" json:"odometer_miles,omitempty"`
	SOCPercent       *float64  `db:"soc_percent" json:"soc_percent,omitempty"`
	FuelLevelPercent *float64  `db:"fuel_level_percent" json:"fuel_level_percent,omitempty"`
	EngineRPM        *float64  `db:"engine_rpm" json:"engine_rpm,omitempty"`
	ChargerConnected *bool     `db:"charger_connected" json:"charger_connected,omitempty"`
	ChargerPowerKW   *float64  `db:"charger_power_kw" json:"charger_power_kw,omitempty"`
	Latitude         *float64  `db:"latitude" json:"latitude,omitempty"`
	Longitude        *float64  `db:"longitude" json:"longitude,omitempty"`
	AmbientTempF     *float64  `db:"ambient_temp_f" json:"ambient_temp_f,omitempty"`
	CreatedAt        time.Time `db:"created_at" json:"created_at"`
}
