package models

import "time"

// FuelEvent records one detected refuel: a fuel-level jump at or above the
// configured threshold between consecutive samples. Immutable once created;
// the unique occurred_at constraint backs dedup across overlapping sweeps.
type FuelEvent struct {
	ID            int64     `db:"id" json:"id"`
	OccurredAt    time.Time `db:"occurred_at" json:"occurred_at"`
	BeforePercent float64   `db:"before_percent" json:"before_percent"`
	AfterPercent  float64   `db:"after_percent" json:"after_percent"`
	GallonsAdded  float64   `db:"gallons_added" json:"gallons_added"`
	OdometerMiles *float64  `db:"odometer_miles" json:"odometer_miles,omitempty"`
	CreatedAt     time.Time `db:"created_at" json:"created_at"`
}
