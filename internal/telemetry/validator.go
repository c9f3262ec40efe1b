// Package telemetry normalizes raw device payloads into canonical samples.
package telemetry

import (
	"net/url"
	"strconv"
	"strings"
	"time"

	"voltlog/internal/models"
)

// Field codes sent by the reporting device. Firmware revisions disagree on
// naming, so OBD-style PID codes and the newer plain names both map onto the
// same canonical field. Unknown keys are ignored; unparseable values are
// dropped to nil and the sample is accepted anyway.
var fieldAliases = map[string]string{
	"session": "session",
	"sid":     "session",
	"time":    "time",
	"ts":      "time",

	"odo": "odometer",
	"ka6": "odometer",

	"soc": "soc",
	"k5b": "soc",

	"fuel": "fuel",
	"k2f":  "fuel",

	"rpm": "rpm",
	"k0c": "rpm",

	"chg":     "charger",
	"kff1570": "charger",

	"chgpwr":  "charger_power",
	"kff1571": "charger_power",

	"lat":     "lat",
	"kff1006": "lat",

	"lon":     "lon",
	"kff1005": "lon",

	"tmp": "ambient",
	"k46": "ambient",
}

// Validator maps loosely-typed key/value payloads to canonical samples.
type Validator struct {
	now func() time.Time
}

// NewValidator returns a validator using the wall clock for missing timestamps.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// Normalize converts raw device values into a sample. It never rejects:
// malformed or missing fields are stored as nil and ingestion continues,
// because most fields are optional by design.
func (v *Validator) Normalize(values url.Values) *models.TelemetrySample {
	s := &models.TelemetrySample{}

	for key, vals := range values {
		if len(vals) == 0 {
			continue
		}
		canonical, ok := fieldAliases[strings.ToLower(strings.TrimSpace(key))]
		if !ok {
			continue
		}
		raw := strings.TrimSpace(vals[0])
		if raw == "" {
			continue
		}

		switch canonical {
		case "session":
			s.SessionID = raw
		case "time":
			if ts, ok := parseTimestamp(raw); ok {
				s.RecordedAt = ts
			}
		case "odometer":
			s.OdometerMiles = parseFloat(raw)
		case "soc":
			s.SOCPercent = parsePercent(raw)
		case "fuel":
			s.FuelLevelPercent = parsePercent(raw)
		case "rpm":
			s.EngineRPM = parseNonNegative(raw)
		case "charger":
			s.ChargerConnected = parseBool(raw)
		case "charger_power":
			s.ChargerPowerKW = parseNonNegative(raw)
		case "lat":
			s.Latitude = parseFloat(raw)
		case "lon":
			s.Longitude = parseFloat(raw)
		case "ambient":
			s.AmbientTempF = parseFloat(raw)
		}
	}

	if s.RecordedAt.IsZero() {
		s.RecordedAt = v.now().UTC()
	}
	return s
}

// parseTimestamp accepts unix seconds, unix milliseconds or RFC 3339.
func parseTimestamp(raw string) (time.Time, bool) {
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil && n > 0 {
		// Millisecond epochs passed current wall time as seconds long ago.
		if n > 1e12 {
			return time.UnixMilli(n).UTC(), true
		}
		return time.Unix(n, 0).UTC(), true
	}
	if ts, err := time.Parse(time.RFC3339, raw); err == nil {
		return ts.UTC(), true
	}
	return time.Time{}, false
}

func parseFloat(raw string) *float64 {
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil
	}
	return &f
}

func parseNonNegative(raw string) *float64 {
	f := parseFloat(raw)
	if f == nil || *f < 0 {
		return nil
	}
	return f
}

func parsePercent(raw string) *float64 {
	f := parseFloat(raw)
	if f == nil || *f < 0 || *f > 100 {
		return nil
	}
	return f
}

func parseBool(raw string) *bool {
	switch strings.ToLower(raw) {
	case "1", "true", "on", "yes":
		b := true
		return &b
	case "0", "false", "off", "no":
		b := false
		return &b
	}
	return nil
}
