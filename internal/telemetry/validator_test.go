package telemetry

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedValidator(t time.Time) *Validator {
	return &Validator{now: func() time.Time { return t }}
}

func TestNormalizeCanonicalNames(t *testing.T) {
	v := NewValidator()
	s := v.Normalize(url.Values{
		"session": {"abc-123"},
		"time":    {"2025-06-01T08:00:00Z"},
		"odo":     {"12345.6"},
		"soc":     {"81.5"},
		"fuel":    {"64"},
		"rpm":     {"0"},
		"chg":     {"1"},
		"chgpwr":  {"6.6"},
		"lat":     {"42.33"},
		"lon":     {"-83.04"},
		"tmp":     {"71.2"},
	})

	assert.Equal(t, "abc-123", s.SessionID)
	assert.Equal(t, time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC), s.RecordedAt)
	require.NotNil(t, s.OdometerMiles)
	assert.InDelta(t, 12345.6, *s.OdometerMiles, 1e-9)
	require.NotNil(t, s.SOCPercent)
	assert.InDelta(t, 81.5, *s.SOCPercent, 1e-9)
	require.NotNil(t, s.EngineRPM)
	assert.Zero(t, *s.EngineRPM)
	require.NotNil(t, s.ChargerConnected)
	assert.True(t, *s.ChargerConnected)
	require.NotNil(t, s.ChargerPowerKW)
	assert.InDelta(t, 6.6, *s.ChargerPowerKW, 1e-9)
}

func TestNormalizeVendorCodes(t *testing.T) {
	v := NewValidator()
	s := v.Normalize(url.Values{
		"sid": {"s1"},
		"kA6": {"1000"},
		"k5b": {"0"},
		"k2f": {"40"},
		"k0c": {"1500"},
	})

	assert.Equal(t, "s1", s.SessionID)
	require.NotNil(t, s.OdometerMiles)
	assert.InDelta(t, 1000, *s.OdometerMiles, 1e-9)

	// Zero SOC is a reading, not an absent field.
	require.NotNil(t, s.SOCPercent)
	assert.Zero(t, *s.SOCPercent)
}

func TestNormalizeTolerance(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	v := fixedValidator(now)
	s := v.Normalize(url.Values{
		"soc":    {"banana"},
		"fuel":   {"150"}, // out of range
		"rpm":    {"-20"},
		"mystery": {"7"},
	})

	assert.Nil(t, s.SOCPercent)
	assert.Nil(t, s.FuelLevelPercent)
	assert.Nil(t, s.EngineRPM)
	assert.Equal(t, now, s.RecordedAt)
}

func TestParseTimestampEpochs(t *testing.T) {
	ts, ok := parseTimestamp("1748764800")
	require.True(t, ok)
	assert.Equal(t, int64(1748764800), ts.Unix())

	ts, ok = parseTimestamp("1748764800000")
	require.True(t, ok)
	assert.Equal(t, int64(1748764800), ts.Unix())

	_, ok = parseTimestamp("not-a-time")
	assert.False(t, ok)
}
