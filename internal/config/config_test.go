package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("VOLTLOG_POSTGRES_DSN", "postgres://voltlog@localhost/voltlog")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, ":8090", cfg.HTTPAddress())
	assert.Equal(t, 3, cfg.Detection.ConsecutiveSamples)
	assert.InDelta(t, 18.4, cfg.Vehicle.BatteryCapacityKWh, 1e-9)
	assert.Equal(t, 10*time.Minute, cfg.Reconciler.TripTimeout)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("VOLTLOG_POSTGRES_DSN", "postgres://voltlog@localhost/voltlog")
	t.Setenv("VOLTLOG_GAS_RPM_THRESHOLD", "750")
	t.Setenv("VOLTLOG_TRIP_TIMEOUT", "25m")
	t.Setenv("VOLTLOG_HTTP_PORT", "9000")

	cfg, err := Load()
	require.NoError(t, err)

	assert.InDelta(t, 750, cfg.Detection.GasRPMThreshold, 1e-9)
	assert.Equal(t, 25*time.Minute, cfg.Reconciler.TripTimeout)
	assert.Equal(t, ":9000", cfg.HTTPAddress())
}

func TestLoadRejectsMissingDSN(t *testing.T) {
	_, err := Load()
	require.Error(t, err)
}

func TestLoadRejectsBadPowerBoundaries(t *testing.T) {
	t.Setenv("VOLTLOG_POSTGRES_DSN", "postgres://voltlog@localhost/voltlog")
	t.Setenv("VOLTLOG_CHARGING_L1_MAX_KW", "30")

	_, err := Load()
	require.Error(t, err)
}
