package config

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Config defines the voltlog service configuration.
type Config struct {
	HTTP struct {
		Port string `yaml:"port" env:"VOLTLOG_HTTP_PORT"`
	} `yaml:"http"`

	Database struct {
		DSN string `yaml:"dsn" env:"VOLTLOG_POSTGRES_DSN"`
	} `yaml:"database"`

	Redis struct {
		Addr     string        `yaml:"addr" env:"VOLTLOG_REDIS_ADDR"`
		Password string        `yaml:"password" env:"VOLTLOG_REDIS_PASSWORD"`
		StateTTL time.Duration `yaml:"state_ttl" env:"VOLTLOG_REDIS_STATE_TTL"`
	} `yaml:"redis"`

	Auth struct {
		JWTSecret string `yaml:"jwt_secret" env:"VOLTLOG_JWT_SECRET"`
	} `yaml:"auth"`

	MQTT struct {
		BrokerURL string `yaml:"broker_url" env:"VOLTLOG_MQTT_BROKER_URL"`
		Topic     string `yaml:"topic" env:"VOLTLOG_MQTT_TOPIC"`
		ClientID  string `yaml:"client_id" env:"VOLTLOG_MQTT_CLIENT_ID"`
	} `yaml:"mqtt"`

	Vehicle struct {
		BatteryCapacityKWh float64 `yaml:"battery_capacity_kwh" env:"VOLTLOG_BATTERY_CAPACITY_KWH"`
		TankCapacityGal    float64 `yaml:"tank_capacity_gal" env:"VOLTLOG_TANK_CAPACITY_GAL"`
	} `yaml:"vehicle"`

	Detection struct {
		// Gas mode requires RPM above and SOC below these bounds for
		// ConsecutiveSamples samples in a row.
		GasRPMThreshold    float64 `yaml:"gas_rpm_threshold" env:"VOLTLOG_GAS_RPM_THRESHOLD"`
		GasSOCThreshold    float64 `yaml:"gas_soc_threshold" env:"VOLTLOG_GAS_SOC_THRESHOLD"`
		ConsecutiveSamples int     `yaml:"consecutive_samples" env:"VOLTLOG_GAS_CONSECUTIVE_SAMPLES"`

		RefuelJumpPercent float64       `yaml:"refuel_jump_percent" env:"VOLTLOG_REFUEL_JUMP_PERCENT"`
		RefuelLookback    time.Duration `yaml:"refuel_lookback" env:"VOLTLOG_REFUEL_LOOKBACK"`
	} `yaml:"detection"`

	Charging struct {
		L1MaxKW         float64       `yaml:"l1_max_kw" env:"VOLTLOG_CHARGING_L1_MAX_KW"`
		L2MaxKW         float64       `yaml:"l2_max_kw" env:"VOLTLOG_CHARGING_L2_MAX_KW"`
		ElectricityRate float64       `yaml:"electricity_rate" env:"VOLTLOG_ELECTRICITY_RATE"`
		MaxCurvePoints  int           `yaml:"max_curve_points" env:"VOLTLOG_MAX_CURVE_POINTS"`
		Timeout         time.Duration `yaml:"timeout" env:"VOLTLOG_CHARGING_TIMEOUT"`
	} `yaml:"charging"`

	Reconciler struct {
		Interval    time.Duration `yaml:"interval" env:"VOLTLOG_RECONCILER_INTERVAL"`
		TripTimeout time.Duration `yaml:"trip_timeout" env:"VOLTLOG_TRIP_TIMEOUT"`
	} `yaml:"reconciler"`
}

// Load returns configuration with defaults, file values and env overrides
// applied in that order.
func Load() (*Config, error) {
	cfg := &Config{}
	cfg.HTTP.Port = "8090"
	cfg.Redis.StateTTL = 10 * time.Minute
	cfg.Vehicle.BatteryCapacityKWh = 18.4
	cfg.Vehicle.TankCapacityGal = 8.9
	cfg.Detection.GasRPMThreshold = 500
	cfg.Detection.GasSOCThreshold = 20
	cfg.Detection.ConsecutiveSamples = 3
	cfg.Detection.RefuelJumpPercent = 8
	cfg.Detection.RefuelLookback = 30 * time.Minute
	cfg.Charging.L1MaxKW = 2.0
	cfg.Charging.L2MaxKW = 20.0
	cfg.Charging.ElectricityRate = 0.13
	cfg.Charging.MaxCurvePoints = 500
	cfg.Charging.Timeout = 15 * time.Minute
	cfg.Reconciler.Interval = 5 * time.Minute
	cfg.Reconciler.TripTimeout = 10 * time.Minute

	if err := load(cfg); err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.Database.DSN) == "" {
		return nil, errors.New("config: database dsn required")
	}
	if cfg.Detection.ConsecutiveSamples < 1 {
		return nil, errors.New("config: consecutive samples must be at least 1")
	}
	if cfg.Charging.L1MaxKW >= cfg.Charging.L2MaxKW {
		return nil, errors.New("config: charging power boundaries must ascend")
	}
	return cfg, nil
}

// HTTPAddress returns :port style.
func (c *Config) HTTPAddress() string {
	port := strings.TrimSpace(c.HTTP.Port)
	if port == "" {
		port = "8090"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return fmt.Sprintf(":%s", port)
}
