// Package app wires the service graph.
package app

import (
	"context"
	"database/sql"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"voltlog/internal/config"
	"voltlog/internal/db"
	httpserver "voltlog/internal/http"
	"voltlog/internal/http/handlers"
	"voltlog/internal/http/middleware"
	"voltlog/internal/notify"
	"voltlog/internal/reconciler"
	redisstore "voltlog/internal/redis"
	"voltlog/internal/repository"
	"voltlog/internal/service"
	"voltlog/internal/stream"
	"voltlog/internal/telemetry"
)

// App wires voltlog dependencies.
type App struct {
	server      *httpserver.Server
	reconciler  *reconciler.Reconciler
	db          *sql.DB
	redisClient *redis.Client
	notifier    *notify.MQTTNotifier
	logger      *zap.Logger
}

// New constructs the application graph.
func New(cfg *config.Config, logger *zap.Logger) (*App, error) {
	sqlDB, err := db.NewPostgres(cfg.Database.DSN)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(sqlDB); err != nil {
		sqlDB.Close()
		return nil, err
	}

	var redisClient *redis.Client
	var stateStore *redisstore.StateStore
	if cfg.Redis.Addr != "" {
		redisClient, err = redisstore.NewClient(cfg.Redis.Addr, cfg.Redis.Password)
		if err != nil {
			sqlDB.Close()
			return nil, err
		}
		stateStore = redisstore.NewStateStore(redisClient, cfg.Redis.StateTTL)
	}

	var notifier *notify.MQTTNotifier
	if cfg.MQTT.BrokerURL != "" {
		notifier, err = notify.NewMQTTNotifier(cfg.MQTT.BrokerURL, cfg.MQTT.Topic, cfg.MQTT.ClientID, logger)
		if err != nil {
			logger.Warn("mqtt notifier unavailable", zap.Error(err))
			notifier = nil
		}
	}

	sampleRepo := repository.NewSampleRepository(sqlDB)
	tripRepo := repository.NewTripRepository(sqlDB)
	chargingRepo := repository.NewChargingRepository(sqlDB)
	fuelRepo := repository.NewFuelRepository(sqlDB)

	// Interface conversion: a nil *MQTTNotifier must stay a nil Notifier.
	var events service.Notifier
	if notifier != nil {
		events = notifier
	}

	tripTracker := service.NewTripTracker(
		tripRepo,
		cfg.Detection.GasRPMThreshold,
		cfg.Detection.GasSOCThreshold,
		cfg.Detection.ConsecutiveSamples,
		events,
		logger,
	)
	chargingTracker := service.NewChargingTracker(
		chargingRepo,
		cfg.Charging.L1MaxKW,
		cfg.Charging.L2MaxKW,
		cfg.Vehicle.BatteryCapacityKWh,
		cfg.Charging.ElectricityRate,
		cfg.Charging.MaxCurvePoints,
		events,
		logger,
	)
	refuelDetector := service.NewRefuelDetector(
		fuelRepo,
		cfg.Detection.RefuelJumpPercent,
		cfg.Vehicle.TankCapacityGal,
		logger,
	)

	hub := stream.NewHub(0, logger)

	var state service.StatePublisher
	if stateStore != nil {
		state = stateStore
	}
	ingestService := service.NewIngestService(
		sampleRepo, tripTracker, chargingTracker, refuelDetector, state, hub, logger,
	)
	historyService := service.NewHistoryService(
		tripRepo, chargingRepo, fuelRepo, cfg.Vehicle.BatteryCapacityKWh, logger,
	)

	recon := reconciler.New(
		sampleRepo, tripRepo, chargingRepo,
		tripTracker, chargingTracker, refuelDetector,
		reconciler.Options{
			Interval:        cfg.Reconciler.Interval,
			TripTimeout:     cfg.Reconciler.TripTimeout,
			ChargingTimeout: cfg.Charging.Timeout,
			RefuelLookback:  cfg.Detection.RefuelLookback,
		},
		logger,
	)

	ingestHandler := handlers.NewIngestHandler(telemetry.NewValidator(), ingestService, logger)
	liveHandler := handlers.NewLiveHandler(hub, logger)

	routes := httpserver.Routes{
		Ingest:           ingestHandler.Handle,
		Health:           handlers.NewHealthHandler(),
		Trips:            handlers.NewTripsHandler(historyService),
		TripDelete:       handlers.NewTripDeleteHandler(historyService),
		ChargingSessions: handlers.NewChargingSessionsHandler(historyService),
		FuelEvents:       handlers.NewFuelEventsHandler(historyService),
		BatteryHealth:    handlers.NewBatteryHealthHandler(historyService),
		Live:             liveHandler.Handle,
	}
	if stateStore != nil {
		routes.VehicleState = handlers.NewVehicleStateHandler(stateStore)
	}

	router := httpserver.NewRouter(routes, middleware.AuthMiddleware(cfg.Auth.JWTSecret))
	server := httpserver.NewServer(cfg.HTTPAddress(), router, logger)

	return &App{
		server:      server,
		reconciler:  recon,
		db:          sqlDB,
		redisClient: redisClient,
		notifier:    notifier,
		logger:      logger,
	}, nil
}

// Run starts the reconciler loop and serves HTTP until the context ends.
func (a *App) Run(ctx context.Context) error {
	go a.reconciler.Run(ctx)
	return a.server.Run(ctx)
}

// Close releases resources.
func (a *App) Close() {
	if a.notifier != nil {
		a.notifier.Close()
	}
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.logger.Warn("failed to close redis", zap.Error(err))
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("failed to close db", zap.Error(err))
		}
	}
}
