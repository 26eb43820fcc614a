package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"

	"github.com/joao-fontenele/surplus-delivery/internal/api"
	"github.com/joao-fontenele/surplus-delivery/internal/auth"
	"github.com/joao-fontenele/surplus-delivery/internal/config"
	"github.com/joao-fontenele/surplus-delivery/internal/inventory"
	"github.com/joao-fontenele/surplus-delivery/internal/messaging"
	"github.com/joao-fontenele/surplus-delivery/internal/orders"
	"github.com/joao-fontenele/surplus-delivery/internal/profiles"
	"github.com/joao-fontenele/surplus-delivery/internal/telemetry"
)

const serviceName = "surplus-api"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	cfg, err := config.FromEnv()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.ValidateAPI(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, serviceName, cfg.ServiceVersion, cfg.OTLPEndpoint)
	if err != nil {
		logger.Error("failed to init tracer provider", "error", err)
		os.Exit(1)
	}

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider(serviceName, cfg.ServiceVersion)
	if err != nil {
		logger.Error("failed to init meter provider", "error", err)
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(ctx, "postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	var events orders.EventPublisher
	if cfg.EventsEnabled() {
		publisher := messaging.NewEventPublisher(cfg.KafkaBrokers, cfg.OrderCreatedTopic, cfg.OrderStatusTopic)
		defer func() { _ = publisher.Close() }()
		events = publisher
	} else {
		logger.Warn("KAFKA_BROKERS not set, order events are disabled")
	}

	ledger := inventory.NewLedger(db)
	service := orders.NewService(orders.NewRepository(db), ledger, events, logger,
		orders.WithMeter(otel.Meter("orders")),
	)

	router := api.NewRouter(api.Config{
		Orders:         orders.NewHandler(service, logger),
		Inventory:      inventory.NewHandler(inventory.NewListingRepository(db), logger),
		Profiles:       profiles.NewHandler(profiles.NewRepository(db), logger),
		Auth:           auth.NewMiddleware(auth.NewRedisResolver(redisClient), logger),
		Metrics:        metricsHandler,
		DB:             db,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.RequestTimeout,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
	}

	go func() {
		logger.Info("starting api service", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	if err := shutdownMeter(shutdownCtx); err != nil {
		logger.Error("meter provider shutdown error", "error", err)
	}
	if err := shutdownTracer(shutdownCtx); err != nil {
		logger.Error("tracer provider shutdown error", "error", err)
	}
}
