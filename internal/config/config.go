package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Port              string
	PostgresURL       string
	RedisURL          string
	KafkaBrokers      []string
	OrderCreatedTopic string
	OrderStatusTopic  string
	WorkerGroupID     string
	RequestTimeout    time.Duration
	ShutdownTimeout   time.Duration
	OTLPEndpoint      string
	ServiceVersion    string
	MigrationsPath    string
}

// FromEnv reads the configuration from environment variables, falling back
// to defaults for anything unset.
func FromEnv() (Config, error) {
	cfg := Config{
		Port:              getEnv("PORT", "8080"),
		PostgresURL:       os.Getenv("POSTGRES_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		KafkaBrokers:      splitList(os.Getenv("KAFKA_BROKERS")),
		OrderCreatedTopic: getEnv("ORDER_CREATED_TOPIC", "order.created"),
		OrderStatusTopic:  getEnv("ORDER_STATUS_TOPIC", "order.status_changed"),
		WorkerGroupID:     getEnv("WORKER_GROUP_ID", "restock-worker"),
		OTLPEndpoint:      getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		ServiceVersion:    getEnv("SERVICE_VERSION", "0.1.0"),
		MigrationsPath:    getEnv("MIGRATIONS_PATH", "file://migrations"),
	}

	var err error
	if cfg.RequestTimeout, err = getSeconds("REQUEST_TIMEOUT_SECONDS", 10); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownTimeout, err = getSeconds("SHUTDOWN_TIMEOUT_SECONDS", 10); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the settings every binary needs.
func (c Config) Validate() error {
	var errs []error
	if c.PostgresURL == "" {
		errs = append(errs, errors.New("POSTGRES_URL environment variable is required"))
	}
	if c.RequestTimeout <= 0 {
		errs = append(errs, errors.New("REQUEST_TIMEOUT_SECONDS must be positive"))
	}
	if c.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("SHUTDOWN_TIMEOUT_SECONDS must be positive"))
	}
	return errors.Join(errs...)
}

// ValidateAPI adds the API server's requirements to Validate.
func (c Config) ValidateAPI() error {
	err := c.Validate()
	if c.RedisURL == "" {
		err = errors.Join(err, errors.New("REDIS_URL environment variable is required"))
	}
	return err
}

// ValidateWorker adds the restock worker's requirements to Validate.
func (c Config) ValidateWorker() error {
	err := c.Validate()
	if len(c.KafkaBrokers) == 0 {
		err = errors.Join(err, errors.New("KAFKA_BROKERS environment variable is required"))
	}
	return err
}

func (c Config) EventsEnabled() bool {
	return len(c.KafkaBrokers) > 0
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getSeconds(key string, fallback int) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return time.Duration(fallback) * time.Second, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return time.Duration(n) * time.Second, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
