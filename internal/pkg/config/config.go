// Package config reads the order service settings from the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"
)

type StorageDriver string

const (
	StorageMemory   StorageDriver = "memory"
	StorageSQLite   StorageDriver = "sqlite"
	StoragePostgres StorageDriver = "postgres"
)

type Config struct {
	HTTPPort string
	GRPCPort string

	Storage    StorageDriver
	SQLitePath string
	// PostgresDSN is POSTGRES_DSN, or a URL assembled from the POSTGRES_*
	// parts when it is unset.
	PostgresDSN string

	// RedisAddr empty disables the customer cache.
	RedisAddr        string
	CustomerCacheTTL time.Duration

	// AuditDBPath empty disables the audit trail.
	AuditDBPath string

	ServiceName    string
	OTLPEndpoint   string
	Environment    string
	TracingEnabled bool
	LogLevel       string

	StockConflictRetries int
	SeedDemoData         bool

	// GatewayHTTPPort is where the api gateway listens; it differs from
	// HTTPPort so both commands can run on one host.
	GatewayHTTPPort string
	// OrderServiceAddr is the gRPC target the api gateway forwards to.
	OrderServiceAddr string
}

// InvalidValueError reports an environment variable that could not be parsed.
type InvalidValueError struct {
	Key   string
	Value string
	Err   error
}

func (e *InvalidValueError) Error() string {
	return fmt.Sprintf("config: invalid value %q for %s: %v", e.Value, e.Key, e.Err)
}

func (e *InvalidValueError) Unwrap() error { return e.Err }

func Load() (Config, error) {
	cfg := Config{
		HTTPPort:     getEnv("HTTP_PORT", "8080"),
		GRPCPort:     getEnv("GRPC_PORT", "9090"),
		Storage:      StorageDriver(getEnv("STORAGE_DRIVER", string(StorageMemory))),
		SQLitePath:   getEnv("SQLITE_PATH", "./data/orders.db"),
		PostgresDSN:  postgresDSN(),
		RedisAddr:    getEnv("REDIS_ADDR", ""),
		AuditDBPath:  getEnv("AUDIT_DB_PATH", ""),
		ServiceName:  getEnv("OTEL_SERVICE_NAME", "order-service"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
		Environment:  getEnv("OTEL_RESOURCE_ATTRIBUTES_ENV", "local"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		GatewayHTTPPort:  getEnv("GATEWAY_HTTP_PORT", "8081"),
		OrderServiceAddr: getEnv("ORDER_SERVICE_ADDR", "localhost:9090"),
	}

	var err error
	if cfg.CustomerCacheTTL, err = getDuration("CUSTOMER_CACHE_TTL", 5*time.Minute); err != nil {
		return Config{}, err
	}
	if cfg.TracingEnabled, err = getBool("TRACING_ENABLED", false); err != nil {
		return Config{}, err
	}
	if cfg.SeedDemoData, err = getBool("SEED_DEMO_DATA", false); err != nil {
		return Config{}, err
	}
	if cfg.StockConflictRetries, err = getInt("STOCK_CONFLICT_RETRIES", 2); err != nil {
		return Config{}, err
	}
	if cfg.StockConflictRetries < 0 {
		return Config{}, &InvalidValueError{
			Key:   "STOCK_CONFLICT_RETRIES",
			Value: os.Getenv("STOCK_CONFLICT_RETRIES"),
			Err:   errors.New("must not be negative"),
		}
	}

	switch cfg.Storage {
	case StorageMemory, StorageSQLite, StoragePostgres:
	default:
		return Config{}, &InvalidValueError{
			Key:   "STORAGE_DRIVER",
			Value: string(cfg.Storage),
			Err:   errors.New("want one of memory, sqlite, postgres"),
		}
	}

	return cfg, nil
}

func postgresDSN() string {
	if dsn := os.Getenv("POSTGRES_DSN"); dsn != "" {
		return dsn
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s/%s?sslmode=%s",
		getEnv("POSTGRES_USER", "postgres"),
		getEnv("POSTGRES_PASSWORD", "postgres"),
		getEnv("POSTGRES_HOST", "localhost:5432"),
		getEnv("POSTGRES_DB", "orders"),
		getEnv("POSTGRES_SSL", "disable"),
	)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) (int, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, &InvalidValueError{Key: key, Value: raw, Err: err}
	}
	return v, nil
}

func getBool(key string, fallback bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, &InvalidValueError{Key: key, Value: raw, Err: err}
	}
	return v, nil
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, &InvalidValueError{Key: key, Value: raw, Err: err}
	}
	return v, nil
}
