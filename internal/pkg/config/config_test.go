package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	for _, key := range []string{
		"HTTP_PORT", "GRPC_PORT", "STORAGE_DRIVER", "POSTGRES_DSN", "POSTGRES_HOST",
		"REDIS_ADDR", "CUSTOMER_CACHE_TTL", "AUDIT_DB_PATH", "TRACING_ENABLED",
		"STOCK_CONFLICT_RETRIES", "SEED_DEMO_DATA", "LOG_LEVEL", "ORDER_SERVICE_ADDR", "GATEWAY_HTTP_PORT",
	} {
		t.Setenv(key, "")
	}

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, "9090", cfg.GRPCPort)
	assert.Equal(t, StorageMemory, cfg.Storage)
	assert.Equal(t, 5*time.Minute, cfg.CustomerCacheTTL)
	assert.Equal(t, 2, cfg.StockConflictRetries)
	assert.Empty(t, cfg.RedisAddr)
	assert.Empty(t, cfg.AuditDBPath)
	assert.False(t, cfg.TracingEnabled)
	assert.False(t, cfg.SeedDemoData)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "localhost:9090", cfg.OrderServiceAddr)
	assert.Equal(t, "8081", cfg.GatewayHTTPPort)
	assert.NotEqual(t, cfg.HTTPPort, cfg.GatewayHTTPPort)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORAGE_DRIVER", "sqlite")
	t.Setenv("SQLITE_PATH", "/tmp/orders.db")
	t.Setenv("CUSTOMER_CACHE_TTL", "30s")
	t.Setenv("TRACING_ENABLED", "true")
	t.Setenv("STOCK_CONFLICT_RETRIES", "0")
	t.Setenv("SEED_DEMO_DATA", "1")
	t.Setenv("GATEWAY_HTTP_PORT", "8000")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, StorageSQLite, cfg.Storage)
	assert.Equal(t, "/tmp/orders.db", cfg.SQLitePath)
	assert.Equal(t, 30*time.Second, cfg.CustomerCacheTTL)
	assert.True(t, cfg.TracingEnabled)
	assert.Equal(t, 0, cfg.StockConflictRetries)
	assert.True(t, cfg.SeedDemoData)
	assert.Equal(t, "8000", cfg.GatewayHTTPPort)
}

func TestLoad_PostgresDSN(t *testing.T) {
	t.Run("should assemble the DSN from its parts", func(t *testing.T) {
		t.Setenv("POSTGRES_DSN", "")
		t.Setenv("POSTGRES_USER", "orders")
		t.Setenv("POSTGRES_PASSWORD", "secret")
		t.Setenv("POSTGRES_HOST", "db:5432")
		t.Setenv("POSTGRES_DB", "shop")
		t.Setenv("POSTGRES_SSL", "require")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "postgres://orders:secret@db:5432/shop?sslmode=require", cfg.PostgresDSN)
	})

	t.Run("should prefer POSTGRES_DSN", func(t *testing.T) {
		t.Setenv("POSTGRES_DSN", "postgres://x@y/z")

		cfg, err := Load()

		require.NoError(t, err)
		assert.Equal(t, "postgres://x@y/z", cfg.PostgresDSN)
	})
}

func TestLoad_InvalidValues(t *testing.T) {
	testCases := map[string]struct {
		key   string
		value string
	}{
		"should reject an unknown storage driver": {key: "STORAGE_DRIVER", value: "mongo"},
		"should reject a malformed duration":      {key: "CUSTOMER_CACHE_TTL", value: "soon"},
		"should reject a malformed bool":          {key: "TRACING_ENABLED", value: "maybe"},
		"should reject a malformed int":           {key: "STOCK_CONFLICT_RETRIES", value: "two"},
		"should reject negative retries":          {key: "STOCK_CONFLICT_RETRIES", value: "-1"},
	}

	for name, tc := range testCases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(tc.key, tc.value)

			_, err := Load()

			var invalid *InvalidValueError
			require.ErrorAs(t, err, &invalid)
			assert.Equal(t, tc.key, invalid.Key)
			assert.Equal(t, tc.value, invalid.Value)
		})
	}
}
