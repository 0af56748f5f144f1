package config

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{})

	require.NoError(t, err)
	assert.Equal(t, 3000, cfg.HTTPPort)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, DriverMemory, cfg.StorageDriver)
	assert.Equal(t, DriverMemory, cfg.CartStore)
	assert.True(t, cfg.SeedCatalog)
	assert.False(t, cfg.EventsEnabled)
	assert.Equal(t, "EUR", cfg.DefaultCurrency)
	assert.True(t, decimal.NewFromInt(50).Equal(cfg.FreeShippingThreshold))
	assert.True(t, decimal.RequireFromString("5.99").Equal(cfg.ShippingFlatFee))
	assert.InDelta(t, 0.20, cfg.TaxRate, 1e-9)
	assert.Equal(t, 168*time.Hour, cfg.CartTTLDuration())
	assert.InDelta(t, 50, cfg.RateLimit().RPS, 1e-9)
	assert.Equal(t, 100, cfg.RateLimit().Burst)
}

func TestLoad_FromEnvVars(t *testing.T) {
	t.Setenv("HTTP_PORT", "8080")
	t.Setenv("STORAGE_DRIVER", "postgres")
	t.Setenv("CART_STORE", "redis")
	t.Setenv("KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.HTTPPort)
	assert.Equal(t, DriverPostgres, cfg.StorageDriver)
	assert.Equal(t, DriverRedis, cfg.CartStore)
	assert.Equal(t, []string{"kafka-1:9092", "kafka-2:9092"}, cfg.KafkaBrokers)
}

func TestLoad_CartStoreFollowsStorageDriver(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{"STORAGE_DRIVER": "postgres"})

	require.NoError(t, err)
	assert.Equal(t, DriverPostgres, cfg.CartStore)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{"environment", map[string]string{"ENVIRONMENT": "staging"}, "invalid environment"},
		{"port zero", map[string]string{"HTTP_PORT": "0"}, "invalid HTTP port"},
		{"port too large", map[string]string{"HTTP_PORT": "70000"}, "invalid HTTP port"},
		{"port not a number", map[string]string{"HTTP_PORT": "abc"}, "parse config"},
		{"storage driver", map[string]string{"STORAGE_DRIVER": "mongo"}, "invalid storage driver"},
		{"cart store", map[string]string{"CART_STORE": "file"}, "invalid cart store"},
		{"postgres carts without postgres", map[string]string{"CART_STORE": "postgres"}, "requires STORAGE_DRIVER=postgres"},
		{"currency", map[string]string{"DEFAULT_CURRENCY": "JPY"}, "unsupported default currency"},
		{"threshold", map[string]string{"FREE_SHIPPING_THRESHOLD": "-1"}, "invalid free shipping threshold"},
		{"fee", map[string]string{"SHIPPING_FLAT_FEE": "-0.01"}, "invalid shipping fee"},
		{"tax rate", map[string]string{"TAX_RATE": "1.5"}, "invalid tax rate"},
		{"tax rate NaN", map[string]string{"TAX_RATE": "NaN"}, "invalid tax rate"},
		{"negative rate limit", map[string]string{"RATE_LIMIT_RPS": "-1"}, "invalid rate limit"},
		{"rate limit without burst", map[string]string{"RATE_LIMIT_BURST": "0"}, "invalid rate limit burst"},
		{"sample rate", map[string]string{"OTEL_SAMPLE_RATE": "2"}, "invalid OTEL sample rate"},
		{"events without brokers", map[string]string{"EVENTS_ENABLED": "true", "KAFKA_BROKERS": ","}, "KAFKA_BROKERS is required"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := LoadFrom(tc.env)

			require.Error(t, err)
			assert.Nil(t, cfg)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestConfig_Adapters(t *testing.T) {
	cfg, err := LoadFrom(map[string]string{
		"POSTGRES_HOST":    "db",
		"POSTGRES_DB":      "shop",
		"REDIS_HOST":       "cache",
		"REDIS_PORT":       "6380",
		"OTEL_ENABLED":     "true",
		"DEFAULT_CURRENCY": "usd",
		"TAX_RATE":         "0.1",
	})
	require.NoError(t, err)

	pg := cfg.Postgres()
	assert.Equal(t, "postgres://storefront:storefront@db:5432/shop?sslmode=disable", pg.DSN())

	assert.Equal(t, "cache:6380", cfg.Redis().Addr())

	tc := cfg.Tracing("storefront", "1.2.3")
	assert.True(t, tc.Enabled)
	assert.Equal(t, "1.2.3", tc.ServiceVersion)

	opts := cfg.Pricing()
	assert.Equal(t, "USD", opts.Currency.Code())
	assert.InDelta(t, 0.1, opts.TaxRate, 1e-9)
}
