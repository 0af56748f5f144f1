package config

import (
	"fmt"
	"math"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/pricing"
	pkgconfig "github.com/utafrali/storefront/pkg/config"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// Storage drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
)

// Config holds all configuration for the storefront service.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat   string `env:"LOG_FORMAT" envDefault:"json"`

	// HTTP server
	HTTPPort       int           `env:"HTTP_PORT" envDefault:"3000"`
	RequestTimeout time.Duration `env:"HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	CORSOrigins    []string      `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`
	PprofCIDRs     []string      `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
	RateLimitRPS   float64       `env:"RATE_LIMIT_RPS" envDefault:"50"`
	RateLimitBurst int           `env:"RATE_LIMIT_BURST" envDefault:"100"`

	// Storage. CartStore defaults to StorageDriver when empty.
	StorageDriver string `env:"STORAGE_DRIVER" envDefault:"memory"`
	CartStore     string `env:"CART_STORE"`
	SeedCatalog   bool   `env:"SEED_CATALOG" envDefault:"true"`

	// PostgreSQL
	PostgresHost     string        `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort     int           `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser     string        `env:"POSTGRES_USER" envDefault:"storefront"`
	PostgresPass     string        `env:"POSTGRES_PASSWORD" envDefault:"storefront"`
	PostgresDB       string        `env:"POSTGRES_DB" envDefault:"storefront"`
	PostgresSSL      string        `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	PostgresMaxConns int32         `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	SlowQuery        time.Duration `env:"POSTGRES_SLOW_QUERY" envDefault:"200ms"`

	// Redis
	RedisHost string `env:"REDIS_HOST" envDefault:"localhost"`
	RedisPort int    `env:"REDIS_PORT" envDefault:"6379"`
	RedisPass string `env:"REDIS_PASSWORD" envDefault:""`
	RedisDB   int    `env:"REDIS_DB" envDefault:"0"`

	// Cart TTL in hours for the redis cart store (default: 7 days)
	CartTTL int `env:"CART_TTL_HOURS" envDefault:"168"`

	// Kafka
	EventsEnabled bool     `env:"EVENTS_ENABLED" envDefault:"false"`
	KafkaBrokers  []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// OpenTelemetry
	OTelEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTelEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTelSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// Pricing
	DefaultCurrency       string          `env:"DEFAULT_CURRENCY" envDefault:"EUR"`
	FreeShippingThreshold decimal.Decimal `env:"FREE_SHIPPING_THRESHOLD" envDefault:"50"`
	ShippingFlatFee       decimal.Decimal `env:"SHIPPING_FLAT_FEE" envDefault:"5.99"`
	TaxRate               float64         `env:"TAX_RATE" envDefault:"0.20"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return finish(cfg)
}

// LoadFrom reads configuration from the given variables instead of the
// process environment.
func LoadFrom(environ map[string]string) (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.LoadFrom(cfg, environ); err != nil {
		return nil, fmt.Errorf("load storefront config: %w", err)
	}
	return finish(cfg)
}

func finish(cfg *Config) (*Config, error) {
	if cfg.CartStore == "" {
		cfg.CartStore = cfg.StorageDriver
	}
	cfg.KafkaBrokers = slices.DeleteFunc(cfg.KafkaBrokers, func(b string) bool {
		return strings.TrimSpace(b) == ""
	})
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// validate checks configuration invariants.
func (c *Config) validate() error {
	if !slices.Contains([]string{"development", "production", "test"}, c.Environment) {
		return fmt.Errorf("invalid environment: %q", c.Environment)
	}
	if c.HTTPPort < 1 || c.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.HTTPPort)
	}
	if !slices.Contains([]string{DriverMemory, DriverPostgres}, c.StorageDriver) {
		return fmt.Errorf("invalid storage driver: %q", c.StorageDriver)
	}
	if !slices.Contains([]string{DriverMemory, DriverPostgres, DriverRedis}, c.CartStore) {
		return fmt.Errorf("invalid cart store: %q", c.CartStore)
	}
	if c.CartStore == DriverPostgres && c.StorageDriver != DriverPostgres {
		return fmt.Errorf("cart store %q requires STORAGE_DRIVER=postgres", c.CartStore)
	}
	if math.IsNaN(c.RateLimitRPS) || c.RateLimitRPS < 0 {
		return fmt.Errorf("invalid rate limit: %v", c.RateLimitRPS)
	}
	if c.RateLimitRPS > 0 && c.RateLimitBurst < 1 {
		return fmt.Errorf("invalid rate limit burst: %d", c.RateLimitBurst)
	}
	if c.CartTTL < 0 {
		return fmt.Errorf("invalid cart TTL: %d", c.CartTTL)
	}
	if c.EventsEnabled && len(c.KafkaBrokers) == 0 {
		return fmt.Errorf("KAFKA_BROKERS is required when events are enabled")
	}
	if c.OTelSampleRate < 0 || c.OTelSampleRate > 1 {
		return fmt.Errorf("invalid OTEL sample rate: %v", c.OTelSampleRate)
	}
	if !domain.IsSupportedCurrency(c.DefaultCurrency) {
		return fmt.Errorf("unsupported default currency: %q", c.DefaultCurrency)
	}
	if c.FreeShippingThreshold.IsNegative() {
		return fmt.Errorf("invalid free shipping threshold: %s", c.FreeShippingThreshold)
	}
	if c.ShippingFlatFee.IsNegative() {
		return fmt.Errorf("invalid shipping fee: %s", c.ShippingFlatFee)
	}
	if math.IsNaN(c.TaxRate) || c.TaxRate < 0 || c.TaxRate > 1 {
		return fmt.Errorf("invalid tax rate: %v", c.TaxRate)
	}
	return nil
}

// Postgres returns the connection settings for the PostgreSQL pool.
func (c *Config) Postgres() database.PostgresConfig {
	pg := database.DefaultPostgresConfig()
	pg.Host = c.PostgresHost
	pg.Port = c.PostgresPort
	pg.User = c.PostgresUser
	pg.Password = c.PostgresPass
	pg.DBName = c.PostgresDB
	pg.SSLMode = c.PostgresSSL
	if c.PostgresMaxConns > 0 {
		pg.MaxConns = c.PostgresMaxConns
	}
	return pg
}

// Redis returns the connection settings for the Redis client.
func (c *Config) Redis() database.RedisConfig {
	return database.RedisConfig{
		Host:     c.RedisHost,
		Port:     c.RedisPort,
		Password: c.RedisPass,
		DB:       c.RedisDB,
	}
}

// Tracing returns the OpenTelemetry settings for the given service name.
func (c *Config) Tracing(serviceName, version string) tracing.Config {
	tc := tracing.DefaultConfig(serviceName)
	tc.ServiceVersion = version
	tc.Environment = c.Environment
	tc.Enabled = c.OTelEnabled
	tc.OTLPEndpoint = c.OTelEndpoint
	tc.SampleRate = c.OTelSampleRate
	return tc
}

// Pricing returns the pricing options.
func (c *Config) Pricing() pricing.Options {
	return pricing.Options{
		TaxRate:               c.TaxRate,
		FreeShippingThreshold: c.FreeShippingThreshold,
		ShippingFee:           c.ShippingFlatFee,
		Currency:              domain.MustCurrency(c.DefaultCurrency),
	}
}

// RateLimit returns the per-client limit for the API routes.
func (c *Config) RateLimit() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{RPS: c.RateLimitRPS, Burst: c.RateLimitBurst}
}

// CartTTLDuration returns the cart TTL. Zero disables expiry.
func (c *Config) CartTTLDuration() time.Duration {
	return time.Duration(c.CartTTL) * time.Hour
}
