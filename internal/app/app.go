package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"

	"github.com/utafrali/storefront/internal/config"
	"github.com/utafrali/storefront/internal/event"
	handler "github.com/utafrali/storefront/internal/handler/http"
	"github.com/utafrali/storefront/internal/pricing"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
	pgrepo "github.com/utafrali/storefront/internal/repository/postgres"
	redisrepo "github.com/utafrali/storefront/internal/repository/redis"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/migrations"
	"github.com/utafrali/storefront/pkg/database"
	"github.com/utafrali/storefront/pkg/health"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/tracing"
)

// ServiceName identifies the service in logs, spans and metrics.
const ServiceName = "storefront"

// Version is overridden at build time with -ldflags.
var Version = "dev"

// App wires together all dependencies and runs the storefront service.
type App struct {
	cfg            *config.Config
	logger         *slog.Logger
	pool           *pgxpool.Pool
	rdb            *redis.Client
	producer       *pkgkafka.Producer
	shutdownTracer tracing.ShutdownFunc
	handler        http.Handler
	httpServer     *http.Server
}

// stores groups the repositories selected by configuration.
type stores struct {
	products repository.ProductRepository
	carts    repository.CartRepository
	orders   repository.OrderRepository
}

// NewApp creates a new application instance, initializing all dependencies.
// Resources opened before a failure are released before returning.
func NewApp(ctx context.Context, cfg *config.Config, logger *slog.Logger) (_ *App, err error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	a := &App{cfg: cfg, logger: logger}
	defer func() {
		if err != nil {
			a.close()
		}
	}()

	// Tracing.
	a.shutdownTracer, err = tracing.Init(ctx, cfg.Tracing(ServiceName, Version))
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	// Metrics registry.
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	healthHandler := health.NewHandler(Version)

	st, err := a.openStores(ctx, reg, healthHandler)
	if err != nil {
		return nil, err
	}

	// Kafka producer. Events are optional; a nil producer publishes nothing.
	var kafkaProducer *pkgkafka.Producer
	if cfg.EventsEnabled {
		kafkaCfg := pkgkafka.DefaultProducerConfig(cfg.KafkaBrokers)
		kafkaProducer = pkgkafka.NewProducer(kafkaCfg, logger, pkgkafka.NewProducerMetrics(reg))
		a.producer = kafkaProducer
		healthHandler.Register("kafka", kafkaProducer.Ping)
		logger.Info("kafka producer initialized", slog.Any("brokers", cfg.KafkaBrokers))
	}
	eventProducer := event.NewProducer(kafkaProducer, logger)
	logger.Info("health checks registered", slog.Any("checks", healthHandler.Names()))

	// Build the dependency graph.
	pricingSvc := pricing.NewService(cfg.Pricing())
	locks := service.NewCartLocks()
	productService := service.NewProductService(st.products, eventProducer, logger)
	cartService := service.NewCartService(st.carts, st.products, pricingSvc, eventProducer, locks, logger)
	orderService := service.NewOrderService(st.orders, st.carts, st.products, pricingSvc, eventProducer, locks, logger)

	if cfg.SeedCatalog {
		n, err := productService.SeedCatalog(ctx)
		if err != nil {
			return nil, fmt.Errorf("seed catalog: %w", err)
		}
		if n > 0 {
			logger.Info("catalog seeded", slog.Int("products", n))
		}
	}

	// HTTP router.
	cors := middleware.DefaultCORSConfig()
	cors.AllowedOrigins = cfg.CORSOrigins
	a.handler = handler.NewRouter(handler.RouterConfig{
		Products:       productService,
		Carts:          cartService,
		Orders:         orderService,
		Health:         healthHandler,
		Logger:         logger,
		ServiceName:    ServiceName,
		Metrics:        middleware.NewHTTPMetrics(reg, "storefront"),
		Gatherer:       reg,
		CORS:           cors,
		PprofCIDRs:     cfg.PprofCIDRs,
		RequestTimeout: cfg.RequestTimeout,
		RateLimit:      cfg.RateLimit(),
	})

	a.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      cfg.RequestTimeout + 5*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return a, nil
}

// openStores connects the configured storage drivers and registers their
// readiness checks.
func (a *App) openStores(ctx context.Context, reg prometheus.Registerer, h *health.Handler) (stores, error) {
	cfg := a.cfg
	var st stores

	switch cfg.StorageDriver {
	case config.DriverPostgres:
		database.SetSlowQueryLogging(cfg.SlowQuery, a.logger)

		pool, err := database.NewPostgresPool(ctx, cfg.Postgres(), a.logger)
		if err != nil {
			return st, fmt.Errorf("connect to postgres: %w", err)
		}
		a.pool = pool

		if err := database.RunMigrations(ctx, pool, migrations.FS, a.logger); err != nil {
			return st, fmt.Errorf("run migrations: %w", err)
		}
		if err := database.RegisterPoolMetrics(reg, pool, "postgres"); err != nil {
			return st, fmt.Errorf("register pool metrics: %w", err)
		}
		h.Register("postgres", pool.Ping)

		st.products = pgrepo.NewProductRepository(pool)
		st.orders = pgrepo.NewOrderRepository(pool)
		st.carts = pgrepo.NewCartRepository(pool)
	default:
		store := memory.NewStore()
		st.products = store.Products()
		st.orders = store.Orders()
		st.carts = store.Carts()
	}

	switch cfg.CartStore {
	case config.DriverRedis:
		rdb, err := database.NewRedisClient(ctx, cfg.Redis())
		if err != nil {
			return st, fmt.Errorf("connect to redis: %w", err)
		}
		a.rdb = rdb
		h.Register("redis", func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		})
		st.carts = redisrepo.NewCartRepository(rdb, cfg.CartTTLDuration())
		a.logger.Info("connected to Redis", slog.String("addr", cfg.Redis().Addr()), slog.Int("db", cfg.RedisDB))
	case config.DriverMemory:
		if cfg.StorageDriver != config.DriverMemory {
			st.carts = memory.NewStore().Carts()
		}
	}

	a.logger.Info("storage ready",
		slog.String("driver", cfg.StorageDriver),
		slog.String("cart_store", cfg.CartStore),
	)
	return st, nil
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.handler
}

// Run starts the HTTP server and blocks until the context is canceled.
func (a *App) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		a.logger.Info("starting HTTP server",
			slog.String("addr", a.httpServer.Addr),
		)
		if err := a.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("shutdown signal received")
	case err := <-errCh:
		a.close()
		return err
	}

	return a.Shutdown()
}

// Shutdown gracefully stops all components.
func (a *App) Shutdown() error {
	a.logger.Info("shutting down application...")

	// Graceful HTTP server shutdown with a 10-second deadline.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if a.httpServer != nil {
		if err := a.httpServer.Shutdown(shutdownCtx); err != nil {
			a.logger.Error("http server shutdown error", slog.String("error", err.Error()))
		}
	}
	a.close()

	a.logger.Info("application shutdown complete")
	return nil
}

// close releases the producer, stores and tracer. Safe to call more than once.
func (a *App) close() {
	if a.producer != nil {
		if err := a.producer.Close(); err != nil {
			a.logger.Error("kafka producer close error", slog.String("error", err.Error()))
		}
		a.producer = nil
	}
	if a.rdb != nil {
		if err := a.rdb.Close(); err != nil {
			a.logger.Error("redis close error", slog.String("error", err.Error()))
		}
		a.rdb = nil
	}
	if a.pool != nil {
		a.pool.Close()
		a.pool = nil
	}
	if a.shutdownTracer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.shutdownTracer(ctx); err != nil {
			a.logger.Error("tracer shutdown error", slog.String("error", err.Error()))
		}
		a.shutdownTracer = nil
	}
}
