// Package http exposes the storefront use cases over a chi router.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	"github.com/utafrali/storefront/pkg/health"
	"github.com/utafrali/storefront/pkg/middleware"
	"github.com/utafrali/storefront/pkg/validator"
)

// catalogMaxAge is how long clients may cache catalog reads, in seconds.
const catalogMaxAge = 30

// RouterConfig carries everything NewRouter mounts.
type RouterConfig struct {
	Products *service.ProductService
	Carts    *service.CartService
	Orders   *service.OrderService
	Health   *health.Handler
	Logger   *slog.Logger

	// ServiceName labels spans. Metrics and Gatherer are optional; without
	// them no request metrics are recorded and /metrics is not mounted.
	ServiceName string
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer

	CORS           middleware.CORSConfig
	PprofCIDRs     []string
	RequestTimeout time.Duration

	// RateLimit bounds /api/v1 requests per client IP. The zero value
	// disables it.
	RateLimit middleware.RateLimitConfig
}

func init() {
	if err := validator.RegisterValidation("currency", domain.IsSupportedCurrency); err != nil {
		panic(err)
	}
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(cfg.Logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestLogging(cfg.Logger, "/health", "/metrics"))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Handler)
	}
	r.Use(middleware.Tracing(cfg.ServiceName))
	r.Use(middleware.RequestLogger(cfg.Logger))

	// Health check endpoints
	r.Get("/health/live", cfg.Health.LivenessHandler())
	r.Get("/health/ready", cfg.Health.ReadinessHandler())
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	// Pprof debug endpoints with IP allowlist.
	middleware.RegisterPprof(r, cfg.PprofCIDRs, cfg.Logger)

	products := NewProductHandler(cfg.Products, cfg.Logger)
	carts := NewCartHandler(cfg.Carts, cfg.Logger)
	orders := NewOrderHandler(cfg.Orders, cfg.Logger)
	currencies := NewCurrencyHandler(cfg.Logger)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.NewRateLimiter(cfg.RateLimit, cfg.Logger).Handler)
		r.Use(ContentTypeJSON)

		r.Route("/currencies", func(r chi.Router) {
			r.Use(middleware.CacheControl(catalogMaxAge))
			r.Get("/", currencies.ListCurrencies)
			r.Get("/{code}", currencies.GetCurrency)
		})

		r.Route("/products", func(r chi.Router) {
			r.Use(middleware.CacheControl(catalogMaxAge))
			r.Get("/", products.ListProducts)
			r.Get("/{id}", products.GetProduct)
			r.Post("/{id}/restock", products.RestockProduct)
		})

		r.Route("/carts", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Post("/", carts.CreateCart)
			r.Get("/{cartId}", carts.GetCart)
			r.Delete("/{cartId}", carts.DeleteCart)
			r.Post("/{cartId}/clear", carts.ClearCart)
			r.Post("/{cartId}/items", carts.AddItem)
			r.Put("/{cartId}/items/{productId}", carts.UpdateItemQuantity)
			r.Delete("/{cartId}/items/{productId}", carts.RemoveItem)
			r.Get("/{cartId}/totals", carts.GetTotals)
			r.Get("/{cartId}/availability", carts.ValidateCart)
			r.Get("/{cartId}/shipping", carts.ShippingEstimate)
		})

		r.Route("/orders", func(r chi.Router) {
			r.Use(middleware.NoStore)
			r.Post("/", orders.Checkout)
			r.Get("/", orders.ListOrders)
			r.Get("/{id}", orders.GetOrder)
			r.Put("/{id}/status", orders.UpdateOrderStatus)
		})
	})

	return r
}
