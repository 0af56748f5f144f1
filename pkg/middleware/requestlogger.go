package middleware

import (
	"log/slog"
	"net/http"

	"github.com/utafrali/storefront/pkg/logger"
)

// CartIDHeader lets clients tag requests with the cart they operate on.
const CartIDHeader = "X-Cart-ID"

// RequestLogger builds a request-scoped logger enriched with correlation_id,
// cart_id, trace_id and span_id, and stores it in the request context.
// Mount it after RequestLogging and Tracing.
func RequestLogger(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if cartID := r.Header.Get(CartIDHeader); cartID != "" {
				ctx = logger.WithCartID(ctx, cartID)
			}
			ctx = logger.NewContext(ctx, logger.WithContext(ctx, base))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
