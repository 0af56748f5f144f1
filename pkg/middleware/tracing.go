package middleware

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.24.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/utafrali/storefront/pkg/logger"
)

// TracerName is the instrumentation scope used for server spans.
const TracerName = "github.com/utafrali/storefront/pkg/middleware"

// Tracing returns middleware that starts a server span per request, continuing
// any W3C trace context found in the inbound headers. Once routing has
// happened the span is renamed to the chi route pattern and tagged with the
// cart, order or product the request addressed. Mount it after
// RequestLogging so the correlation id is already in the context.
func Tracing(serviceName string) func(http.Handler) http.Handler {
	tracer := otel.Tracer(TracerName)
	propagator := otel.GetTextMapPropagator()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

			ctx, span := tracer.Start(ctx, r.Method+" "+r.URL.Path,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.ServiceName(serviceName),
					semconv.HTTPMethod(r.Method),
					semconv.HTTPTarget(r.URL.RequestURI()),
					semconv.HTTPScheme(scheme(r)),
					semconv.UserAgentOriginal(r.UserAgent()),
					attribute.String("http.client_ip", r.RemoteAddr),
				),
			)
			if id := logger.CorrelationIDFromContext(ctx); id != "" {
				span.SetAttributes(attribute.String("storefront.correlation_id", id))
			}
			defer span.End()

			propagator.Inject(ctx, propagation.HeaderCarrier(w.Header()))

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			if rc := chi.RouteContext(r.Context()); rc != nil {
				if pattern := rc.RoutePattern(); pattern != "" {
					span.SetName(r.Method + " " + pattern)
					span.SetAttributes(attribute.String("http.route", pattern))
					span.SetAttributes(routeAttributes(rc.URLParams, pattern)...)
				}
			}
			span.SetAttributes(semconv.HTTPStatusCode(rec.status))
			if rec.status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(rec.status))
			}
		})
	}
}

// routeAttributes maps the storefront ids captured by a route to span
// attributes, so traces can be searched by cart or order.
func routeAttributes(params chi.RouteParams, pattern string) []attribute.KeyValue {
	var attrs []attribute.KeyValue
	for i, key := range params.Keys {
		if i >= len(params.Values) {
			break
		}
		if name := paramAttribute(key, pattern); name != "" {
			attrs = append(attrs, attribute.String(name, params.Values[i]))
		}
	}
	return attrs
}

func paramAttribute(key, pattern string) string {
	switch key {
	case "cartId":
		return "storefront.cart_id"
	case "productId":
		return "storefront.product_id"
	case "code":
		return "storefront.currency"
	case "id":
		switch {
		case strings.Contains(pattern, "/orders/"):
			return "storefront.order_id"
		case strings.Contains(pattern, "/products/"):
			return "storefront.product_id"
		}
	}
	return ""
}

func scheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if proto := r.Header.Get("X-Forwarded-Proto"); proto != "" {
		return proto
	}
	return "http"
}
