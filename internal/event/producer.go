// Package event publishes storefront domain events to Kafka.
package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

// Kafka topics for storefront domain events.
var (
	TopicCartUpdated         = pkgkafka.Topic("cart", "updated")
	TopicCartCleared         = pkgkafka.Topic("cart", "cleared")
	TopicOrderCreated        = pkgkafka.Topic("order", "created")
	TopicOrderStatusChanged  = pkgkafka.Topic("order", "status_changed")
	TopicProductStockChanged = pkgkafka.Topic("product", "stock_changed")
)

// Aggregate types.
const (
	AggregateTypeCart    = "cart"
	AggregateTypeOrder   = "order"
	AggregateTypeProduct = "product"
)

// Source identifies events emitted by this service.
const Source = "storefront"

// CartItemData is a cart line within cart events.
type CartItemData struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	CartID     string         `json:"cart_id"`
	Items      []CartItemData `json:"items"`
	TotalItems int            `json:"total_items"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	CartID string `json:"cart_id"`
}

// OrderLineData is an order line within order events.
type OrderLineData struct {
	ProductID int    `json:"product_id"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	LineTotal string `json:"line_total"`
}

// OrderCreatedData is the payload for an order.created event.
type OrderCreatedData struct {
	OrderID  string          `json:"order_id"`
	CartID   string          `json:"cart_id"`
	Lines    []OrderLineData `json:"lines"`
	Subtotal string          `json:"subtotal"`
	Shipping string          `json:"shipping"`
	Total    string          `json:"total"`
	Currency string          `json:"currency"`
}

// OrderStatusChangedData is the payload for an order.status_changed event.
type OrderStatusChangedData struct {
	OrderID   string `json:"order_id"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// StockChangedData is the payload for a product.stock_changed event.
type StockChangedData struct {
	ProductID int    `json:"product_id"`
	Delta     int    `json:"delta"`
	Stock     int    `json:"stock"`
	Reason    string `json:"reason"`
}

// Producer publishes storefront domain events. A Producer built around a nil
// Kafka producer accepts every event and drops it.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer. kafka may be nil.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// Enabled reports whether events reach Kafka.
func (p *Producer) Enabled() bool {
	return p != nil && p.kafka != nil
}

// PublishCartUpdated publishes a cart.updated event.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart domain.Cart) error {
	items := make([]CartItemData, 0, cart.LineCount())
	for _, item := range cart.Items() {
		items = append(items, CartItemData{
			ProductID: item.ProductID().Value(),
			Quantity:  item.Quantity().Value(),
		})
	}

	return p.publish(ctx, TopicCartUpdated, cart.ID(), AggregateTypeCart, CartUpdatedData{
		CartID:     cart.ID(),
		Items:      items,
		TotalItems: cart.TotalItems().Value(),
	})
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, cartID string) error {
	return p.publish(ctx, TopicCartCleared, cartID, AggregateTypeCart, CartClearedData{CartID: cartID})
}

// PublishOrderCreated publishes an order.created event.
func (p *Producer) PublishOrderCreated(ctx context.Context, order *domain.Order) error {
	lines := make([]OrderLineData, len(order.Lines))
	for i, l := range order.Lines {
		lines[i] = OrderLineData{
			ProductID: l.ProductID.Value(),
			Quantity:  l.Quantity.Value(),
			UnitPrice: l.UnitPrice.Amount().StringFixed(2),
			LineTotal: l.LineTotal.Amount().StringFixed(2),
		}
	}

	return p.publish(ctx, TopicOrderCreated, order.ID, AggregateTypeOrder, OrderCreatedData{
		OrderID:  order.ID,
		CartID:   order.CartID,
		Lines:    lines,
		Subtotal: order.Subtotal.Amount().StringFixed(2),
		Shipping: order.Shipping.Amount().StringFixed(2),
		Total:    order.Total.Amount().StringFixed(2),
		Currency: order.Currency().Code(),
	})
}

// PublishOrderStatusChanged publishes an order.status_changed event.
func (p *Producer) PublishOrderStatusChanged(ctx context.Context, orderID, oldStatus, newStatus string) error {
	return p.publish(ctx, TopicOrderStatusChanged, orderID, AggregateTypeOrder, OrderStatusChangedData{
		OrderID:   orderID,
		OldStatus: oldStatus,
		NewStatus: newStatus,
	})
}

// PublishStockChanged publishes a product.stock_changed event. delta is
// negative for reductions.
func (p *Producer) PublishStockChanged(ctx context.Context, product domain.Product, delta int, reason string) error {
	id := product.ID().String()
	return p.publish(ctx, TopicProductStockChanged, id, AggregateTypeProduct, StockChangedData{
		ProductID: product.ID().Value(),
		Delta:     delta,
		Stock:     product.Stock().Value(),
		Reason:    reason,
	})
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	if !p.Enabled() {
		return nil
	}

	evt, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, Source, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if id := logger.CorrelationIDFromContext(ctx); id != "" {
		evt.WithCorrelationID(id)
	}

	if err := p.kafka.Publish(ctx, topic, evt); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}
	return nil
}
