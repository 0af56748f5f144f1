package event

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
	"github.com/utafrali/storefront/pkg/logger"
)

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func newTestProducer(t *testing.T) (*Producer, *recordingWriter) {
	t.Helper()
	l := slog.New(slog.NewTextHandler(io.Discard, nil))
	w := &recordingWriter{}
	return NewProducer(pkgkafka.NewProducerWithWriter(w, l, nil), l), w
}

func decode(t *testing.T, msg kafka.Message, target any) *pkgkafka.Event {
	t.Helper()
	evt, err := pkgkafka.UnmarshalEvent(msg.Value)
	require.NoError(t, err)
	require.NoError(t, evt.UnmarshalData(target))
	return evt
}

func TestTopics(t *testing.T) {
	assert.Equal(t, "storefront.cart.updated", TopicCartUpdated)
	assert.Equal(t, "storefront.order.status_changed", TopicOrderStatusChanged)
	assert.Equal(t, "storefront.product.stock_changed", TopicProductStockChanged)
}

func TestProducer_Disabled(t *testing.T) {
	var nilProducer *Producer
	assert.False(t, nilProducer.Enabled())
	assert.NoError(t, nilProducer.PublishCartCleared(context.Background(), "c1"))

	p := NewProducer(nil, slog.Default())
	assert.False(t, p.Enabled())
	assert.NoError(t, p.PublishOrderStatusChanged(context.Background(), "o1", "pending", "confirmed"))
}

func TestProducer_PublishCartUpdated(t *testing.T) {
	p, w := newTestProducer(t)
	cart, err := domain.NewCart("c1")
	require.NoError(t, err)
	cart, err = cart.AddItem(domain.MustPositiveInt(5), domain.MustQuantity(3))
	require.NoError(t, err)

	ctx := logger.WithCorrelationID(context.Background(), "corr-1")
	require.NoError(t, p.PublishCartUpdated(ctx, cart))

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, TopicCartUpdated, msg.Topic)
	assert.Equal(t, "c1", string(msg.Key))

	var data CartUpdatedData
	evt := decode(t, msg, &data)
	assert.Equal(t, "corr-1", evt.CorrelationID)
	assert.Equal(t, Source, evt.Source)
	assert.Equal(t, AggregateTypeCart, evt.AggregateType)
	assert.Equal(t, CartUpdatedData{
		CartID:     "c1",
		Items:      []CartItemData{{ProductID: 5, Quantity: 3}},
		TotalItems: 3,
	}, data)
}

func TestProducer_PublishOrderCreated(t *testing.T) {
	p, w := newTestProducer(t)
	order := &domain.Order{
		ID:     "o1",
		CartID: "c1",
		Status: domain.OrderStatusPending,
		Lines: []domain.OrderLine{{
			ProductID:   domain.MustPositiveInt(1),
			ProductName: "Figurine",
			Quantity:    domain.MustQuantity(2),
			UnitPrice:   domain.MustMoney("20", "EUR"),
			LineTotal:   domain.MustMoney("40", "EUR"),
		}},
		Subtotal: domain.MustMoney("40", "EUR"),
		Shipping: domain.MustMoney("5.99", "EUR"),
		Total:    domain.MustMoney("45.99", "EUR"),
	}

	require.NoError(t, p.PublishOrderCreated(context.Background(), order))

	var data OrderCreatedData
	decode(t, w.msgs[0], &data)
	assert.Equal(t, "45.99", data.Total)
	assert.Equal(t, "EUR", data.Currency)
	require.Len(t, data.Lines, 1)
	assert.Equal(t, "20.00", data.Lines[0].UnitPrice)
}

func TestProducer_PublishStockChanged(t *testing.T) {
	p, w := newTestProducer(t)
	product, err := domain.NewProduct(domain.MustPositiveInt(2), "Poster", domain.MustMoney("10", "EUR"),
		domain.MustPositiveInt(20), time.Now())
	require.NoError(t, err)

	require.NoError(t, p.PublishStockChanged(context.Background(), product, -5, "checkout"))

	var data StockChangedData
	decode(t, w.msgs[0], &data)
	assert.Equal(t, "2", string(w.msgs[0].Key))
	assert.Equal(t, StockChangedData{ProductID: 2, Delta: -5, Stock: 20, Reason: "checkout"}, data)
}

func TestProducer_PublishError(t *testing.T) {
	p, w := newTestProducer(t)
	w.err = errors.New("broker down")

	err := p.PublishCartCleared(context.Background(), "c1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publish storefront.cart.cleared event")
}
