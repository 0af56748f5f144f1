package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/pricing"
	"github.com/utafrali/storefront/internal/repository"
	"github.com/utafrali/storefront/internal/repository/memory"
	pkgkafka "github.com/utafrali/storefront/pkg/kafka"
)

// --- Mock Repositories ---

type mockProductRepository struct {
	mock.Mock
}

func (m *mockProductRepository) List(ctx context.Context) ([]domain.Product, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByID(ctx context.Context, id domain.PositiveInt) (domain.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *mockProductRepository) GetByIDs(ctx context.Context, ids []domain.PositiveInt) ([]domain.Product, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Product), args.Error(1)
}

func (m *mockProductRepository) Save(ctx context.Context, product domain.Product) error {
	return m.Called(ctx, product).Error(0)
}

func (m *mockProductRepository) ReduceStock(ctx context.Context, id, quantity domain.PositiveInt) (domain.Product, error) {
	args := m.Called(ctx, id, quantity)
	return args.Get(0).(domain.Product), args.Error(1)
}

func (m *mockProductRepository) IncreaseStock(ctx context.Context, id, quantity domain.PositiveInt) (domain.Product, error) {
	args := m.Called(ctx, id, quantity)
	return args.Get(0).(domain.Product), args.Error(1)
}

type mockCartRepository struct {
	mock.Mock
}

func (m *mockCartRepository) Get(ctx context.Context, id string) (domain.Cart, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(domain.Cart), args.Error(1)
}

func (m *mockCartRepository) Save(ctx context.Context, cart domain.Cart) error {
	return m.Called(ctx, cart).Error(0)
}

func (m *mockCartRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockCartRepository) Exists(ctx context.Context, id string) (bool, error) {
	args := m.Called(ctx, id)
	return args.Bool(0), args.Error(1)
}

type mockOrderRepository struct {
	mock.Mock
}

func (m *mockOrderRepository) Create(ctx context.Context, order *domain.Order) error {
	return m.Called(ctx, order).Error(0)
}

func (m *mockOrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Order), args.Error(1)
}

func (m *mockOrderRepository) List(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Order), args.Int(1), args.Error(2)
}

func (m *mockOrderRepository) UpdateStatus(ctx context.Context, id, status string) error {
	return m.Called(ctx, id, status).Error(0)
}

// --- Event capture ---

type recordingWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *recordingWriter) Close() error { return nil }

func (w *recordingWriter) topics() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, len(w.msgs))
	for i, m := range w.msgs {
		out[i] = m.Topic
	}
	return out
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestProducer() (*event.Producer, *recordingWriter) {
	w := &recordingWriter{}
	l := newTestLogger()
	return event.NewProducer(pkgkafka.NewProducerWithWriter(w, l, nil), l), w
}

func newPricing() *pricing.Service {
	return pricing.NewService(pricing.DefaultOptions())
}

func product(t *testing.T, id int, name, price string, stock int) domain.Product {
	t.Helper()
	p, err := domain.NewProduct(domain.MustPositiveInt(id), name, domain.MustMoney(price, "EUR"),
		domain.MustPositiveInt(stock), time.Now().UTC())
	require.NoError(t, err)
	return p
}

func cartWith(t *testing.T, id string, lines ...[2]int) domain.Cart {
	t.Helper()
	cart, err := domain.NewCart(id)
	require.NoError(t, err)
	for _, l := range lines {
		cart, err = cart.AddItem(domain.MustPositiveInt(l[0]), domain.MustQuantity(l[1]))
		require.NoError(t, err)
	}
	return cart
}

// fixture wires the services over a memory store holding the demo catalog.
type fixture struct {
	store    *memory.Store
	products *ProductService
	carts    *CartService
	orders   *OrderService
	events   *recordingWriter
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	producer, w := newTestProducer()
	locks := NewCartLocks()
	logger := newTestLogger()
	p := newPricing()

	f := &fixture{
		store:    store,
		products: NewProductService(store.Products(), producer, logger),
		carts:    NewCartService(store.Carts(), store.Products(), p, producer, locks, logger),
		orders:   NewOrderService(store.Orders(), store.Carts(), store.Products(), p, producer, locks, logger),
		events:   w,
	}
	n, err := f.products.SeedCatalog(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, n)
	return f
}
