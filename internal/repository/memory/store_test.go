package memory

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// --- helpers ---

func randomProduct(t *testing.T, id, stock int) domain.Product {
	t.Helper()
	price, err := domain.NewMoneyFromFloat(gofakeit.Price(1, 100), "EUR")
	require.NoError(t, err)
	p, err := domain.NewProduct(domain.MustPositiveInt(id), gofakeit.ProductName(), price.Round(),
		domain.MustPositiveInt(stock), time.Time{})
	require.NoError(t, err)
	return p
}

func seeded(t *testing.T, stocks ...int) *Store {
	t.Helper()
	s := NewStore()
	for i, stock := range stocks {
		require.NoError(t, s.Products().Save(context.Background(), randomProduct(t, i+1, stock)))
	}
	return s
}

func newOrder(id string, status string, createdAt time.Time) *domain.Order {
	total := domain.MustMoney("10", "EUR")
	return &domain.Order{
		ID:        id,
		CartID:    "cart-" + id,
		Status:    status,
		Lines:     []domain.OrderLine{{ProductID: domain.MustPositiveInt(1), ProductName: "Poster", Quantity: domain.QuantityOne(), UnitPrice: total, LineTotal: total}},
		Subtotal:  total,
		Shipping:  domain.Zero(total.Currency()),
		Total:     total,
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}
}

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

func TestProducts_ListSortedByID(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	for _, id := range []int{3, 1, 2} {
		require.NoError(t, s.Products().Save(ctx, randomProduct(t, id, 5)))
	}

	got, err := s.Products().List(ctx)
	require.NoError(t, err)
	require.Len(t, got, 3)
	for i, p := range got {
		assert.Equal(t, i+1, p.ID().Value())
	}
}

func TestProducts_GetByID(t *testing.T) {
	s := seeded(t, 5)
	ctx := context.Background()

	p, err := s.Products().GetByID(ctx, domain.MustPositiveInt(1))
	require.NoError(t, err)
	assert.Equal(t, 5, p.Stock().Value())

	_, err = s.Products().GetByID(ctx, domain.MustPositiveInt(9))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProducts_GetByIDs_SkipsMissingAndDuplicates(t *testing.T) {
	s := seeded(t, 1, 1, 1)

	got, err := s.Products().GetByIDs(context.Background(), []domain.PositiveInt{
		domain.MustPositiveInt(3), domain.MustPositiveInt(42), domain.MustPositiveInt(1), domain.MustPositiveInt(3),
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0].ID().Value())
	assert.Equal(t, 3, got[1].ID().Value())
}

func TestProducts_ReduceStock(t *testing.T) {
	s := seeded(t, 3)
	ctx := context.Background()
	id := domain.MustPositiveInt(1)

	p, err := s.Products().ReduceStock(ctx, id, domain.MustPositiveInt(2))
	require.NoError(t, err)
	assert.Equal(t, 1, p.Stock().Value())

	_, err = s.Products().ReduceStock(ctx, id, domain.MustPositiveInt(2))
	assert.True(t, apperrors.IsBusinessRule(err, domain.RuleInsufficientStock))

	stored, err := s.Products().GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 1, stored.Stock().Value(), "failed reduction must not change stock")

	_, err = s.Products().ReduceStock(ctx, domain.MustPositiveInt(7), domain.OneInt())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestProducts_IncreaseStock(t *testing.T) {
	s := seeded(t, 0)

	p, err := s.Products().IncreaseStock(context.Background(), domain.MustPositiveInt(1), domain.MustPositiveInt(4))
	require.NoError(t, err)
	assert.Equal(t, 4, p.Stock().Value())
	assert.True(t, p.IsAvailable())
}

func TestProducts_ConcurrentReduceNeverOversells(t *testing.T) {
	s := seeded(t, 50)
	ctx := context.Background()
	id := domain.MustPositiveInt(1)

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.Products().ReduceStock(ctx, id, domain.OneInt()); err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 50, successes)
	p, err := s.Products().GetByID(ctx, id)
	require.NoError(t, err)
	assert.True(t, p.Stock().IsZero())
}

// ---------------------------------------------------------------------------
// Carts
// ---------------------------------------------------------------------------

func TestCarts_SaveGetDelete(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	id := gofakeit.UUID()

	cart, err := domain.NewCart(id)
	require.NoError(t, err)
	cart, err = cart.AddItem(domain.MustPositiveInt(1), domain.MustQuantity(2))
	require.NoError(t, err)

	ok, err := s.Carts().Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Carts().Save(ctx, cart))

	got, err := s.Carts().Get(ctx, id)
	require.NoError(t, err)
	assert.True(t, cart.Equal(got))

	ok, err = s.Carts().Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Carts().Delete(ctx, id))
	require.NoError(t, s.Carts().Delete(ctx, id), "delete is idempotent")

	_, err = s.Carts().Get(ctx, id)
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

func TestOrders_CreateGet(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	o := newOrder("o-1", domain.OrderStatusPending, now)
	require.NoError(t, s.Orders().Create(ctx, o))
	assert.ErrorIs(t, s.Orders().Create(ctx, o), apperrors.ErrConflict)

	got, err := s.Orders().GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, o.ID, got.ID)
	assert.Equal(t, 1, got.ItemCount())

	got.Lines[0].ProductName = "mutated"
	again, err := s.Orders().GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, "Poster", again.Lines[0].ProductName)

	_, err = s.Orders().GetByID(ctx, "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestOrders_ListFilterAndPaging(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		status := domain.OrderStatusPending
		if i%2 == 1 {
			status = domain.OrderStatusConfirmed
		}
		require.NoError(t, s.Orders().Create(ctx, newOrder(fmt.Sprintf("o-%d", i), status, base.Add(time.Duration(i)*time.Minute))))
	}

	all, total, err := s.Orders().List(ctx, repository.OrderFilter{Page: 1, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, all, 2)
	assert.Equal(t, "o-4", all[0].ID, "newest first")
	assert.Equal(t, "o-3", all[1].ID)

	last, _, err := s.Orders().List(ctx, repository.OrderFilter{Page: 3, PerPage: 2})
	require.NoError(t, err)
	require.Len(t, last, 1)
	assert.Equal(t, "o-0", last[0].ID)

	confirmed := domain.OrderStatusConfirmed
	filtered, total, err := s.Orders().List(ctx, repository.OrderFilter{Status: &confirmed})
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	for _, o := range filtered {
		assert.Equal(t, domain.OrderStatusConfirmed, o.Status)
	}
}

func TestOrders_UpdateStatus(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	require.NoError(t, s.Orders().Create(ctx, newOrder("o-1", domain.OrderStatusPending, created)))

	require.NoError(t, s.Orders().UpdateStatus(ctx, "o-1", domain.OrderStatusConfirmed))
	got, err := s.Orders().GetByID(ctx, "o-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusConfirmed, got.Status)
	assert.True(t, got.UpdatedAt.After(created))

	assert.ErrorIs(t, s.Orders().UpdateStatus(ctx, "nope", domain.OrderStatusConfirmed), apperrors.ErrNotFound)
}
