package postgres

import (
	"context"
	"errors"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var cartCols = []string{"created_at", "product_id", "quantity"}

func intPtr(v int) *int { return &v }

func sampleCart(t *testing.T) domain.Cart {
	t.Helper()
	c, err := domain.RestoreCart("cart-1", []domain.CartItem{
		domain.MustCartItem(domain.MustPositiveInt(1), domain.MustQuantity(2)),
		domain.MustCartItem(domain.MustPositiveInt(2), domain.MustQuantity(1)),
	}, testTime)
	require.NoError(t, err)
	return c
}

// --- Get ---

func TestCartRepository_Get(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectQuery("FROM carts c").
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows(cartCols).
			AddRow(testTime, intPtr(1), intPtr(2)).
			AddRow(testTime, intPtr(2), intPtr(1)))

	got, err := repo.Get(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.True(t, sampleCart(t).Equal(got))
	assert.True(t, got.CreatedAt().Equal(testTime))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Get_EmptyCart(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectQuery("FROM carts c").
		WithArgs("cart-2").
		WillReturnRows(pgxmock.NewRows(cartCols).AddRow(testTime, (*int)(nil), (*int)(nil)))

	got, err := repo.Get(context.Background(), "cart-2")
	require.NoError(t, err)
	assert.True(t, got.IsEmpty())
	assert.Equal(t, "cart-2", got.ID())
}

func TestCartRepository_Get_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectQuery("FROM carts c").
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(cartCols))

	_, err := repo.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- Save ---

func TestCartRepository_Save(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)
	cart := sampleCart(t)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO carts").
		WithArgs("cart-1", testTime, pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM cart_items").
		WithArgs("cart-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 2))
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs("cart-1", 0, 1, 2).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO cart_items").
		WithArgs("cart-1", 1, 2, 1).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Save(context.Background(), cart))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Save_RollsBackOnError(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO carts").WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("DELETE FROM cart_items").WillReturnError(errors.New("deadlock detected"))
	mock.ExpectRollback()

	err := repo.Save(context.Background(), sampleCart(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "clear cart items")
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Delete / Exists ---

func TestCartRepository_Delete(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectExec("DELETE FROM carts").
		WithArgs("cart-1").
		WillReturnResult(pgxmock.NewResult("DELETE", 0))

	require.NoError(t, repo.Delete(context.Background(), "cart-1"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCartRepository_Exists(t *testing.T) {
	mock := newMock(t)
	repo := NewCartRepository(mock)

	mock.ExpectQuery("SELECT EXISTS").
		WithArgs("cart-1").
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(true))

	ok, err := repo.Exists(context.Background(), "cart-1")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}
