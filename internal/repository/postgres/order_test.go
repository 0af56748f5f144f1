package postgres

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

var (
	orderCols = []string{"id", "cart_id", "status", "subtotal_amount", "shipping_amount", "total_amount", "currency", "created_at", "updated_at"}
	lineCols  = []string{"order_id", "product_id", "product_name", "quantity", "unit_price", "line_total"}
)

func sampleOrder() *domain.Order {
	return &domain.Order{
		ID:     "order-1",
		CartID: "cart-1",
		Status: domain.OrderStatusPending,
		Lines: []domain.OrderLine{
			{
				ProductID:   domain.MustPositiveInt(1),
				ProductName: "Figurine",
				Quantity:    domain.MustQuantity(2),
				UnitPrice:   domain.MustMoney("20.00", "EUR"),
				LineTotal:   domain.MustMoney("40.00", "EUR"),
			},
		},
		Subtotal:  domain.MustMoney("40.00", "EUR"),
		Shipping:  domain.MustMoney("5.99", "EUR"),
		Total:     domain.MustMoney("45.99", "EUR"),
		CreatedAt: testTime,
		UpdatedAt: testTime,
	}
}

// --- Create ---

func TestOrderRepository_Create(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	o := sampleOrder()

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").
		WithArgs("order-1", "cart-1", "pending", "40", "5.99", "45.99", "EUR", testTime, testTime).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectExec("INSERT INTO order_lines").
		WithArgs("order-1", 0, 1, "Figurine", 2, "20", "40").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), o))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_Create_Duplicate(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO orders").WillReturnError(&pgconn.PgError{Code: "23505"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), sampleOrder())
	assert.ErrorIs(t, err, apperrors.ErrConflict)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- Get ---

func TestOrderRepository_GetByID(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs("order-1").
		WillReturnRows(pgxmock.NewRows(orderCols).
			AddRow("order-1", "cart-1", "pending", "40.00", "5.99", "45.99", "EUR", testTime, testTime))
	mock.ExpectQuery("FROM order_lines").
		WithArgs([]string{"order-1"}).
		WillReturnRows(pgxmock.NewRows(lineCols).
			AddRow("order-1", 1, "Figurine", 2, "20.00", "40.00"))

	o, err := repo.GetByID(context.Background(), "order-1")
	require.NoError(t, err)
	assert.Equal(t, "45.99 EUR", o.Total.String())
	require.Len(t, o.Lines, 1)
	assert.Equal(t, "Figurine", o.Lines[0].ProductName)
	assert.Equal(t, 2, o.ItemCount())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_GetByID_NotFound(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders WHERE id").
		WithArgs("nope").
		WillReturnRows(pgxmock.NewRows(orderCols))

	_, err := repo.GetByID(context.Background(), "nope")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

// --- List ---

func TestOrderRepository_List_WithStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)
	status := domain.OrderStatusPending

	mock.ExpectQuery("WHERE status = \\$1").
		WithArgs("pending", 10, 10).
		WillReturnRows(pgxmock.NewRows(append(orderCols, "total_count")).
			AddRow("order-2", "cart-2", "pending", "10.00", "5.99", "15.99", "EUR", testTime, testTime, 11))
	mock.ExpectQuery("FROM order_lines").
		WithArgs([]string{"order-2"}).
		WillReturnRows(pgxmock.NewRows(lineCols))

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{Status: &status, Page: 2, PerPage: 10})
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, orders, 1)
	assert.Empty(t, orders[0].Lines)
	assert.NotNil(t, orders[0].Lines)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestOrderRepository_List_Empty(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectQuery("FROM orders").
		WithArgs(20, 0).
		WillReturnRows(pgxmock.NewRows(append(orderCols, "total_count")))

	orders, total, err := repo.List(context.Background(), repository.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, orders)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// --- UpdateStatus ---

func TestOrderRepository_UpdateStatus(t *testing.T) {
	mock := newMock(t)
	repo := NewOrderRepository(mock)

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("confirmed", pgxmock.AnyArg(), "order-1").
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))
	require.NoError(t, repo.UpdateStatus(context.Background(), "order-1", "confirmed"))

	mock.ExpectExec("UPDATE orders SET status").
		WithArgs("confirmed", pgxmock.AnyArg(), "missing").
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))
	err := repo.UpdateStatus(context.Background(), "missing", "confirmed")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}
