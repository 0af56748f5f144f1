package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

func TestDefaultCatalog(t *testing.T) {
	now := time.Now().UTC()
	products, err := DefaultCatalog(now)
	require.NoError(t, err)
	require.Len(t, products, 2)

	assert.Equal(t, "Figurine", products[0].Name())
	assert.Equal(t, "20.00 EUR", products[0].Price().String())
	assert.Equal(t, 10, products[0].Stock().Value())
	assert.Equal(t, "Poster", products[1].Name())
	assert.Equal(t, "10.00 EUR", products[1].Price().String())
	assert.Equal(t, 25, products[1].Stock().Value())
}

func TestSeedCatalog_SkipsNonEmptyCatalog(t *testing.T) {
	repo := new(mockProductRepository)
	svc := NewProductService(repo, nil, newTestLogger())
	ctx := context.Background()

	repo.On("List", ctx).Return([]domain.Product{product(t, 7, "Mug", "8.50", 3)}, nil)

	n, err := svc.SeedCatalog(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestSeedCatalog_SaveError(t *testing.T) {
	repo := new(mockProductRepository)
	svc := NewProductService(repo, nil, newTestLogger())
	ctx := context.Background()

	repo.On("List", ctx).Return([]domain.Product{}, nil)
	repo.On("Save", ctx, mock.Anything).Return(errors.New("disk full"))

	_, err := svc.SeedCatalog(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "seed product 1")
}

func TestListProducts(t *testing.T) {
	f := newFixture(t)

	products, err := f.products.ListProducts(context.Background())
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, 1, products[0].ID().Value())
	assert.Equal(t, 2, products[1].ID().Value())
}

func TestGetProduct_NotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.products.GetProduct(context.Background(), domain.MustPositiveInt(99))
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}

func TestRestockProduct(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	p, err := f.products.RestockProduct(ctx, domain.MustPositiveInt(1), domain.MustPositiveInt(5))
	require.NoError(t, err)
	assert.Equal(t, 15, p.Stock().Value())
	assert.Equal(t, []string{event.TopicProductStockChanged}, f.events.topics())

	_, err = f.products.RestockProduct(ctx, domain.MustPositiveInt(1), domain.ZeroInt())
	assert.True(t, apperrors.IsValidation(err))

	_, err = f.products.RestockProduct(ctx, domain.MustPositiveInt(42), domain.OneInt())
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
}
