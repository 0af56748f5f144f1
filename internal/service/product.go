package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Stock change reasons carried by product.stock_changed events.
const (
	StockReasonRestock  = "restock"
	StockReasonCheckout = "checkout"
	StockReasonRollback = "checkout_rollback"
)

// ProductService implements the catalog use cases.
type ProductService struct {
	repo     repository.ProductRepository
	producer *event.Producer
	logger   *slog.Logger
}

// NewProductService creates a new product service.
func NewProductService(repo repository.ProductRepository, producer *event.Producer, logger *slog.Logger) *ProductService {
	return &ProductService{
		repo:     repo,
		producer: producer,
		logger:   logger,
	}
}

// ListProducts returns the whole catalog ordered by id.
func (s *ProductService) ListProducts(ctx context.Context) ([]domain.Product, error) {
	products, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list products: %w", err)
	}
	return products, nil
}

// GetProduct retrieves a product by id.
func (s *ProductService) GetProduct(ctx context.Context, id domain.PositiveInt) (domain.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.Product{}, fmt.Errorf("get product by id: %w", err)
	}
	return product, nil
}

// RestockProduct adds quantity units to a product's stock.
func (s *ProductService) RestockProduct(ctx context.Context, id, quantity domain.PositiveInt) (domain.Product, error) {
	if quantity.IsZero() {
		return domain.Product{}, apperrors.Validation("quantity", 0, "restock quantity must be greater than 0")
	}

	product, err := s.repo.IncreaseStock(ctx, id, quantity)
	if err != nil {
		return domain.Product{}, fmt.Errorf("restock product: %w", err)
	}

	if err := s.producer.PublishStockChanged(ctx, product, quantity.Value(), StockReasonRestock); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish product.stock_changed event",
			slog.Int("product_id", id.Value()),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "product restocked",
		slog.Int("product_id", id.Value()),
		slog.Int("quantity", quantity.Value()),
		slog.Int("stock", product.Stock().Value()),
	)

	return product, nil
}

// SeedCatalog stores DefaultCatalog when the catalog is empty. It reports
// how many products were written.
func (s *ProductService) SeedCatalog(ctx context.Context) (int, error) {
	existing, err := s.repo.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("check catalog: %w", err)
	}
	if len(existing) > 0 {
		return 0, nil
	}

	products, err := DefaultCatalog(time.Now().UTC())
	if err != nil {
		return 0, err
	}
	for _, p := range products {
		if err := s.repo.Save(ctx, p); err != nil {
			return 0, fmt.Errorf("seed product %s: %w", p.ID(), err)
		}
	}

	s.logger.InfoContext(ctx, "catalog seeded", slog.Int("products", len(products)))
	return len(products), nil
}

// DefaultCatalog returns the demo catalog.
func DefaultCatalog(createdAt time.Time) ([]domain.Product, error) {
	seed := []struct {
		id    int
		name  string
		price string
		stock int
	}{
		{1, "Figurine", "20.00", 10},
		{2, "Poster", "10.00", 25},
	}

	products := make([]domain.Product, 0, len(seed))
	for _, s := range seed {
		price, err := domain.ParseMoney(s.price, domain.DefaultCurrencyCode)
		if err != nil {
			return nil, err
		}
		p, err := domain.NewProduct(domain.MustPositiveInt(s.id), s.name, price, domain.MustPositiveInt(s.stock), createdAt)
		if err != nil {
			return nil, fmt.Errorf("build seed product %d: %w", s.id, err)
		}
		products = append(products, p)
	}
	return products, nil
}
