package repository

import (
	"context"

	"github.com/utafrali/storefront/internal/domain"
)

// ProductRepository defines the interface for catalog persistence.
type ProductRepository interface {
	// List returns every product ordered by id.
	List(ctx context.Context) ([]domain.Product, error)

	// GetByID retrieves a product by id. Absent products yield a NotFound error.
	GetByID(ctx context.Context, id domain.PositiveInt) (domain.Product, error)

	// GetByIDs returns the products that exist among ids, ordered by id.
	GetByIDs(ctx context.Context, ids []domain.PositiveInt) ([]domain.Product, error)

	// Save inserts or replaces a product.
	Save(ctx context.Context, product domain.Product) error

	// ReduceStock atomically subtracts quantity from a product's stock and
	// returns the updated product. It fails with INSUFFICIENT_STOCK when the
	// stock would go negative.
	ReduceStock(ctx context.Context, id, quantity domain.PositiveInt) (domain.Product, error)

	// IncreaseStock atomically adds quantity to a product's stock.
	IncreaseStock(ctx context.Context, id, quantity domain.PositiveInt) (domain.Product, error)
}

// CartRepository defines the interface for cart persistence.
type CartRepository interface {
	// Get retrieves a cart by id. Absent carts yield a NotFound error.
	Get(ctx context.Context, id string) (domain.Cart, error)

	// Save persists a cart, overwriting any cart with the same id.
	Save(ctx context.Context, cart domain.Cart) error

	// Delete removes a cart. Deleting an absent cart is not an error.
	Delete(ctx context.Context, id string) error

	// Exists reports whether a cart with id is stored.
	Exists(ctx context.Context, id string) (bool, error)
}

// OrderFilter defines filter criteria for listing orders.
type OrderFilter struct {
	Status  *string
	Page    int
	PerPage int
}

// OrderRepository defines the interface for order persistence.
type OrderRepository interface {
	// Create inserts a new order and its lines atomically.
	Create(ctx context.Context, order *domain.Order) error

	// GetByID retrieves an order with its lines.
	GetByID(ctx context.Context, id string) (*domain.Order, error)

	// List returns a page of orders, newest first, with the total match count.
	List(ctx context.Context, filter OrderFilter) ([]domain.Order, int, error)

	// UpdateStatus sets the status and bumps updated_at.
	UpdateStatus(ctx context.Context, id, status string) error
}
