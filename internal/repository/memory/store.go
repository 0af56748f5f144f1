// Package memory implements the repository ports with process-local maps.
// A Store is owned by the composition root and lives as long as the app.
package memory

import (
	"context"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// Store holds products, carts and orders behind a single lock.
type Store struct {
	mu       sync.RWMutex
	products map[int]domain.Product
	carts    map[string]domain.Cart
	orders   map[string]domain.Order
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{
		products: make(map[int]domain.Product),
		carts:    make(map[string]domain.Cart),
		orders:   make(map[string]domain.Order),
	}
}

// Products returns the catalog view of the store.
func (s *Store) Products() *ProductRepository { return &ProductRepository{s: s} }

// Carts returns the cart view of the store.
func (s *Store) Carts() *CartRepository { return &CartRepository{s: s} }

// Orders returns the order view of the store.
func (s *Store) Orders() *OrderRepository { return &OrderRepository{s: s} }

var (
	_ repository.ProductRepository = (*ProductRepository)(nil)
	_ repository.CartRepository    = (*CartRepository)(nil)
	_ repository.OrderRepository   = (*OrderRepository)(nil)
)

// ---------------------------------------------------------------------------
// Products
// ---------------------------------------------------------------------------

// ProductRepository implements repository.ProductRepository.
type ProductRepository struct {
	s *Store
}

// List returns the catalog ordered by id.
func (r *ProductRepository) List(_ context.Context) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Product, 0, len(r.s.products))
	for _, p := range r.s.products {
		out = append(out, p)
	}
	sortProducts(out)
	return out, nil
}

func (r *ProductRepository) GetByID(_ context.Context, id domain.PositiveInt) (domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	p, ok := r.s.products[id.Value()]
	if !ok {
		return domain.Product{}, apperrors.NotFound("product", id.String())
	}
	return p, nil
}

func (r *ProductRepository) GetByIDs(_ context.Context, ids []domain.PositiveInt) ([]domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	out := make([]domain.Product, 0, len(ids))
	seen := make(map[int]bool, len(ids))
	for _, id := range ids {
		if seen[id.Value()] {
			continue
		}
		seen[id.Value()] = true
		if p, ok := r.s.products[id.Value()]; ok {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out, nil
}

func (r *ProductRepository) Save(_ context.Context, product domain.Product) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.products[product.ID().Value()] = product
	return nil
}

// ReduceStock applies Product.ReduceStock under the store lock.
func (r *ProductRepository) ReduceStock(_ context.Context, id, quantity domain.PositiveInt) (domain.Product, error) {
	return r.adjust(id, func(p domain.Product) (domain.Product, error) {
		return p.ReduceStock(quantity)
	})
}

func (r *ProductRepository) IncreaseStock(_ context.Context, id, quantity domain.PositiveInt) (domain.Product, error) {
	return r.adjust(id, func(p domain.Product) (domain.Product, error) {
		return p.IncreaseStock(quantity), nil
	})
}

func (r *ProductRepository) adjust(id domain.PositiveInt, fn func(domain.Product) (domain.Product, error)) (domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	p, ok := r.s.products[id.Value()]
	if !ok {
		return domain.Product{}, apperrors.NotFound("product", id.String())
	}
	updated, err := fn(p)
	if err != nil {
		return domain.Product{}, err
	}
	r.s.products[id.Value()] = updated
	return updated, nil
}

func sortProducts(ps []domain.Product) {
	slices.SortFunc(ps, func(a, b domain.Product) int {
		return a.ID().Value() - b.ID().Value()
	})
}

// ---------------------------------------------------------------------------
// Carts
// ---------------------------------------------------------------------------

// CartRepository implements repository.CartRepository.
type CartRepository struct {
	s *Store
}

func (r *CartRepository) Get(_ context.Context, id string) (domain.Cart, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.carts[id]
	if !ok {
		return domain.Cart{}, apperrors.NotFound("cart", id)
	}
	return c, nil
}

func (r *CartRepository) Save(_ context.Context, cart domain.Cart) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	r.s.carts[cart.ID()] = cart
	return nil
}

func (r *CartRepository) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	delete(r.s.carts, id)
	return nil
}

func (r *CartRepository) Exists(_ context.Context, id string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	_, ok := r.s.carts[id]
	return ok, nil
}

// ---------------------------------------------------------------------------
// Orders
// ---------------------------------------------------------------------------

// OrderRepository implements repository.OrderRepository.
type OrderRepository struct {
	s *Store
}

func (r *OrderRepository) Create(_ context.Context, order *domain.Order) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.orders[order.ID]; ok {
		return apperrors.Conflict("order " + order.ID + " already exists")
	}
	r.s.orders[order.ID] = copyOrder(*order)
	return nil
}

func (r *OrderRepository) GetByID(_ context.Context, id string) (*domain.Order, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	o, ok := r.s.orders[id]
	if !ok {
		return nil, apperrors.NotFound("order", id)
	}
	o = copyOrder(o)
	return &o, nil
}

// List filters by status and sorts newest first before paging.
func (r *OrderRepository) List(_ context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	r.s.mu.RLock()
	matched := make([]domain.Order, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if filter.Status != nil && o.Status != *filter.Status {
			continue
		}
		matched = append(matched, copyOrder(o))
	}
	r.s.mu.RUnlock()

	slices.SortFunc(matched, func(a, b domain.Order) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	page := pagination.Apply(matched, pagination.New(filter.Page, filter.PerPage))
	return page, len(matched), nil
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id, status string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	o, ok := r.s.orders[id]
	if !ok {
		return apperrors.NotFound("order", id)
	}
	o.Status = status
	o.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)
	r.s.orders[id] = o
	return nil
}

func copyOrder(o domain.Order) domain.Order {
	o.Lines = slices.Clone(o.Lines)
	if o.Lines == nil {
		o.Lines = []domain.OrderLine{}
	}
	return o
}
