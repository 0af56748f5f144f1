package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/pricing"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// CartService implements the cart use cases. Mutations of one cart are
// serialized through CartLocks.
type CartService struct {
	carts    repository.CartRepository
	products repository.ProductRepository
	pricing  *pricing.Service
	producer *event.Producer
	locks    *CartLocks
	logger   *slog.Logger
}

// NewCartService creates a new cart service. locks should be shared with the
// OrderService so checkout and cart edits exclude each other.
func NewCartService(
	carts repository.CartRepository,
	products repository.ProductRepository,
	pricingSvc *pricing.Service,
	producer *event.Producer,
	locks *CartLocks,
	logger *slog.Logger,
) *CartService {
	if locks == nil {
		locks = NewCartLocks()
	}
	return &CartService{
		carts:    carts,
		products: products,
		pricing:  pricingSvc,
		producer: producer,
		locks:    locks,
		logger:   logger,
	}
}

// CreateCart stores a new empty cart with a generated id.
func (s *CartService) CreateCart(ctx context.Context) (domain.Cart, error) {
	cart, err := domain.NewCart(uuid.NewString())
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.carts.Save(ctx, cart); err != nil {
		return domain.Cart{}, fmt.Errorf("save cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart created", slog.String("cart_id", cart.ID()))
	return cart, nil
}

// GetCart retrieves a cart by id.
func (s *CartService) GetCart(ctx context.Context, id string) (domain.Cart, error) {
	if err := validateCartID(id); err != nil {
		return domain.Cart{}, err
	}
	cart, err := s.carts.Get(ctx, id)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	return cart, nil
}

// AddItem adds quantity units of a product, creating the cart on first use.
// The product must exist and hold enough stock for the resulting line.
func (s *CartService) AddItem(ctx context.Context, cartID string, productID domain.PositiveInt, quantity domain.Quantity) (domain.Cart, error) {
	if err := validateCartID(cartID); err != nil {
		return domain.Cart{}, err
	}
	if quantity.Value() == 0 {
		return domain.Cart{}, apperrors.Validation("quantity", 0, "quantity is required")
	}

	unlock := s.locks.Lock(cartID)
	defer unlock()

	product, err := s.products.GetByID(ctx, productID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get product: %w", err)
	}

	cart, err := s.getOrNewCart(ctx, cartID)
	if err != nil {
		return domain.Cart{}, err
	}

	requested := quantity.Int()
	if item, ok := cart.Item(productID); ok {
		requested = requested.Add(item.Quantity().Int())
	}
	if !product.HasStock(requested) {
		return domain.Cart{}, insufficientStock(product, requested)
	}

	updated, err := cart.AddItem(productID, quantity)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.save(ctx, updated); err != nil {
		return domain.Cart{}, err
	}

	s.logger.InfoContext(ctx, "item added to cart",
		slog.String("cart_id", cartID),
		slog.Int("product_id", productID.Value()),
		slog.Int("quantity", quantity.Value()),
	)
	return updated, nil
}

// RemoveItem removes a product line from a cart.
func (s *CartService) RemoveItem(ctx context.Context, cartID string, productID domain.PositiveInt) (domain.Cart, error) {
	return s.mutate(ctx, cartID, "item removed from cart", func(c domain.Cart) (domain.Cart, error) {
		return c.RemoveItem(productID)
	})
}

// UpdateItemQuantity replaces the quantity of a line; zero removes it.
func (s *CartService) UpdateItemQuantity(ctx context.Context, cartID string, productID, quantity domain.PositiveInt) (domain.Cart, error) {
	return s.mutate(ctx, cartID, "cart item quantity updated", func(c domain.Cart) (domain.Cart, error) {
		if quantity.IsZero() || !c.HasItem(productID) {
			return c.UpdateItemQuantity(productID, quantity)
		}

		product, err := s.products.GetByID(ctx, productID)
		switch {
		case errors.Is(err, apperrors.ErrNotFound):
		case err != nil:
			return domain.Cart{}, fmt.Errorf("get product: %w", err)
		case !product.HasStock(quantity):
			return domain.Cart{}, insufficientStock(product, quantity)
		}
		return c.UpdateItemQuantity(productID, quantity)
	})
}

// ClearCart empties a cart while keeping it.
func (s *CartService) ClearCart(ctx context.Context, cartID string) (domain.Cart, error) {
	cart, err := s.mutate(ctx, cartID, "cart cleared", func(c domain.Cart) (domain.Cart, error) {
		return c.Clear(), nil
	})
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.producer.PublishCartCleared(ctx, cartID); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.cleared event",
			slog.String("cart_id", cartID),
			slog.String("error", err.Error()),
		)
	}
	return cart, nil
}

// DeleteCart removes a cart. Deleting an absent cart yields NotFound.
func (s *CartService) DeleteCart(ctx context.Context, cartID string) error {
	if err := validateCartID(cartID); err != nil {
		return err
	}

	unlock := s.locks.Lock(cartID)
	defer unlock()

	ok, err := s.carts.Exists(ctx, cartID)
	if err != nil {
		return fmt.Errorf("check cart: %w", err)
	}
	if !ok {
		return apperrors.NotFound("cart", cartID)
	}
	if err := s.carts.Delete(ctx, cartID); err != nil {
		return fmt.Errorf("delete cart: %w", err)
	}

	s.logger.InfoContext(ctx, "cart deleted", slog.String("cart_id", cartID))
	return nil
}

// GetTotals prices a cart against the current catalog.
func (s *CartService) GetTotals(ctx context.Context, cartID string) (pricing.Totals, error) {
	cart, products, err := s.snapshot(ctx, cartID)
	if err != nil {
		return pricing.Totals{}, err
	}
	return s.pricing.CalculateCartTotals(cart, products)
}

// GetTotalsWithTax prices a cart and applies taxRate, or the configured
// default rate when taxRate is nil.
func (s *CartService) GetTotalsWithTax(ctx context.Context, cartID string, taxRate *float64) (pricing.TaxedTotals, error) {
	rate := s.pricing.TaxRate()
	if taxRate != nil {
		rate = *taxRate
	}

	cart, products, err := s.snapshot(ctx, cartID)
	if err != nil {
		return pricing.TaxedTotals{}, err
	}
	return s.pricing.CalculateCartTotalsWithTax(cart, products, rate)
}

// ValidateCart reports stock problems for every line of a cart.
func (s *CartService) ValidateCart(ctx context.Context, cartID string) (pricing.Availability, error) {
	cart, products, err := s.snapshot(ctx, cartID)
	if err != nil {
		return pricing.Availability{}, err
	}
	return s.pricing.ValidateCartAvailability(cart, products), nil
}

// ShippingEstimate prices a cart including shipping.
func (s *CartService) ShippingEstimate(ctx context.Context, cartID string) (pricing.ShippingEstimate, error) {
	cart, products, err := s.snapshot(ctx, cartID)
	if err != nil {
		return pricing.ShippingEstimate{}, err
	}
	return s.pricing.CalculateShippingEstimate(cart, products)
}

func (s *CartService) mutate(ctx context.Context, cartID, msg string, fn func(domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
	if err := validateCartID(cartID); err != nil {
		return domain.Cart{}, err
	}

	unlock := s.locks.Lock(cartID)
	defer unlock()

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return domain.Cart{}, fmt.Errorf("get cart: %w", err)
	}
	updated, err := fn(cart)
	if err != nil {
		return domain.Cart{}, err
	}
	if err := s.save(ctx, updated); err != nil {
		return domain.Cart{}, err
	}

	s.logger.InfoContext(ctx, msg,
		slog.String("cart_id", cartID),
		slog.Int("lines", updated.LineCount()),
	)
	return updated, nil
}

func (s *CartService) save(ctx context.Context, cart domain.Cart) error {
	if err := s.carts.Save(ctx, cart); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	if err := s.producer.PublishCartUpdated(ctx, cart); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish cart.updated event",
			slog.String("cart_id", cart.ID()),
			slog.String("error", err.Error()),
		)
	}
	return nil
}

func (s *CartService) getOrNewCart(ctx context.Context, id string) (domain.Cart, error) {
	cart, err := s.carts.Get(ctx, id)
	if err == nil {
		return cart, nil
	}
	if errors.Is(err, apperrors.ErrNotFound) {
		return domain.NewCart(id)
	}
	return domain.Cart{}, fmt.Errorf("get cart: %w", err)
}

// snapshot loads a cart and the products its lines reference.
func (s *CartService) snapshot(ctx context.Context, cartID string) (domain.Cart, []domain.Product, error) {
	cart, err := s.GetCart(ctx, cartID)
	if err != nil {
		return domain.Cart{}, nil, err
	}
	products, err := loadProducts(ctx, s.products, cart)
	if err != nil {
		return domain.Cart{}, nil, err
	}
	return cart, products, nil
}

func loadProducts(ctx context.Context, repo repository.ProductRepository, cart domain.Cart) ([]domain.Product, error) {
	if cart.IsEmpty() {
		return nil, nil
	}
	ids := make([]domain.PositiveInt, 0, cart.LineCount())
	for _, item := range cart.Items() {
		ids = append(ids, item.ProductID())
	}
	products, err := repo.GetByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load cart products: %w", err)
	}
	return products, nil
}

func insufficientStock(product domain.Product, requested domain.PositiveInt) error {
	return apperrors.BusinessRule(domain.RuleInsufficientStock,
		fmt.Sprintf("insufficient stock for product %s. Available: %s", product.Name(), product.Stock())).
		WithDetail("productId", product.ID().Value()).
		WithDetail("requested", requested.Value()).
		WithDetail("available", product.Stock().Value())
}

// validateCartID rejects ids the domain would normalize, so the lock, the
// lookup and the saved cart always share one key.
func validateCartID(id string) error {
	trimmed := strings.TrimSpace(id)
	if trimmed == "" {
		return apperrors.Validation("cartId", id, "cart id must be a non-empty string")
	}
	if trimmed != id {
		return apperrors.Validation("cartId", id, "cart id must not have leading or trailing whitespace")
	}
	return nil
}
