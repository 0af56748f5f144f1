package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/event"
	"github.com/utafrali/storefront/internal/pricing"
	"github.com/utafrali/storefront/internal/repository"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/pagination"
)

// OrderService implements checkout and the order lifecycle.
type OrderService struct {
	orders   repository.OrderRepository
	carts    repository.CartRepository
	products repository.ProductRepository
	pricing  *pricing.Service
	producer *event.Producer
	locks    *CartLocks
	logger   *slog.Logger
}

// NewOrderService creates a new order service.
func NewOrderService(
	orders repository.OrderRepository,
	carts repository.CartRepository,
	products repository.ProductRepository,
	pricingSvc *pricing.Service,
	producer *event.Producer,
	locks *CartLocks,
	logger *slog.Logger,
) *OrderService {
	if locks == nil {
		locks = NewCartLocks()
	}
	return &OrderService{
		orders:   orders,
		carts:    carts,
		products: products,
		pricing:  pricingSvc,
		producer: producer,
		locks:    locks,
		logger:   logger,
	}
}

// reservation is a stock reduction that may have to be undone.
type reservation struct {
	productID domain.PositiveInt
	quantity  domain.PositiveInt
}

// Checkout turns a cart into a pending order. Stock is reduced for every
// line; a failure after the first reduction restores what was taken.
func (s *OrderService) Checkout(ctx context.Context, cartID string) (*domain.Order, error) {
	if err := validateCartID(cartID); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(cartID)
	defer unlock()

	cart, err := s.carts.Get(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("get cart for checkout: %w", err)
	}
	if cart.IsEmpty() {
		return nil, apperrors.BusinessRule(domain.RuleEmptyCart, "cannot checkout an empty cart")
	}

	products, err := loadProducts(ctx, s.products, cart)
	if err != nil {
		return nil, err
	}

	availability := s.pricing.ValidateCartAvailability(cart, products)
	if !availability.IsValid {
		return nil, apperrors.BusinessRule(domain.RuleCartNotAvailable, "some cart items are not available").
			WithDetail("issues", availability.Issues)
	}

	estimate, err := s.pricing.CalculateShippingEstimate(cart, products)
	if err != nil {
		return nil, fmt.Errorf("price cart: %w", err)
	}

	order, err := newOrder(cart, estimate)
	if err != nil {
		return nil, err
	}

	reserved := make([]reservation, 0, cart.LineCount())
	updated := make([]domain.Product, 0, cart.LineCount())
	for _, item := range cart.Items() {
		qty := item.Quantity().Int()
		p, err := s.products.ReduceStock(ctx, item.ProductID(), qty)
		if err != nil {
			s.releaseStock(ctx, reserved)
			return nil, fmt.Errorf("reserve stock: %w", err)
		}
		reserved = append(reserved, reservation{productID: item.ProductID(), quantity: qty})
		updated = append(updated, p)
	}

	if err := s.orders.Create(ctx, order); err != nil {
		s.releaseStock(ctx, reserved)
		return nil, fmt.Errorf("create order: %w", err)
	}

	if err := s.carts.Save(ctx, cart.Clear()); err != nil {
		s.logger.ErrorContext(ctx, "failed to clear cart after checkout",
			slog.String("cart_id", cartID),
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}

	s.publishCheckout(ctx, order, reserved, updated)

	s.logger.InfoContext(ctx, "order created",
		slog.String("order_id", order.ID),
		slog.String("cart_id", cartID),
		slog.String("total", order.Total.String()),
	)
	return order, nil
}

// GetOrder retrieves an order by its ID.
func (s *OrderService) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order by id: %w", err)
	}
	return order, nil
}

// ListOrders returns a filtered, paginated list of orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, filter repository.OrderFilter) ([]domain.Order, int, error) {
	if filter.Status != nil {
		if err := domain.ValidateStatus(*filter.Status); err != nil {
			return nil, 0, err
		}
	}
	page := pagination.New(filter.Page, filter.PerPage)
	filter.Page, filter.PerPage = page.Page, page.PerPage

	orders, total, err := s.orders.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateOrderStatus transitions the order to a new status with validation.
func (s *OrderService) UpdateOrderStatus(ctx context.Context, id, newStatus string) (*domain.Order, error) {
	if err := domain.ValidateStatus(newStatus); err != nil {
		return nil, err
	}

	order, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order for status update: %w", err)
	}

	oldStatus := order.Status
	if err := order.TransitionTo(newStatus, time.Now().UTC().Truncate(time.Millisecond)); err != nil {
		return nil, err
	}

	if err := s.orders.UpdateStatus(ctx, id, newStatus); err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := s.producer.PublishOrderStatusChanged(ctx, id, oldStatus, newStatus); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order.status_changed event",
			slog.String("order_id", id),
			slog.String("error", err.Error()),
		)
	}

	s.logger.InfoContext(ctx, "order status updated",
		slog.String("order_id", id),
		slog.String("old_status", oldStatus),
		slog.String("new_status", newStatus),
	)

	return order, nil
}

// releaseStock undoes reservations. Failures are logged; the caller is
// already returning the error that triggered the release.
func (s *OrderService) releaseStock(ctx context.Context, reserved []reservation) {
	for _, r := range reserved {
		p, err := s.products.IncreaseStock(ctx, r.productID, r.quantity)
		if err != nil {
			s.logger.ErrorContext(ctx, "failed to release reserved stock",
				slog.Int("product_id", r.productID.Value()),
				slog.Int("quantity", r.quantity.Value()),
				slog.String("error", err.Error()),
			)
			continue
		}
		if err := s.producer.PublishStockChanged(ctx, p, r.quantity.Value(), StockReasonRollback); err != nil {
			s.logger.ErrorContext(ctx, "failed to publish product.stock_changed event",
				slog.Int("product_id", r.productID.Value()),
				slog.String("error", err.Error()),
			)
		}
	}
}

func (s *OrderService) publishCheckout(ctx context.Context, order *domain.Order, reserved []reservation, updated []domain.Product) {
	var errs []error
	if err := s.producer.PublishOrderCreated(ctx, order); err != nil {
		errs = append(errs, err)
	}
	for i, p := range updated {
		if err := s.producer.PublishStockChanged(ctx, p, -reserved[i].quantity.Value(), StockReasonCheckout); err != nil {
			errs = append(errs, err)
		}
	}
	if err := s.producer.PublishCartCleared(ctx, order.CartID); err != nil {
		errs = append(errs, err)
	}

	if err := errors.Join(errs...); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish checkout events",
			slog.String("order_id", order.ID),
			slog.String("error", err.Error()),
		)
	}
}

// newOrder freezes the priced lines of a shipping estimate into a pending order.
func newOrder(cart domain.Cart, estimate pricing.ShippingEstimate) (*domain.Order, error) {
	lines := make([]domain.OrderLine, len(estimate.Lines))
	for i, l := range estimate.Lines {
		pid, err := domain.NewPositiveInt(l.ProductID)
		if err != nil {
			return nil, err
		}
		qty, err := domain.NewQuantity(l.Quantity)
		if err != nil {
			return nil, err
		}
		lines[i] = domain.OrderLine{
			ProductID:   pid,
			ProductName: l.ProductName,
			Quantity:    qty,
			UnitPrice:   l.UnitPrice,
			LineTotal:   l.LineTotal,
		}
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	return &domain.Order{
		ID:        uuid.NewString(),
		CartID:    cart.ID(),
		Status:    domain.OrderStatusPending,
		Lines:     lines,
		Subtotal:  estimate.Subtotal,
		Shipping:  estimate.Shipping.Cost,
		Total:     estimate.FinalTotal,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}
