package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Order status constants.
const (
	OrderStatusPending    = "pending"
	OrderStatusConfirmed  = "confirmed"
	OrderStatusProcessing = "processing"
	OrderStatusShipped    = "shipped"
	OrderStatusDelivered  = "delivered"
	OrderStatusCanceled   = "canceled"
	OrderStatusRefunded   = "refunded"
)

// Business rule identifiers raised during checkout and order lifecycle.
const (
	RuleEmptyCart               = "EMPTY_CART"
	RuleCartNotAvailable        = "CART_NOT_AVAILABLE"
	RuleInvalidStatusTransition = "INVALID_STATUS_TRANSITION"
)

// Order is a checked-out cart with priced lines frozen at checkout time.
type Order struct {
	ID        string      `json:"id"`
	CartID    string      `json:"cartId"`
	Status    string      `json:"status"`
	Lines     []OrderLine `json:"lines"`
	Subtotal  Money       `json:"subtotal"`
	Shipping  Money       `json:"shipping"`
	Total     Money       `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// OrderLine is a priced line of an order.
type OrderLine struct {
	ProductID   PositiveInt `json:"productId"`
	ProductName string      `json:"productName"`
	Quantity    Quantity    `json:"quantity"`
	UnitPrice   Money       `json:"unitPrice"`
	LineTotal   Money       `json:"lineTotal"`
}

// Currency returns the currency the order was priced in.
func (o *Order) Currency() Currency {
	return o.Total.Currency()
}

// ItemCount returns the total number of units ordered.
func (o *Order) ItemCount() int {
	var count int
	for _, l := range o.Lines {
		count += l.Quantity.Value()
	}
	return count
}

// orderLifecycle lists the statuses in the order a checkout moves through
// them, each with the statuses it may move to next. Canceled and refunded
// orders are final.
var orderLifecycle = []struct {
	status string
	next   []string
}{
	{OrderStatusPending, []string{OrderStatusConfirmed, OrderStatusCanceled}},
	{OrderStatusConfirmed, []string{OrderStatusProcessing, OrderStatusCanceled}},
	{OrderStatusProcessing, []string{OrderStatusShipped, OrderStatusCanceled}},
	{OrderStatusShipped, []string{OrderStatusDelivered}},
	{OrderStatusDelivered, []string{OrderStatusRefunded}},
	{OrderStatusCanceled, nil},
	{OrderStatusRefunded, nil},
}

// ValidStatuses returns every order status in lifecycle order.
func ValidStatuses() []string {
	out := make([]string, len(orderLifecycle))
	for i, step := range orderLifecycle {
		out[i] = step.status
	}
	return out
}

func nextStatuses(status string) ([]string, bool) {
	for _, step := range orderLifecycle {
		if step.status == status {
			return step.next, true
		}
	}
	return nil, false
}

// IsValidStatus reports whether status names a lifecycle step.
func IsValidStatus(status string) bool {
	_, ok := nextStatuses(status)
	return ok
}

// ValidateStatus returns a ValidationError for an unknown status.
func ValidateStatus(status string) error {
	if IsValidStatus(status) {
		return nil
	}
	return apperrors.Validation("status", status,
		fmt.Sprintf("invalid status %q, must be one of: %s", status, strings.Join(ValidStatuses(), ", ")))
}

// IsFinal reports whether the order can no longer change status.
func (o *Order) IsFinal() bool {
	next, _ := nextStatuses(o.Status)
	return len(next) == 0
}

// CanTransitionTo reports whether target is reachable from the current status.
func (o *Order) CanTransitionTo(target string) bool {
	next, _ := nextStatuses(o.Status)
	return slices.Contains(next, target)
}

// TransitionTo moves the order to target, stamping UpdatedAt. The order is
// left untouched when the move is not allowed.
func (o *Order) TransitionTo(target string, at time.Time) error {
	if err := ValidateStatus(target); err != nil {
		return err
	}
	if !o.CanTransitionTo(target) {
		msg := fmt.Sprintf("cannot transition from %q to %q", o.Status, target)
		if o.IsFinal() {
			msg = fmt.Sprintf("order is %s and can no longer change status", o.Status)
		}
		return apperrors.BusinessRule(RuleInvalidStatusTransition, msg).
			WithDetail("from", o.Status).
			WithDetail("to", target)
	}
	o.Status = target
	o.UpdatedAt = at
	return nil
}
