package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Business rule identifiers raised by Cart.
const (
	RuleMaxQuantityExceeded = "MAX_QUANTITY_EXCEEDED"
	RuleProductNotInCart    = "PRODUCT_NOT_IN_CART"
	RuleProductNotFound     = "PRODUCT_NOT_FOUND"
)

// CartItem is a single (product, quantity) line.
type CartItem struct {
	productID PositiveInt
	quantity  Quantity
}

// NewCartItem returns a line for productID. The zero Quantity is rejected.
func NewCartItem(productID PositiveInt, quantity Quantity) (CartItem, error) {
	if err := requireQuantity(quantity); err != nil {
		return CartItem{}, err
	}
	return CartItem{productID: productID, quantity: quantity}, nil
}

// MustCartItem is like NewCartItem but panics on error.
func MustCartItem(productID PositiveInt, quantity Quantity) CartItem {
	item, err := NewCartItem(productID, quantity)
	if err != nil {
		panic(err)
	}
	return item
}

func requireQuantity(q Quantity) error {
	if q.value == 0 {
		return apperrors.Validation("quantity", 0, "quantity is required")
	}
	return nil
}

func (i CartItem) ProductID() PositiveInt {
	return i.productID
}

func (i CartItem) Quantity() Quantity {
	return i.quantity
}

type cartItemJSON struct {
	ProductID PositiveInt `json:"productId"`
	Quantity  Quantity    `json:"quantity"`
}

// MarshalJSON renders {productId, quantity}.
func (i CartItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(cartItemJSON{ProductID: i.productID, Quantity: i.quantity})
}

// UnmarshalJSON parses {productId, quantity}.
func (i *CartItem) UnmarshalJSON(data []byte) error {
	var raw cartItemJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return wrapDecodeError("item", data, err)
	}
	item, err := NewCartItem(raw.ProductID, raw.Quantity)
	if err != nil {
		return err
	}
	*i = item
	return nil
}

// Cart is the shopping cart aggregate. Every mutation returns a new Cart
// with the same id and createdAt; the receiver is never modified.
type Cart struct {
	id        string
	items     []CartItem
	createdAt time.Time
}

// NewCart returns an empty cart.
func NewCart(id string) (Cart, error) {
	return RestoreCart(id, nil, time.Time{})
}

// RestoreCart rebuilds a cart from persisted state, enforcing that each
// product appears on at most one line.
func RestoreCart(id string, items []CartItem, createdAt time.Time) (Cart, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Cart{}, apperrors.Validation("id", id, "cart id is required")
	}
	seen := make(map[int]struct{}, len(items))
	for _, item := range items {
		if err := requireQuantity(item.quantity); err != nil {
			return Cart{}, err
		}
		if _, dup := seen[item.productID.value]; dup {
			return Cart{}, apperrors.Validation("items", item.productID.value, "duplicate product in cart")
		}
		seen[item.productID.value] = struct{}{}
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return Cart{
		id:        id,
		items:     append([]CartItem(nil), items...),
		createdAt: normalizeTime(createdAt),
	}, nil
}

func (c Cart) ID() string {
	return c.id
}

func (c Cart) CreatedAt() time.Time {
	return c.createdAt
}

// Items returns a copy of the lines in insertion order.
func (c Cart) Items() []CartItem {
	return append([]CartItem(nil), c.items...)
}

// AddItem adds quantity of productID, merging with an existing line.
func (c Cart) AddItem(productID PositiveInt, quantity Quantity) (Cart, error) {
	if err := requireQuantity(quantity); err != nil {
		return Cart{}, err
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		items := make([]CartItem, len(c.items), len(c.items)+1)
		copy(items, c.items)
		return c.withItems(append(items, CartItem{productID: productID, quantity: quantity})), nil
	}

	merged := c.items[idx].quantity.value + quantity.value
	if merged > MaxQuantity {
		return Cart{}, apperrors.BusinessRule(RuleMaxQuantityExceeded,
			fmt.Sprintf("cannot exceed %d units of product %s", MaxQuantity, productID)).
			WithDetail("productId", productID.Value()).
			WithDetail("current", c.items[idx].quantity.value).
			WithDetail("requested", quantity.value)
	}
	items := c.Items()
	items[idx] = CartItem{productID: productID, quantity: Quantity{value: merged}}
	return c.withItems(items), nil
}

// RemoveItem drops the line for productID.
func (c Cart) RemoveItem(productID PositiveInt) (Cart, error) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return Cart{}, notInCart(productID)
	}
	items := make([]CartItem, 0, len(c.items)-1)
	items = append(items, c.items[:idx]...)
	items = append(items, c.items[idx+1:]...)
	return c.withItems(items), nil
}

// UpdateItemQuantity replaces the quantity on an existing line.
// A zero quantity removes the line.
func (c Cart) UpdateItemQuantity(productID PositiveInt, quantity PositiveInt) (Cart, error) {
	if quantity.IsZero() {
		return c.RemoveItem(productID)
	}
	q, err := NewQuantity(quantity.Value())
	if err != nil {
		return Cart{}, err
	}
	idx := c.indexOf(productID)
	if idx < 0 {
		return Cart{}, notInCart(productID)
	}
	items := c.Items()
	items[idx] = CartItem{productID: productID, quantity: q}
	return c.withItems(items), nil
}

// Clear returns an empty cart with the same identity.
func (c Cart) Clear() Cart {
	return c.withItems(nil)
}

func (c Cart) IsEmpty() bool {
	return len(c.items) == 0
}

// LineCount returns the number of distinct products.
func (c Cart) LineCount() int {
	return len(c.items)
}

// TotalItems sums the quantities of all lines.
func (c Cart) TotalItems() PositiveInt {
	total := 0
	for _, item := range c.items {
		total += item.quantity.value
	}
	return PositiveInt{value: total}
}

func (c Cart) HasItem(productID PositiveInt) bool {
	return c.indexOf(productID) >= 0
}

// Item returns the line for productID, if any.
func (c Cart) Item(productID PositiveInt) (CartItem, bool) {
	idx := c.indexOf(productID)
	if idx < 0 {
		return CartItem{}, false
	}
	return c.items[idx], true
}

// CalculateTotal sums price x quantity for every line. Every referenced
// product must be present in products. An empty cart totals zero in the
// default currency.
func (c Cart) CalculateTotal(products []Product) (Money, error) {
	if c.IsEmpty() {
		return Zero(MustCurrency(DefaultCurrencyCode)), nil
	}
	catalog := IndexProducts(products)

	var total Money
	for i, item := range c.items {
		product, ok := catalog[item.productID.value]
		if !ok {
			return Money{}, ProductNotFound(item.productID)
		}
		line, err := product.price.MultiplyInt(item.quantity.value)
		if err != nil {
			return Money{}, err
		}
		if i == 0 {
			total = line
			continue
		}
		if total, err = total.Add(line); err != nil {
			return Money{}, err
		}
	}
	return total, nil
}

// Equal reports whether both carts have the same id and the same lines in
// the same order.
func (c Cart) Equal(other Cart) bool {
	if c.id != other.id || len(c.items) != len(other.items) {
		return false
	}
	for i := range c.items {
		if c.items[i] != other.items[i] {
			return false
		}
	}
	return true
}

func (c Cart) indexOf(productID PositiveInt) int {
	for i := range c.items {
		if c.items[i].productID == productID {
			return i
		}
	}
	return -1
}

func (c Cart) withItems(items []CartItem) Cart {
	return Cart{id: c.id, items: items, createdAt: c.createdAt}
}

type cartJSON struct {
	ID         string      `json:"id"`
	Items      []CartItem  `json:"items"`
	TotalItems PositiveInt `json:"totalItems"`
	IsEmpty    bool        `json:"isEmpty"`
	CreatedAt  string      `json:"createdAt"`
}

// MarshalJSON renders {id, items, totalItems, isEmpty, createdAt}.
func (c Cart) MarshalJSON() ([]byte, error) {
	items := c.items
	if items == nil {
		items = []CartItem{}
	}
	return json.Marshal(cartJSON{
		ID:         c.id,
		Items:      items,
		TotalItems: c.TotalItems(),
		IsEmpty:    c.IsEmpty(),
		CreatedAt:  c.createdAt.Format(timestampLayout),
	})
}

// UnmarshalJSON rebuilds a Cart from its wire form. Derived fields are ignored.
func (c *Cart) UnmarshalJSON(data []byte) error {
	var raw cartJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return wrapDecodeError("cart", data, err)
	}
	createdAt, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return err
	}
	parsed, err := RestoreCart(raw.ID, raw.Items, createdAt)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// IndexProducts maps products by id value.
func IndexProducts(products []Product) map[int]Product {
	index := make(map[int]Product, len(products))
	for _, p := range products {
		index[p.id.value] = p
	}
	return index
}

func notInCart(productID PositiveInt) error {
	return apperrors.BusinessRule(RuleProductNotInCart,
		fmt.Sprintf("product %s is not in the cart", productID)).
		WithDetail("productId", productID.Value())
}

// ProductNotFound is raised when a cart line references a product missing
// from the catalog snapshot.
func ProductNotFound(productID PositiveInt) error {
	return apperrors.BusinessRule(RuleProductNotFound,
		fmt.Sprintf("product %s not found", productID)).
		WithDetail("productId", productID.Value())
}
