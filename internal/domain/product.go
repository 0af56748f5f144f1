package domain

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/slug"
)

// MaxProductNameLength bounds Product names in characters.
const MaxProductNameLength = 100

// Business rule identifiers raised by Product.
const (
	RuleInsufficientStock = "INSUFFICIENT_STOCK"
)

// timestampLayout is the wire format for entity timestamps (ISO 8601, millisecond precision).
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Product is a catalog item. Stock and price changes return new values.
type Product struct {
	id        PositiveInt
	name      string
	price     Money
	stock     PositiveInt
	createdAt time.Time
}

// NewProduct validates the fields and returns a Product.
// A zero createdAt is replaced with the current time.
func NewProduct(id PositiveInt, name string, price Money, stock PositiveInt, createdAt time.Time) (Product, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Product{}, apperrors.Validation("name", name, "product name is required")
	}
	if utf8.RuneCountInString(name) > MaxProductNameLength {
		return Product{}, apperrors.Validation("name", name,
			fmt.Sprintf("product name must be at most %d characters", MaxProductNameLength))
	}
	if price.Currency().IsZero() {
		return Product{}, apperrors.Validation("price", nil, "product price is required")
	}
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	return Product{
		id:        id,
		name:      name,
		price:     price,
		stock:     stock,
		createdAt: normalizeTime(createdAt),
	}, nil
}

func (p Product) ID() PositiveInt {
	return p.id
}

func (p Product) Name() string {
	return p.name
}

func (p Product) Price() Money {
	return p.price
}

func (p Product) Stock() PositiveInt {
	return p.stock
}

func (p Product) CreatedAt() time.Time {
	return p.createdAt
}

// IsAvailable reports whether any stock is left.
func (p Product) IsAvailable() bool {
	return !p.stock.IsZero()
}

// HasStock reports whether at least quantity units are in stock.
func (p Product) HasStock(quantity PositiveInt) bool {
	return p.stock.GreaterThanOrEqual(quantity)
}

// ReduceStock returns a copy with quantity units removed from stock.
func (p Product) ReduceStock(quantity PositiveInt) (Product, error) {
	if !p.HasStock(quantity) {
		return Product{}, apperrors.BusinessRule(RuleInsufficientStock,
			fmt.Sprintf("insufficient stock for product %s: requested %d, available %d",
				p.id, quantity.Value(), p.stock.Value())).
			WithDetail("productId", p.id.Value()).
			WithDetail("requested", quantity.Value()).
			WithDetail("available", p.stock.Value())
	}
	next := p
	next.stock = PositiveInt{value: p.stock.value - quantity.value}
	return next, nil
}

// IncreaseStock returns a copy with quantity units added to stock.
func (p Product) IncreaseStock(quantity PositiveInt) Product {
	next := p
	next.stock = p.stock.Add(quantity)
	return next
}

// ChangePrice returns a copy with a new price.
func (p Product) ChangePrice(price Money) (Product, error) {
	if price.Currency().IsZero() {
		return Product{}, apperrors.Validation("price", nil, "product price is required")
	}
	next := p
	next.price = price
	return next, nil
}

// Slug returns the URL-friendly form of the name.
func (p Product) Slug() string {
	return slug.Generate(p.name)
}

// Equal compares identity and state, ignoring createdAt.
func (p Product) Equal(other Product) bool {
	return p.id.Equal(other.id) &&
		p.name == other.name &&
		p.price.Equal(other.price) &&
		p.stock.Equal(other.stock)
}

type productJSON struct {
	ID        PositiveInt `json:"id"`
	Name      string      `json:"name"`
	Slug      string      `json:"slug,omitempty"`
	Price     Money       `json:"price"`
	Stock     PositiveInt `json:"stock"`
	Available bool        `json:"available"`
	CreatedAt string      `json:"createdAt"`
}

// MarshalJSON renders {id, name, slug, price, stock, available, createdAt}.
func (p Product) MarshalJSON() ([]byte, error) {
	return json.Marshal(productJSON{
		ID:        p.id,
		Name:      p.name,
		Slug:      p.Slug(),
		Price:     p.price,
		Stock:     p.stock,
		Available: p.IsAvailable(),
		CreatedAt: p.createdAt.Format(timestampLayout),
	})
}

// UnmarshalJSON rebuilds a Product from its wire form. The derived
// slug and "available" fields are ignored.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw productJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return wrapDecodeError("product", data, err)
	}
	createdAt, err := parseTimestamp(raw.CreatedAt)
	if err != nil {
		return err
	}
	parsed, err := NewProduct(raw.ID, raw.Name, raw.Price, raw.Stock, createdAt)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

func parseTimestamp(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, apperrors.Validation("createdAt", s, "must be an ISO 8601 timestamp")
	}
	return t, nil
}

// wrapDecodeError keeps domain validation errors raised by nested
// UnmarshalJSON calls and reports anything else as malformed input.
func wrapDecodeError(field string, data []byte, err error) error {
	if apperrors.IsValidation(err) {
		return err
	}
	return apperrors.Validation(field, string(data), "malformed "+field+": "+err.Error())
}
