// Package pricing computes cart totals, tax, shipping and stock availability
// from a cart and a snapshot of the products it references.
package pricing

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/utafrali/storefront/internal/domain"
	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Issue types reported by ValidateCartAvailability.
const (
	IssueProductNotFound    = "PRODUCT_NOT_FOUND"
	IssueProductUnavailable = "PRODUCT_UNAVAILABLE"
	IssueInsufficientStock  = "INSUFFICIENT_STOCK"
)

// RuleLineInputRequired is raised when a line total is requested without a product or quantity.
const RuleLineInputRequired = "LINE_INPUT_REQUIRED"

// DefaultTaxRate is the VAT rate applied when none is configured.
const DefaultTaxRate = 0.20

var (
	DefaultFreeShippingThreshold = decimal.NewFromInt(50)
	DefaultShippingFee           = decimal.RequireFromString("5.99")
)

// Options configures a Service.
type Options struct {
	// TaxRate is applied by CalculateCartTotalsWithTax when no rate is given.
	TaxRate float64
	// FreeShippingThreshold and ShippingFee are amounts in the cart's currency.
	FreeShippingThreshold decimal.Decimal
	ShippingFee           decimal.Decimal
	// Currency is used for the totals of an empty cart.
	Currency domain.Currency
}

// DefaultOptions returns a 20% tax rate, free shipping above 50 and a 5.99 flat fee in EUR.
func DefaultOptions() Options {
	return Options{
		TaxRate:               DefaultTaxRate,
		FreeShippingThreshold: DefaultFreeShippingThreshold,
		ShippingFee:           DefaultShippingFee,
		Currency:              domain.MustCurrency(domain.DefaultCurrencyCode),
	}
}

// Service is stateless apart from its options and safe for concurrent use.
type Service struct {
	opts Options
}

// NewService creates a pricing Service. A zero Currency falls back to EUR.
func NewService(opts Options) *Service {
	if opts.Currency.IsZero() {
		opts.Currency = domain.MustCurrency(domain.DefaultCurrencyCode)
	}
	return &Service{opts: opts}
}

// TaxRate returns the configured default tax rate.
func (s *Service) TaxRate() float64 {
	return s.opts.TaxRate
}

// LineMetadata describes the stock situation of a priced line.
type LineMetadata struct {
	Available bool `json:"available"`
	HasStock  bool `json:"hasStock"`
}

// Line is a priced cart line.
type Line struct {
	ProductID   int          `json:"productId"`
	ProductName string       `json:"productName"`
	Quantity    int          `json:"quantity"`
	UnitPrice   domain.Money `json:"unitPrice"`
	LineTotal   domain.Money `json:"lineTotal"`
	Metadata    LineMetadata `json:"metadata"`
}

// Summary aggregates line counts.
type Summary struct {
	ItemCount  int    `json:"itemCount"`
	TotalItems int    `json:"totalItems"`
	Currency   string `json:"currency"`
}

// Totals is the result of CalculateCartTotals.
type Totals struct {
	Lines    []Line       `json:"lines"`
	Subtotal domain.Money `json:"subtotal"`
	Total    domain.Money `json:"total"`
	Summary  Summary      `json:"summary"`
}

// Tax describes the tax applied to a subtotal.
type Tax struct {
	Rate   float64      `json:"rate"`
	Amount domain.Money `json:"amount"`
}

// TaxedTotals extends Totals with tax.
type TaxedTotals struct {
	Totals
	Tax          Tax          `json:"tax"`
	TotalWithTax domain.Money `json:"totalWithTax"`
}

// Shipping describes the shipping cost of an estimate.
type Shipping struct {
	Cost                     domain.Money `json:"cost"`
	IsFree                   bool         `json:"isFree"`
	FreeShippingThreshold    domain.Money `json:"freeShippingThreshold"`
	RemainingForFreeShipping domain.Money `json:"remainingForFreeShipping"`
}

// ShippingEstimate extends Totals with shipping.
type ShippingEstimate struct {
	Totals
	Shipping   Shipping     `json:"shipping"`
	FinalTotal domain.Money `json:"finalTotal"`
}

// Issue is a single availability problem on a cart line.
type Issue struct {
	Type        string `json:"type"`
	ProductID   int    `json:"productId"`
	ProductName string `json:"productName,omitempty"`
	Requested   *int   `json:"requested,omitempty"`
	Available   *int   `json:"available,omitempty"`
	Message     string `json:"message"`
}

// Availability is the result of ValidateCartAvailability.
type Availability struct {
	IsValid bool    `json:"isValid"`
	Issues  []Issue `json:"issues"`
}

// CalculateLineTotal returns price x quantity.
func (s *Service) CalculateLineTotal(product *domain.Product, quantity domain.Quantity) (domain.Money, error) {
	if product == nil || quantity.Value() == 0 {
		return domain.Money{}, apperrors.BusinessRule(RuleLineInputRequired,
			"product and quantity are required for line total calculation")
	}
	return product.Price().MultiplyInt(quantity.Value())
}

// CalculateCartTotals prices every line of cart against products.
// Every referenced product must be present.
func (s *Service) CalculateCartTotals(cart domain.Cart, products []domain.Product) (Totals, error) {
	if cart.IsEmpty() {
		zero := domain.Zero(s.opts.Currency)
		return Totals{
			Lines:    []Line{},
			Subtotal: zero,
			Total:    zero,
			Summary:  Summary{Currency: zero.Currency().Code()},
		}, nil
	}

	catalog := domain.IndexProducts(products)
	items := cart.Items()
	lines := make([]Line, 0, len(items))
	var subtotal domain.Money

	for i, item := range items {
		product, ok := catalog[item.ProductID().Value()]
		if !ok {
			return Totals{}, domain.ProductNotFound(item.ProductID())
		}
		lineTotal, err := s.CalculateLineTotal(&product, item.Quantity())
		if err != nil {
			return Totals{}, err
		}
		if i == 0 {
			subtotal = lineTotal
		} else if subtotal, err = subtotal.Add(lineTotal); err != nil {
			return Totals{}, fmt.Errorf("sum line totals: %w", err)
		}

		lines = append(lines, Line{
			ProductID:   item.ProductID().Value(),
			ProductName: product.Name(),
			Quantity:    item.Quantity().Value(),
			UnitPrice:   product.Price(),
			LineTotal:   lineTotal,
			Metadata: LineMetadata{
				Available: product.IsAvailable(),
				HasStock:  product.HasStock(item.Quantity().Int()),
			},
		})
	}

	return Totals{
		Lines:    lines,
		Subtotal: subtotal,
		Total:    subtotal,
		Summary: Summary{
			ItemCount:  cart.LineCount(),
			TotalItems: cart.TotalItems().Value(),
			Currency:   subtotal.Currency().Code(),
		},
	}, nil
}

// CalculateCartTotalsWithTax adds tax at taxRate to the cart totals.
// The tax amount is rounded to the currency's minor unit.
func (s *Service) CalculateCartTotalsWithTax(cart domain.Cart, products []domain.Product, taxRate float64) (TaxedTotals, error) {
	if math.IsNaN(taxRate) || math.IsInf(taxRate, 0) || taxRate < 0 || taxRate > 1 {
		return TaxedTotals{}, apperrors.Validation("taxRate", taxRate, "tax rate must be between 0 and 1")
	}
	totals, err := s.CalculateCartTotals(cart, products)
	if err != nil {
		return TaxedTotals{}, err
	}

	if totals.Subtotal.IsZero() {
		zero := domain.Zero(totals.Subtotal.Currency())
		return TaxedTotals{
			Totals:       totals,
			Tax:          Tax{Rate: taxRate, Amount: zero},
			TotalWithTax: zero,
		}, nil
	}

	taxAmount, err := totals.Subtotal.Multiply(taxRate)
	if err != nil {
		return TaxedTotals{}, err
	}
	taxAmount = taxAmount.Round()
	totalWithTax, err := totals.Subtotal.Add(taxAmount)
	if err != nil {
		return TaxedTotals{}, err
	}

	return TaxedTotals{
		Totals:       totals,
		Tax:          Tax{Rate: taxRate, Amount: taxAmount},
		TotalWithTax: totalWithTax,
	}, nil
}

// ValidateCartAvailability reports every line whose product is missing,
// out of stock, or short of the requested quantity. It never fails.
func (s *Service) ValidateCartAvailability(cart domain.Cart, products []domain.Product) Availability {
	catalog := domain.IndexProducts(products)
	issues := []Issue{}

	for _, item := range cart.Items() {
		id := item.ProductID().Value()
		product, ok := catalog[id]
		if !ok {
			issues = append(issues, Issue{
				Type:      IssueProductNotFound,
				ProductID: id,
				Message:   fmt.Sprintf("product %d not found", id),
			})
			continue
		}

		if !product.IsAvailable() {
			issues = append(issues, Issue{
				Type:        IssueProductUnavailable,
				ProductID:   id,
				ProductName: product.Name(),
				Message:     fmt.Sprintf("product %s is not available", product.Name()),
			})
		}

		if !product.HasStock(item.Quantity().Int()) {
			requested := item.Quantity().Value()
			available := product.Stock().Value()
			issues = append(issues, Issue{
				Type:        IssueInsufficientStock,
				ProductID:   id,
				ProductName: product.Name(),
				Requested:   &requested,
				Available:   &available,
				Message: fmt.Sprintf("insufficient stock for %s: available %d, requested %d",
					product.Name(), available, requested),
			})
		}
	}

	return Availability{IsValid: len(issues) == 0, Issues: issues}
}

// CalculateShippingEstimate adds shipping to the cart totals. Shipping is free
// when the total exceeds the threshold; otherwise the flat fee applies.
func (s *Service) CalculateShippingEstimate(cart domain.Cart, products []domain.Product) (ShippingEstimate, error) {
	totals, err := s.CalculateCartTotals(cart, products)
	if err != nil {
		return ShippingEstimate{}, err
	}

	code := totals.Total.Currency().Code()
	threshold, err := domain.NewMoney(s.opts.FreeShippingThreshold, code)
	if err != nil {
		return ShippingEstimate{}, fmt.Errorf("free shipping threshold: %w", err)
	}
	fee, err := domain.NewMoney(s.opts.ShippingFee, code)
	if err != nil {
		return ShippingEstimate{}, fmt.Errorf("shipping fee: %w", err)
	}

	free, err := totals.Total.GreaterThan(threshold)
	if err != nil {
		return ShippingEstimate{}, err
	}

	zero := domain.Zero(totals.Total.Currency())
	cost, remaining := fee, zero
	if free {
		cost = zero
	} else if remaining, err = threshold.Subtract(totals.Total); err != nil {
		return ShippingEstimate{}, err
	}

	finalTotal, err := totals.Total.Add(cost)
	if err != nil {
		return ShippingEstimate{}, err
	}

	return ShippingEstimate{
		Totals: totals,
		Shipping: Shipping{
			Cost:                     cost,
			IsFree:                   cost.IsZero(),
			FreeShippingThreshold:    threshold,
			RemainingForFreeShipping: remaining,
		},
		FinalTotal: finalTotal,
	}, nil
}
