package domain

import (
	"encoding/json"
	"sort"
	"strings"

	"golang.org/x/text/currency"
	"golang.org/x/text/language"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Currency error codes.
const (
	CodeCurrencyInvalid      = "CURRENCY_INVALID"
	CodeCurrencyNotSupported = "CURRENCY_NOT_SUPPORTED"
)

// DefaultCurrencyCode is the catalog currency used when nothing else is known.
const DefaultCurrencyCode = "EUR"

// Currency is an immutable ISO 4217 currency from the supported set.
type Currency struct {
	unit     currency.Unit
	symbol   string
	name     string
	decimals int
	locale   language.Tag
	pattern  string
}

var supportedCurrencies = map[string]Currency{
	"EUR": {unit: currency.EUR, symbol: "€", name: "Euro", decimals: 2, locale: language.French, pattern: "%s €"},
	"USD": {unit: currency.USD, symbol: "$", name: "US Dollar", decimals: 2, locale: language.AmericanEnglish, pattern: "$%s"},
	"GBP": {unit: currency.GBP, symbol: "£", name: "British Pound", decimals: 2, locale: language.BritishEnglish, pattern: "£%s"},
	"CHF": {unit: currency.CHF, symbol: "CHF", name: "Swiss Franc", decimals: 2, locale: language.MustParse("de-CH"), pattern: "CHF %s"},
	"CAD": {unit: currency.CAD, symbol: "C$", name: "Canadian Dollar", decimals: 2, locale: language.MustParse("en-CA"), pattern: "C$%s"},
}

// ParseCurrency resolves an ISO code (case-insensitive) to a supported Currency.
func ParseCurrency(code string) (Currency, error) {
	normalized := strings.ToUpper(strings.TrimSpace(code))
	if len(normalized) != 3 {
		return Currency{}, apperrors.ValidationCode(CodeCurrencyInvalid, "currency", code,
			"currency code must be a 3-letter ISO code")
	}
	if _, err := currency.ParseISO(normalized); err != nil {
		return Currency{}, apperrors.ValidationCode(CodeCurrencyInvalid, "currency", code,
			"currency code is not a recognized ISO 4217 code")
	}
	c, ok := supportedCurrencies[normalized]
	if !ok {
		return Currency{}, apperrors.ValidationCode(CodeCurrencyNotSupported, "currency", code,
			"currency "+normalized+" is not supported")
	}
	return c, nil
}

// MustCurrency is like ParseCurrency but panics on error.
func MustCurrency(code string) Currency {
	c, err := ParseCurrency(code)
	if err != nil {
		panic(err)
	}
	return c
}

// IsSupportedCurrency reports whether code names a supported currency.
func IsSupportedCurrency(code string) bool {
	_, ok := supportedCurrencies[strings.ToUpper(strings.TrimSpace(code))]
	return ok
}

// SupportedCurrencies returns the supported ISO codes in alphabetical order.
func SupportedCurrencies() []string {
	codes := make([]string, 0, len(supportedCurrencies))
	for code := range supportedCurrencies {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Code returns the ISO 4217 code, or an empty string for the zero Currency.
func (c Currency) Code() string {
	if c.IsZero() {
		return ""
	}
	return c.unit.String()
}

// Symbol returns the display symbol, e.g. "€".
func (c Currency) Symbol() string {
	return c.symbol
}

// Name returns the English display name.
func (c Currency) Name() string {
	return c.name
}

// Decimals returns the number of minor-unit digits.
func (c Currency) Decimals() int {
	return c.decimals
}

// Unit returns the underlying x/text currency unit.
func (c Currency) Unit() currency.Unit {
	return c.unit
}

// IsZero reports whether c is the uninitialized Currency.
func (c Currency) IsZero() bool {
	return c.name == ""
}

// Equal reports whether both currencies share the same ISO code.
func (c Currency) Equal(other Currency) bool {
	return c.Code() == other.Code()
}

func (c Currency) String() string {
	return c.Code()
}

type currencyJSON struct {
	Code     string `json:"code"`
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Decimals int    `json:"decimals"`
}

// MarshalJSON implements json.Marshaler.
func (c Currency) MarshalJSON() ([]byte, error) {
	return json.Marshal(currencyJSON{
		Code:     c.Code(),
		Symbol:   c.symbol,
		Name:     c.name,
		Decimals: c.decimals,
	})
}

// UnmarshalJSON accepts either the object form or a bare code string.
func (c *Currency) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err != nil {
		var obj currencyJSON
		if err := json.Unmarshal(data, &obj); err != nil {
			return apperrors.Validation("currency", string(data), "malformed currency")
		}
		code = obj.Code
	}
	parsed, err := ParseCurrency(code)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}
