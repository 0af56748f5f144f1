package domain

import (
	"encoding/json"
	"strconv"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// MaxQuantity caps a single cart line.
const MaxQuantity = 99

// Quantity is a line-item count in the range 1..MaxQuantity.
// Zero is not a Quantity; callers that mean "remove" pass a PositiveInt.
type Quantity struct {
	value int
}

// NewQuantity validates v and returns a Quantity.
func NewQuantity(v int) (Quantity, error) {
	if err := validateRange("quantity", v, 1, MaxQuantity); err != nil {
		return Quantity{}, err
	}
	return Quantity{value: v}, nil
}

// MustQuantity is like NewQuantity but panics on error.
func MustQuantity(v int) Quantity {
	q, err := NewQuantity(v)
	if err != nil {
		panic(err)
	}
	return q
}

// QuantityOne returns Quantity(1).
func QuantityOne() Quantity {
	return Quantity{value: 1}
}

// QuantityMax returns Quantity(MaxQuantity).
func QuantityMax() Quantity {
	return Quantity{value: MaxQuantity}
}

// Value returns the underlying int.
func (q Quantity) Value() int {
	return q.value
}

// Int widens q to a PositiveInt.
func (q Quantity) Int() PositiveInt {
	return PositiveInt{value: q.value}
}

// Increment returns q+1. It fails at MaxQuantity.
func (q Quantity) Increment() (Quantity, error) {
	return NewQuantity(q.value + 1)
}

// Decrement returns q-1. It fails when q <= 1.
func (q Quantity) Decrement() (Quantity, error) {
	if q.value <= 1 {
		return Quantity{}, apperrors.Validation("quantity", q.value, "cannot decrement below 1")
	}
	return Quantity{value: q.value - 1}, nil
}

func (q Quantity) CanIncrement() bool {
	return q.value < MaxQuantity
}

func (q Quantity) CanDecrement() bool {
	return q.value > 1
}

func (q Quantity) IsMax() bool {
	return q.value >= MaxQuantity
}

func (q Quantity) Equal(other Quantity) bool {
	return q.value == other.value
}

func (q Quantity) String() string {
	return strconv.Itoa(q.value)
}

// MarshalJSON renders the plain integer.
func (q Quantity) MarshalJSON() ([]byte, error) {
	return json.Marshal(q.value)
}

// UnmarshalJSON accepts a plain integer within bounds.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return apperrors.Validation("quantity", string(data), "must be an integer")
	}
	parsed, err := NewQuantity(v)
	if err != nil {
		return err
	}
	*q = parsed
	return nil
}
