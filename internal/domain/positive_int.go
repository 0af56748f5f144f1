package domain

import (
	"encoding/json"
	"fmt"
	"strconv"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// PositiveInt is an immutable integer >= 0.
type PositiveInt struct {
	value int
}

// validateRange is shared by every bounded integer value type.
func validateRange(field string, v, lo, hi int) error {
	if v < lo {
		return apperrors.Validation(field, v, fmt.Sprintf("must be at least %d", lo))
	}
	if hi >= lo && v > hi {
		return apperrors.Validation(field, v, fmt.Sprintf("must be at most %d", hi))
	}
	return nil
}

// NewPositiveInt validates v and returns a PositiveInt.
func NewPositiveInt(v int) (PositiveInt, error) {
	if err := validateRange("value", v, 0, -1); err != nil {
		return PositiveInt{}, err
	}
	return PositiveInt{value: v}, nil
}

// MustPositiveInt is like NewPositiveInt but panics on error.
func MustPositiveInt(v int) PositiveInt {
	p, err := NewPositiveInt(v)
	if err != nil {
		panic(err)
	}
	return p
}

// ParsePositiveInt parses a base-10 string such as a URL parameter.
func ParsePositiveInt(field, s string) (PositiveInt, error) {
	v, err := strconv.Atoi(s)
	if err != nil {
		return PositiveInt{}, apperrors.Validation(field, s, "must be an integer")
	}
	if err := validateRange(field, v, 0, -1); err != nil {
		return PositiveInt{}, err
	}
	return PositiveInt{value: v}, nil
}

// ZeroInt returns PositiveInt(0).
func ZeroInt() PositiveInt {
	return PositiveInt{}
}

// OneInt returns PositiveInt(1).
func OneInt() PositiveInt {
	return PositiveInt{value: 1}
}

// Value returns the underlying int.
func (p PositiveInt) Value() int {
	return p.value
}

// Add returns p + other.
func (p PositiveInt) Add(other PositiveInt) PositiveInt {
	return PositiveInt{value: p.value + other.value}
}

// Subtract returns p - other, failing when the result would be negative.
func (p PositiveInt) Subtract(other PositiveInt) (PositiveInt, error) {
	result := p.value - other.value
	if result < 0 {
		return PositiveInt{}, apperrors.Validation("value", result, "subtraction would result in a negative value")
	}
	return PositiveInt{value: result}, nil
}

// Multiply returns p * other.
func (p PositiveInt) Multiply(other PositiveInt) PositiveInt {
	return PositiveInt{value: p.value * other.value}
}

func (p PositiveInt) Equal(other PositiveInt) bool {
	return p.value == other.value
}

func (p PositiveInt) GreaterThan(other PositiveInt) bool {
	return p.value > other.value
}

func (p PositiveInt) GreaterThanOrEqual(other PositiveInt) bool {
	return p.value >= other.value
}

func (p PositiveInt) LessThan(other PositiveInt) bool {
	return p.value < other.value
}

func (p PositiveInt) IsZero() bool {
	return p.value == 0
}

func (p PositiveInt) String() string {
	return strconv.Itoa(p.value)
}

// MarshalJSON renders the plain integer.
func (p PositiveInt) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.value)
}

// UnmarshalJSON accepts a plain non-negative integer.
func (p *PositiveInt) UnmarshalJSON(data []byte) error {
	var v int
	if err := json.Unmarshal(data, &v); err != nil {
		return apperrors.Validation("value", string(data), "must be an integer")
	}
	parsed, err := NewPositiveInt(v)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
