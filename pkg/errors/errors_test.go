package errors

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- Sentinel error identity ---

func TestSentinelErrors_AreDistinct(t *testing.T) {
	sentinels := []error{
		ErrNotFound, ErrInvalidInput, ErrBusinessRule,
		ErrConflict, ErrInternal, ErrServiceUnavail,
	}

	for i := 0; i < len(sentinels); i++ {
		for j := i + 1; j < len(sentinels); j++ {
			assert.NotEqual(t, sentinels[i], sentinels[j],
				"sentinels %d and %d should be distinct", i, j)
		}
	}
}

// --- AppError behavior ---

func TestAppError_ErrorString_WithWrappedError(t *testing.T) {
	inner := fmt.Errorf("db connection lost")
	appErr := &AppError{Code: "INTERNAL_ERROR", Message: "something broke", Err: inner}
	assert.Contains(t, appErr.Error(), "INTERNAL_ERROR")
	assert.Contains(t, appErr.Error(), "db connection lost")
}

func TestAppError_ErrorString_WithoutWrappedError(t *testing.T) {
	appErr := &AppError{Code: "NOT_FOUND", Message: "cart not found"}
	assert.Equal(t, "NOT_FOUND: cart not found", appErr.Error())
}

func TestAppError_Unwrap_Nil(t *testing.T) {
	appErr := &AppError{Code: "TEST", Message: "test"}
	assert.Nil(t, appErr.Unwrap())
}

// --- Domain error kinds ---

func TestValidationError(t *testing.T) {
	err := Validation("amount", -1, "must be non-negative")
	assert.Equal(t, CodeValidation, err.Code)
	assert.Equal(t, "amount", err.Field)
	assert.Equal(t, -1, err.Value)
	assert.Equal(t, "VALIDATION_ERROR: amount: must be non-negative", err.Error())
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.True(t, IsValidation(fmt.Errorf("wrapped: %w", err)))
	assert.False(t, IsBusinessRule(err, ""))
}

func TestValidationCode(t *testing.T) {
	err := ValidationCode("CURRENCY_NOT_SUPPORTED", "currency", "XYZ", "currency XYZ is not supported")
	assert.Equal(t, "CURRENCY_NOT_SUPPORTED", err.Code)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestBusinessRuleError(t *testing.T) {
	err := BusinessRule("INSUFFICIENT_STOCK", "only 2 left").
		WithDetail("requested", 5).
		WithDetail("available", 2)

	assert.Equal(t, "INSUFFICIENT_STOCK: only 2 left", err.Error())
	assert.Equal(t, 5, err.Details["requested"])
	assert.Equal(t, 2, err.Details["available"])
	assert.True(t, errors.Is(err, ErrBusinessRule))

	wrapped := Wrap(err, "add item")
	assert.True(t, IsBusinessRule(wrapped, "INSUFFICIENT_STOCK"))
	assert.True(t, IsBusinessRule(wrapped, ""))
	assert.False(t, IsBusinessRule(wrapped, "EMPTY_CART"))
	assert.False(t, IsValidation(wrapped))
}

// --- Constructor functions ---

func TestNotFound(t *testing.T) {
	err := NotFound("product", "42")
	require.NotNil(t, err)
	assert.Equal(t, "NOT_FOUND", err.Code)
	assert.Equal(t, "product with id 42 not found", err.Message)
	assert.Equal(t, http.StatusNotFound, err.Status)
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestInvalidInput(t *testing.T) {
	err := InvalidInput("cart id is required")
	assert.Equal(t, "INVALID_INPUT", err.Code)
	assert.Equal(t, http.StatusBadRequest, err.Status)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestConflict(t *testing.T) {
	err := Conflict("order already shipped")
	assert.Equal(t, "CONFLICT", err.Code)
	assert.Equal(t, http.StatusConflict, err.Status)
	assert.True(t, errors.Is(err, ErrConflict))
}

func TestInternal(t *testing.T) {
	inner := errors.New("disk full")
	err := Internal(inner)
	assert.Equal(t, http.StatusInternalServerError, err.Status)
	assert.True(t, errors.Is(err, inner))
}

// --- HTTPStatus mapping ---

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"app error", NotFound("cart", "c1"), http.StatusNotFound},
		{"sentinel not found", fmt.Errorf("load: %w", ErrNotFound), http.StatusNotFound},
		{"validation", Validation("name", "", "required"), http.StatusBadRequest},
		{"business rule", BusinessRule("PRODUCT_NOT_IN_CART", "missing"), http.StatusConflict},
		{"conflict", ErrConflict, http.StatusConflict},
		{"unavailable", ErrServiceUnavail, http.StatusServiceUnavailable},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, HTTPStatus(tt.err))
		})
	}
}
