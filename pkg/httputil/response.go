package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/logger"
	"github.com/utafrali/storefront/pkg/validator"
)

// Response is the standard JSON response envelope.
type Response struct {
	Data  any            `json:"data,omitempty"`
	Error *ErrorResponse `json:"error,omitempty"`
}

// ErrorResponse represents an error in the standard response format.
type ErrorResponse struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	Details   map[string]any    `json:"details,omitempty"`
	RequestID string            `json:"request_id,omitempty"`
}

// WriteJSON writes a JSON response with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; nothing meaningful can be done if encoding fails.
	_ = json.NewEncoder(w).Encode(v)
}

// WriteData wraps data in the envelope and writes it.
func WriteData(w http.ResponseWriter, status int, data any) {
	WriteJSON(w, status, Response{Data: data})
}

// WriteError maps err to a status code and error body:
// validation errors give 400 with field details, missing resources 404,
// business rule violations and conflicts 409, everything else 500.
// Internal errors are logged with the request-scoped logger when present.
func WriteError(w http.ResponseWriter, r *http.Request, err error, fallback *slog.Logger) {
	l := logger.FromContext(r.Context())
	if l == slog.Default() && fallback != nil {
		l = fallback
	}

	body := classify(err)
	body.RequestID = logger.CorrelationIDFromContext(r.Context())
	status := apperrors.HTTPStatus(err)

	if status >= http.StatusInternalServerError {
		l.ErrorContext(r.Context(), "internal error",
			slog.String("error", err.Error()),
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
		)
	}

	WriteJSON(w, status, Response{Error: body})
}

func classify(err error) *ErrorResponse {
	var (
		appErr  *apperrors.AppError
		domErr  *apperrors.ValidationError
		ruleErr *apperrors.BusinessRuleError
		reqErr  *validator.ValidationError
	)

	// Internal errors may wrap a domain error from corrupt stored data; never leak it.
	if errors.As(err, &appErr) && appErr.Status >= http.StatusInternalServerError {
		return &ErrorResponse{Code: appErr.Code, Message: "an internal error occurred"}
	}

	switch {
	case errors.As(err, &reqErr):
		return &ErrorResponse{
			Code:    apperrors.CodeValidation,
			Message: "request validation failed",
			Fields:  reqErr.Fields(),
		}
	case errors.As(err, &domErr):
		resp := &ErrorResponse{Code: domErr.Code, Message: domErr.Message}
		if domErr.Field != "" {
			resp.Fields = map[string]string{domErr.Field: domErr.Message}
			resp.Details = map[string]any{"value": fmt.Sprint(domErr.Value)}
		}
		return resp
	case errors.As(err, &ruleErr):
		return &ErrorResponse{Code: ruleErr.Rule, Message: ruleErr.Message, Details: ruleErr.Details}
	case errors.As(err, &appErr):
		if appErr.Status >= http.StatusInternalServerError {
			return &ErrorResponse{Code: appErr.Code, Message: "an internal error occurred"}
		}
		return &ErrorResponse{Code: appErr.Code, Message: appErr.Message}
	case errors.Is(err, apperrors.ErrNotFound):
		return &ErrorResponse{Code: "NOT_FOUND", Message: "resource not found"}
	case errors.Is(err, apperrors.ErrConflict):
		return &ErrorResponse{Code: "CONFLICT", Message: err.Error()}
	case errors.Is(err, apperrors.ErrInvalidInput):
		return &ErrorResponse{Code: "INVALID_INPUT", Message: err.Error()}
	case errors.Is(err, apperrors.ErrServiceUnavail):
		return &ErrorResponse{Code: "SERVICE_UNAVAILABLE", Message: "service temporarily unavailable"}
	default:
		return &ErrorResponse{Code: "INTERNAL_ERROR", Message: "an internal error occurred"}
	}
}

// ParseUUID validates that the given string is a valid UUID and returns it.
// If invalid, it writes a 400 Bad Request response with code INVALID_PARAMETER
// and returns uuid.Nil plus false, signaling the caller to return early.
func ParseUUID(w http.ResponseWriter, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(param)
	if err != nil {
		WriteJSON(w, http.StatusBadRequest, Response{
			Error: &ErrorResponse{
				Code:    "INVALID_PARAMETER",
				Message: "invalid UUID: " + param,
			},
		})
		return uuid.Nil, false
	}
	return id, true
}
