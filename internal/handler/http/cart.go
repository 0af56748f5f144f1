package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/internal/service"
	apperrors "github.com/utafrali/storefront/pkg/errors"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CartHandler handles HTTP requests for cart endpoints.
type CartHandler struct {
	service *service.CartService
	logger  *slog.Logger
}

// NewCartHandler creates a new cart HTTP handler.
func NewCartHandler(svc *service.CartService, logger *slog.Logger) *CartHandler {
	return &CartHandler{
		service: svc,
		logger:  logger,
	}
}

// --- Request DTOs ---

// AddItemRequest is the JSON request body for adding a product to a cart.
// Quantity defaults to 1.
type AddItemRequest struct {
	ProductID int  `json:"productId" validate:"required,gte=1"`
	Quantity  *int `json:"quantity" validate:"omitempty,gte=1,lte=99"`
}

// UpdateItemRequest is the JSON request body for changing a line quantity.
// Zero removes the line.
type UpdateItemRequest struct {
	Quantity *int `json:"quantity" validate:"required,gte=0,lte=99"`
}

// --- Handlers ---

// CreateCart handles POST /api/v1/carts
func (h *CartHandler) CreateCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.CreateCart(r.Context())
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.Header().Set("Location", "/api/v1/carts/"+cart.ID())
	httputil.WriteData(w, http.StatusCreated, cart)
}

// GetCart handles GET /api/v1/carts/{cartId}
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.GetCart(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// DeleteCart handles DELETE /api/v1/carts/{cartId}
func (h *CartHandler) DeleteCart(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteCart(r.Context(), chi.URLParam(r, "cartId")); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCart handles POST /api/v1/carts/{cartId}/clear
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.ClearCart(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// AddItem handles POST /api/v1/carts/{cartId}/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	limitBody(w, r)
	var req AddItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	productID, err := domain.NewPositiveInt(req.ProductID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	quantity := domain.QuantityOne()
	if req.Quantity != nil {
		if quantity, err = domain.NewQuantity(*req.Quantity); err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
	}

	cart, err := h.service.AddItem(r.Context(), chi.URLParam(r, "cartId"), productID, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// UpdateItemQuantity handles PUT /api/v1/carts/{cartId}/items/{productId}
func (h *CartHandler) UpdateItemQuantity(w http.ResponseWriter, r *http.Request) {
	productID, err := pathPositiveInt(r, "productId")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	limitBody(w, r)
	var req UpdateItemRequest
	if err := validator.DecodeAndValidate(r, &req); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	quantity, err := domain.NewPositiveInt(*req.Quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.service.UpdateItemQuantity(r.Context(), chi.URLParam(r, "cartId"), productID, quantity)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// RemoveItem handles DELETE /api/v1/carts/{cartId}/items/{productId}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	productID, err := pathPositiveInt(r, "productId")
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cart, err := h.service.RemoveItem(r.Context(), chi.URLParam(r, "cartId"), productID)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cart)
}

// GetTotals handles GET /api/v1/carts/{cartId}/totals[?tax=true&rate=0.2]
func (h *CartHandler) GetTotals(w http.ResponseWriter, r *http.Request) {
	cartID := chi.URLParam(r, "cartId")

	rate, ok := queryFloat(r, "rate")
	if !ok {
		httputil.WriteError(w, r, apperrors.Validation("rate", r.URL.Query().Get("rate"), "must be a number"), h.logger)
		return
	}

	if r.URL.Query().Get("tax") != "true" && rate == nil {
		totals, err := h.service.GetTotals(r.Context(), cartID)
		if err != nil {
			httputil.WriteError(w, r, err, h.logger)
			return
		}
		httputil.WriteData(w, http.StatusOK, totals)
		return
	}

	totals, err := h.service.GetTotalsWithTax(r.Context(), cartID, rate)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, totals)
}

// ValidateCart handles GET /api/v1/carts/{cartId}/availability
func (h *CartHandler) ValidateCart(w http.ResponseWriter, r *http.Request) {
	availability, err := h.service.ValidateCart(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, availability)
}

// ShippingEstimate handles GET /api/v1/carts/{cartId}/shipping
func (h *CartHandler) ShippingEstimate(w http.ResponseWriter, r *http.Request) {
	estimate, err := h.service.ShippingEstimate(r.Context(), chi.URLParam(r, "cartId"))
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, estimate)
}
