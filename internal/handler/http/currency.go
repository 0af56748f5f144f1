package http

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
	"github.com/utafrali/storefront/pkg/httputil"
	"github.com/utafrali/storefront/pkg/validator"
)

// CurrencyHandler serves the supported currency table.
type CurrencyHandler struct {
	logger *slog.Logger
}

// NewCurrencyHandler creates a new currency HTTP handler.
func NewCurrencyHandler(logger *slog.Logger) *CurrencyHandler {
	return &CurrencyHandler{logger: logger}
}

type currencyParams struct {
	Code string `json:"code" validate:"required,len=3,currency"`
}

// ListCurrencies handles GET /api/v1/currencies
func (h *CurrencyHandler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	codes := domain.SupportedCurrencies()
	currencies := make([]domain.Currency, 0, len(codes))
	for _, code := range codes {
		currencies = append(currencies, domain.MustCurrency(code))
	}
	httputil.WriteData(w, http.StatusOK, currencies)
}

// GetCurrency handles GET /api/v1/currencies/{code}
func (h *CurrencyHandler) GetCurrency(w http.ResponseWriter, r *http.Request) {
	params := currencyParams{Code: strings.ToUpper(chi.URLParam(r, "code"))}
	if err := validator.Validate(params); err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}

	cur, err := domain.ParseCurrency(params.Code)
	if err != nil {
		httputil.WriteError(w, r, err, h.logger)
		return
	}
	httputil.WriteData(w, http.StatusOK, cur)
}
