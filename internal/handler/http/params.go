package http

import (
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/utafrali/storefront/internal/domain"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// pathPositiveInt parses a numeric path parameter into a PositiveInt.
func pathPositiveInt(r *http.Request, name string) (domain.PositiveInt, error) {
	return domain.ParsePositiveInt(name, chi.URLParam(r, name))
}

// queryFloat parses an optional float query parameter. A missing parameter
// yields nil. NaN and infinities are rejected.
func queryFloat(r *http.Request, name string) (*float64, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return nil, true
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, false
	}
	return &v, true
}

// limitBody caps the request body before decoding.
func limitBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
}
