package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/fjod/storefront/internal/cart"
	"github.com/fjod/storefront/internal/checkout"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/paypal"
)

type ErrorResponse struct {
	OK      bool            `json:"ok"`
	Error   string          `json:"error"`
	Code    string          `json:"code,omitempty"`
	Details json.RawMessage `json:"details,omitempty"`
	Total   string          `json:"total,omitempty"`
}

type okResponse struct {
	OK bool `json:"ok"`
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func respondOK(w http.ResponseWriter) {
	respondJSON(w, http.StatusOK, okResponse{OK: true})
}

func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, ErrorResponse{
		Error: message,
		Code:  code,
	})
}

// handleServiceError maps domain errors onto HTTP status codes.
func handleServiceError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error) {
	var upErr *paypal.UpstreamError
	var urlErr *url.Error

	switch {
	case errors.Is(err, cart.ErrProductNotFound),
		errors.Is(err, cart.ErrLineNotFound),
		errors.Is(err, orders.ErrOrderNotFound):
		respondError(w, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, cart.ErrInvalidQuantity):
		respondError(w, http.StatusBadRequest, "invalid_quantity", err.Error())
	case errors.Is(err, cart.ErrProductUnavailable):
		respondError(w, http.StatusBadRequest, "product_unavailable", err.Error())
	case errors.Is(err, cart.ErrConcurrentUpdate):
		respondError(w, http.StatusConflict, "conflict", err.Error())
	case errors.Is(err, checkout.ErrEmptyCart):
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "cart is empty",
			Code:  "empty_cart",
			Total: "0.00",
		})
	case errors.Is(err, checkout.ErrMissingOrderID):
		respondError(w, http.StatusBadRequest, "missing_order_id", err.Error())
	case errors.As(err, &upErr):
		logger.FromContext(r.Context(), log).Warn("paypal request rejected",
			"op", upErr.Op, "status", upErr.StatusCode)
		respondJSON(w, http.StatusBadGateway, ErrorResponse{
			Error:   upErr.Error(),
			Code:    "upstream_error",
			Details: upErr.Details,
		})
	case errors.As(err, &urlErr):
		logger.FromContext(r.Context(), log).Warn("paypal unreachable", "error", err)
		respondError(w, http.StatusBadGateway, "upstream_unavailable", "payment provider unreachable")
	case errors.Is(err, context.DeadlineExceeded):
		respondError(w, http.StatusGatewayTimeout, "timeout", "request timed out")
	default:
		logger.FromContext(r.Context(), log).Error("request failed", "error", err)
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
