package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fjod/storefront/internal/checkout"
)

type CheckoutService interface {
	CreateOrder(ctx context.Context, key string) (*checkout.Attempt, error)
	CaptureOrder(ctx context.Context, key, paypalOrderID string) (*checkout.Attempt, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	log      *slog.Logger
}

func NewCheckoutHandler(svc CheckoutService, log *slog.Logger) *CheckoutHandler {
	return &CheckoutHandler{checkout: svc, log: log}
}

type CreateOrderResponseDTO struct {
	OK bool   `json:"ok"`
	ID string `json:"id"`
}

type CaptureOrderRequestDTO struct {
	OrderID string `json:"orderID"`
}

type CaptureOrderResponseDTO struct {
	OK      bool            `json:"ok"`
	Capture json.RawMessage `json:"capture,omitempty"`
	OrderID int64           `json:"order_id,omitempty"`
}

// POST /api/paypal/create-order
func (h *CheckoutHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	key, ok := visitorKey(w, r)
	if !ok {
		return
	}

	attempt, err := h.checkout.CreateOrder(r.Context(), key)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, CreateOrderResponseDTO{OK: true, ID: attempt.PayPalOrderID})
}

// POST /api/paypal/capture-order
func (h *CheckoutHandler) CaptureOrder(w http.ResponseWriter, r *http.Request) {
	key, ok := visitorKey(w, r)
	if !ok {
		return
	}

	var req CaptureOrderRequestDTO
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
			return
		}
	}

	attempt, err := h.checkout.CaptureOrder(r.Context(), key, req.OrderID)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}

	resp := CaptureOrderResponseDTO{OK: true}
	if attempt.Capture != nil {
		resp.Capture = attempt.Capture.Raw
	}
	if attempt.Order != nil {
		resp.OrderID = attempt.Order.ID
	}
	respondJSON(w, http.StatusOK, resp)
}
