package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/fjod/storefront/internal/pricing"
	"github.com/fjod/storefront/internal/session"
)

type CartService interface {
	Add(ctx context.Context, key, id string, qty int) error
	Update(ctx context.Context, key, id string, qty int) error
	Clear(ctx context.Context, key string) error
	Items(ctx context.Context, key string) (pricing.Summary, error)
}

type CartHandler struct {
	cart CartService
	log  *slog.Logger
}

func NewCartHandler(cart CartService, log *slog.Logger) *CartHandler {
	return &CartHandler{cart: cart, log: log}
}

type CartLineRequestDTO struct {
	ID  string `json:"id"`
	Qty *int   `json:"qty"`
}

type CartItemDTO struct {
	ID        string `json:"id"`
	Brand     string `json:"brand"`
	Title     string `json:"title"`
	Image     string `json:"image,omitempty"`
	Price     string `json:"price"`
	Qty       int    `json:"qty"`
	LineTotal string `json:"line_total"`
}

type CartResponseDTO struct {
	OK    bool          `json:"ok"`
	Items []CartItemDTO `json:"items"`
	Total string        `json:"total"`
}

func newCartResponse(s pricing.Summary) CartResponseDTO {
	items := make([]CartItemDTO, 0, len(s.Items))
	for _, li := range s.Items {
		items = append(items, CartItemDTO{
			ID:        li.ID,
			Brand:     li.Brand,
			Title:     li.Title,
			Image:     li.Image,
			Price:     li.PriceString(),
			Qty:       li.Qty,
			LineTotal: li.LineTotalString(),
		})
	}
	return CartResponseDTO{OK: true, Items: items, Total: s.TotalString()}
}

// POST /api/cart/add
func (h *CartHandler) Add(w http.ResponseWriter, r *http.Request) {
	key, ok := visitorKey(w, r)
	if !ok {
		return
	}

	var req CartLineRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "missing_id", "id is required")
		return
	}
	qty := 1
	if req.Qty != nil {
		qty = *req.Qty
	}

	if err := h.cart.Add(r.Context(), key, req.ID, qty); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondOK(w)
}

// POST /api/cart/update
func (h *CartHandler) Update(w http.ResponseWriter, r *http.Request) {
	key, ok := visitorKey(w, r)
	if !ok {
		return
	}

	var req CartLineRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}
	if req.ID == "" {
		respondError(w, http.StatusBadRequest, "missing_id", "id is required")
		return
	}
	if req.Qty == nil {
		respondError(w, http.StatusBadRequest, "missing_qty", "qty is required")
		return
	}

	if err := h.cart.Update(r.Context(), key, req.ID, *req.Qty); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondOK(w)
}

// POST /api/cart/clear
func (h *CartHandler) Clear(w http.ResponseWriter, r *http.Request) {
	key, ok := visitorKey(w, r)
	if !ok {
		return
	}
	if err := h.cart.Clear(r.Context(), key); err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondOK(w)
}

// GET /api/cart
func (h *CartHandler) Get(w http.ResponseWriter, r *http.Request) {
	key, ok := visitorKey(w, r)
	if !ok {
		return
	}
	summary, err := h.cart.Items(r.Context(), key)
	if err != nil {
		handleServiceError(w, r, h.log, err)
		return
	}
	respondJSON(w, http.StatusOK, newCartResponse(summary))
}

func visitorKey(w http.ResponseWriter, r *http.Request) (string, bool) {
	key, ok := sessionKey(r)
	if !ok {
		respondError(w, http.StatusInternalServerError, "no_session", "session not initialised")
	}
	return key, ok
}

func sessionKey(r *http.Request) (string, bool) {
	s, ok := session.FromContext(r.Context())
	if !ok {
		return "", false
	}
	return s.ID(), true
}
