package http

import (
	"bytes"
	"context"
	"embed"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/pricing"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type CatalogReader interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
}

type OrderReader interface {
	GetByPayPalID(ctx context.Context, paypalOrderID string) (*orders.Order, error)
	List(ctx context.Context, limit int) ([]*orders.Order, error)
}

// SiteInfo is the text shared by every page.
type SiteInfo struct {
	Title          string
	DiscordInvite  string
	Notice         string
	PayPalClientID string
	Currency       string
}

type pageData struct {
	SiteInfo
	Year      int
	CartCount int
}

type PageHandler struct {
	site    SiteInfo
	catalog CatalogReader
	cart    CartService
	orders  OrderReader
	log     *slog.Logger
}

func NewPageHandler(site SiteInfo, products CatalogReader, cart CartService, ledger OrderReader, log *slog.Logger) *PageHandler {
	if site.Title == "" {
		site.Title = "Svetainė"
	}
	return &PageHandler{site: site, catalog: products, cart: cart, orders: ledger, log: log}
}

func (h *PageHandler) base(r *http.Request) pageData {
	d := pageData{SiteInfo: h.site, Year: time.Now().Year()}
	if key, ok := sessionKey(r); ok {
		if summary, err := h.cart.Items(r.Context(), key); err == nil {
			for _, li := range summary.Items {
				d.CartCount += li.Qty
			}
		}
	}
	return d
}

// GET /
func (h *PageHandler) Home(w http.ResponseWriter, r *http.Request) {
	snap, err := h.catalog.Snapshot(r.Context())
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	render(w, r, h.log, "home", struct {
		pageData
		Products []catalog.Product
	}{h.base(r), snap.Products()})
}

// GET /cart
func (h *PageHandler) Cart(w http.ResponseWriter, r *http.Request) {
	key, ok := sessionKey(r)
	var summary pricing.Summary
	if ok {
		var err error
		summary, err = h.cart.Items(r.Context(), key)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
	}
	render(w, r, h.log, "cart", struct {
		pageData
		Summary pricing.Summary
	}{h.base(r), summary})
}

// GET /success?order_id=
func (h *PageHandler) Success(w http.ResponseWriter, r *http.Request) {
	orderID := r.URL.Query().Get("order_id")
	var order *orders.Order
	if orderID != "" && h.orders != nil {
		o, err := h.orders.GetByPayPalID(r.Context(), orderID)
		if err == nil {
			order = o
		}
	}
	render(w, r, h.log, "success", struct {
		pageData
		OrderID string
		Order   *orders.Order
	}{h.base(r), orderID, order})
}

func (h *PageHandler) serverError(w http.ResponseWriter, r *http.Request, err error) {
	logger.FromContext(r.Context(), h.log).Error("page failed", "path", r.URL.Path, "error", err)
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

// render buffers the page so a template error never leaves a half-written response.
func render(w http.ResponseWriter, r *http.Request, log *slog.Logger, name string, data any) {
	renderStatus(w, r, log, http.StatusOK, name, data)
}

func renderStatus(w http.ResponseWriter, r *http.Request, log *slog.Logger, status int, name string, data any) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		logger.FromContext(r.Context(), log).Error("template failed", "template", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
