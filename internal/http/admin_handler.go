package http

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/fjod/storefront/internal/catalog"
	"github.com/fjod/storefront/internal/logger"
	"github.com/fjod/storefront/internal/orders"
	"github.com/fjod/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

type ProductStore interface {
	Snapshot(ctx context.Context) (*catalog.Snapshot, error)
	Product(ctx context.Context, id string) (*catalog.Product, error)
	Save(ctx context.Context, p *catalog.Product) error
}

type AdminHandler struct {
	token    string
	products ProductStore
	orders   OrderReader
	limiter  *RateLimiter
	pages    *PageHandler
	log      *slog.Logger
}

func NewAdminHandler(token string, products ProductStore, ledger OrderReader, limiter *RateLimiter, pages *PageHandler, log *slog.Logger) *AdminHandler {
	return &AdminHandler{
		token:    token,
		products: products,
		orders:   ledger,
		limiter:  limiter,
		pages:    pages,
		log:      log,
	}
}

// RequireAdmin redirects to the login page unless the session carries the admin flag.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s, ok := session.FromContext(r.Context())
		if !ok || !s.Admin() {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				respondError(w, http.StatusForbidden, "forbidden", "admin login required")
				return
			}
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type loginPage struct {
	pageData
	Error string
}

// GET /admin/login
func (h *AdminHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	if s, ok := session.FromContext(r.Context()); ok && s.Admin() {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	render(w, r, h.log, "admin_login", loginPage{pageData: h.pages.base(r)})
}

// POST /admin/login
func (h *AdminHandler) Login(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context(), h.log)
	ip := clientIP(r)

	if h.limiter != nil && !h.limiter.Allow(ip) {
		log.Warn("admin login rate limited", "remote_ip", ip)
		renderStatus(w, r, h.log, http.StatusTooManyRequests, "admin_login",
			loginPage{pageData: h.pages.base(r), Error: "Per daug bandymų, pabandykite vėliau."})
		return
	}

	s, ok := session.FromContext(r.Context())
	if !ok || !h.checkToken(r.PostFormValue("token")) {
		log.Warn("admin login failed", "remote_ip", ip)
		renderStatus(w, r, h.log, http.StatusForbidden, "admin_login",
			loginPage{pageData: h.pages.base(r), Error: "Neteisingas token."})
		return
	}

	s.SetAdmin(true)
	log.Info("admin logged in", "remote_ip", ip)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (h *AdminHandler) checkToken(given string) bool {
	if h.token == "" || given == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(given), []byte(h.token)) == 1
}

// POST /admin/logout
func (h *AdminHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if s, ok := session.FromContext(r.Context()); ok {
		s.SetAdmin(false)
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

// GET /admin
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	snap, err := h.products.Snapshot(r.Context())
	if err != nil {
		h.pages.serverError(w, r, err)
		return
	}
	render(w, r, h.log, "admin_dashboard", struct {
		pageData
		Products []catalog.Product
	}{h.pages.base(r), snap.Products()})
}

type productPage struct {
	pageData
	IsNew   bool
	Product *catalog.Product
	Error   string
}

// GET /admin/products/new
func (h *AdminHandler) NewProduct(w http.ResponseWriter, r *http.Request) {
	render(w, r, h.log, "admin_product", productPage{
		pageData: h.pages.base(r),
		IsNew:    true,
		Product:  &catalog.Product{Status: catalog.StatusAvailable},
	})
}

// GET /admin/products/{id}
func (h *AdminHandler) EditProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.Product(r.Context(), chi.URLParam(r, "id"))
	if errors.Is(err, catalog.ErrProductNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.pages.serverError(w, r, err)
		return
	}
	render(w, r, h.log, "admin_product", productPage{pageData: h.pages.base(r), Product: p})
}

// POST /admin/products upserts by id.
func (h *AdminHandler) SaveProduct(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid form body")
		return
	}

	p := &catalog.Product{
		ID:        strings.TrimSpace(r.PostFormValue("id")),
		Brand:     r.PostFormValue("brand"),
		Title:     r.PostFormValue("title"),
		Condition: r.PostFormValue("condition"),
		Size:      r.PostFormValue("size"),
		Ship:      r.PostFormValue("ship"),
		Status:    catalog.Status(r.PostFormValue("status")),
		Image:     r.PostFormValue("image"),
	}

	formError := func(msg string) {
		renderStatus(w, r, h.log, http.StatusBadRequest, "admin_product",
			productPage{pageData: h.pages.base(r), IsNew: true, Product: p, Error: msg})
	}

	if p.ID == "" {
		formError("ID privalomas.")
		return
	}
	if p.Status == "" {
		p.Status = catalog.StatusAvailable
	}
	if !p.Status.Valid() {
		formError("Neteisinga būsena.")
		return
	}
	price, err := decimal.NewFromString(strings.TrimSpace(strings.ReplaceAll(r.PostFormValue("price"), ",", ".")))
	if err != nil {
		formError("Neteisinga kaina.")
		return
	}
	p.Price = price

	if err := h.products.Save(r.Context(), p); err != nil {
		h.pages.serverError(w, r, err)
		return
	}
	logger.FromContext(r.Context(), h.log).Info("product saved", "product_id", p.ID)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

// GET /admin/orders
func (h *AdminHandler) Orders(w http.ResponseWriter, r *http.Request) {
	list, err := h.orders.List(r.Context(), 100)
	if err != nil {
		h.pages.serverError(w, r, err)
		return
	}
	render(w, r, h.log, "admin_orders", struct {
		pageData
		Orders []*orders.Order
	}{h.pages.base(r), list})
}
