package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/fjod/storefront/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxRequestBodySize int64
	StaticDir          string
}

type Handlers struct {
	Cart     *CartHandler
	Checkout *CheckoutHandler
	Pages    *PageHandler
	Admin    *AdminHandler
	Sessions *session.Manager
	Health   http.HandlerFunc
}

func NewRouter(cfg RouterConfig, h Handlers, log *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(RequestContext)
	r.Use(RequestLogger(log))
	r.Use(middleware.Recoverer)
	if cfg.RequestTimeout > 0 {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
	}
	if cfg.MaxRequestBodySize > 0 {
		r.Use(MaxBodySize(cfg.MaxRequestBodySize))
	}
	r.Use(middleware.Compress(5))

	health := h.Health
	if health == nil {
		health = func(w http.ResponseWriter, _ *http.Request) {
			respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		}
	}
	r.Get("/health", health)

	if cfg.StaticDir != "" {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.StaticDir)))
		r.Handle("/static/*", fs)
	}

	r.Group(func(r chi.Router) {
		r.Use(h.Sessions.Middleware(log))

		r.Get("/", h.Pages.Home)
		r.Get("/cart", h.Pages.Cart)
		r.Get("/success", h.Pages.Success)

		r.Route("/api", func(r chi.Router) {
			r.Route("/cart", func(r chi.Router) {
				r.Get("/", h.Cart.Get)
				r.Post("/add", h.Cart.Add)
				r.Post("/update", h.Cart.Update)
				r.Post("/clear", h.Cart.Clear)
			})
			r.Route("/paypal", func(r chi.Router) {
				r.Post("/create-order", h.Checkout.CreateOrder)
				r.Post("/capture-order", h.Checkout.CaptureOrder)
			})
		})

		r.Route("/admin", func(r chi.Router) {
			r.Get("/login", h.Admin.LoginForm)
			r.Post("/login", h.Admin.Login)
			r.Post("/logout", h.Admin.Logout)

			r.Group(func(r chi.Router) {
				r.Use(RequireAdmin)
				r.Get("/", h.Admin.Dashboard)
				r.Get("/products/new", h.Admin.NewProduct)
				r.Get("/products/{id}", h.Admin.EditProduct)
				r.Post("/products", h.Admin.SaveProduct)
				r.Get("/orders", h.Admin.Orders)
			})
		})
	})

	return otelhttp.NewHandler(r, "storefront",
		otelhttp.WithFilter(func(r *http.Request) bool {
			return r.URL.Path != "/health"
		}),
		otelhttp.WithSpanNameFormatter(func(_ string, r *http.Request) string {
			return "HTTP " + r.Method + " " + r.URL.Path
		}),
	)
}
