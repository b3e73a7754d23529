// Package http is the storefront's REST surface.
package http

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/fjod/easyshop/internal/metrics"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
)

// HealthCheck pings one dependency.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Cart     *CartHandler
	Orders   *OrdersHandler
	Products *ProductHandler
	Profiles *ProfileHandler

	Health   map[string]HealthCheck
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Log      *zap.Logger

	RequestTimeout     time.Duration
	MaxRequestBodySize int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Log))
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(middleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.RequestSize(cfg.MaxRequestBodySize))

	r.Get("/health", healthHandler(cfg.Health))
	r.Method(http.MethodGet, "/metrics", metrics.Handler(cfg.Gatherer))

	r.Route("/products", func(r chi.Router) {
		r.Get("/", cfg.Products.Search)
		r.Get("/{product_id}", cfg.Products.Get)
	})
	r.Route("/categories", func(r chi.Router) {
		r.Get("/", cfg.Products.ListCategories)
		r.Get("/{category_id}", cfg.Products.GetCategory)
		r.Get("/{category_id}/products", cfg.Products.ListByCategory)
	})

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware)

		r.Route("/cart", func(r chi.Router) {
			r.Get("/", cfg.Cart.GetCart)
			r.Delete("/", cfg.Cart.ClearCart)
			r.Post("/products/{product_id}", cfg.Cart.AddProduct)
			r.Put("/products/{product_id}", cfg.Cart.UpdateQuantity)
			r.Delete("/products/{product_id}", cfg.Cart.RemoveLine)
			r.Put("/products/{product_id}/discount", cfg.Cart.SetDiscount)
		})
		r.Route("/orders", func(r chi.Router) {
			r.Post("/", cfg.Orders.PlaceOrder)
			r.Get("/", cfg.Orders.ListOrders)
			r.Get("/{order_id}", cfg.Orders.GetOrder)
		})
		r.Get("/profile", cfg.Profiles.Get)
		r.Put("/profile", cfg.Profiles.Put)
	})

	return otelhttp.NewHandler(r, "storefront")
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// healthHandler reports 503 when any dependency fails its ping.
func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		for _, name := range names {
			if resp.Checks == nil {
				resp.Checks = map[string]string{}
			}
			if err := checks[name](ctx); err != nil {
				resp.Checks[name] = err.Error()
				resp.Status = "degraded"
				status = http.StatusServiceUnavailable
				continue
			}
			resp.Checks[name] = "ok"
		}
		respondJSON(w, status, resp)
	}
}
