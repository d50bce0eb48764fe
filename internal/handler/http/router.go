package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/motoforge/storefront/internal/service"
	"github.com/motoforge/storefront/pkg/health"
	"github.com/motoforge/storefront/pkg/middleware"
)

// serviceName labels metrics and spans.
const serviceName = "storefront"

// Services groups the business services exposed over HTTP.
type Services struct {
	Wishlist *service.WishlistService
	Catalog  *service.CatalogService
	Orders   *service.OrderService
}

// RouterConfig holds the cross-cutting HTTP concerns.
type RouterConfig struct {
	CORS        middleware.CORSConfig
	RateLimiter *middleware.RateLimiter // nil disables rate limiting
	Metrics     *middleware.HTTPMetrics
	Gatherer    prometheus.Gatherer
}

// NewRouter creates a chi router with all storefront routes registered.
func NewRouter(svcs Services, healthHandler *health.Handler, cfg RouterConfig, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cfg.CORS))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(cfg.Metrics.Middleware(serviceName))
	r.Use(middleware.Tracing(serviceName))
	r.Use(middleware.RequestLogger(logger))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))

	wishlistHandler := NewWishlistHandler(svcs.Wishlist, logger)
	productHandler := NewProductHandler(svcs.Catalog, logger)
	orderHandler := NewOrderHandler(svcs.Orders, logger)

	r.Route("/api/v1", func(r chi.Router) {
		if cfg.RateLimiter != nil {
			r.Use(cfg.RateLimiter.Middleware)
		}
		r.Use(ContentTypeJSON)

		r.Get("/products", productHandler.ListProducts)
		r.Get("/products/{id}", productHandler.GetProduct)

		r.Group(func(r chi.Router) {
			r.Use(SessionFromHeader)

			r.Route("/wishlist", func(r chi.Router) {
				r.Get("/", wishlistHandler.GetWishlist)
				r.Delete("/", wishlistHandler.ClearWishlist)
				r.Get("/history", wishlistHandler.GetHistory)
				r.Post("/items", wishlistHandler.AddItem)
				r.Get("/items/{productId}", wishlistHandler.IsInWishlist)
				r.Delete("/items/{productId}", wishlistHandler.RemoveItem)
				r.Post("/toggle", wishlistHandler.Toggle)
			})

			r.Post("/orders", orderHandler.CreateOrder)
			r.Get("/orders", orderHandler.ListOrders)
			r.Get("/orders/{id}", orderHandler.GetOrder)
		})
	})

	return r
}
