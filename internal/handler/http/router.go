package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/devops-golf-s17/wishlists/internal/service"
	"github.com/devops-golf-s17/wishlists/pkg/health"
	"github.com/devops-golf-s17/wishlists/pkg/middleware"
)

// ServiceName labels metrics and spans produced by the router.
const ServiceName = "wishlists"

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

// RequestTimeout bounds handler execution. The server's WriteTimeout must
// exceed it so the 503 written on expiry reaches the client.
const RequestTimeout = 10 * time.Second

// NewRouter creates a chi router with all wishlist service routes registered.
func NewRouter(
	wishlistService *service.WishlistService,
	healthHandler *health.Handler,
	logger *slog.Logger,
	cors middleware.CORSConfig,
	version string,
) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.CORS(cors))
	r.Use(chimw.Timeout(RequestTimeout))
	r.Use(chimw.RequestSize(maxBodyBytes))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.PrometheusMetrics(ServiceName))
	r.Use(middleware.Tracing(ServiceName))
	r.Use(middleware.RequestLogger(logger))

	r.Get("/", Index(version))

	// Health check endpoints
	r.Get("/health/live", healthHandler.LivenessHandler())
	r.Get("/health/ready", healthHandler.ReadinessHandler())
	r.Handle("/metrics", promhttp.Handler())

	h := NewWishlistHandler(wishlistService, logger)

	r.Route("/wishlists", func(r chi.Router) {
		r.Use(ContentTypeJSON)

		r.Post("/", h.Create)
		r.Get("/", h.List)
		r.Get("/search", h.Search)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.Get)
			r.Put("/", h.Update)
			r.Delete("/", h.Delete)

			r.Post("/items", h.AddItem)
			r.Get("/items", h.ListItems)
			r.Put("/items/clear", h.ClearItems)
			r.Get("/items/{item_id}", h.GetItem)
			r.Put("/items/{item_id}", h.UpdateItem)
			r.Delete("/items/{item_id}", h.RemoveItem)
		})
	})

	return r
}
