// Package api assembles the HTTP router: middleware chain, public
// endpoints, and the authenticated group (WebSocket upgrade and
// history reads).
package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/SauRavRwT/ChitChat/internal/api/middleware"
	"github.com/SauRavRwT/ChitChat/internal/handlers"
	"github.com/SauRavRwT/ChitChat/internal/store"
	"github.com/SauRavRwT/ChitChat/internal/ws"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, gateway *ws.Gateway, auth *middleware.Auth, redisStore *store.RedisStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	// Security middleware (order matters!)
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.ValidateRequest)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	// Rate limiting needs Redis counters; skipped on the memory log
	if redisStore != nil {
		limiter := middleware.NewRateLimiter(redisStore, logger)
		r.Use(limiter.Middleware)
	}

	// CORS - the browser client is served from its own origin
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Retry-After"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	// Public routes (no auth required)
	r.Get("/", h.Root)
	r.Get("/health", h.Health)
	r.Get("/stats", h.Stats)
	r.Post("/connect", h.Connect)
	r.Get("/roster", h.Roster)

	// Authenticated routes (require identity-provider token)
	r.Group(func(r chi.Router) {
		r.Use(auth.RequireAuth)

		r.Get("/ws", gateway.Handle)
		r.Get("/history/{peer}", h.History)
	})

	return r
}
