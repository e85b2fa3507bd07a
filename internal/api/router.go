package api

import (
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Yosshy-123/HARO-Chat/internal/api/middleware"
	"github.com/Yosshy-123/HARO-Chat/internal/handlers"
	"github.com/Yosshy-123/HARO-Chat/internal/store"
	"github.com/Yosshy-123/HARO-Chat/internal/token"
	"github.com/Yosshy-123/HARO-Chat/internal/ws"
)

// NewRouter creates and configures the HTTP router.
func NewRouter(logger zerolog.Logger, h *handlers.Handler, hub *ws.Hub, tokens *token.Service, st *store.RedisStore) *chi.Mux {
	r := chi.NewRouter()

	// Metrics middleware (first to capture all requests)
	r.Use(middleware.Metrics)

	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.MaxBodySize(8 * 1024)) // 8KB max body
	r.Use(middleware.RequireJSON)

	// Standard middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger(logger))
	r.Use(chimw.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Metrics endpoint (for Prometheus scraping)
	r.Handle("/metrics", promhttp.Handler())

	r.Get("/health", h.Health)

	// Real-time channel
	r.Get("/ws", ws.Serve(hub, tokens, st, logger))

	r.Route("/api", func(r chi.Router) {
		registerLimiter := middleware.NewIPRateLimiter(1, 5)
		r.With(registerLimiter.Middleware).Post("/register", h.Register)

		r.Post("/username", h.Username)
		r.Post("/messages", h.PostMessage)
		r.Get("/rooms/{roomID}/messages", h.RoomHistory)
		r.Post("/moderation", h.Moderate)
	})

	return r
}
