package router

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/irgordon/locker/api/internal/api/handlers"
	auth_middleware "github.com/irgordon/locker/api/internal/api/middleware"
)

// maxBodyBytes caps JSON request bodies at 1 MiB.
const maxBodyBytes = 1 << 20

// RouterConfig defines the strict dependencies required to build the API routing tree.
type RouterConfig struct {
	AllowedOrigins []string
	AuthHandler    *handlers.AuthHandler
	EntryHandler   *handlers.EntryHandler
	FeedHandler    *handlers.EntryFeedHandler
	HealthHandler  *handlers.HealthHandler
	AuthMiddleware *auth_middleware.AuthMiddleware
	RateLimiter    *auth_middleware.RateLimiter
	Logger         *slog.Logger
}

// NewRouter constructs the Chi multiplexer, attaches global middleware, and wires all endpoints.
func NewRouter(cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// =========================================================================
	// 1. Global Gateway Middleware Pipeline
	// =========================================================================

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(auth_middleware.StructuredLogger(cfg.Logger))
	r.Use(middleware.Recoverer)

	// 🛡️ Limit all incoming JSON requests to 1 Megabyte max (OOM Protection)
	r.Use(auth_middleware.MaxBytes(maxBodyBytes))

	if cfg.RateLimiter != nil {
		r.Use(cfg.RateLimiter.Handler)
	}

	// Strict CORS Configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"Set-Cookie"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// =========================================================================
	// 2. API v1 Routing Tree
	// =========================================================================

	r.Route("/api/v1", func(r chi.Router) {

		// ---------------------------------------------------------------------
		// Public Routes (No Auth Required)
		// ---------------------------------------------------------------------
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))
			r.Post("/auth/register", cfg.AuthHandler.Register)
			r.Post("/auth/login", cfg.AuthHandler.Login)
			r.Post("/auth/refresh", cfg.AuthHandler.Refresh)
		})

		// ---------------------------------------------------------------------
		// Protected Routes (Requires a Valid JWT)
		// ---------------------------------------------------------------------
		r.Group(func(r chi.Router) {
			r.Use(cfg.AuthMiddleware.RequireAuthentication)

			r.Route("/entries", func(r chi.Router) {
				r.Use(middleware.Timeout(30 * time.Second))
				r.Get("/", cfg.EntryHandler.List)
				r.Post("/", cfg.EntryHandler.Create)
				r.Get("/{id}", cfg.EntryHandler.Get)
				r.Put("/{id}", cfg.EntryHandler.Update)
				r.Delete("/{id}", cfg.EntryHandler.Delete)
			})

			// Long-lived connection, no request timeout
			if cfg.FeedHandler != nil {
				r.Get("/ws/entries", cfg.FeedHandler.Stream)
			}
		})
	})

	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("pong"))
	})

	if cfg.HealthHandler != nil {
		r.Get("/health", cfg.HealthHandler.Check)
	}

	return r
}
