/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/runs/*           Billing runs and exports
  /api/calendars/*      Stored working-day calendars
  /api/rate-presets/*   Stored exchange-rate presets
  /api/meta             Form choices

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Run routes
		r.Route("/runs", func(r chi.Router) {
			r.Post("/", h.CreateRun)
			r.Get("/{id}/export", h.ExportRun)
		})

		// Calendar routes
		r.Route("/calendars", func(r chi.Router) {
			r.Get("/", h.ListCalendars)
			r.Post("/", h.SaveCalendar)
			r.Delete("/{name}", h.DeleteCalendar)
		})

		// Rate preset routes
		r.Route("/rate-presets", func(r chi.Router) {
			r.Get("/", h.ListRatePresets)
			r.Post("/", h.SaveRatePreset)
			r.Delete("/{name}", h.DeleteRatePreset)
		})

		// Metadata
		r.Get("/meta", h.GetMeta)
	})

	return r
}
