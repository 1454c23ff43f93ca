/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for frontend

ROUTE GROUPS:
  /api/crew/*      Crew profiles, duties, calculations, roster uploads
  /api/uploads/*   Pending upload confirmation/cancellation
  /api/health      Liveness probe

SECURITY NOTE:
  No authentication middleware currently. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

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
		// Crew routes
		r.Route("/crew", func(r chi.Router) {
			r.Post("/", h.CreateProfile)
			r.Get("/{id}", h.GetProfile)
			r.Put("/{id}/position", h.ChangePosition)
			r.Get("/{id}/duties", h.ListDuties)
			r.Post("/{id}/duties", h.AddManualDuty)
			r.Delete("/{id}/duties/{date}", h.RemoveDuty)
			r.Get("/{id}/calculation", h.GetCalculation)
			r.Get("/{id}/calculations", h.ListCalculations)
			r.Post("/{id}/roster", h.UploadRoster)
		})

		// Pending upload routes
		r.Route("/uploads", func(r chi.Router) {
			r.Post("/{id}/confirm", h.ConfirmUpload)
			r.Post("/{id}/cancel", h.CancelUpload)
		})

		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
	})

	return r
}
