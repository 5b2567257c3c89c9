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
  4. CORS:       Cross-origin requests for the back-office frontend

ROUTE GROUPS:
  /api/tenants/*   Tenant directory, batch registration, history
  /api/leases/*    Lease directory
  /api/cheques/*   Lifecycle transitions, work queues
  /api/dashboard/* Operator KPIs
  /api/admin/*     Sweep trigger and run history

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
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		// Tenant routes
		r.Route("/tenants", func(r chi.Router) {
			r.Get("/", h.ListTenants)
			r.Post("/", h.CreateTenant)
			r.Get("/{id}", h.GetTenant)
			r.Post("/{id}/cheques", h.RegisterBatch)
			r.Get("/{id}/cheques", h.TenantHistory)
		})

		// Lease routes
		r.Route("/leases", func(r chi.Router) {
			r.Post("/", h.CreateLease)
		})

		// Cheque routes
		r.Route("/cheques", func(r chi.Router) {
			r.Get("/upcoming", h.UpcomingCheques)
			r.Get("/recently-deposited", h.RecentlyDeposited)
			r.Get("/{id}", h.GetCheque)
			r.Get("/{id}/actions", h.GetActions)
			r.Post("/{id}/deposit", h.Deposit)
			r.Post("/{id}/clear", h.Clear)
			r.Post("/{id}/bounce", h.Bounce)
			r.Post("/{id}/replace", h.Replace)
			r.Post("/{id}/withdraw", h.Withdraw)
			r.Post("/{id}/cancel", h.Cancel)
		})

		// Dashboard routes
		r.Route("/dashboard", func(r chi.Router) {
			r.Get("/summary", h.DashboardSummary)
		})

		// Admin routes
		r.Route("/admin", func(r chi.Router) {
			r.Post("/sweep", h.TriggerSweep)
			r.Get("/sweep/runs", h.ListSweepRuns)
		})
	})

	return r
}
