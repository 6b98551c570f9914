package routes

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/evidentia/audit-plane/app"
	"github.com/evidentia/audit-plane/handlers"
)

// SetupRoutes configures all application routes and middleware
func SetupRoutes(deps *app.Dependencies) http.Handler {
	r := chi.NewRouter()

	// Core middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS middleware
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "https://*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link", "X-Request-ID", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check endpoints
	r.Get("/healthz", handlers.HealthCheck(deps))
	r.Get("/readyz", handlers.ReadinessCheck(deps))

	// Audit chain and report endpoints
	r.Route("/audit", func(r chi.Router) {
		r.Post("/entry", handlers.AppendEntryHandler(deps))
		r.Get("/chain", handlers.GetChainHandler(deps))
		r.Get("/chain/checkpoint", handlers.ChainCheckpointHandler(deps))
		r.Post("/report", handlers.IssueReportHandler(deps))
		r.Get("/report/{id}", handlers.GetReportHandler(deps))
		r.Post("/report/{id}/verify", handlers.VerifyReportHandler(deps))
	})

	// Evidence validation
	r.Post("/evidence/validate", handlers.ValidateEvidenceHandler(deps))

	// Governance status summary
	r.Get("/governance/status", handlers.GovernanceStatusHandler(deps))

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"endpoint not found"}`))
	})

	return r
}
