package api

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/longscribe/backend/internal/api/handlers"
	"github.com/longscribe/backend/internal/api/middleware"
	"github.com/longscribe/backend/internal/auth"
	"github.com/longscribe/backend/internal/config"
	"github.com/longscribe/backend/internal/db"
	"github.com/longscribe/backend/internal/job"
)

func NewRouter(database *db.Database, jwtService *auth.JWTService, cfg *config.Config, jobQueue *job.JobQueue) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(cfg.Server.CORSOrigins)))

	// Handlers
	authHandler := handlers.NewAuthHandler(database, jwtService)
	transcribeHandler := handlers.NewTranscribeHandler(jobQueue, database, cfg.Server.UploadPath)
	jobHandler := handlers.NewJobHandler(jobQueue)
	settingsHandler := handlers.NewSettingsHandler(database)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Route("/api", func(r chi.Router) {
		// Public
		r.Get("/health", handlers.Health)
		r.With(loginLimiter.Handler, middleware.MaxBodySize(4<<10)).
			Post("/auth/login", authHandler.Login)

		// Protected
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(jwtService))

			r.Get("/auth/me", authHandler.Me)

			r.Post("/transcribe", transcribeHandler.Submit)

			r.Get("/jobs", jobHandler.ListJobs)
			r.Get("/jobs/{id}", jobHandler.GetJob)
			r.Get("/jobs/{id}/result", jobHandler.GetResult)
			r.Post("/jobs/{id}/retry", jobHandler.RetryJob)
			r.Delete("/jobs/{id}", jobHandler.CancelJob)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))
				r.Get("/settings", settingsHandler.GetSettings)
				r.Put("/settings", settingsHandler.UpdateSettings)
			})
		})
	})

	return r
}
