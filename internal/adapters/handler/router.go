package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/carelog-g8/carelog/internal/adapters/metrics"
	"github.com/carelog-g8/carelog/internal/adapters/middleware"
	"github.com/carelog-g8/carelog/internal/core/domain"
)

type RouterConfig struct {
	Auth    *AuthHandler
	Records *RecordHandler
	Notes   *NoteHandler
	Chat    *ChatHandler
	Health  *HealthHandler

	AuthMiddleware *middleware.AuthMiddleware
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer

	AllowedOrigins    []string
	RequestsPerMinute int
	Logger            *zap.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.RequestMetrics(cfg.Metrics, cfg.Logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           86400,
	}))

	// Health endpoints (OpenShift compatible)
	r.Get("/health", cfg.Health.Health)
	r.Get("/health/ready", cfg.Health.Ready)
	r.Get("/health/live", cfg.Health.Live)
	if cfg.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	}

	auth := cfg.AuthMiddleware
	admin := auth.RequireRole(domain.RoleAdmin)
	staff := auth.RequireRole(domain.RoleAdmin, domain.RoleClinician)

	r.Group(func(r chi.Router) {
		if cfg.RequestsPerMinute > 0 {
			r.Use(httprate.LimitByIP(cfg.RequestsPerMinute, time.Minute))
		}
		r.Get("/hospitals", cfg.Auth.Hospitals)
		r.Post("/register", cfg.Auth.Register)
		r.Post("/login", cfg.Auth.Login)
	})

	r.With(auth.RequireRole()).Post("/logout", cfg.Auth.Logout)

	r.Route("/hospitals/{hospitalID}", func(r chi.Router) {
		r.Use(auth.RequireRole())
		r.Use(auth.RequireHospital("hospitalID"))

		r.With(admin).Get("/users", cfg.Records.ListUsers)
		r.With(admin).Get("/users/pending", cfg.Records.ListPending)
		r.Get("/users/{role}/{username}", cfg.Records.GetUser)
		r.With(admin).Post("/users/{role}/{username}/approve", cfg.Records.ApproveUser)
		r.With(admin).Delete("/users/{role}/{username}", cfg.Records.DeleteUser)
		r.Patch("/profile", cfg.Records.UpdateProfile)
		r.With(admin).Get("/dataset", cfg.Records.Dataset)

		r.Get("/clinicians", cfg.Records.ListClinicians)
		r.Get("/patients", cfg.Records.ListPatients)
		r.Route("/patients/{patient}", func(r chi.Router) {
			r.Get("/clinicians", cfg.Records.AssignedClinicians)
			r.Put("/clinicians/{clinician}", cfg.Records.AssignClinician)
			r.Delete("/clinicians/{clinician}", cfg.Records.UnassignClinician)

			r.Get("/notes", cfg.Notes.ListNotes)
			r.Post("/notes", cfg.Notes.AddNote)

			r.Get("/chat/general", cfg.Chat.GeneralThread)
			r.Post("/chat/general", cfg.Chat.PostGeneral)
			r.With(admin).Delete("/chat/general", cfg.Chat.ClearGeneral)
			r.Get("/chat/direct/{clinician}", cfg.Chat.DirectThread)
			r.Post("/chat/direct/{clinician}", cfg.Chat.PostDirect)
			r.With(admin).Delete("/chat/direct/{clinician}", cfg.Chat.ClearDirect)
		})

		r.Patch("/notes/{noteID}", cfg.Notes.UpdateNote)
		r.Delete("/notes/{noteID}", cfg.Notes.DeleteNote)
		r.Post("/notes/{noteID}/feedback", cfg.Notes.GenerateFeedback)
		r.With(staff).Post("/notes/{noteID}/feedback/approve", cfg.Notes.ApproveFeedback)
		r.With(staff).Delete("/notes/{noteID}/feedback", cfg.Notes.RejectFeedback)

		r.With(staff).Get("/alerts", cfg.Notes.ListAlerts)
		r.With(staff).Delete("/alerts/{alertID}", cfg.Notes.DismissAlert)
		r.With(staff).Get("/feedback/pending", cfg.Notes.PendingFeedback)

		r.With(staff).Get("/chat/general", cfg.Chat.GeneralInbox)
		r.With(auth.RequireRole(domain.RoleClinician)).Get("/chat/direct", cfg.Chat.DirectInbox)
	})

	return r
}
