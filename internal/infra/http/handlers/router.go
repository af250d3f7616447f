package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/lapublica/leadflow/internal/infra/http/middleware"
)

type RouterConfig struct {
	Leads         *LeadHandler
	Notifications *NotificationHandler
	Reminders     *ReminderHandler
	Health        *HealthHandler
	CORSOrigins   []string
	// WriteLimiter caps lead writes per client IP; nil disables it.
	WriteLimiter middleware.Limiter
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Metrics)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
		MaxAge:         300,
	}))
	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(30 * time.Second))

		if cfg.Health != nil {
			r.Get("/health", cfg.Health.Handle)
		}
		r.Handle("/metrics", promhttp.Handler())

		r.Route("/leads", func(r chi.Router) {
			if cfg.WriteLimiter != nil {
				r.With(middleware.RateLimit(cfg.WriteLimiter)).Post("/", cfg.Leads.Create)
			} else {
				r.Post("/", cfg.Leads.Create)
			}
			r.Get("/{id}", cfg.Leads.Get)
			r.Post("/{id}/assign", cfg.Leads.Assign)
			r.Post("/{id}/stage", cfg.Leads.AdvanceStage)
			r.Post("/{id}/won", cfg.Leads.MarkWon)
			r.Post("/{id}/lost", cfg.Leads.MarkLost)
		})

		r.Route("/users/{userId}/notifications", func(r chi.Router) {
			r.Get("/", cfg.Notifications.List)
			r.Get("/unread-count", cfg.Notifications.UnreadCount)
			r.Post("/read-all", cfg.Notifications.MarkAllRead)
		})
		r.Post("/notifications/{id}/read", cfg.Notifications.MarkRead)
	})

	// a full scan may outlast the request timeout; the run lock TTL bounds it
	if cfg.Reminders != nil {
		r.Post("/internal/reminders/run", cfg.Reminders.Run)
	}

	return r
}
