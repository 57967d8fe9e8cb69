package router

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/docbook-ai/internal/appointments"
	"github.com/wolfman30/docbook-ai/internal/chat"
	"github.com/wolfman30/docbook-ai/internal/doctors"
	httpmiddleware "github.com/wolfman30/docbook-ai/internal/http/middleware"
	"github.com/wolfman30/docbook-ai/internal/identity"
	"github.com/wolfman30/docbook-ai/internal/notifications"
	"github.com/wolfman30/docbook-ai/pkg/logging"
)

// Config holds router configuration
type Config struct {
	Logger             *logging.Logger
	Verifier           *identity.Verifier
	Doctors            *doctors.Handler
	Appointments       *appointments.Handler
	Notifications      *notifications.Handler
	Chat               *chat.Handler
	Realtime           http.Handler
	MetricsHandler     http.Handler
	CORSAllowedOrigins []string
	RateLimiter        *httpmiddleware.RateLimiter
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.Verifier != nil {
		r.Use(identity.Authenticate(cfg.Verifier))
	}
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))

	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}
	if cfg.Realtime != nil {
		r.With(identity.Require).Handle("/ws", cfg.Realtime)
	}

	r.Group(func(api chi.Router) {
		api.Use(middleware.Compress(5))
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Middleware)
		}

		if cfg.Doctors != nil {
			api.Route("/doctors", func(d chi.Router) {
				d.Get("/", cfg.Doctors.ListDoctors)
				d.Get("/specializations", cfg.Doctors.ListSpecializations)
				d.Get("/{doctorID}", cfg.Doctors.GetDoctor)
				d.Get("/{doctorID}/slots", cfg.Doctors.ListAvailableSlots)
				d.With(identity.Require).Post("/", cfg.Doctors.CreateDoctor)
				d.With(identity.Require).Post("/seed", cfg.Doctors.SeedDoctors)
			})
		}

		api.Group(func(authed chi.Router) {
			authed.Use(identity.Require)

			if cfg.Appointments != nil {
				authed.Route("/appointments", func(a chi.Router) {
					a.Get("/", cfg.Appointments.List)
					a.Post("/", cfg.Appointments.Book)
					a.Post("/{appointmentID}/cancel", cfg.Appointments.Cancel)
				})
			}
			if cfg.Notifications != nil {
				authed.Route("/notifications", func(n chi.Router) {
					n.Get("/", cfg.Notifications.List)
					n.Get("/unread-count", cfg.Notifications.UnreadCount)
					n.Post("/read-all", cfg.Notifications.MarkAllRead)
					n.Post("/{notificationID}/read", cfg.Notifications.MarkRead)
				})
			}
			if cfg.Chat != nil {
				authed.Route("/chat", func(c chi.Router) {
					c.Get("/messages", cfg.Chat.Messages)
					c.Post("/messages", cfg.Chat.Send)
				})
			}
		})
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
