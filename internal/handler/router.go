package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/campus-event-management/internal/auth"
)

// NewRouter assembles the full API surface with the global middleware
// stack. ping reports storage health; pass nil when there is nothing to
// check (the in-memory backend).
func NewRouter(events *EventHandler, users *UserHandler, tokens *auth.TokenManager, log *zap.Logger, ping func() error) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	r.Use(chimiddleware.RealIP)    // trust X-Forwarded-For
	r.Use(Logger(log))             // structured access log
	r.Use(CORS)                    // permissive CORS for the frontend

	r.Get("/health", HealthCheck(ping))

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/register", users.Signup)
		r.Post("/login", users.Login)

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(tokens))
			r.Get("/me", users.Me)
			r.Get("/preferences", users.GetPreferences)
			r.Post("/preferences", users.UpdatePreferences)
		})
	})

	r.Route("/api/events", func(r chi.Router) {
		r.Get("/", events.ListEvents)

		r.Group(func(r chi.Router) {
			r.Use(Authenticator(tokens))
			r.Post("/", events.CreateEvent)
			r.Get("/filtered", events.FilteredEvents)
			r.Get("/user/registered", events.UserRegisteredEvents)
			r.Put("/{id}", events.UpdateEvent)
			r.Delete("/{id}", events.DeleteEvent)
			r.Post("/{id}/register", events.Register)
			r.Post("/{id}/unregister", events.Unregister)
		})

		// Public event detail; literal segments above take precedence.
		r.Get("/{id}", events.GetEvent)
	})

	return r
}
