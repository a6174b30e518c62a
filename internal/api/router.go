package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// NewRouter creates a chi router with all routes mounted.
// sseHandler, if non-nil, is mounted at GET /api/events.
func NewRouter(h *Handler, sseHandler http.Handler) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(CORSMiddleware)

	// Health check / discovery document.
	r.Get("/", h.Health)

	// Voice agent tool surface.
	r.Post("/webhook", h.Webhook)
	r.Get("/tools", h.Tools)

	r.Route("/api", func(r chi.Router) {
		// Transcript processing and sessions.
		r.Post("/process", h.Process)
		r.Post("/session", h.CreateSession)

		// UI REST surface.
		r.Get("/notes", h.ListNotes)
		r.Get("/reminders", h.ListReminders)
		r.Get("/notes-and-reminders", h.ListAll)
		r.Patch("/notes/{id}/complete", h.CompleteNote)
		r.Delete("/notes/{id}", h.DeleteNote)
		r.Delete("/reminders/{id}", h.DeleteReminder)

		if sseHandler != nil {
			r.Get("/events", sseHandler.ServeHTTP)
		}
	})

	return r
}
