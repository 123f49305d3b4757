// Package api exposes the admin control surface over HTTP: pipeline
// start/stop/restart/status and read access to persisted messages.
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Routes builds the admin router.
func Routes(h *Handlers) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Get("/health", h.HealthHandler)
	r.Get("/status", h.StatusHandler)

	r.Route("/control", func(r chi.Router) {
		r.Post("/start", h.StartHandler)
		r.Post("/stop", h.StopHandler)
		r.Post("/restart", h.RestartHandler)
	})

	r.Route("/messages", func(r chi.Router) {
		r.Get("/", h.ListMessagesHandler)
		r.Get("/{id}", h.GetMessageHandler)
	})

	return r
}
