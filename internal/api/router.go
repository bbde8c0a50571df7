package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/gray-logic-touchnode/internal/auth"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Health check (no auth required)
		r.Get("/health", s.handleHealth)

		r.Group(func(r chi.Router) {
			r.Use(s.require(auth.PermStatusRead))
			r.Get("/status", s.handleStatus)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.require(auth.PermEventsRead))
			r.Get("/events", s.handleListEvents)
			r.Get("/events/ws", s.handleWebSocket)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.require(auth.PermButtonOperate))
			r.Post("/buttons/{id}/press", s.handlePress)
			r.Post("/buttons/{id}/release", s.handleRelease)
		})

		r.Group(func(r chi.Router) {
			r.Use(s.require(auth.PermSubscription))
			r.Post("/subscription", s.handleSubscribe)
			r.Delete("/subscription", s.handleUnsubscribe)
		})
	})

	return r
}
