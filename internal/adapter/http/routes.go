package http

import (
	"github.com/go-chi/chi/v5"
)

// MountRoutes registers the status API routes on the given chi router. The
// health probe and the WebSocket stream are mounted by the caller, outside
// the versioned group.
func MountRoutes(r chi.Router, h *Handlers) {
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/", h.GetVersion)

		r.Get("/agents", h.ListAgents)
		r.Get("/agents/{slug}/mailbox", h.GetAgentMailbox)
		r.Post("/agents/{slug}/mailbox/{filename}/mark", h.MarkHandoff)

		r.Get("/tasks/next", h.NextTasks)
		r.Post("/dispatch", h.Dispatch)
	})
}
