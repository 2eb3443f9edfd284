package server

import (
	"github.com/go-chi/chi/v5"
)

// setupRoutes configures all API routes.
func (s *Server) setupRoutes() {
	r := s.router

	r.Post("/agent", s.bootstrapAgent)
	r.Get("/agent", s.listAgents)

	r.Route("/agent/{agentID}", func(r chi.Router) {
		r.Get("/", s.getAgent)
		r.Get("/status", s.agentStatus)

		r.Get("/message", s.getAgentMessages)
		r.Post("/message", s.sendAgentMessage)

		r.Post("/update", s.recordProjectUpdate)

		r.Get("/ws", s.agentWebsocket)
	})
}
