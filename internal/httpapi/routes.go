package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/escala365/arena-backend/internal/ws"
)

func SetupRoutes(h *Handlers, wsDeps ws.Deps) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(wsDeps))

	r.Route("/api", func(r chi.Router) {
		r.Get("/session", h.GetSession)

		r.Get("/questions", h.ListQuestions)
		r.Post("/questions/import", h.ImportQuestions)
		r.Delete("/questions", h.ClearQuestions)

		r.Get("/teams", h.ListAssignments)
		r.Put("/teams/{agentID}", h.AssignTeam)
	})

	return r
}
