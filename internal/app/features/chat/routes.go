// internal/app/features/chat/routes.go
package chat

import (
	"github.com/go-chi/chi/v5"
)

func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(h.RequireAgentKey)
		pr.Get("/context", h.HandleUserContext)
		pr.Get("/lists/{listID}", h.HandleGetList)
		pr.Post("/lists/{listID}/items", h.HandleAddItems)
		pr.Post("/lists/{listID}/items/remove", h.HandleRemoveItems)
	})
	return r
}
