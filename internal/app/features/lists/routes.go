// internal/app/features/lists/routes.go
package lists

import (
	"github.com/go-chi/chi/v5"

	"github.com/evanshaw/homebasket/internal/app/system/auth"
)

// Routes are mounted under /groups/{groupID}/lists.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.HandleListLists)
		pr.Post("/", h.HandleCreateList)
		pr.Get("/default", h.HandleGetDefault)

		pr.Get("/{listID}", h.HandleGetList)
		pr.Patch("/{listID}", h.HandleEditList)
		pr.Post("/{listID}/default", h.HandleSetDefault)
		pr.Delete("/{listID}", h.HandleDeleteList)

		pr.Post("/{listID}/items", h.HandleAddItem)
		pr.Post("/{listID}/items/batch", h.HandleAddItemsBatch)
		pr.Post("/{listID}/items/remove", h.HandleRemoveItemsByText)
		pr.Patch("/{listID}/items/{itemID}", h.HandleEditItem)
		pr.Post("/{listID}/items/{itemID}/complete", h.HandleCompleteItem)
		pr.Delete("/{listID}/items/{itemID}", h.HandleDeleteItem)
	})

	return r
}
