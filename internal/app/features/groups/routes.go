// internal/app/features/groups/routes.go
package groups

import (
	"github.com/go-chi/chi/v5"

	"github.com/evanshaw/homebasket/internal/app/system/auth"
)

// Routes builds the /groups subtree. The invitations and lists routers are
// mounted under /{groupID} here so the whole group-scoped URL space lives in
// one router.
func Routes(h *Handler, sm *auth.SessionManager, invitations, lists chi.Router) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)

		pr.Get("/", h.HandleListGroups)
		pr.Post("/", h.HandleCreateGroup)

		pr.Get("/{groupID}", h.HandleGroupView)
		pr.Patch("/{groupID}", h.HandleEditGroup)
		pr.Patch("/{groupID}/settings", h.HandleEditSettings)
		pr.Delete("/{groupID}", h.HandleDeleteGroup)

		pr.Patch("/{groupID}/members/{membershipID}", h.HandleUpdateMemberRole)
		pr.Delete("/{groupID}/members/{membershipID}", h.HandleRemoveMember)
	})

	r.Mount("/{groupID}/invitations", invitations)
	r.Mount("/{groupID}/lists", lists)

	return r
}
