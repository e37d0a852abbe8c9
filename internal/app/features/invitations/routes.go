// internal/app/features/invitations/routes.go
package invitations

import (
	"github.com/go-chi/chi/v5"

	"github.com/evanshaw/homebasket/internal/app/system/auth"
)

// GroupRoutes are mounted under /groups/{groupID}/invitations.
func GroupRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Post("/", h.HandleInvite)
		pr.Get("/", h.HandleListPending)
		pr.Delete("/{invitationID}", h.HandleCancel)
		pr.Post("/{invitationID}/resend", h.HandleResend)
	})
	return r
}

// Routes are mounted under /invitations: the invitee-facing surface.
// Decline works without a session; the token alone is the credential.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Post("/decline", h.HandleDecline)
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.HandleListMine)
		pr.Post("/accept", h.HandleAccept)
	})
	return r
}
