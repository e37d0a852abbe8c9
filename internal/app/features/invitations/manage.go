// internal/app/features/invitations/manage.go
package invitations

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/evanshaw/homebasket/internal/app/policy/grouppolicy"
	"github.com/evanshaw/homebasket/internal/app/store/groups"
	"github.com/evanshaw/homebasket/internal/app/store/memberships"
	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/app/system/authz"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

// loadPendingInvitation fetches an invitation and confirms it belongs to the
// routed group and is still pending.
func (h *Handler) loadPendingInvitation(ctx context.Context, gid, invID primitive.ObjectID) (models.Membership, error) {
	inv, err := membershipstore.New(h.DB, h.Log).GetByID(ctx, invID)
	if err != nil {
		return models.Membership{}, err
	}
	if inv.GroupID != gid || inv.Status != models.StatusPending {
		return models.Membership{}, apperr.New(apperr.KindNotFound, "pending invitation not found")
	}
	return inv, nil
}

// HandleCancel handles DELETE /groups/{groupID}/invitations/{invitationID}.
// Only the original inviter or a group admin may cancel.
func (h *Handler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}
	invID, ok := invitationIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	inv, err := h.loadPendingInvitation(ctx, gid, invID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if inv.InvitedBy != uid {
		if err := grouppolicy.CanManageGroup(ctx, h.DB, gid, uid); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}
	if err := membershipstore.New(h.DB, h.Log).Cancel(ctx, invID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "cancelled"})
}

// HandleResend handles POST /groups/{groupID}/invitations/{invitationID}/resend.
// Admins and editors may resend; the token rotates, the expiry resets, and
// the message goes out again.
func (h *Handler) HandleResend(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}
	invID, ok := invitationIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := grouppolicy.CanEditLists(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if _, err := h.loadPendingInvitation(ctx, gid, invID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	inv, err := membershipstore.New(h.DB, h.Log).Resend(ctx, invID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	g, err := groupstore.New(h.DB, h.Log).GetByID(ctx, gid)
	if err == nil {
		h.deliver(inv, g.Name)
	}
	respond.JSON(w, http.StatusOK, inv)
}
