// internal/app/features/invitations/invite.go
package invitations

import (
	"context"
	"net/http"

	"github.com/evanshaw/homebasket/internal/app/policy/grouppolicy"
	"github.com/evanshaw/homebasket/internal/app/store/groups"
	"github.com/evanshaw/homebasket/internal/app/store/memberships"
	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/app/system/authz"
	"github.com/evanshaw/homebasket/internal/app/system/inputval"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type inviteInput struct {
	Phone string                `json:"phone" validate:"required,min=10,max=15" label:"Phone"`
	Role  models.MembershipRole `json:"role" validate:"required,oneof=admin editor contributor" label:"Role"`
}

// HandleInvite handles POST /groups/{groupID}/invitations. Admins and
// editors may invite, and only when the group allows invitations at all.
func (h *Handler) HandleInvite(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	var in inviteInput
	if !respond.Decode(w, r, &in) {
		return
	}
	in.Phone = normalize.Phone(in.Phone)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := grouppolicy.CanEditLists(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	g, err := groupstore.New(h.DB, h.Log).GetByID(ctx, gid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if !g.Settings.AllowInvitations {
		respond.Error(w, h.Log, apperr.New(apperr.KindForbidden, "this group does not allow invitations"))
		return
	}

	inv, err := membershipstore.New(h.DB, h.Log).CreateInvitation(ctx, gid, uid, in.Phone, in.Role)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	h.deliver(inv, g.Name)
	respond.JSON(w, http.StatusCreated, inv)
}

// HandleListPending handles GET /groups/{groupID}/invitations. Admin only.
func (h *Handler) HandleListPending(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := grouppolicy.CanManageGroup(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	pending, err := membershipstore.New(h.DB, h.Log).ListByGroup(ctx, gid,
		[]models.MembershipStatus{models.StatusPending})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, pending)
}
