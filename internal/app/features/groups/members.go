// internal/app/features/groups/members.go
package groups

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/evanshaw/homebasket/internal/app/policy/grouppolicy"
	"github.com/evanshaw/homebasket/internal/app/store/memberships"
	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/app/system/authz"
	"github.com/evanshaw/homebasket/internal/app/system/inputval"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type updateRoleInput struct {
	Role models.MembershipRole `json:"role" validate:"required,oneof=admin editor contributor" label:"Role"`
}

func membershipIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "membershipID"))
	if err != nil {
		respond.BadRequest(w, "invalid membership id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// loadGroupMembership fetches a membership and confirms it belongs to the
// routed group, so an id from another group cannot be reached through this
// group's URL space.
func (h *Handler) loadGroupMembership(ctx context.Context, gid, mid primitive.ObjectID) (models.Membership, error) {
	m, err := membershipstore.New(h.DB, h.Log).GetByID(ctx, mid)
	if err != nil {
		return models.Membership{}, err
	}
	if m.GroupID != gid {
		return models.Membership{}, apperr.New(apperr.KindNotFound, "membership not found")
	}
	return m, nil
}

// HandleUpdateMemberRole handles PATCH /groups/{groupID}/members/{membershipID}.
// Admin only. Demoting the last admin is rejected by the store.
func (h *Handler) HandleUpdateMemberRole(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r, h.Log)
	if !ok {
		return
	}
	mid, ok := membershipIDParam(w, r)
	if !ok {
		return
	}

	var in updateRoleInput
	if !respond.Decode(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := grouppolicy.CanManageGroup(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if _, err := h.loadGroupMembership(ctx, gid, mid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	store := membershipstore.New(h.DB, h.Log)
	if err := store.UpdateRole(ctx, mid, in.Role); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	m, err := store.GetByID(ctx, mid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

// HandleRemoveMember handles DELETE /groups/{groupID}/members/{membershipID}.
// Admins can remove anyone (subject to the last-admin guard); a member can
// remove themself to leave the group.
func (h *Handler) HandleRemoveMember(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r, h.Log)
	if !ok {
		return
	}
	mid, ok := membershipIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	m, err := h.loadGroupMembership(ctx, gid, mid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	self := m.UserID != nil && *m.UserID == uid
	if !self {
		if err := grouppolicy.CanManageGroup(ctx, h.DB, gid, uid); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	}

	if err := membershipstore.New(h.DB, h.Log).Remove(ctx, mid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "removed"})
}
