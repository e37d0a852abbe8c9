// internal/app/features/groups/grouplist.go
package groups

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/evanshaw/homebasket/internal/app/store/groups"
	"github.com/evanshaw/homebasket/internal/app/store/memberships"
	"github.com/evanshaw/homebasket/internal/app/system/authz"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type groupSummary struct {
	models.Group
	MyRole models.MembershipRole `json:"my_role"`
}

// HandleListGroups handles GET /groups: every group the caller belongs to,
// plus groups they created (the personal group has no membership row).
func (h *Handler) HandleListGroups(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	active, err := membershipstore.New(h.DB, h.Log).ListActiveByUser(ctx, uid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	roleByGroup := make(map[primitive.ObjectID]models.MembershipRole, len(active))
	ids := make([]primitive.ObjectID, 0, len(active))
	for _, m := range active {
		roleByGroup[m.GroupID] = m.Role
		ids = append(ids, m.GroupID)
	}

	store := groupstore.New(h.DB, h.Log)
	member, err := store.ListByIDs(ctx, ids)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	created, err := store.ListByCreator(ctx, uid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	out := make([]groupSummary, 0, len(member)+len(created))
	seen := make(map[primitive.ObjectID]bool, len(member))
	for _, g := range member {
		seen[g.ID] = true
		out = append(out, groupSummary{Group: g, MyRole: roleByGroup[g.ID]})
	}
	for _, g := range created {
		if seen[g.ID] {
			continue
		}
		out = append(out, groupSummary{Group: g, MyRole: models.RoleAdmin})
	}

	respond.JSON(w, http.StatusOK, out)
}
