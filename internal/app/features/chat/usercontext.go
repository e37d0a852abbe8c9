// internal/app/features/chat/usercontext.go
package chat

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/evanshaw/homebasket/internal/app/store/groups"
	"github.com/evanshaw/homebasket/internal/app/store/lists"
	"github.com/evanshaw/homebasket/internal/app/store/memberships"
	"github.com/evanshaw/homebasket/internal/app/store/users"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type groupContext struct {
	GroupID       primitive.ObjectID    `json:"group_id"`
	Name          string                `json:"name"`
	IsPersonal    bool                  `json:"is_personal"`
	Role          models.MembershipRole `json:"role"`
	DefaultListID *primitive.ObjectID   `json:"default_list_id,omitempty"`
}

type userContext struct {
	User   models.User    `json:"user"`
	Groups []groupContext `json:"groups"`
}

// HandleUserContext handles GET /chat/context?phone=... It resolves the
// acting user and every group they can act in, with each group's default
// list id, which is what a spoken request usually refers to. This is the
// agent's entry point; the other operations address lists by id.
func (h *Handler) HandleUserContext(w http.ResponseWriter, r *http.Request) {
	phone := normalize.Phone(r.URL.Query().Get("phone"))
	if phone == "" {
		respond.BadRequest(w, "phone is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := userstore.New(h.DB).GetByPhone(ctx, phone)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	active, err := membershipstore.New(h.DB, h.Log).ListActiveByUser(ctx, u.ID)
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

	gs := groupstore.New(h.DB, h.Log)
	member, err := gs.ListByIDs(ctx, ids)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	created, err := gs.ListByCreator(ctx, u.ID)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	seen := make(map[primitive.ObjectID]bool, len(member))
	all := member
	for _, g := range member {
		seen[g.ID] = true
	}
	for _, g := range created {
		if !seen[g.ID] {
			all = append(all, g)
		}
	}

	ls := liststore.New(h.DB, h.Log)
	out := make([]groupContext, 0, len(all))
	for _, g := range all {
		role, ok := roleByGroup[g.ID]
		if !ok {
			role = models.RoleAdmin
		}
		gc := groupContext{
			GroupID:    g.ID,
			Name:       g.Name,
			IsPersonal: g.IsPersonal,
			Role:       role,
		}
		// Read-only lookup; a missing default list is left for the group's
		// own surface to synthesize.
		if lists, err := ls.ListByGroup(ctx, g.ID); err == nil {
			for _, l := range lists {
				if l.IsDefault {
					id := l.ID
					gc.DefaultListID = &id
					break
				}
			}
		}
		out = append(out, gc)
	}

	respond.JSON(w, http.StatusOK, userContext{User: u, Groups: out})
}
