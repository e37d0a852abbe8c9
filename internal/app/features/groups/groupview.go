// internal/app/features/groups/groupview.go
package groups

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/evanshaw/homebasket/internal/app/policy/grouppolicy"
	"github.com/evanshaw/homebasket/internal/app/store/groups"
	"github.com/evanshaw/homebasket/internal/app/store/lists"
	"github.com/evanshaw/homebasket/internal/app/store/memberships"
	"github.com/evanshaw/homebasket/internal/app/store/users"
	"github.com/evanshaw/homebasket/internal/app/system/authz"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type memberView struct {
	MembershipID primitive.ObjectID    `json:"membership_id"`
	UserID       *primitive.ObjectID   `json:"user_id,omitempty"`
	DisplayName  string                `json:"display_name,omitempty"`
	Phone        string                `json:"phone,omitempty"`
	Role         models.MembershipRole `json:"role"`
	Status       models.MembershipStatus `json:"status"`
}

type listSummary struct {
	ID        primitive.ObjectID `json:"id"`
	Name      string             `json:"name"`
	IsDefault bool               `json:"is_default"`
	ItemCount int                `json:"item_count"`
}

type groupView struct {
	Group   models.Group  `json:"group"`
	MyRole  models.MembershipRole `json:"my_role"`
	Members []memberView  `json:"members"`
	Lists   []listSummary `json:"lists"`
}

// HandleGroupView handles GET /groups/{groupID}: the group document composed
// with its members (active and pending) and list summaries. Any active
// member can read it; pending invitee phones are only included for admins.
func (h *Handler) HandleGroupView(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r, h.Log)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	role, err := grouppolicy.ResolveRole(ctx, h.DB, gid, uid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	g, err := groupstore.New(h.DB, h.Log).GetByID(ctx, gid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	statuses := []models.MembershipStatus{models.StatusActive}
	if role == models.RoleAdmin {
		statuses = append(statuses, models.StatusPending)
	}
	members, err := membershipstore.New(h.DB, h.Log).ListByGroup(ctx, gid, statuses)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	users := userstore.New(h.DB)
	views := make([]memberView, 0, len(members))
	for _, m := range members {
		v := memberView{
			MembershipID: m.ID,
			UserID:       m.UserID,
			Role:         m.Role,
			Status:       m.Status,
		}
		if m.UserID != nil {
			if u, err := users.GetByID(ctx, *m.UserID); err == nil {
				v.DisplayName = u.DisplayName
			}
		} else if role == models.RoleAdmin {
			v.Phone = m.InviteePhone
		}
		views = append(views, v)
	}

	lists, err := liststore.New(h.DB, h.Log).ListByGroup(ctx, gid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	summaries := make([]listSummary, 0, len(lists))
	for _, l := range lists {
		summaries = append(summaries, listSummary{
			ID:        l.ID,
			Name:      l.Name,
			IsDefault: l.IsDefault,
			ItemCount: len(l.Items),
		})
	}

	respond.JSON(w, http.StatusOK, groupView{
		Group:   g,
		MyRole:  role,
		Members: views,
		Lists:   summaries,
	})
}
