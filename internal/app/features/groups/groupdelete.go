// internal/app/features/groups/groupdelete.go
package groups

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/policy/grouppolicy"
	"github.com/evanshaw/homebasket/internal/app/store/groups"
	"github.com/evanshaw/homebasket/internal/app/system/authz"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
)

// HandleDeleteGroup handles DELETE /groups/{groupID}. Admin only. The group,
// its memberships, and its lists go together in one transaction.
func (h *Handler) HandleDeleteGroup(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r, h.Log)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := grouppolicy.CanManageGroup(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := groupstore.New(h.DB, h.Log).Delete(ctx, gid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	h.Log.Info("group deleted", zap.String("group_id", gid.Hex()), zap.String("by", uid.Hex()))
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
