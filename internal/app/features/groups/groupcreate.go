// internal/app/features/groups/groupcreate.go
package groups

import (
	"context"
	"net/http"

	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/store/groups"
	"github.com/evanshaw/homebasket/internal/app/system/authz"
	"github.com/evanshaw/homebasket/internal/app/system/htmlsanitize"
	"github.com/evanshaw/homebasket/internal/app/system/inputval"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type createGroupInput struct {
	Name        string                `json:"name" validate:"required,max=100" label:"Name"`
	Description string                `json:"description" validate:"max=500" label:"Description"`
	Settings    *models.GroupSettings `json:"settings"`
}

// HandleCreateGroup handles POST /groups.
//
// The group, the creator's admin membership, and the default list are
// written as one transaction. Icon generation runs after the commit so a
// failed icon never rolls back a created group.
func (h *Handler) HandleCreateGroup(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}

	var in createGroupInput
	if !respond.Decode(w, r, &in) {
		return
	}
	in.Name = htmlsanitize.Strip(normalize.Name(in.Name))
	in.Description = htmlsanitize.Strip(normalize.Name(in.Description))
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	settings := models.DefaultGroupSettings()
	if in.Settings != nil {
		settings = *in.Settings
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	store := groupstore.New(h.DB, h.Log)
	created, err := store.CreateWithDefaults(ctx, models.Group{
		Name:        in.Name,
		Description: in.Description,
		CreatorID:   uid,
		Settings:    settings,
	}, groupstore.CreateOptions{})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	// Post-commit side effect on its own context; the request may finish
	// before the icon does.
	if h.Icons != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), timeouts.SideEffect())
			defer cancel()
			url, err := h.Icons.GenerateAndStore(ctx, created.ID)
			if err != nil {
				h.Log.Warn("group icon generation failed",
					zap.String("group_id", created.ID.Hex()), zap.Error(err))
				return
			}
			if err := store.SetIconURL(ctx, created.ID, url); err != nil {
				h.Log.Warn("group icon url update failed",
					zap.String("group_id", created.ID.Hex()), zap.Error(err))
			}
		}()
	}

	respond.JSON(w, http.StatusCreated, created)
}
