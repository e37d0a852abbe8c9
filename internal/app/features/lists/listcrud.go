// internal/app/features/lists/listcrud.go
package lists

import (
	"context"
	"net/http"

	"github.com/evanshaw/homebasket/internal/app/policy/grouppolicy"
	"github.com/evanshaw/homebasket/internal/app/store/lists"
	"github.com/evanshaw/homebasket/internal/app/system/authz"
	"github.com/evanshaw/homebasket/internal/app/system/htmlsanitize"
	"github.com/evanshaw/homebasket/internal/app/system/inputval"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type createListInput struct {
	Name        string               `json:"name" validate:"required,max=100" label:"Name"`
	Description string               `json:"description" validate:"max=500" label:"Description"`
	IsDefault   bool                 `json:"is_default"`
	Settings    *models.ListSettings `json:"settings"`
}

// HandleCreateList handles POST /groups/{groupID}/lists. Any active member
// can create a list; changing or deleting one is held to its creator or an
// admin.
func (h *Handler) HandleCreateList(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	var in createListInput
	if !respond.Decode(w, r, &in) {
		return
	}
	in.Name = htmlsanitize.Strip(normalize.Name(in.Name))
	in.Description = htmlsanitize.Strip(normalize.Name(in.Description))
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := grouppolicy.CanContribute(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	settings := models.DefaultListSettings()
	if in.Settings != nil {
		settings = *in.Settings
	}

	created, err := liststore.New(h.DB, h.Log).Create(ctx, models.List{
		Name:        in.Name,
		Description: in.Description,
		GroupID:     gid,
		IsDefault:   in.IsDefault,
		CreatorID:   uid,
		Settings:    settings,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, created)
}

// HandleListLists handles GET /groups/{groupID}/lists. Any active member.
func (h *Handler) HandleListLists(w http.ResponseWriter, r *http.Request) {
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

	if err := grouppolicy.CanContribute(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	out, err := liststore.New(h.DB, h.Log).ListByGroup(ctx, gid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, out)
}

// HandleGetDefault handles GET /groups/{groupID}/lists/default. Synthesizes
// the default list if the group somehow lost it.
func (h *Handler) HandleGetDefault(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if err := grouppolicy.CanContribute(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	l, err := liststore.New(h.DB, h.Log).GetDefaultByGroup(ctx, gid, uid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, l)
}

// HandleGetList handles GET /groups/{groupID}/lists/{listID}.
func (h *Handler) HandleGetList(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}
	lid, ok := listIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := grouppolicy.CanContribute(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	l, err := h.loadGroupList(ctx, gid, lid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, l)
}

type editListInput struct {
	Name        string `json:"name" validate:"omitempty,max=100" label:"Name"`
	Description string `json:"description" validate:"max=500" label:"Description"`
}

// HandleEditList handles PATCH /groups/{groupID}/lists/{listID}. Creator or
// admin.
func (h *Handler) HandleEditList(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}
	lid, ok := listIDParam(w, r)
	if !ok {
		return
	}

	var in editListInput
	if !respond.Decode(w, r, &in) {
		return
	}
	in.Name = htmlsanitize.Strip(normalize.Name(in.Name))
	in.Description = htmlsanitize.Strip(normalize.Name(in.Description))
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, err := h.loadGroupList(ctx, gid, lid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.requireListOwnerOrAdmin(ctx, l, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	store := liststore.New(h.DB, h.Log)
	if err := store.UpdateInfo(ctx, lid, in.Name, in.Description); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	l, err = store.GetByID(ctx, lid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, l)
}

// HandleSetDefault handles POST /groups/{groupID}/lists/{listID}/default.
// Creator or admin.
func (h *Handler) HandleSetDefault(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}
	lid, ok := listIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	l, err := h.loadGroupList(ctx, gid, lid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.requireListOwnerOrAdmin(ctx, l, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := liststore.New(h.DB, h.Log).SetDefault(ctx, lid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "default_set"})
}

// HandleDeleteList handles DELETE /groups/{groupID}/lists/{listID}. Creator
// or admin; the default list is refused; promote another list first.
func (h *Handler) HandleDeleteList(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}
	gid, ok := groupIDParam(w, r)
	if !ok {
		return
	}
	lid, ok := listIDParam(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	l, err := h.loadGroupList(ctx, gid, lid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := h.requireListOwnerOrAdmin(ctx, l, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := liststore.New(h.DB, h.Log).Delete(ctx, lid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
