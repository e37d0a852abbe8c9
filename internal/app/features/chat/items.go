// internal/app/features/chat/items.go
package chat

import (
	"context"
	"net/http"

	"github.com/evanshaw/homebasket/internal/app/policy/grouppolicy"
	"github.com/evanshaw/homebasket/internal/app/store/lists"
	"github.com/evanshaw/homebasket/internal/app/system/htmlsanitize"
	"github.com/evanshaw/homebasket/internal/app/system/inputval"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type itemsInput struct {
	Phone string   `json:"phone" validate:"required,min=10,max=15" label:"Phone"`
	Items []string `json:"items" validate:"required,min=1,max=100,dive,max=500" label:"Items"`
}

func (h *Handler) decodeItemsInput(w http.ResponseWriter, r *http.Request) (itemsInput, bool) {
	var in itemsInput
	if !respond.Decode(w, r, &in) {
		return in, false
	}
	in.Phone = normalize.Phone(in.Phone)
	for i, t := range in.Items {
		in.Items[i] = htmlsanitize.Strip(normalize.ItemText(t))
	}
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return in, false
	}
	return in, true
}

// HandleAddItems handles POST /chat/lists/{listID}/items. Any active member
// of the list's group; duplicates are skipped and reported, never an error,
// so a spoken "add milk, eggs, milk" still adds what it can.
func (h *Handler) HandleAddItems(w http.ResponseWriter, r *http.Request) {
	lid, ok := listIDParam(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeItemsInput(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.actingUser(ctx, in.Phone)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	l, err := h.targetList(ctx, lid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := grouppolicy.CanContribute(ctx, h.DB, l.GroupID, u.ID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	res, err := liststore.New(h.DB, h.Log).AddItemsBatch(ctx, l.ID, u.DisplayName, u.ID, in.Items)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"list_id":         l.ID.Hex(),
		"items_added":     res.ItemsAdded,
		"items_skipped":   res.ItemsSkipped,
		"duplicate_items": res.DuplicateItems,
	})
}

// HandleRemoveItems handles POST /chat/lists/{listID}/items/remove. Editors
// and admins; admins only when the list disables item deletion.
func (h *Handler) HandleRemoveItems(w http.ResponseWriter, r *http.Request) {
	lid, ok := listIDParam(w, r)
	if !ok {
		return
	}
	in, ok := h.decodeItemsInput(w, r)
	if !ok {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	u, err := h.actingUser(ctx, in.Phone)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	l, err := h.targetList(ctx, lid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if !l.Settings.AllowItemDeletion {
		err = grouppolicy.CanManageGroup(ctx, h.DB, l.GroupID, u.ID)
	} else {
		err = grouppolicy.CanEditLists(ctx, h.DB, l.GroupID, u.ID)
	}
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	n, err := liststore.New(h.DB, h.Log).RemoveItemsByText(ctx, l.ID, in.Items)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]any{
		"list_id":       l.ID.Hex(),
		"items_removed": n,
	})
}

// HandleGetList handles GET /chat/lists/{listID}?phone=... Any active member
// of the list's group.
func (h *Handler) HandleGetList(w http.ResponseWriter, r *http.Request) {
	lid, ok := listIDParam(w, r)
	if !ok {
		return
	}
	phone := normalize.Phone(r.URL.Query().Get("phone"))
	if phone == "" {
		respond.BadRequest(w, "phone is required")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := h.actingUser(ctx, phone)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	l, err := h.targetList(ctx, lid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := grouppolicy.CanContribute(ctx, h.DB, l.GroupID, u.ID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if l.Items == nil {
		l.Items = []models.Item{}
	}
	respond.JSON(w, http.StatusOK, l)
}
