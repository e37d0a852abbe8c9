// internal/app/features/lists/items.go
package lists

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/evanshaw/homebasket/internal/app/policy/grouppolicy"
	"github.com/evanshaw/homebasket/internal/app/store/lists"
	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/app/system/authz"
	"github.com/evanshaw/homebasket/internal/app/system/htmlsanitize"
	"github.com/evanshaw/homebasket/internal/app/system/inputval"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type addItemInput struct {
	Text string `json:"text" validate:"required,max=500" label:"Item"`
}

// HandleAddItem handles POST .../items. Any active member.
func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	uid, name, _, ok := authz.UserCtx(r)
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

	var in addItemInput
	if !respond.Decode(w, r, &in) {
		return
	}
	in.Text = htmlsanitize.Strip(normalize.ItemText(in.Text))
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := grouppolicy.CanContribute(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if _, err := h.loadGroupList(ctx, gid, lid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	item, err := liststore.New(h.DB, h.Log).AddItem(ctx, lid, models.Item{
		Text:      in.Text,
		AddedBy:   name,
		AddedByID: uid,
	})
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusCreated, item)
}

type batchItemsInput struct {
	Items []string `json:"items" validate:"required,min=1,max=100,dive,max=500" label:"Items"`
}

type batchAddResponse struct {
	ItemsAdded     int           `json:"items_added"`
	ItemsSkipped   int           `json:"items_skipped"`
	DuplicateItems []string      `json:"duplicate_items,omitempty"`
	Added          []models.Item `json:"added"`
}

// HandleAddItemsBatch handles POST .../items/batch. Duplicates are skipped
// and reported, never an error: a voice request like "add milk, eggs, milk"
// still adds what it can.
func (h *Handler) HandleAddItemsBatch(w http.ResponseWriter, r *http.Request) {
	uid, name, _, ok := authz.UserCtx(r)
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

	var in batchItemsInput
	if !respond.Decode(w, r, &in) {
		return
	}
	for i, t := range in.Items {
		in.Items[i] = htmlsanitize.Strip(normalize.ItemText(t))
	}
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := grouppolicy.CanContribute(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if _, err := h.loadGroupList(ctx, gid, lid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	res, err := liststore.New(h.DB, h.Log).AddItemsBatch(ctx, lid, name, uid, in.Items)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if res.Added == nil {
		res.Added = []models.Item{}
	}
	respond.JSON(w, http.StatusOK, batchAddResponse{
		ItemsAdded:     res.ItemsAdded,
		ItemsSkipped:   res.ItemsSkipped,
		DuplicateItems: res.DuplicateItems,
		Added:          res.Added,
	})
}

// HandleRemoveItemsByText handles POST .../items/remove. Editors and admins;
// when the list disables item deletion, admins only.
func (h *Handler) HandleRemoveItemsByText(w http.ResponseWriter, r *http.Request) {
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

	var in batchItemsInput
	if !respond.Decode(w, r, &in) {
		return
	}
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
	if err := h.requireDeletion(ctx, l, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	n, err := liststore.New(h.DB, h.Log).RemoveItemsByText(ctx, lid, in.Items)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]int{"items_removed": n})
}

type editItemInput struct {
	Text string `json:"text" validate:"required,max=500" label:"Item"`
}

// HandleEditItem handles PATCH .../items/{itemID}. Editors and admins, or
// the member who added the item.
func (h *Handler) HandleEditItem(w http.ResponseWriter, r *http.Request) {
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
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	var in editItemInput
	if !respond.Decode(w, r, &in) {
		return
	}
	in.Text = htmlsanitize.Strip(normalize.ItemText(in.Text))
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
	if err := h.requireItemOwnershipOrEditor(ctx, l, gid, uid, itemID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if err := liststore.New(h.DB, h.Log).UpdateItemText(ctx, lid, itemID, in.Text); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

type completeItemInput struct {
	Completed bool `json:"completed"`
}

// HandleCompleteItem handles POST .../items/{itemID}/complete. Any active
// member; completion stamps who checked it off.
func (h *Handler) HandleCompleteItem(w http.ResponseWriter, r *http.Request) {
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
	itemID, ok := itemIDParam(w, r)
	if !ok {
		return
	}

	var in completeItemInput
	if !respond.Decode(w, r, &in) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := grouppolicy.CanContribute(ctx, h.DB, gid, uid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if _, err := h.loadGroupList(ctx, gid, lid); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	if err := liststore.New(h.DB, h.Log).SetItemCompleted(ctx, lid, itemID, uid, in.Completed); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// HandleDeleteItem handles DELETE .../items/{itemID}.
func (h *Handler) HandleDeleteItem(w http.ResponseWriter, r *http.Request) {
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
	itemID, ok := itemIDParam(w, r)
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
	if !l.Settings.AllowItemDeletion {
		if err := grouppolicy.CanManageGroup(ctx, h.DB, gid, uid); err != nil {
			respond.Error(w, h.Log, err)
			return
		}
	} else if err := h.requireItemOwnershipOrEditor(ctx, l, gid, uid, itemID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if err := liststore.New(h.DB, h.Log).DeleteItem(ctx, lid, itemID); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// requireDeletion checks bulk removal rights: editors and admins normally,
// admins only when the list has item deletion turned off.
func (h *Handler) requireDeletion(ctx context.Context, l models.List, gid, uid primitive.ObjectID) error {
	if !l.Settings.AllowItemDeletion {
		return grouppolicy.CanManageGroup(ctx, h.DB, gid, uid)
	}
	return grouppolicy.CanEditLists(ctx, h.DB, gid, uid)
}

// requireItemOwnershipOrEditor allows editors and admins to touch any item,
// and lets a contributor touch items they added themselves (AddedByID, not
// the display-name snapshot, is what counts).
func (h *Handler) requireItemOwnershipOrEditor(ctx context.Context, l models.List, gid, uid, itemID primitive.ObjectID) error {
	if err := grouppolicy.CanEditLists(ctx, h.DB, gid, uid); err == nil {
		return nil
	} else if apperr.KindOf(err) != apperr.KindForbidden {
		return err
	}
	if err := grouppolicy.CanContribute(ctx, h.DB, gid, uid); err != nil {
		return err
	}
	for _, it := range l.Items {
		if it.ID == itemID {
			if it.AddedByID == uid {
				return nil
			}
			return apperr.New(apperr.KindForbidden, "you can only change items you added")
		}
	}
	return apperr.New(apperr.KindNotFound, "item not found")
}
