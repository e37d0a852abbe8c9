// internal/app/features/lists/handler.go
package lists

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/policy/grouppolicy"
	"github.com/evanshaw/homebasket/internal/app/store/lists"
	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

// Handler is the shared dependency container for the lists feature. All
// routes are group-scoped; a list id from another group 404s.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}

func groupIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "groupID"))
	if err != nil {
		respond.BadRequest(w, "invalid group id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func listIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "listID"))
	if err != nil {
		respond.BadRequest(w, "invalid list id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func itemIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "itemID"))
	if err != nil {
		respond.BadRequest(w, "invalid item id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// loadGroupList fetches a list and confirms it belongs to the routed group.
func (h *Handler) loadGroupList(ctx context.Context, gid, lid primitive.ObjectID) (models.List, error) {
	l, err := liststore.New(h.DB, h.Log).GetByID(ctx, lid)
	if err != nil {
		return models.List{}, err
	}
	if l.GroupID != gid {
		return models.List{}, apperr.New(apperr.KindNotFound, "list not found")
	}
	return l, nil
}

// requireListOwnerOrAdmin allows the list's creator (while still an active
// member) or a group admin to change or delete the list.
func (h *Handler) requireListOwnerOrAdmin(ctx context.Context, l models.List, uid primitive.ObjectID) error {
	if l.CreatorID == uid {
		return grouppolicy.CanContribute(ctx, h.DB, l.GroupID, uid)
	}
	return grouppolicy.CanManageGroup(ctx, h.DB, l.GroupID, uid)
}
