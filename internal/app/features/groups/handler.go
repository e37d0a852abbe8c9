// internal/app/features/groups/handler.go
package groups

import (
	"net/http"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/app/system/icons"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/go-chi/chi/v5"
)

// Handler is the shared dependency container for the groups feature.
type Handler struct {
	DB    *mongo.Database
	Log   *zap.Logger
	Icons icons.Generator
}

// NewHandler constructs a groups Handler. It is called from the bootstrap
// BuildHandler function, where the DB, logger, and icon generator are
// already initialized.
func NewHandler(db *mongo.Database, logger *zap.Logger, iconGen icons.Generator) *Handler {
	return &Handler{DB: db, Log: logger, Icons: iconGen}
}

// groupIDParam parses the {groupID} route parameter, writing the error
// response itself when the id is malformed.
func groupIDParam(w http.ResponseWriter, r *http.Request, log *zap.Logger) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "groupID"))
	if err != nil {
		respond.Error(w, log, apperr.New(apperr.KindBadRequest, "invalid group id"))
		return primitive.NilObjectID, false
	}
	return id, true
}
