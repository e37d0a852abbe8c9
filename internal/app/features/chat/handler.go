// internal/app/features/chat/handler.go
//
// Package chat is the surface a conversational agent calls on behalf of a
// user ("add milk and eggs to the family list"). The agent authenticates
// itself with a shared key; the acting user is identified by phone number
// and their authority is re-derived from the membership records on every
// operation, so the agent can never do more than the user themself could.
package chat

import (
	"context"
	"crypto/subtle"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/store/lists"
	"github.com/evanshaw/homebasket/internal/app/store/users"
	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

// AgentKeyHeader carries the shared agent credential.
const AgentKeyHeader = "X-Agent-Key"

// Handler is the dependency container for the chat agent surface.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	AgentKey string
}

func NewHandler(db *mongo.Database, logger *zap.Logger, agentKey string) *Handler {
	return &Handler{DB: db, Log: logger, AgentKey: agentKey}
}

// RequireAgentKey rejects requests without the shared key. A deployment that
// never configures a key gets a closed surface, not an open one.
func (h *Handler) RequireAgentKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got := r.Header.Get(AgentKeyHeader)
		if h.AgentKey == "" || subtle.ConstantTimeCompare([]byte(got), []byte(h.AgentKey)) != 1 {
			respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid agent key"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func listIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "listID"))
	if err != nil {
		respond.BadRequest(w, "invalid list id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// errNotMember is the uniform answer for both "phone unknown" and "not a
// member", so the list-addressed operations cannot be used to probe which
// phone numbers have accounts.
func errNotMember() error {
	return apperr.New(apperr.KindForbidden, "you are not a member of this group")
}

// actingUser resolves the phone to a user, masking an unknown phone.
func (h *Handler) actingUser(ctx context.Context, phone string) (models.User, error) {
	u, err := userstore.New(h.DB).GetByPhone(ctx, normalize.Phone(phone))
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return models.User{}, errNotMember()
		}
		return models.User{}, err
	}
	return u, nil
}

// targetList loads the addressed list, masking its absence the same way.
func (h *Handler) targetList(ctx context.Context, listID primitive.ObjectID) (models.List, error) {
	l, err := liststore.New(h.DB, h.Log).GetByID(ctx, listID)
	if err != nil {
		if apperr.KindOf(err) == apperr.KindNotFound {
			return models.List{}, errNotMember()
		}
		return models.List{}, err
	}
	return l, nil
}
