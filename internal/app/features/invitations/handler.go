// internal/app/features/invitations/handler.go
package invitations

import (
	"context"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/system/notify"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

// Handler is the shared dependency container for the invitations feature.
type Handler struct {
	DB      *mongo.Database
	Log     *zap.Logger
	Notify  notify.Sender
	BaseURL string
}

func NewHandler(db *mongo.Database, logger *zap.Logger, sender notify.Sender, baseURL string) *Handler {
	return &Handler{DB: db, Log: logger, Notify: sender, BaseURL: baseURL}
}

func groupIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "groupID"))
	if err != nil {
		respond.BadRequest(w, "invalid group id")
		return primitive.NilObjectID, false
	}
	return id, true
}

func invitationIDParam(w http.ResponseWriter, r *http.Request) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "invitationID"))
	if err != nil {
		respond.BadRequest(w, "invalid invitation id")
		return primitive.NilObjectID, false
	}
	return id, true
}

// deliver sends the invite message with its accept link. Best effort on a
// detached context: delivery failure never fails the request that created
// the invitation, the admin can always resend.
func (h *Handler) deliver(inv models.Membership, groupName string) {
	if h.Notify == nil || inv.Token == nil {
		return
	}
	token := *inv.Token
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeouts.SideEffect())
		defer cancel()
		msg := fmt.Sprintf("You've been invited to the shopping group %q. Accept: %s/invitations/accept?token=%s",
			groupName, h.BaseURL, token)
		if err := h.Notify.Send(ctx, inv.InviteePhone, msg); err != nil {
			h.Log.Warn("invitation delivery failed",
				zap.String("invitation_id", inv.ID.Hex()), zap.Error(err))
		}
	}()
}
