// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/store/users"
	"github.com/evanshaw/homebasket/internal/app/system/auth"
	"github.com/evanshaw/homebasket/internal/app/system/inputval"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
)

// Handler signs users in and out. Identity is phone-based: the upstream
// device flow has already verified possession of the number before this
// service sees it.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Sessions *auth.SessionManager
}

func NewHandler(db *mongo.Database, logger *zap.Logger, sm *auth.SessionManager) *Handler {
	return &Handler{DB: db, Log: logger, Sessions: sm}
}

type loginInput struct {
	Phone string `json:"phone" validate:"required,min=10,max=15" label:"Phone"`
}

// HandleLogin looks up the user by phone and establishes a session.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in loginInput
	if !respond.Decode(w, r, &in) {
		return
	}
	in.Phone = normalize.Phone(in.Phone)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).GetByPhone(ctx, in.Phone)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	if err := h.Sessions.SignIn(w, r, auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.DisplayName,
		Phone: u.Phone,
	}); err != nil {
		respond.Error(w, h.Log, err)
		return
	}

	respond.JSON(w, http.StatusOK, u)
}

// HandleLogout clears the session.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if err := h.Sessions.SignOut(w, r); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "signed_out"})
}
