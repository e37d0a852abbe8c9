// internal/app/features/onboarding/handler.go
package onboarding

import (
	"context"
	"net/http"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/store/groups"
	"github.com/evanshaw/homebasket/internal/app/store/users"
	"github.com/evanshaw/homebasket/internal/app/system/auth"
	"github.com/evanshaw/homebasket/internal/app/system/htmlsanitize"
	"github.com/evanshaw/homebasket/internal/app/system/inputval"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/app/system/txn"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

// Handler provisions a new account: the user record plus their personal
// group, created as one unit so a half-onboarded account never exists.
type Handler struct {
	DB       *mongo.Database
	Log      *zap.Logger
	Sessions *auth.SessionManager
}

func NewHandler(db *mongo.Database, logger *zap.Logger, sm *auth.SessionManager) *Handler {
	return &Handler{DB: db, Log: logger, Sessions: sm}
}

type signupInput struct {
	DisplayName string `json:"display_name" validate:"required,max=100" label:"Display name"`
	Phone       string `json:"phone" validate:"required,min=10,max=15" label:"Phone"`
}

type signupResponse struct {
	User          models.User  `json:"user"`
	PersonalGroup models.Group `json:"personal_group"`
}

// HandleSignup handles POST /signup.
//
// The personal group is created with SkipMembership: the creator is its admin
// by construction, and a personal group never lists members. It still gets a
// default list so the user can start adding items immediately.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	var in signupInput
	if !respond.Decode(w, r, &in) {
		return
	}
	in.DisplayName = htmlsanitize.Strip(normalize.Name(in.DisplayName))
	in.Phone = normalize.Phone(in.Phone)
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users := userstore.New(h.DB)
	groups := groupstore.New(h.DB, h.Log)

	var (
		u models.User
		g models.Group
	)
	err := txn.Run(ctx, h.DB, h.Log, func(ctx context.Context) error {
		var err error
		u, err = users.Create(ctx, models.User{
			DisplayName: in.DisplayName,
			Phone:       in.Phone,
		})
		if err != nil {
			return err
		}
		g, err = groups.CreateWithDefaults(ctx, models.Group{
			Name:       "Personal",
			CreatorID:  u.ID,
			IsPersonal: true,
			Settings:   models.GroupSettings{AllowInvitations: false},
		}, groupstore.CreateOptions{SkipMembership: true})
		return err
	})
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

	respond.JSON(w, http.StatusCreated, signupResponse{User: u, PersonalGroup: g})
}
