// internal/app/features/invitations/respondinvite.go
package invitations

import (
	"context"
	"net/http"
	"time"

	"github.com/evanshaw/homebasket/internal/app/store/memberships"
	"github.com/evanshaw/homebasket/internal/app/system/authz"
	"github.com/evanshaw/homebasket/internal/app/system/inputval"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/respond"
	"github.com/evanshaw/homebasket/internal/app/system/timeouts"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type tokenInput struct {
	Token string `json:"token" validate:"required,len=64" label:"Token"`
}

// HandleAccept handles POST /invitations/accept. Requires a signed-in user:
// the invitation binds to whoever presents the token, regardless of which
// phone it was addressed to (the number may have been ported or shared).
func (h *Handler) HandleAccept(w http.ResponseWriter, r *http.Request) {
	uid, _, _, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}

	var in tokenInput
	if !respond.Decode(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	m, err := membershipstore.New(h.DB, h.Log).AcceptByToken(ctx, in.Token, uid)
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, m)
}

// HandleDecline handles POST /invitations/decline. The token is the sole
// credential; no session is needed, so an invitee who never installs the app
// can still decline from the message link.
func (h *Handler) HandleDecline(w http.ResponseWriter, r *http.Request) {
	var in tokenInput
	if !respond.Decode(w, r, &in) {
		return
	}
	if res := inputval.Validate(in); res.HasErrors() {
		respond.BadRequest(w, res.First())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if err := membershipstore.New(h.DB, h.Log).DeclineByToken(ctx, in.Token); err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]string{"status": "declined"})
}

// myInvitation is a Membership plus its token. The token is the accept
// credential and is normally never serialized; here the caller's verified
// phone is the invitation's addressee, so handing it over lets them accept
// in-app without the message link.
type myInvitation struct {
	models.Membership
	Token string `json:"token"`
}

// HandleListMine handles GET /invitations: the signed-in user's pending,
// unexpired invitations across all groups, matched by their phone number.
func (h *Handler) HandleListMine(w http.ResponseWriter, r *http.Request) {
	_, _, phone, ok := authz.UserCtx(r)
	if !ok {
		respond.JSON(w, http.StatusUnauthorized, map[string]string{"error": "sign in required"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	invs, err := membershipstore.New(h.DB, h.Log).ListPendingByPhone(ctx, normalize.Phone(phone), time.Now().UTC())
	if err != nil {
		respond.Error(w, h.Log, err)
		return
	}
	out := make([]myInvitation, 0, len(invs))
	for _, inv := range invs {
		v := myInvitation{Membership: inv}
		if inv.Token != nil {
			v.Token = *inv.Token
		}
		out = append(out, v)
	}
	respond.JSON(w, http.StatusOK, out)
}
