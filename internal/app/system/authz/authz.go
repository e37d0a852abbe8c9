// internal/app/system/authz/authz.go
package authz

import (
	"net/http"

	"github.com/evanshaw/homebasket/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// UserCtx returns the current user's Mongo ObjectID, display name, and phone
// with a found flag. If no user is present in the context or the stored id is
// malformed, ok is false: callers can trust that ok=true means a valid,
// authenticated user with a valid ObjectID.
func UserCtx(r *http.Request) (userID primitive.ObjectID, name string, phone string, ok bool) {
	user, ok := auth.CurrentUser(r)
	if !ok {
		return primitive.NilObjectID, "", "", false
	}
	userID, err := primitive.ObjectIDFromHex(user.ID)
	if err != nil {
		// Malformed id in the session: fail closed.
		return primitive.NilObjectID, "", "", false
	}
	return userID, user.Name, user.Phone, true
}
