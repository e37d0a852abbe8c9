// internal/app/policy/grouppolicy.go
//
// Package grouppolicy resolves what a user may do inside a group.
//
// Authorization rules:
//   - The group creator is always treated as an admin, membership row or not.
//   - Everyone else gets the role on their active membership.
//   - Non-members are rejected with a forbidden error, never a silent
//     downgrade.
//
// Role ordering: admin > editor > contributor. Admins manage the group,
// members, and invitations; editors manage lists and items; contributors add
// items and complete them.
package grouppolicy

import (
	"context"
	"errors"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

// ResolveRole determines userID's effective role in a group.
// Returns KindNotFound when the group does not exist and KindForbidden when
// the user has no active membership.
func ResolveRole(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) (models.MembershipRole, error) {
	var g models.Group
	if err := db.Collection("groups").FindOne(ctx, bson.M{"_id": groupID}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", apperr.New(apperr.KindNotFound, "group not found")
		}
		return "", err
	}
	if g.CreatorID == userID {
		return models.RoleAdmin, nil
	}

	var m models.Membership
	err := db.Collection("memberships").FindOne(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"status":   models.StatusActive,
	}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return "", apperr.New(apperr.KindForbidden, "you are not a member of this group")
		}
		return "", err
	}
	return m.Role, nil
}

// RequireRole resolves the user's role and checks it against the allowed set.
func RequireRole(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID, allowed ...models.MembershipRole) (models.MembershipRole, error) {
	role, err := ResolveRole(ctx, db, groupID, userID)
	if err != nil {
		return "", err
	}
	for _, a := range allowed {
		if role == a {
			return role, nil
		}
	}
	return "", apperr.Newf(apperr.KindForbidden, "this action requires role %s; you are %s", roleList(allowed), role)
}

func roleList(roles []models.MembershipRole) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, " or ")
}

// CanManageGroup reports whether the user may edit group settings, manage
// members, and handle invitations.
func CanManageGroup(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) error {
	_, err := RequireRole(ctx, db, groupID, userID, models.RoleAdmin)
	return err
}

// CanEditLists reports whether the user may create, rename, and delete lists
// and remove arbitrary items.
func CanEditLists(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) error {
	_, err := RequireRole(ctx, db, groupID, userID, models.RoleAdmin, models.RoleEditor)
	return err
}

// CanContribute reports whether the user may add items and mark them
// complete. Any active member can.
func CanContribute(ctx context.Context, db *mongo.Database, groupID, userID primitive.ObjectID) error {
	_, err := RequireRole(ctx, db, groupID, userID, models.RoleAdmin, models.RoleEditor, models.RoleContributor)
	return err
}
