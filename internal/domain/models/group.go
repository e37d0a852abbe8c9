// internal/domain/models/group.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GroupSettings carries per-group behavior toggles.
type GroupSettings struct {
	AllowInvitations bool `bson:"allow_invitations" json:"allow_invitations"`
	RequireApproval  bool `bson:"require_approval" json:"require_approval"`
}

// Group is a collaborative namespace containing members and lists.
//
// NOTE:
//   - Membership is not embedded on Group; the memberships collection is
//     authoritative (see Membership).
//   - OwnerID defaults to CreatorID at creation. Old documents may lack
//     owner_id; the group store backfills it lazily on read.
//   - IconURL is set after the creation transaction commits (best-effort),
//     so it may be absent on freshly created groups.
type Group struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`
	CreatorID   primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	OwnerID     primitive.ObjectID `bson:"owner_id,omitempty" json:"owner_id"`
	IsPersonal  bool               `bson:"is_personal" json:"is_personal"`
	Settings    GroupSettings      `bson:"settings" json:"settings"`
	IconURL     *string            `bson:"icon_url,omitempty" json:"icon_url,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

const (
	// MaxGroupNameLen bounds group names.
	MaxGroupNameLen = 100
	// MaxGroupDescriptionLen bounds group descriptions.
	MaxGroupDescriptionLen = 500
)

// DefaultGroupSettings are applied when a creation request omits settings.
func DefaultGroupSettings() GroupSettings {
	return GroupSettings{
		AllowInvitations: true,
		RequireApproval:  false,
	}
}
