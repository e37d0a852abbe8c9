// internal/domain/models/membership.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MembershipStatus is the lifecycle state of a membership document.
// The set is closed; use CanTransition before mutating status.
type MembershipStatus string

const (
	StatusPending  MembershipStatus = "pending"
	StatusActive   MembershipStatus = "active"
	StatusDeclined MembershipStatus = "declined"
	StatusRemoved  MembershipStatus = "removed"
)

// Valid reports whether s is one of the known statuses.
func (s MembershipStatus) Valid() bool {
	switch s {
	case StatusPending, StatusActive, StatusDeclined, StatusRemoved:
		return true
	}
	return false
}

// allowedTransitions is the closed transition table:
// pending → {active, declined}; active → removed.
// A role change on an active membership is active → active and is always
// allowed by the table; the last-admin guard lives in the membership store.
var allowedTransitions = map[MembershipStatus][]MembershipStatus{
	StatusPending: {StatusActive, StatusDeclined},
	StatusActive:  {StatusActive, StatusRemoved},
}

// CanTransition reports whether moving from s to next is legal.
// There are no transitions out of declined or removed.
func (s MembershipStatus) CanTransition(next MembershipStatus) bool {
	for _, t := range allowedTransitions[s] {
		if t == next {
			return true
		}
	}
	return false
}

// MembershipRole orders group privileges: admin > editor > contributor.
type MembershipRole string

const (
	RoleAdmin       MembershipRole = "admin"
	RoleEditor      MembershipRole = "editor"
	RoleContributor MembershipRole = "contributor"
)

// Valid reports whether r is one of the known roles.
func (r MembershipRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleEditor, RoleContributor:
		return true
	}
	return false
}

// Membership is the authoritative join between users and groups. It doubles
// as the invitation record: a pending membership has an invitee phone and a
// bearer token instead of a user id.
//
// Invariants (enforced by the membership store and partial unique indexes):
//   - user_id is set iff status is active (or the row was active before
//     removal);
//   - token is present iff status is pending, and unique among non-null
//     tokens;
//   - at most one pending membership per (group_id, invitee_phone);
//   - a group never drops to zero active admins.
type Membership struct {
	ID           primitive.ObjectID  `bson:"_id" json:"id"`
	GroupID      primitive.ObjectID  `bson:"group_id" json:"group_id"`
	UserID       *primitive.ObjectID `bson:"user_id,omitempty" json:"user_id,omitempty"`
	InviteePhone string              `bson:"invitee_phone,omitempty" json:"invitee_phone,omitempty"`
	InvitedBy    primitive.ObjectID  `bson:"invited_by" json:"invited_by"`
	Status       MembershipStatus    `bson:"status" json:"status"`
	Role         MembershipRole      `bson:"role" json:"role"`
	Token        *string             `bson:"token,omitempty" json:"-"`
	ExpiresAt    *time.Time          `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	AcceptedAt   *time.Time          `bson:"accepted_at,omitempty" json:"accepted_at,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// InviteExpiry is how long a pending invitation stays acceptable.
const InviteExpiry = 7 * 24 * time.Hour

const (
	// MinPhoneLen and MaxPhoneLen bound invitee phone numbers.
	MinPhoneLen = 10
	MaxPhoneLen = 15
)
