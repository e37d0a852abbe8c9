// internal/app/store/memberships/membershipstore.go
package membershipstore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/app/system/tokens"
	"github.com/evanshaw/homebasket/internal/app/system/txn"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type Store struct {
	db     *mongo.Database
	log    *zap.Logger
	c      *mongo.Collection
	groups *mongo.Collection
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:     db,
		log:    log,
		c:      db.Collection("memberships"),
		groups: db.Collection("groups"),
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Membership{}, apperr.New(apperr.KindNotFound, "membership not found")
		}
		return models.Membership{}, err
	}
	return m, nil
}

// ActiveMembership returns the caller's active membership in a group, or
// KindNotFound when there is none.
func (s *Store) ActiveMembership(ctx context.Context, groupID, userID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := s.c.FindOne(ctx, bson.M{
		"group_id": groupID,
		"user_id":  userID,
		"status":   models.StatusActive,
	}).Decode(&m)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Membership{}, apperr.New(apperr.KindNotFound, "membership not found")
		}
		return models.Membership{}, err
	}
	return m, nil
}

// ListByGroup returns a group's memberships, pending first then active,
// oldest first within each status.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID, statuses []models.MembershipStatus) ([]models.Membership, error) {
	filter := bson.M{"group_id": groupID}
	if len(statuses) > 0 {
		filter["status"] = bson.M{"$in": statuses}
	}
	cur, err := s.c.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListActiveByUser returns the user's active memberships across all groups.
func (s *Store) ListActiveByUser(ctx context.Context, userID primitive.ObjectID) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, bson.M{"user_id": userID, "status": models.StatusActive})
	if err != nil {
		return nil, err
	}
	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListPendingByPhone returns pending, unexpired invitations addressed to a
// normalized phone number.
func (s *Store) ListPendingByPhone(ctx context.Context, phone string, now time.Time) ([]models.Membership, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"invitee_phone": phone,
		"status":        models.StatusPending,
		"expires_at":    bson.M{"$gt": now},
	})
	if err != nil {
		return nil, err
	}
	var out []models.Membership
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) CountActiveAdmins(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"status":   models.StatusActive,
		"role":     models.RoleAdmin,
	})
}

// CreateInvitation writes a pending membership for an invitee phone and
// returns it with the bearer token set. The partial unique indexes reject a
// concurrent duplicate even when the pre-checks race.
func (s *Store) CreateInvitation(ctx context.Context, groupID, inviterID primitive.ObjectID, phone string, role models.MembershipRole) (models.Membership, error) {
	if !role.Valid() {
		return models.Membership{}, apperr.New(apperr.KindBadRequest, `role must be "admin", "editor", or "contributor"`)
	}

	if err := s.groups.FindOne(ctx, bson.M{"_id": groupID}).Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Membership{}, apperr.New(apperr.KindNotFound, "group not found")
		}
		return models.Membership{}, err
	}

	// An active member with this phone cannot be invited again. The phone
	// is not stored on active memberships, so resolve it through users.
	var u models.User
	err := s.db.Collection("users").FindOne(ctx, bson.M{"phone": phone}).Decode(&u)
	switch {
	case err == nil:
		n, cntErr := s.c.CountDocuments(ctx, bson.M{
			"group_id": groupID,
			"user_id":  u.ID,
			"status":   models.StatusActive,
		})
		if cntErr != nil {
			return models.Membership{}, cntErr
		}
		if n > 0 {
			return models.Membership{}, apperr.New(apperr.KindConflict, "this person is already a member of the group")
		}
	case errors.Is(err, mongo.ErrNoDocuments):
		// Invitee has no account yet; fine.
	default:
		return models.Membership{}, err
	}

	now := time.Now().UTC()
	token, err := tokens.NewInviteToken()
	if err != nil {
		return models.Membership{}, err
	}
	expires := now.Add(models.InviteExpiry)

	m := models.Membership{
		ID:           primitive.NewObjectID(),
		GroupID:      groupID,
		InviteePhone: phone,
		InvitedBy:    inviterID,
		Status:       models.StatusPending,
		Role:         role,
		Token:        &token,
		ExpiresAt:    &expires,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.c.InsertOne(ctx, m); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Membership{}, apperr.New(apperr.KindConflict, "an invitation for this phone number is already pending")
		}
		return models.Membership{}, err
	}
	return m, nil
}

// AcceptByToken turns a pending invitation into an active membership for
// userID. Expiry is re-checked here so a stale token fails even if the
// cleanup worker has not swept it yet. The token and expiry are cleared on
// acceptance; a second use of the same token gets KindNotFound.
func (s *Store) AcceptByToken(ctx context.Context, token string, userID primitive.ObjectID) (models.Membership, error) {
	var m models.Membership
	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if err := s.c.FindOne(ctx, bson.M{"token": token}).Decode(&m); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperr.New(apperr.KindNotFound, "invitation not found")
			}
			return err
		}
		if !m.Status.CanTransition(models.StatusActive) {
			return apperr.New(apperr.KindNotFound, "invitation not found")
		}
		now := time.Now().UTC()
		if m.ExpiresAt != nil && !m.ExpiresAt.After(now) {
			return apperr.New(apperr.KindBadRequest, "this invitation has expired")
		}

		res, err := s.c.UpdateOne(ctx,
			bson.M{"_id": m.ID, "status": models.StatusPending},
			bson.M{
				"$set": bson.M{
					"user_id":     userID,
					"status":      models.StatusActive,
					"accepted_at": now,
					"updated_at":  now,
				},
				"$unset": bson.M{"token": "", "expires_at": ""},
			})
		if err != nil {
			if wafflemongo.IsDup(err) {
				return apperr.New(apperr.KindConflict, "you are already a member of this group")
			}
			return err
		}
		if res.MatchedCount == 0 {
			// Raced with another accept/decline of the same token.
			return apperr.New(apperr.KindNotFound, "invitation not found")
		}

		m.UserID = &userID
		m.Status = models.StatusActive
		m.AcceptedAt = &now
		m.Token = nil
		m.ExpiresAt = nil
		m.UpdatedAt = now
		return nil
	})
	if err != nil {
		return models.Membership{}, err
	}
	return m, nil
}

// DeclineByToken marks a pending invitation declined. Declined rows are kept
// for audit; the phone can be invited again afterwards because the pending
// uniqueness filter no longer matches.
func (s *Store) DeclineByToken(ctx context.Context, token string) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"token": token, "status": models.StatusPending},
		bson.M{
			"$set":   bson.M{"status": models.StatusDeclined, "updated_at": now},
			"$unset": bson.M{"token": "", "expires_at": ""},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.KindNotFound, "invitation not found")
	}
	return nil
}

// Cancel marks a pending invitation declined, the same terminal state a
// decline reaches, with the token and expiry cleared. Who may cancel (inviter
// or any group admin) is the handler's decision.
func (s *Store) Cancel(ctx context.Context, id primitive.ObjectID) error {
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{
			"$set":   bson.M{"status": models.StatusDeclined, "updated_at": now},
			"$unset": bson.M{"token": "", "expires_at": ""},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.KindNotFound, "pending invitation not found")
	}
	return nil
}

// Resend issues a fresh token and expiry for a pending invitation and
// returns the updated record. The old token stops working immediately.
func (s *Store) Resend(ctx context.Context, id primitive.ObjectID) (models.Membership, error) {
	token, err := tokens.NewInviteToken()
	if err != nil {
		return models.Membership{}, err
	}
	now := time.Now().UTC()
	expires := now.Add(models.InviteExpiry)

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "status": models.StatusPending},
		bson.M{"$set": bson.M{
			"token":      token,
			"expires_at": expires,
			"updated_at": now,
		}})
	if err != nil {
		return models.Membership{}, err
	}
	if res.MatchedCount == 0 {
		return models.Membership{}, apperr.New(apperr.KindNotFound, "pending invitation not found")
	}
	return s.GetByID(ctx, id)
}

// UpdateRole changes an active member's role. Demoting the last admin is
// rejected; the count and the write share a transaction so two concurrent
// demotions cannot both pass the check.
func (s *Store) UpdateRole(ctx context.Context, id primitive.ObjectID, role models.MembershipRole) error {
	if !role.Valid() {
		return apperr.New(apperr.KindBadRequest, `role must be "admin", "editor", or "contributor"`)
	}
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var m models.Membership
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperr.New(apperr.KindNotFound, "membership not found")
			}
			return err
		}
		if m.Status != models.StatusActive {
			return apperr.New(apperr.KindBadRequest, "only active members can change roles")
		}
		if m.Role == models.RoleAdmin && role != models.RoleAdmin {
			if err := s.requireAnotherAdmin(ctx, m.GroupID, m.ID); err != nil {
				return err
			}
		}
		_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
			"role":       role,
			"updated_at": time.Now().UTC(),
		}})
		return err
	})
}

// Remove marks an active membership removed. The record is kept so past item
// attributions keep resolving. The same last-admin guard as UpdateRole
// applies.
func (s *Store) Remove(ctx context.Context, id primitive.ObjectID) error {
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		var m models.Membership
		if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				return apperr.New(apperr.KindNotFound, "membership not found")
			}
			return err
		}
		if !m.Status.CanTransition(models.StatusRemoved) {
			return apperr.New(apperr.KindBadRequest, "only active members can be removed")
		}
		if m.Role == models.RoleAdmin {
			if err := s.requireAnotherAdmin(ctx, m.GroupID, m.ID); err != nil {
				return err
			}
		}
		_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
			"status":     models.StatusRemoved,
			"updated_at": time.Now().UTC(),
		}})
		return err
	})
}

// requireAnotherAdmin rejects a demotion or removal that would leave the
// group without an active admin. It first stamps the group document: two
// transactions demoting different admins of the same group then write the
// same document and conflict, so one retries on a fresh snapshot and sees
// the other's demotion instead of both passing the count.
func (s *Store) requireAnotherAdmin(ctx context.Context, groupID, exceptID primitive.ObjectID) error {
	if _, err := s.groups.UpdateByID(ctx, groupID, bson.M{
		"$set": bson.M{"updated_at": time.Now().UTC()},
	}); err != nil {
		return err
	}
	n, err := s.c.CountDocuments(ctx, bson.M{
		"group_id": groupID,
		"status":   models.StatusActive,
		"role":     models.RoleAdmin,
		"_id":      bson.M{"$ne": exceptID},
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return apperr.New(apperr.KindBadRequest, "group must have at least one admin")
	}
	return nil
}

// CleanupExpired declines every pending invitation whose expiry has passed
// and returns how many were swept.
func (s *Store) CleanupExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{
			"status":     models.StatusPending,
			"expires_at": bson.M{"$lte": now},
		},
		bson.M{
			"$set":   bson.M{"status": models.StatusDeclined, "updated_at": now},
			"$unset": bson.M{"token": "", "expires_at": ""},
		})
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}
