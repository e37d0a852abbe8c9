// internal/app/store/groups/groupstore.go
package groupstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/app/system/txn"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type Store struct {
	db          *mongo.Database
	log         *zap.Logger
	c           *mongo.Collection
	memberships *mongo.Collection
	lists       *mongo.Collection
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:          db,
		log:         log,
		c:           db.Collection("groups"),
		memberships: db.Collection("memberships"),
		lists:       db.Collection("lists"),
	}
}

// CreateOptions tune CreateWithDefaults for callers that provision the
// companion documents themselves (onboarding builds the personal group's
// membership with its own timestamps, for example).
type CreateOptions struct {
	SkipMembership bool
	SkipList       bool
}

// GetByID loads a group. Documents written before owner_id existed are
// backfilled on read so callers can rely on the field being set.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Group, error) {
	var g models.Group
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Group{}, apperr.New(apperr.KindNotFound, "group not found")
		}
		return models.Group{}, err
	}
	if g.OwnerID.IsZero() {
		g.OwnerID = g.CreatorID
		if _, err := s.c.UpdateByID(ctx, g.ID, bson.M{"$set": bson.M{"owner_id": g.CreatorID}}); err != nil {
			// Backfill is best effort; the in-memory value is already correct.
			s.log.Warn("owner_id backfill failed", zap.String("group_id", g.ID.Hex()), zap.Error(err))
		}
	}
	return g, nil
}

// ListByIDs loads the groups for a set of ids, in no particular order.
func (s *Store) ListByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Group, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	cur, err := s.c.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, err
	}
	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ListByCreator loads every group a user created.
func (s *Store) ListByCreator(ctx context.Context, creatorID primitive.ObjectID) ([]models.Group, error) {
	cur, err := s.c.Find(ctx, bson.M{"creator_id": creatorID})
	if err != nil {
		return nil, err
	}
	var out []models.Group
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// CreateWithDefaults inserts the group, the creator's admin membership, and
// the group's default list as one atomic unit. A failure on any leg leaves no
// trace of the group.
func (s *Store) CreateWithDefaults(ctx context.Context, g models.Group, opts CreateOptions) (models.Group, error) {
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.NameCI = text.Fold(g.Name)
	if g.OwnerID.IsZero() {
		g.OwnerID = g.CreatorID
	}
	g.CreatedAt = now
	g.UpdatedAt = now

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if _, err := s.c.InsertOne(ctx, g); err != nil {
			return err
		}

		if !opts.SkipMembership {
			accepted := now
			m := models.Membership{
				ID:         primitive.NewObjectID(),
				GroupID:    g.ID,
				UserID:     &g.CreatorID,
				InvitedBy:  g.CreatorID,
				Status:     models.StatusActive,
				Role:       models.RoleAdmin,
				AcceptedAt: &accepted,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
			if _, err := s.memberships.InsertOne(ctx, m); err != nil {
				return err
			}
		}

		if !opts.SkipList {
			l := models.List{
				ID:        primitive.NewObjectID(),
				Name:      models.DefaultListName,
				NameCI:    text.Fold(models.DefaultListName),
				GroupID:   g.ID,
				IsDefault: true,
				CreatorID: g.CreatorID,
				Settings:  models.DefaultListSettings(),
				Items:     []models.Item{},
				CreatedAt: now,
				UpdatedAt: now,
			}
			if _, err := s.lists.InsertOne(ctx, l); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return models.Group{}, err
	}
	return g, nil
}

func (s *Store) UpdateInfo(ctx context.Context, id primitive.ObjectID, name, desc string) error {
	set := bson.M{
		"description": desc,
		"updated_at":  time.Now().UTC(),
	}
	if name != "" {
		set["name"] = name
		set["name_ci"] = text.Fold(name)
	}
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.KindNotFound, "group not found")
	}
	return nil
}

func (s *Store) UpdateSettings(ctx context.Context, id primitive.ObjectID, settings models.GroupSettings) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"settings":   settings,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.KindNotFound, "group not found")
	}
	return nil
}

// SetIconURL records the generated icon location. Runs outside the creation
// transaction; a miss here leaves the group without an icon, which is fine.
func (s *Store) SetIconURL(ctx context.Context, id primitive.ObjectID, url string) error {
	_, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"icon_url":   url,
		"updated_at": time.Now().UTC(),
	}})
	return err
}

// Delete removes a group and everything hanging off it: memberships (all
// statuses) and lists with their embedded items.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
		if err != nil {
			return err
		}
		if res.DeletedCount == 0 {
			return apperr.New(apperr.KindNotFound, "group not found")
		}
		if _, err := s.memberships.DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
			return err
		}
		if _, err := s.lists.DeleteMany(ctx, bson.M{"group_id": id}); err != nil {
			return err
		}
		return nil
	})
}
