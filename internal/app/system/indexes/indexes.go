// internal/app/system/indexes/indexes.go
package indexes

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

/*
EnsureAll is called at startup. Each ensure* function is idempotent; errors
are aggregated so every problem is visible and startup can fail fast.

The partial unique indexes on memberships and lists are not an optimization:
they are the datastore-side enforcement of the core invariants (one pending
invitation per phone per group, one active membership per user per group,
unique live tokens, one default list per group). Application code checks the
same invariants inside transactions; the indexes reject the second writer in
any race the application-level check misses.
*/
func EnsureAll(ctx context.Context, db *mongo.Database) error {
	var problems []string

	if err := ensureUsers(ctx, db); err != nil {
		problems = append(problems, "users: "+err.Error())
	}
	if err := ensureGroups(ctx, db); err != nil {
		problems = append(problems, "groups: "+err.Error())
	}
	if err := ensureMemberships(ctx, db); err != nil {
		problems = append(problems, "memberships: "+err.Error())
	}
	if err := ensureLists(ctx, db); err != nil {
		problems = append(problems, "lists: "+err.Error())
	}

	if len(problems) > 0 {
		return errors.New(strings.Join(problems, "; "))
	}
	return nil
}

func keySig(keys bson.D) string {
	parts := make([]string, 0, len(keys))
	for _, kv := range keys {
		parts = append(parts, fmt.Sprintf("%s:%v", kv.Key, kv.Value))
	}
	return strings.Join(parts, ", ")
}

func isOptionsConflictErr(err error) bool {
	return err != nil && strings.Contains(err.Error(), "IndexOptionsConflict")
}

func isDuplicateKeyErr(err error) bool {
	if err == nil {
		return false
	}
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if e.Code == 11000 {
				return true
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && ce.Code == 11000 {
		return true
	}
	s := err.Error()
	return strings.Contains(s, "E11000") || strings.Contains(strings.ToLower(s), "duplicate key")
}

func ensureIndexSet(ctx context.Context, coll *mongo.Collection, models []mongo.IndexModel) error {
	var errs []string

	for _, m := range models {
		var name string
		if m.Options != nil && m.Options.Name != nil {
			name = *m.Options.Name
		}
		sig := keySig(m.Keys.(bson.D))

		start := time.Now()
		if _, err := coll.Indexes().CreateOne(ctx, m); err != nil {
			if isOptionsConflictErr(err) {
				// Same keys exist with different options (unique upgrade,
				// partial filter change): drop by name and recreate.
				if _, dropErr := coll.Indexes().DropOne(ctx, name); dropErr != nil {
					errs = append(errs, fmt.Sprintf("%s(%s): drop failed: %v", coll.Name(), name, dropErr))
					continue
				}
				if _, err2 := coll.Indexes().CreateOne(ctx, m); err2 != nil {
					errs = append(errs, fmt.Sprintf("%s(%s): recreate failed: %v", coll.Name(), name, err2))
					continue
				}
				zap.L().Info("index dropped and recreated",
					zap.String("collection", coll.Name()),
					zap.String("name", name),
					zap.String("keys", sig),
					zap.String("took", time.Since(start).String()))
				continue
			}
			if isDuplicateKeyErr(err) {
				errs = append(errs, fmt.Sprintf("%s(%s): cannot create unique index (duplicates present)", coll.Name(), name))
				continue
			}
			errs = append(errs, fmt.Sprintf("%s(%s): %v", coll.Name(), name, err))
			continue
		}

		zap.L().Info("index ensured",
			zap.String("collection", coll.Name()),
			zap.String("name", name),
			zap.String("keys", sig),
			zap.String("took", time.Since(start).String()))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func ensureUsers(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("users")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("uniq_users_phone"),
		},
	})
}

func ensureGroups(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("groups")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "creator_id", Value: 1}},
			Options: options.Index().SetName("idx_groups_creator"),
		},
		{
			Keys:    bson.D{{Key: "owner_id", Value: 1}},
			Options: options.Index().SetName("idx_groups_owner"),
		},
	})
}

func ensureMemberships(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("memberships")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// Live invitation tokens are bearer credentials; uniqueness applies
		// only while a token is present (pending invitations).
		{
			Keys: bson.D{{Key: "token", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_memberships_token").
				SetPartialFilterExpression(bson.M{"token": bson.M{"$exists": true}}),
		},
		// One pending invitation per (group, phone).
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "invitee_phone", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_memberships_group_phone_pending").
				SetPartialFilterExpression(bson.M{"status": "pending"}),
		},
		// One active membership per (group, user).
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "user_id", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_memberships_group_user_active").
				SetPartialFilterExpression(bson.M{"status": "active"}),
		},
		// Member listings and role counts.
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "status", Value: 1}, {Key: "role", Value: 1}},
			Options: options.Index().SetName("idx_memberships_group_status_role"),
		},
		// "my groups" lookups.
		{
			Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "status", Value: 1}},
			Options: options.Index().SetName("idx_memberships_user_status"),
		},
		// Expiry sweep scan.
		{
			Keys:    bson.D{{Key: "status", Value: 1}, {Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("idx_memberships_status_expires"),
		},
	})
}

func ensureLists(ctx context.Context, db *mongo.Database) error {
	c := db.Collection("lists")
	return ensureIndexSet(ctx, c, []mongo.IndexModel{
		// At most one default list per group.
		{
			Keys: bson.D{{Key: "group_id", Value: 1}, {Key: "is_default", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("uniq_lists_group_default").
				SetPartialFilterExpression(bson.M{"is_default": true}),
		},
		{
			Keys:    bson.D{{Key: "group_id", Value: 1}, {Key: "name_ci", Value: 1}},
			Options: options.Index().SetName("idx_lists_group_nameci"),
		},
	})
}
