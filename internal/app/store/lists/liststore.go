// internal/app/store/lists/liststore.go
package liststore

import (
	"context"
	"errors"
	"time"

	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/text"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/txn"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

type Store struct {
	db  *mongo.Database
	log *zap.Logger
	c   *mongo.Collection
}

func New(db *mongo.Database, log *zap.Logger) *Store {
	return &Store{
		db:  db,
		log: log,
		c:   db.Collection("lists"),
	}
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.List, error) {
	var l models.List
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&l); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.List{}, apperr.New(apperr.KindNotFound, "list not found")
		}
		return models.List{}, err
	}
	return l, nil
}

// ListByGroup returns all of a group's lists, default first.
func (s *Store) ListByGroup(ctx context.Context, groupID primitive.ObjectID) ([]models.List, error) {
	cur, err := s.c.Find(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return nil, err
	}
	var out []models.List
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	// Default first, then oldest first.
	for i := range out {
		if out[i].IsDefault && i != 0 {
			out[0], out[i] = out[i], out[0]
			break
		}
	}
	return out, nil
}

// Create inserts a list. When l.IsDefault is set, the previous default (if
// any) is demoted in the same transaction; the partial unique index on
// (group_id, is_default) rejects a second default slipping in concurrently.
func (s *Store) Create(ctx context.Context, l models.List) (models.List, error) {
	now := time.Now().UTC()
	l.ID = primitive.NewObjectID()
	l.NameCI = text.Fold(l.Name)
	if l.Items == nil {
		l.Items = []models.Item{}
	}
	l.CreatedAt = now
	l.UpdatedAt = now

	err := txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		if l.IsDefault {
			if err := s.demoteDefault(ctx, l.GroupID, now); err != nil {
				return err
			}
		}
		if _, err := s.c.InsertOne(ctx, l); err != nil {
			if wafflemongo.IsDup(err) {
				return apperr.New(apperr.KindConflict, "the group already has a default list")
			}
			return err
		}
		return nil
	})
	if err != nil {
		return models.List{}, err
	}
	return l, nil
}

func (s *Store) demoteDefault(ctx context.Context, groupID primitive.ObjectID, now time.Time) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"group_id": groupID, "is_default": true},
		bson.M{"$set": bson.M{"is_default": false, "updated_at": now}})
	return err
}

// SetDefault makes the given list its group's default, demoting the current
// one in the same transaction.
func (s *Store) SetDefault(ctx context.Context, id primitive.ObjectID) error {
	return txn.Run(ctx, s.db, s.log, func(ctx context.Context) error {
		l, err := s.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if l.IsDefault {
			return nil
		}
		now := time.Now().UTC()
		if err := s.demoteDefault(ctx, l.GroupID, now); err != nil {
			return err
		}
		_, err = s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
			"is_default": true,
			"updated_at": now,
		}})
		if wafflemongo.IsDup(err) {
			return apperr.New(apperr.KindConflict, "the group already has a default list")
		}
		return err
	})
}

// GetDefaultByGroup returns the group's default list, creating one when the
// group somehow has none (imported data, partial old writes).
func (s *Store) GetDefaultByGroup(ctx context.Context, groupID, creatorID primitive.ObjectID) (models.List, error) {
	var l models.List
	err := s.c.FindOne(ctx, bson.M{"group_id": groupID, "is_default": true}).Decode(&l)
	if err == nil {
		return l, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.List{}, err
	}

	created, err := s.Create(ctx, models.List{
		Name:      models.DefaultListName,
		GroupID:   groupID,
		IsDefault: true,
		CreatorID: creatorID,
		Settings:  models.DefaultListSettings(),
	})
	if err != nil {
		if apperr.KindOf(err) == apperr.KindConflict {
			// Lost the race to another creator; the winner's list is fine.
			return s.GetDefaultByGroup(ctx, groupID, creatorID)
		}
		return models.List{}, err
	}
	return created, nil
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
		return apperr.New(apperr.KindNotFound, "list not found")
	}
	return nil
}

func (s *Store) UpdateSettings(ctx context.Context, id primitive.ObjectID, settings models.ListSettings) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{
		"settings":   settings,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.KindNotFound, "list not found")
	}
	return nil
}

// Delete removes a list and its embedded items. The default list cannot be
// deleted; make another list the default first.
func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "is_default": false})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		l, getErr := s.GetByID(ctx, id)
		if getErr != nil {
			return getErr
		}
		if l.IsDefault {
			return apperr.New(apperr.KindBadRequest, "the default list cannot be deleted")
		}
		return apperr.New(apperr.KindNotFound, "list not found")
	}
	return nil
}

// AddItem appends one item. Duplicate detection is case- and
// whitespace-insensitive against the list's existing items; the $ne filter
// on text_ci makes the check and the push one atomic document write.
func (s *Store) AddItem(ctx context.Context, listID primitive.ObjectID, item models.Item) (models.Item, error) {
	l, err := s.GetByID(ctx, listID)
	if err != nil {
		return models.Item{}, err
	}

	now := time.Now().UTC()
	item.ID = primitive.NewObjectID()
	item.TextCI = normalize.ItemKey(item.Text)
	item.Order = l.NextItemOrder()
	item.CreatedAt = now
	item.UpdatedAt = now

	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": listID, "items.text_ci": bson.M{"$ne": item.TextCI}},
		bson.M{
			"$push": bson.M{"items": item},
			"$set":  bson.M{"updated_at": now},
		})
	if err != nil {
		return models.Item{}, err
	}
	if res.MatchedCount == 0 {
		return models.Item{}, apperr.New(apperr.KindConflict, "this item is already on the list")
	}
	return item, nil
}

// BatchAddResult reports what a batch add actually did. Duplicates are not
// an error: the caller gets back which texts were skipped.
type BatchAddResult struct {
	Added          []models.Item
	ItemsAdded     int
	ItemsSkipped   int
	DuplicateItems []string
}

// AddItemsBatch appends many items in one write, skipping texts that already
// appear on the list (or earlier in the same batch) under case- and
// whitespace-insensitive comparison. First-seen casing wins within a batch.
// The push only matches while the item array still has the length the read
// saw; a concurrent writer makes the update miss and the batch re-reads and
// recomputes, so two racing batches cannot insert the same text twice.
func (s *Store) AddItemsBatch(ctx context.Context, listID primitive.ObjectID, addedBy string, addedByID primitive.ObjectID, texts []string) (BatchAddResult, error) {
	const maxAttempts = 5
	for attempt := 0; attempt < maxAttempts; attempt++ {
		l, err := s.GetByID(ctx, listID)
		if err != nil {
			return BatchAddResult{}, err
		}

		seen := make(map[string]bool, len(l.Items)+len(texts))
		for _, it := range l.Items {
			seen[it.TextCI] = true
		}

		now := time.Now().UTC()
		order := l.NextItemOrder()

		var res BatchAddResult
		for _, raw := range texts {
			t := normalize.ItemText(raw)
			if t == "" {
				continue
			}
			key := normalize.ItemKey(t)
			if seen[key] {
				res.ItemsSkipped++
				res.DuplicateItems = append(res.DuplicateItems, t)
				continue
			}
			seen[key] = true
			res.Added = append(res.Added, models.Item{
				ID:        primitive.NewObjectID(),
				Text:      t,
				TextCI:    key,
				AddedBy:   addedBy,
				AddedByID: addedByID,
				Order:     order,
				CreatedAt: now,
				UpdatedAt: now,
			})
			order++
		}
		res.ItemsAdded = len(res.Added)

		if len(res.Added) == 0 {
			return res, nil
		}

		upd, err := s.c.UpdateOne(ctx,
			bson.M{"_id": listID, "items": bson.M{"$size": len(l.Items)}},
			bson.M{
				"$push": bson.M{"items": bson.M{"$each": res.Added}},
				"$set":  bson.M{"updated_at": now},
			})
		if err != nil {
			return BatchAddResult{}, err
		}
		if upd.MatchedCount > 0 {
			return res, nil
		}
	}
	return BatchAddResult{}, apperr.New(apperr.KindConflict, "the list changed while adding items; try again")
}

// RemoveItemsByText removes every item whose normalized text matches one of
// the given texts and returns how many came off. Zero matches is NotFound so
// the caller can tell the difference from a successful removal.
func (s *Store) RemoveItemsByText(ctx context.Context, listID primitive.ObjectID, texts []string) (int, error) {
	l, err := s.GetByID(ctx, listID)
	if err != nil {
		return 0, err
	}

	keys := make(map[string]bool, len(texts))
	for _, t := range texts {
		if k := normalize.ItemKey(t); k != "" {
			keys[k] = true
		}
	}

	matched := 0
	for _, it := range l.Items {
		if keys[it.TextCI] {
			matched++
		}
	}
	if matched == 0 {
		return 0, apperr.New(apperr.KindNotFound, "no matching items on the list")
	}

	keyList := make([]string, 0, len(keys))
	for k := range keys {
		keyList = append(keyList, k)
	}
	_, err = s.c.UpdateByID(ctx, listID, bson.M{
		"$pull": bson.M{"items": bson.M{"text_ci": bson.M{"$in": keyList}}},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return 0, err
	}
	return matched, nil
}

// UpdateItemText rewrites an item's text. The new text must not collide with
// another item on the same list.
func (s *Store) UpdateItemText(ctx context.Context, listID, itemID primitive.ObjectID, newText string) error {
	key := normalize.ItemKey(newText)

	l, err := s.GetByID(ctx, listID)
	if err != nil {
		return err
	}
	found := false
	for _, it := range l.Items {
		if it.ID == itemID {
			found = true
			continue
		}
		if it.TextCI == key {
			return apperr.New(apperr.KindConflict, "this item is already on the list")
		}
	}
	if !found {
		return apperr.New(apperr.KindNotFound, "item not found")
	}

	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": listID, "items._id": itemID},
		bson.M{"$set": bson.M{
			"items.$.text":       newText,
			"items.$.text_ci":    key,
			"items.$.updated_at": now,
			"updated_at":         now,
		}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.KindNotFound, "item not found")
	}
	return nil
}

// SetItemCompleted marks an item done or not done. Completing stamps who and
// when; uncompleting clears both.
func (s *Store) SetItemCompleted(ctx context.Context, listID, itemID, userID primitive.ObjectID, completed bool) error {
	now := time.Now().UTC()

	update := bson.M{"$set": bson.M{
		"items.$.is_completed": completed,
		"items.$.updated_at":   now,
		"updated_at":           now,
	}}
	if completed {
		update["$set"].(bson.M)["items.$.completed_by"] = userID
		update["$set"].(bson.M)["items.$.completed_at"] = now
	} else {
		update["$unset"] = bson.M{
			"items.$.completed_by": "",
			"items.$.completed_at": "",
		}
	}

	res, err := s.c.UpdateOne(ctx, bson.M{"_id": listID, "items._id": itemID}, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.KindNotFound, "item not found")
	}
	return nil
}

// DeleteItem removes a single item by id.
func (s *Store) DeleteItem(ctx context.Context, listID, itemID primitive.ObjectID) error {
	res, err := s.c.UpdateOne(ctx,
		bson.M{"_id": listID, "items._id": itemID},
		bson.M{
			"$pull": bson.M{"items": bson.M{"_id": itemID}},
			"$set":  bson.M{"updated_at": time.Now().UTC()},
		})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return apperr.New(apperr.KindNotFound, "item not found")
	}
	return nil
}

// DeleteByGroup removes all of a group's lists. Used by the group cascade.
func (s *Store) DeleteByGroup(ctx context.Context, groupID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"group_id": groupID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
