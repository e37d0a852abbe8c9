package groupstore_test

import (
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/store/groups"
	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/domain/models"
	"github.com/evanshaw/homebasket/internal/testutil"
)

func TestStore_CreateWithDefaults(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := fixtures.CreateUser(ctx, "Alice", "15551230001")

	created, err := store.CreateWithDefaults(ctx, models.Group{
		Name:      "Family",
		CreatorID: creator.ID,
		Settings:  models.DefaultGroupSettings(),
	}, groupstore.CreateOptions{})
	if err != nil {
		t.Fatalf("CreateWithDefaults failed: %v", err)
	}

	if created.ID == primitive.NilObjectID {
		t.Error("expected ID to be assigned")
	}
	if created.NameCI == "" {
		t.Error("expected NameCI to be set")
	}
	if created.OwnerID != creator.ID {
		t.Errorf("OwnerID: got %v, want creator %v", created.OwnerID, creator.ID)
	}
	if created.CreatedAt.IsZero() || created.UpdatedAt.IsZero() {
		t.Error("expected timestamps to be set")
	}

	// Exactly one membership: the creator, active, admin, accepted.
	var memberships []models.Membership
	cur, err := db.Collection("memberships").Find(ctx, bson.M{"group_id": created.ID})
	if err != nil {
		t.Fatalf("find memberships: %v", err)
	}
	if err := cur.All(ctx, &memberships); err != nil {
		t.Fatalf("decode memberships: %v", err)
	}
	if len(memberships) != 1 {
		t.Fatalf("expected 1 membership, got %d", len(memberships))
	}
	m := memberships[0]
	if m.UserID == nil || *m.UserID != creator.ID {
		t.Errorf("membership user: got %v, want %v", m.UserID, creator.ID)
	}
	if m.Status != models.StatusActive {
		t.Errorf("membership status: got %q, want active", m.Status)
	}
	if m.Role != models.RoleAdmin {
		t.Errorf("membership role: got %q, want admin", m.Role)
	}
	if m.AcceptedAt == nil {
		t.Error("expected AcceptedAt to be set")
	}

	// Exactly one list: the default.
	var lists []models.List
	cur, err = db.Collection("lists").Find(ctx, bson.M{"group_id": created.ID})
	if err != nil {
		t.Fatalf("find lists: %v", err)
	}
	if err := cur.All(ctx, &lists); err != nil {
		t.Fatalf("decode lists: %v", err)
	}
	if len(lists) != 1 {
		t.Fatalf("expected 1 list, got %d", len(lists))
	}
	if !lists[0].IsDefault {
		t.Error("expected list to be the default")
	}
	if lists[0].Name != models.DefaultListName {
		t.Errorf("list name: got %q, want %q", lists[0].Name, models.DefaultListName)
	}
}

func TestStore_CreateWithDefaults_SkipFlags(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := fixtures.CreateUser(ctx, "Alice", "15551230001")

	created, err := store.CreateWithDefaults(ctx, models.Group{
		Name:      "Personal",
		CreatorID: creator.ID,
		Settings:  models.GroupSettings{AllowInvitations: false},
	}, groupstore.CreateOptions{SkipMembership: true, SkipList: true})
	if err != nil {
		t.Fatalf("CreateWithDefaults failed: %v", err)
	}

	n, err := db.Collection("memberships").CountDocuments(ctx, bson.M{"group_id": created.ID})
	if err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no memberships with SkipMembership, got %d", n)
	}
	n, err = db.Collection("lists").CountDocuments(ctx, bson.M{"group_id": created.ID})
	if err != nil {
		t.Fatalf("count lists: %v", err)
	}
	if n != 0 {
		t.Errorf("expected no lists with SkipList, got %d", n)
	}
}

func TestStore_GetByID_NotFound(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db, zap.NewNop())
	ctx, cancel := testutil.TestContext()
	defer cancel()

	_, err := store.GetByID(ctx, primitive.NewObjectID())
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestStore_GetByID_BackfillsOwner(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Old Group", creator.ID)

	// Simulate a pre-owner_id document.
	if _, err := db.Collection("groups").UpdateByID(ctx, g.ID, bson.M{"$unset": bson.M{"owner_id": ""}}); err != nil {
		t.Fatalf("unset owner_id: %v", err)
	}

	got, err := store.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.OwnerID != creator.ID {
		t.Errorf("OwnerID: got %v, want creator %v", got.OwnerID, creator.ID)
	}

	// The backfill should be persisted.
	var stored models.Group
	if err := db.Collection("groups").FindOne(ctx, bson.M{"_id": g.ID}).Decode(&stored); err != nil {
		t.Fatalf("reload group: %v", err)
	}
	if stored.OwnerID != creator.ID {
		t.Errorf("stored OwnerID: got %v, want creator %v", stored.OwnerID, creator.ID)
	}
}

func TestStore_UpdateInfo(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", creator.ID)

	if err := store.UpdateInfo(ctx, g.ID, "Household", "weekly shopping"); err != nil {
		t.Fatalf("UpdateInfo failed: %v", err)
	}

	got, err := store.GetByID(ctx, g.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Name != "Household" {
		t.Errorf("Name: got %q, want %q", got.Name, "Household")
	}
	if got.Description != "weekly shopping" {
		t.Errorf("Description: got %q", got.Description)
	}

	if err := store.UpdateInfo(ctx, primitive.NewObjectID(), "X", ""); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for missing group, got %v", err)
	}
}

func TestStore_Delete_Cascades(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := groupstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	creator := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g, err := store.CreateWithDefaults(ctx, models.Group{
		Name:      "Family",
		CreatorID: creator.ID,
		Settings:  models.DefaultGroupSettings(),
	}, groupstore.CreateOptions{})
	if err != nil {
		t.Fatalf("CreateWithDefaults failed: %v", err)
	}
	fixtures.CreatePendingInvitation(ctx, g.ID, creator.ID, "15551230002", models.RoleEditor, models.InviteExpiry)

	if err := store.Delete(ctx, g.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	for _, coll := range []string{"groups", "memberships", "lists"} {
		n, err := db.Collection(coll).CountDocuments(ctx, bson.M{"$or": bson.A{
			bson.M{"_id": g.ID},
			bson.M{"group_id": g.ID},
		}})
		if err != nil {
			t.Fatalf("count %s: %v", coll, err)
		}
		if n != 0 {
			t.Errorf("%s: expected 0 documents after delete, got %d", coll, n)
		}
	}

	if err := store.Delete(ctx, g.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("expected not found for second delete, got %v", err)
	}
}
