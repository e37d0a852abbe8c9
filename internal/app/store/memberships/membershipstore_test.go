package membershipstore_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/store/memberships"
	"github.com/evanshaw/homebasket/internal/app/system/apperr"
	"github.com/evanshaw/homebasket/internal/domain/models"
	"github.com/evanshaw/homebasket/internal/testutil"
)

func TestStore_CreateInvitation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)

	m, err := store.CreateInvitation(ctx, g.ID, admin.ID, "15551230002", models.RoleEditor)
	if err != nil {
		t.Fatalf("CreateInvitation failed: %v", err)
	}
	if m.Status != models.StatusPending {
		t.Errorf("status: got %q, want pending", m.Status)
	}
	if m.Token == nil || len(*m.Token) != 64 {
		t.Errorf("expected 64-char hex token, got %v", m.Token)
	}
	if m.ExpiresAt == nil {
		t.Fatal("expected ExpiresAt to be set")
	}
	wantExpiry := time.Now().UTC().Add(models.InviteExpiry)
	if d := m.ExpiresAt.Sub(wantExpiry); d < -time.Minute || d > time.Minute {
		t.Errorf("expiry: got %v, want about %v", m.ExpiresAt, wantExpiry)
	}
	if m.UserID != nil {
		t.Error("pending invitation must not carry a user_id")
	}
}

func TestStore_CreateInvitation_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)

	if _, err := store.CreateInvitation(ctx, g.ID, admin.ID, "15551230002", "owner"); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Errorf("unknown role: expected bad request, got %v", err)
	}

	missing := fixtures.CreateGroup(ctx, "Gone", admin.ID)
	if _, err := db.Collection("groups").DeleteOne(ctx, bson.M{"_id": missing.ID}); err != nil {
		t.Fatalf("delete group: %v", err)
	}
	if _, err := store.CreateInvitation(ctx, missing.ID, admin.ID, "15551230002", models.RoleEditor); apperr.KindOf(err) != apperr.KindNotFound {
		t.Errorf("missing group: expected not found, got %v", err)
	}
}

func TestStore_CreateInvitation_DuplicatePending(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)

	if _, err := store.CreateInvitation(ctx, g.ID, admin.ID, "15551230002", models.RoleEditor); err != nil {
		t.Fatalf("first invitation failed: %v", err)
	}
	_, err := store.CreateInvitation(ctx, g.ID, admin.ID, "15551230002", models.RoleContributor)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("duplicate pending: expected conflict, got %v", err)
	}
}

func TestStore_CreateInvitation_AlreadyMember(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	member := fixtures.CreateUser(ctx, "Bob", "15551230002")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	fixtures.CreateMembership(ctx, g.ID, member.ID, models.RoleEditor)

	_, err := store.CreateInvitation(ctx, g.ID, admin.ID, member.Phone, models.RoleEditor)
	if apperr.KindOf(err) != apperr.KindConflict {
		t.Fatalf("active member: expected conflict, got %v", err)
	}
}

func TestStore_AcceptByToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	invitee := fixtures.CreateUser(ctx, "Bob", "15551230002")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	inv := fixtures.CreatePendingInvitation(ctx, g.ID, admin.ID, invitee.Phone, models.RoleEditor, models.InviteExpiry)

	accepted, err := store.AcceptByToken(ctx, *inv.Token, invitee.ID)
	if err != nil {
		t.Fatalf("AcceptByToken failed: %v", err)
	}
	if accepted.Status != models.StatusActive {
		t.Errorf("status: got %q, want active", accepted.Status)
	}
	if accepted.UserID == nil || *accepted.UserID != invitee.ID {
		t.Errorf("user: got %v, want %v", accepted.UserID, invitee.ID)
	}
	if accepted.AcceptedAt == nil {
		t.Error("expected AcceptedAt to be set")
	}
	if accepted.Token != nil || accepted.ExpiresAt != nil {
		t.Error("token and expiry must be cleared on acceptance")
	}

	// The same token cannot be used twice.
	if _, err := store.AcceptByToken(ctx, *inv.Token, invitee.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("second accept: expected not found, got %v", err)
	}
}

func TestStore_AcceptByToken_Expired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	invitee := fixtures.CreateUser(ctx, "Bob", "15551230002")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	inv := fixtures.CreatePendingInvitation(ctx, g.ID, admin.ID, invitee.Phone, models.RoleEditor, -time.Hour)

	_, err := store.AcceptByToken(ctx, *inv.Token, invitee.ID)
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("expired invitation: expected bad request, got %v", err)
	}
}

func TestStore_AcceptByToken_Unknown(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	user := fixtures.CreateUser(ctx, "Bob", "15551230002")
	_, err := store.AcceptByToken(ctx, "deadbeef", user.ID)
	if apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("unknown token: expected not found, got %v", err)
	}
}

func TestStore_DeclineByToken_AllowsReinvite(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	inv := fixtures.CreatePendingInvitation(ctx, g.ID, admin.ID, "15551230002", models.RoleEditor, models.InviteExpiry)

	if err := store.DeclineByToken(ctx, *inv.Token); err != nil {
		t.Fatalf("DeclineByToken failed: %v", err)
	}

	declined, err := store.GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if declined.Status != models.StatusDeclined {
		t.Errorf("status: got %q, want declined", declined.Status)
	}

	// Declining frees the (group, phone) slot for a fresh invitation.
	if _, err := store.CreateInvitation(ctx, g.ID, admin.ID, "15551230002", models.RoleEditor); err != nil {
		t.Fatalf("reinvite after decline failed: %v", err)
	}
}

func TestStore_Resend_RotatesToken(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	invitee := fixtures.CreateUser(ctx, "Bob", "15551230002")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	inv := fixtures.CreatePendingInvitation(ctx, g.ID, admin.ID, invitee.Phone, models.RoleEditor, time.Minute)

	resent, err := store.Resend(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Resend failed: %v", err)
	}
	if resent.Token == nil || *resent.Token == *inv.Token {
		t.Error("expected a fresh token")
	}
	if resent.ExpiresAt == nil || !resent.ExpiresAt.After(*inv.ExpiresAt) {
		t.Error("expected the expiry to move forward")
	}

	// The old token stops working.
	if _, err := store.AcceptByToken(ctx, *inv.Token, invitee.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("old token: expected not found, got %v", err)
	}
	if _, err := store.AcceptByToken(ctx, *resent.Token, invitee.ID); err != nil {
		t.Fatalf("new token should accept: %v", err)
	}
}

func TestStore_Cancel(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	inv := fixtures.CreatePendingInvitation(ctx, g.ID, admin.ID, "15551230002", models.RoleEditor, models.InviteExpiry)

	if err := store.Cancel(ctx, inv.ID); err != nil {
		t.Fatalf("Cancel failed: %v", err)
	}

	// Cancel lands in the same state as a decline: the row stays for audit
	// with its token and expiry gone.
	got, err := store.GetByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.StatusDeclined {
		t.Errorf("status: got %q, want declined", got.Status)
	}
	if got.Token != nil || got.ExpiresAt != nil {
		t.Error("cancelled invitation must not keep its token or expiry")
	}

	// The (group, phone) slot frees up for a fresh invitation.
	if _, err := store.CreateInvitation(ctx, g.ID, admin.ID, "15551230002", models.RoleEditor); err != nil {
		t.Fatalf("reinvite after cancel failed: %v", err)
	}

	// Only pending invitations can be cancelled.
	member := fixtures.CreateUser(ctx, "Bob", "15551230003")
	m := fixtures.CreateMembership(ctx, g.ID, member.ID, models.RoleEditor)
	if err := store.Cancel(ctx, m.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("active membership: expected not found, got %v", err)
	}
}

func TestStore_UpdateRole_LastAdminGuard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	only := fixtures.CreateMembership(ctx, g.ID, admin.ID, models.RoleAdmin)

	err := store.UpdateRole(ctx, only.ID, models.RoleEditor)
	if apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("demoting the only admin: expected bad request, got %v", err)
	}

	// With a second admin the demotion goes through.
	second := fixtures.CreateUser(ctx, "Bob", "15551230002")
	fixtures.CreateMembership(ctx, g.ID, second.ID, models.RoleAdmin)

	if err := store.UpdateRole(ctx, only.ID, models.RoleEditor); err != nil {
		t.Fatalf("UpdateRole failed with a second admin present: %v", err)
	}
	got, err := store.GetByID(ctx, only.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Role != models.RoleEditor {
		t.Errorf("role: got %q, want editor", got.Role)
	}
}

// transactionsSupported reports whether the deployment runs multi-document
// transactions; standalone servers do not, and the concurrency tests skip
// there because the guard falls back to a plain (unserialized) run.
func transactionsSupported(ctx context.Context, db *mongo.Database) bool {
	sess, err := db.Client().StartSession()
	if err != nil {
		return false
	}
	defer sess.EndSession(ctx)
	_, err = sess.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		err := db.Collection("memberships").FindOne(sc, bson.M{"_id": primitive.NilObjectID}).Err()
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	})
	return err == nil
}

func TestStore_UpdateRole_ConcurrentDemotions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	if !transactionsSupported(ctx, db) {
		t.Skip("deployment does not support transactions")
	}

	alice := fixtures.CreateUser(ctx, "Alice", "15551230001")
	bob := fixtures.CreateUser(ctx, "Bob", "15551230002")
	g := fixtures.CreateGroup(ctx, "Family", alice.ID)
	ma := fixtures.CreateMembership(ctx, g.ID, alice.ID, models.RoleAdmin)
	mb := fixtures.CreateMembership(ctx, g.ID, bob.ID, models.RoleAdmin)

	// Each demotion alone would pass the guard; running both at once must
	// never leave the group without an admin.
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []primitive.ObjectID{ma.ID, mb.ID} {
		wg.Add(1)
		go func(i int, id primitive.ObjectID) {
			defer wg.Done()
			errs[i] = store.UpdateRole(ctx, id, models.RoleEditor)
		}(i, id)
	}
	wg.Wait()

	if errs[0] == nil && errs[1] == nil {
		t.Fatal("both concurrent demotions succeeded")
	}
	n, err := store.CountActiveAdmins(ctx, g.ID)
	if err != nil {
		t.Fatalf("CountActiveAdmins failed: %v", err)
	}
	if n < 1 {
		t.Fatalf("active admins after concurrent demotions: got %d, want at least 1", n)
	}
}

func TestStore_Remove_LastAdminGuard(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	only := fixtures.CreateMembership(ctx, g.ID, admin.ID, models.RoleAdmin)

	if err := store.Remove(ctx, only.ID); apperr.KindOf(err) != apperr.KindBadRequest {
		t.Fatalf("removing the only admin: expected bad request, got %v", err)
	}

	member := fixtures.CreateUser(ctx, "Bob", "15551230002")
	m := fixtures.CreateMembership(ctx, g.ID, member.ID, models.RoleContributor)

	if err := store.Remove(ctx, m.ID); err != nil {
		t.Fatalf("Remove failed: %v", err)
	}
	got, err := store.GetByID(ctx, m.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.StatusRemoved {
		t.Errorf("status: got %q, want removed", got.Status)
	}

	// Removed members no longer hold the active slot; the user can rejoin.
	if _, err := store.ActiveMembership(ctx, g.ID, member.ID); apperr.KindOf(err) != apperr.KindNotFound {
		t.Fatalf("removed member should have no active membership, got %v", err)
	}
}

func TestStore_CleanupExpired(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	expired := fixtures.CreatePendingInvitation(ctx, g.ID, admin.ID, "15551230002", models.RoleEditor, -time.Hour)
	fresh := fixtures.CreatePendingInvitation(ctx, g.ID, admin.ID, "15551230003", models.RoleEditor, models.InviteExpiry)

	n, err := store.CleanupExpired(ctx, time.Now().UTC())
	if err != nil {
		t.Fatalf("CleanupExpired failed: %v", err)
	}
	if n != 1 {
		t.Fatalf("expected 1 swept invitation, got %d", n)
	}

	got, err := store.GetByID(ctx, expired.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if got.Status != models.StatusDeclined {
		t.Errorf("swept status: got %q, want declined", got.Status)
	}
	if got.Token != nil {
		t.Error("swept invitation must not keep its token")
	}

	kept, err := store.GetByID(ctx, fresh.ID)
	if err != nil {
		t.Fatalf("GetByID failed: %v", err)
	}
	if kept.Status != models.StatusPending {
		t.Errorf("fresh invitation status: got %q, want pending", kept.Status)
	}
}

func TestStore_CountActiveAdmins(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := membershipstore.New(db, zap.NewNop())
	fixtures := testutil.NewFixtures(t, db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	editor := fixtures.CreateUser(ctx, "Bob", "15551230002")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	fixtures.CreateMembership(ctx, g.ID, admin.ID, models.RoleAdmin)
	fixtures.CreateMembership(ctx, g.ID, editor.ID, models.RoleEditor)

	n, err := store.CountActiveAdmins(ctx, g.ID)
	if err != nil {
		t.Fatalf("CountActiveAdmins failed: %v", err)
	}
	if n != 1 {
		t.Errorf("admins: got %d, want 1", n)
	}
}
