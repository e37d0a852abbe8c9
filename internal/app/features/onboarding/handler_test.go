package onboarding_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/features/onboarding"
	"github.com/evanshaw/homebasket/internal/app/system/auth"
	"github.com/evanshaw/homebasket/internal/domain/models"
	"github.com/evanshaw/homebasket/internal/testutil"
)

func newTestHandler(t *testing.T) (*onboarding.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	sm, err := auth.NewSessionManager("", "homebasket_test", "", false, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create session manager: %v", err)
	}
	handler := onboarding.NewHandler(db, zap.NewNop(), sm)
	fixtures := testutil.NewFixtures(t, db)
	return handler, fixtures
}

func TestHandleSignup(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	req := testutil.NewJSONRequest(t, "POST", "/signup", map[string]any{
		"display_name": "Alice",
		"phone":        "15551230001",
	})
	rec := httptest.NewRecorder()
	handler.HandleSignup(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status %d, got %d: %s", http.StatusCreated, rec.Code, rec.Body.String())
	}

	var out struct {
		User          models.User  `json:"user"`
		PersonalGroup models.Group `json:"personal_group"`
	}
	testutil.DecodeJSON(t, rec, &out)
	if out.User.DisplayName != "Alice" {
		t.Errorf("display_name: got %q, want %q", out.User.DisplayName, "Alice")
	}
	if !out.PersonalGroup.IsPersonal {
		t.Error("expected the group to be personal")
	}
	if out.PersonalGroup.Settings.AllowInvitations {
		t.Error("personal group must not allow invitations")
	}
	if out.PersonalGroup.CreatorID != out.User.ID {
		t.Errorf("creator: got %s, want %s", out.PersonalGroup.CreatorID.Hex(), out.User.ID.Hex())
	}

	// The session cookie was set by a successful signup.
	if len(rec.Result().Cookies()) == 0 {
		t.Error("expected a session cookie")
	}

	db := fixtures.DB()
	// The personal group skips the membership row but still gets its
	// default list.
	n, err := db.Collection("memberships").CountDocuments(ctx, bson.M{"group_id": out.PersonalGroup.ID})
	if err != nil {
		t.Fatalf("count memberships: %v", err)
	}
	if n != 0 {
		t.Errorf("personal group memberships: got %d, want 0", n)
	}
	n, err = db.Collection("lists").CountDocuments(ctx, bson.M{
		"group_id":   out.PersonalGroup.ID,
		"is_default": true,
	})
	if err != nil {
		t.Fatalf("count lists: %v", err)
	}
	if n != 1 {
		t.Errorf("personal group default lists: got %d, want 1", n)
	}
}

func TestHandleSignup_DuplicatePhone(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	fixtures.CreateUser(ctx, "Alice", "15551230001")

	req := testutil.NewJSONRequest(t, "POST", "/signup", map[string]any{
		"display_name": "Imposter",
		"phone":        "15551230001",
	})
	rec := httptest.NewRecorder()
	handler.HandleSignup(rec, req)

	if rec.Code != http.StatusConflict {
		t.Fatalf("expected status %d, got %d: %s", http.StatusConflict, rec.Code, rec.Body.String())
	}
}

func TestHandleSignup_Validation(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := testutil.NewJSONRequest(t, "POST", "/signup", map[string]any{
		"display_name": "Alice",
		"phone":        "123",
	})
	rec := httptest.NewRecorder()
	handler.HandleSignup(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}
