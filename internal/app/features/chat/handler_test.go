package chat_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/evanshaw/homebasket/internal/app/features/chat"
	"github.com/evanshaw/homebasket/internal/domain/models"
	"github.com/evanshaw/homebasket/internal/testutil"
)

const testAgentKey = "test-agent-key"

func newTestHandler(t *testing.T) (*chat.Handler, *testutil.Fixtures) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	handler := chat.NewHandler(db, zap.NewNop(), testAgentKey)
	fixtures := testutil.NewFixtures(t, db)
	return handler, fixtures
}

func serve(handler *chat.Handler, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	chat.Routes(handler).ServeHTTP(rec, req)
	return rec
}

func agentRequest(t *testing.T, method, target string, body any) *http.Request {
	t.Helper()
	var req *http.Request
	if body != nil {
		req = testutil.NewJSONRequest(t, method, target, body)
	} else {
		req = testutil.NewRequest(method, target)
	}
	req.Header.Set(chat.AgentKeyHeader, testAgentKey)
	return req
}

func TestRequireAgentKey(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := testutil.NewRequest("GET", "/context?phone=15551230001")
	rec := serve(handler, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("missing key: expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}

	req = testutil.NewRequest("GET", "/context?phone=15551230001")
	req.Header.Set(chat.AgentKeyHeader, "wrong")
	rec = serve(handler, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("wrong key: expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestRequireAgentKey_UnconfiguredRejectsAll(t *testing.T) {
	db := testutil.SetupTestDB(t)
	handler := chat.NewHandler(db, zap.NewNop(), "")

	req := testutil.NewRequest("GET", "/context?phone=15551230001")
	req.Header.Set(chat.AgentKeyHeader, "")
	rec := serve(handler, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rec.Code)
	}
}

func TestHandleUserContext(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", u.ID)
	fixtures.CreateMembership(ctx, g.ID, u.ID, models.RoleEditor)
	l := fixtures.CreateList(ctx, g.ID, u.ID, "Default List", true)

	req := agentRequest(t, "GET", "/context?phone="+u.Phone, nil)
	rec := serve(handler, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var out struct {
		User   models.User `json:"user"`
		Groups []struct {
			GroupID       string                `json:"group_id"`
			Name          string                `json:"name"`
			Role          models.MembershipRole `json:"role"`
			DefaultListID string                `json:"default_list_id"`
		} `json:"groups"`
	}
	testutil.DecodeJSON(t, rec, &out)
	if out.User.ID != u.ID {
		t.Errorf("user id: got %s, want %s", out.User.ID.Hex(), u.ID.Hex())
	}
	if len(out.Groups) != 1 {
		t.Fatalf("groups: got %d, want 1", len(out.Groups))
	}
	if out.Groups[0].Role != models.RoleEditor {
		t.Errorf("role: got %q, want %q", out.Groups[0].Role, models.RoleEditor)
	}
	if out.Groups[0].DefaultListID != l.ID.Hex() {
		t.Errorf("default_list_id: got %q, want %q", out.Groups[0].DefaultListID, l.ID.Hex())
	}
}

func TestHandleUserContext_UnknownPhone(t *testing.T) {
	handler, _ := newTestHandler(t)

	req := agentRequest(t, "GET", "/context?phone=15559990000", nil)
	rec := serve(handler, req)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d: %s", http.StatusNotFound, rec.Code, rec.Body.String())
	}
}

func TestHandleAddItems(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", u.ID)
	fixtures.CreateMembership(ctx, g.ID, u.ID, models.RoleContributor)
	l := fixtures.CreateList(ctx, g.ID, u.ID, "Default List", true)
	fixtures.AddItem(ctx, l.ID, "Milk", u, 1)

	req := agentRequest(t, "POST", "/lists/"+l.ID.Hex()+"/items", map[string]any{
		"phone": u.Phone,
		"items": []string{"eggs", "milk"},
	})
	rec := serve(handler, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}

	var out struct {
		ItemsAdded   int `json:"items_added"`
		ItemsSkipped int `json:"items_skipped"`
	}
	testutil.DecodeJSON(t, rec, &out)
	if out.ItemsAdded != 1 || out.ItemsSkipped != 1 {
		t.Errorf("added/skipped: got %d/%d, want 1/1", out.ItemsAdded, out.ItemsSkipped)
	}
}

func TestHandleAddItems_UnknownPhoneMasked(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", u.ID)
	l := fixtures.CreateList(ctx, g.ID, u.ID, "Default List", true)

	req := agentRequest(t, "POST", "/lists/"+l.ID.Hex()+"/items", map[string]any{
		"phone": "15559990000",
		"items": []string{"milk"},
	})
	rec := serve(handler, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d: %s", http.StatusForbidden, rec.Code, rec.Body.String())
	}
}

func TestHandleRemoveItems_ContributorForbidden(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	admin := fixtures.CreateUser(ctx, "Alice", "15551230001")
	contrib := fixtures.CreateUser(ctx, "Bob", "15551230002")
	g := fixtures.CreateGroup(ctx, "Family", admin.ID)
	fixtures.CreateMembership(ctx, g.ID, admin.ID, models.RoleAdmin)
	fixtures.CreateMembership(ctx, g.ID, contrib.ID, models.RoleContributor)
	l := fixtures.CreateList(ctx, g.ID, admin.ID, "Default List", true)
	fixtures.AddItem(ctx, l.ID, "Milk", admin, 1)

	req := agentRequest(t, "POST", "/lists/"+l.ID.Hex()+"/items/remove", map[string]any{
		"phone": contrib.Phone,
		"items": []string{"milk"},
	})
	rec := serve(handler, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected status %d, got %d: %s", http.StatusForbidden, rec.Code, rec.Body.String())
	}
}

func TestHandleRemoveItems(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Alice", "15551230001")
	g := fixtures.CreateGroup(ctx, "Family", u.ID)
	fixtures.CreateMembership(ctx, g.ID, u.ID, models.RoleEditor)
	l := fixtures.CreateList(ctx, g.ID, u.ID, "Default List", true)
	fixtures.AddItem(ctx, l.ID, "Milk", u, 1)

	req := agentRequest(t, "POST", "/lists/"+l.ID.Hex()+"/items/remove", map[string]any{
		"phone": u.Phone,
		"items": []string{"MILK"},
	})
	rec := serve(handler, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var out struct {
		ItemsRemoved int `json:"items_removed"`
	}
	testutil.DecodeJSON(t, rec, &out)
	if out.ItemsRemoved != 1 {
		t.Errorf("items_removed: got %d, want 1", out.ItemsRemoved)
	}
}

func TestHandleGetList(t *testing.T) {
	handler, fixtures := newTestHandler(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	u := fixtures.CreateUser(ctx, "Alice", "15551230001")
	outsider := fixtures.CreateUser(ctx, "Mallory", "15551230002")
	g := fixtures.CreateGroup(ctx, "Family", u.ID)
	fixtures.CreateMembership(ctx, g.ID, u.ID, models.RoleContributor)
	l := fixtures.CreateList(ctx, g.ID, u.ID, "Default List", true)
	fixtures.AddItem(ctx, l.ID, "Milk", u, 1)
	fixtures.AddItem(ctx, l.ID, "Eggs", u, 2)

	req := agentRequest(t, "GET", "/lists/"+l.ID.Hex()+"?phone="+u.Phone, nil)
	rec := serve(handler, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rec.Code, rec.Body.String())
	}
	var got models.List
	testutil.DecodeJSON(t, rec, &got)
	if len(got.Items) != 2 {
		t.Errorf("items: got %d, want 2", len(got.Items))
	}

	// A non-member acting through the agent gets Forbidden.
	req = agentRequest(t, "GET", "/lists/"+l.ID.Hex()+"?phone="+outsider.Phone, nil)
	rec = serve(handler, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-member: expected status %d, got %d", http.StatusForbidden, rec.Code)
	}
}
