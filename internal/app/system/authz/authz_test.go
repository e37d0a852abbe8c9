package authz

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/evanshaw/homebasket/internal/app/system/auth"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestUserCtx_NoUser(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	id, name, phone, ok := UserCtx(r)
	if ok {
		t.Fatal("expected ok=false without a session user")
	}
	if id != primitive.NilObjectID || name != "" || phone != "" {
		t.Error("expected zero values without a session user")
	}
}

func TestUserCtx_ValidUser(t *testing.T) {
	oid := primitive.NewObjectID()
	r := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/", nil), &auth.SessionUser{
		ID:    oid.Hex(),
		Name:  "Dana",
		Phone: "15552220001",
	})
	id, name, phone, ok := UserCtx(r)
	if !ok {
		t.Fatal("expected ok=true")
	}
	if id != oid {
		t.Errorf("id: got %v, want %v", id, oid)
	}
	if name != "Dana" || phone != "15552220001" {
		t.Errorf("got name=%q phone=%q", name, phone)
	}
}

func TestUserCtx_MalformedID(t *testing.T) {
	r := auth.WithTestUser(httptest.NewRequest(http.MethodGet, "/", nil), &auth.SessionUser{
		ID:   "not-a-hex-objectid",
		Name: "Dana",
	})
	if _, _, _, ok := UserCtx(r); ok {
		t.Fatal("expected ok=false for malformed id")
	}
}
