package testutil

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/dalemusser/waffle/pantry/text"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/evanshaw/homebasket/internal/app/system/normalize"
	"github.com/evanshaw/homebasket/internal/app/system/tokens"
	"github.com/evanshaw/homebasket/internal/domain/models"
)

// WithChiURLParam adds a chi URL parameter to the request context.
// Use this in handler tests that need to access chi.URLParam values.
// Calls accumulate: an existing route context keeps its earlier params.
func WithChiURLParam(r *http.Request, key, value string) *http.Request {
	rctx, ok := r.Context().Value(chi.RouteCtxKey).(*chi.Context)
	if !ok {
		rctx = chi.NewRouteContext()
	}
	rctx.URLParams.Add(key, value)
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// Fixtures provides helper methods for creating test data.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateUser creates a test user with the given display name and phone.
func (f *Fixtures) CreateUser(ctx context.Context, name, phone string) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	u := models.User{
		ID:          primitive.NewObjectID(),
		DisplayName: name,
		Phone:       normalize.Phone(phone),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if _, err := f.db.Collection("users").InsertOne(ctx, u); err != nil {
		f.t.Fatalf("failed to create test user: %v", err)
	}
	return u
}

// CreateGroup creates a bare group document (no membership, no list).
// Use the group store's CreateWithDefaults when the test needs the full
// creation semantics.
func (f *Fixtures) CreateGroup(ctx context.Context, name string, creatorID primitive.ObjectID) models.Group {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Group{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		CreatorID: creatorID,
		OwnerID:   creatorID,
		Settings:  models.DefaultGroupSettings(),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("groups").InsertOne(ctx, g); err != nil {
		f.t.Fatalf("failed to create test group: %v", err)
	}
	return g
}

// CreateMembership creates an active membership linking a user to a group.
func (f *Fixtures) CreateMembership(ctx context.Context, groupID, userID primitive.ObjectID, role models.MembershipRole) models.Membership {
	f.t.Helper()

	now := time.Now().UTC()
	m := models.Membership{
		ID:         primitive.NewObjectID(),
		GroupID:    groupID,
		UserID:     &userID,
		InvitedBy:  userID,
		Status:     models.StatusActive,
		Role:       role,
		AcceptedAt: &now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if _, err := f.db.Collection("memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test membership: %v", err)
	}
	return m
}

// CreatePendingInvitation creates a pending invitation with a fresh token
// expiring expiresIn from now (negative values produce an already expired
// invitation).
func (f *Fixtures) CreatePendingInvitation(ctx context.Context, groupID, inviterID primitive.ObjectID, phone string, role models.MembershipRole, expiresIn time.Duration) models.Membership {
	f.t.Helper()

	token, err := tokens.NewInviteToken()
	if err != nil {
		f.t.Fatalf("failed to generate invite token: %v", err)
	}
	now := time.Now().UTC()
	expires := now.Add(expiresIn)
	m := models.Membership{
		ID:           primitive.NewObjectID(),
		GroupID:      groupID,
		InviteePhone: normalize.Phone(phone),
		InvitedBy:    inviterID,
		Status:       models.StatusPending,
		Role:         role,
		Token:        &token,
		ExpiresAt:    &expires,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := f.db.Collection("memberships").InsertOne(ctx, m); err != nil {
		f.t.Fatalf("failed to create test invitation: %v", err)
	}
	return m
}

// CreateList creates a list for a group.
func (f *Fixtures) CreateList(ctx context.Context, groupID, creatorID primitive.ObjectID, name string, isDefault bool) models.List {
	f.t.Helper()

	now := time.Now().UTC()
	l := models.List{
		ID:        primitive.NewObjectID(),
		Name:      name,
		NameCI:    text.Fold(name),
		GroupID:   groupID,
		IsDefault: isDefault,
		CreatorID: creatorID,
		Settings:  models.DefaultListSettings(),
		Items:     []models.Item{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := f.db.Collection("lists").InsertOne(ctx, l); err != nil {
		f.t.Fatalf("failed to create test list: %v", err)
	}
	return l
}

// AddItem appends an item directly to a list document.
func (f *Fixtures) AddItem(ctx context.Context, listID primitive.ObjectID, itemText string, addedBy models.User, order int) models.Item {
	f.t.Helper()

	now := time.Now().UTC()
	it := models.Item{
		ID:        primitive.NewObjectID(),
		Text:      itemText,
		TextCI:    normalize.ItemKey(itemText),
		AddedBy:   addedBy.DisplayName,
		AddedByID: addedBy.ID,
		Order:     order,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := f.db.Collection("lists").UpdateByID(ctx, listID, bson.M{
		"$push": bson.M{"items": it},
	})
	if err != nil {
		f.t.Fatalf("failed to add test item: %v", err)
	}
	return it
}
