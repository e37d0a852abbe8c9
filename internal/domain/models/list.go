// internal/domain/models/list.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ListSettings carries per-list behavior toggles.
type ListSettings struct {
	AllowItemDeletion       bool `bson:"allow_item_deletion" json:"allow_item_deletion"`
	RequireApprovalForItems bool `bson:"require_approval_for_items" json:"require_approval_for_items"`
}

// Item is a line on a shopping list. Items are embedded in their List and
// never move between lists.
//
// AddedBy is a display-name snapshot taken when the item was added (renaming
// a user does not relabel old items); AddedByID is the stable reference used
// for permission decisions.
type Item struct {
	ID          primitive.ObjectID  `bson:"_id" json:"id"`
	Text        string              `bson:"text" json:"text"`
	TextCI      string              `bson:"text_ci" json:"-"`
	IsCompleted bool                `bson:"is_completed" json:"is_completed"`
	AddedBy     string              `bson:"added_by" json:"added_by"`
	AddedByID   primitive.ObjectID  `bson:"added_by_id" json:"added_by_id"`
	CompletedBy *primitive.ObjectID `bson:"completed_by,omitempty" json:"completed_by,omitempty"`
	CompletedAt *time.Time          `bson:"completed_at,omitempty" json:"completed_at,omitempty"`
	Order       int                 `bson:"order" json:"order"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// List is a shopping list owned by a group.
//
// Within a group at most one list has is_default=true; the lists collection
// carries a partial unique index on (group_id, is_default) and the list store
// flips defaults inside a transaction.
type List struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	Name        string             `bson:"name" json:"name"`
	NameCI      string             `bson:"name_ci" json:"name_ci"`
	Description string             `bson:"description" json:"description"`
	GroupID     primitive.ObjectID `bson:"group_id" json:"group_id"`
	IsDefault   bool               `bson:"is_default" json:"is_default"`
	CreatorID   primitive.ObjectID `bson:"creator_id" json:"creator_id"`
	Settings    ListSettings       `bson:"settings" json:"settings"`
	Items       []Item             `bson:"items" json:"items"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

const (
	// MaxListNameLen bounds list names.
	MaxListNameLen = 100
	// MaxListDescriptionLen bounds list descriptions.
	MaxListDescriptionLen = 500
	// MaxItemTextLen bounds item text.
	MaxItemTextLen = 500

	// DefaultListName is the name given to the list created with a group
	// (and to lazily synthesized default lists).
	DefaultListName = "Default List"
)

// DefaultListSettings are applied when a creation request omits settings.
func DefaultListSettings() ListSettings {
	return ListSettings{
		AllowItemDeletion:       true,
		RequireApprovalForItems: false,
	}
}

// NextItemOrder returns the order value for a new item: max(existing)+1,
// or 1 for an empty list.
func (l *List) NextItemOrder() int {
	max := 0
	for _, it := range l.Items {
		if it.Order > max {
			max = it.Order
		}
	}
	return max + 1
}
