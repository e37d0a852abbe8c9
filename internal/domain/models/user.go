// internal/domain/models/user.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// User is the identity record this core references by id. Account
// verification, profiles, and credentials belong to the identity service;
// this core only reads id, display name, and phone, and creates the bare
// record during onboarding.
type User struct {
	ID          primitive.ObjectID `bson:"_id" json:"id"`
	DisplayName string             `bson:"display_name" json:"display_name"`
	Phone       string             `bson:"phone" json:"phone"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}
