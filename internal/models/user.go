package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Plan identifiers and their item quotas. A negative quota means unlimited.
const (
	PlanFree = "free"
	PlanPlus = "plus"

	FreePlanItemLimit = 20
)

// User represents an ExpiryCare account.
type User struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Username       string             `bson:"username" json:"username"`
	Email          string             `bson:"email" json:"email"`
	HashedPassword string             `bson:"hashed_password" json:"-"`
	Role           string             `bson:"role" json:"role"`
	Plan           string             `bson:"plan" json:"plan"`

	// FamilyViewers are additional recipients of every reminder sent
	// for this user's items.
	FamilyViewers []FamilyViewer `bson:"family_viewers,omitempty" json:"family_viewers,omitempty"`

	CreatedAt time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time `bson:"updated_at" json:"updated_at"`
}

// FamilyViewer is a read-only family member who also receives reminders.
type FamilyViewer struct {
	Name  string `bson:"name" json:"name"`
	Email string `bson:"email" json:"email"`
}

type PublicUser struct {
	ID       primitive.ObjectID `json:"id"`
	Username string             `json:"username"`
	Email    string             `json:"email"`
}
