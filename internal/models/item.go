package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// LifeItem represents a single trackable expiring thing: a warranty,
// an insurance policy, a medicine strip, a subscription and so on.
type LifeItem struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID     primitive.ObjectID `bson:"user_id" json:"user_id"`
	Title      string             `bson:"title" json:"title"`
	Category   string             `bson:"category" json:"category"`
	PersonName string             `bson:"person_name,omitempty" json:"person_name,omitempty"` // Family member the item belongs to, if any
	ExpiryDate time.Time          `bson:"expiry_date" json:"expiry_date"`

	// Days before expiry on which reminders should fire. The largest
	// value is the "first" reminder; the day before expiry is always
	// the "last day" reminder. An item with no offsets is never scheduled.
	ReminderOffsets []int `bson:"reminder_offsets" json:"reminder_offsets"`

	// Idempotency flags owned by the reminder batch runner. Once true
	// they are never reset; there is no resend path.
	FirstReminderSent   bool `bson:"first_reminder_sent" json:"first_reminder_sent"`
	LastDayReminderSent bool `bson:"last_day_reminder_sent" json:"last_day_reminder_sent"`

	Notes       string    `bson:"notes,omitempty" json:"notes,omitempty"`
	DocumentRef string    `bson:"document_ref,omitempty" json:"document_ref,omitempty"` // Storage path of the uploaded document
	CreatedAt   time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at" json:"updated_at"`
}

// AllowedCategories is the closed set of item categories.
var AllowedCategories = map[string]struct{}{
	"warranty":     {},
	"insurance":    {},
	"amc":          {},
	"medicine":     {},
	"subscription": {},
	"other":        {},
}
