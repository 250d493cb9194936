package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ReminderSendLog is an append-only record of one reminder email that
// was actually delivered. The authoritative idempotency state lives on
// LifeItem's two sent flags; the log exists for audit and debugging.
type ReminderSendLog struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	ItemID         primitive.ObjectID `bson:"item_id" json:"item_id"`
	UserID         primitive.ObjectID `bson:"user_id" json:"user_id"`
	RecipientEmail string             `bson:"recipient_email" json:"recipient_email"`
	OffsetValue    int                `bson:"offset_value" json:"offset_value"` // Primary offset, or 1 for the last-day reminder
	SentAt         time.Time          `bson:"sent_at" json:"sent_at"`
}
