package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/expirycare/expirycare/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// SendLogRepository handles the append-only reminder send log.
type SendLogRepository struct {
	collection *mongo.Collection
}

// NewSendLogRepository creates a new instance of SendLogRepository.
func NewSendLogRepository(db *mongo.Database) *SendLogRepository {
	return &SendLogRepository{
		collection: db.Collection("reminder_send_logs"),
	}
}

// AppendSendLog inserts one send record. There is no update or delete
// path; the log only grows.
func (r *SendLogRepository) AppendSendLog(ctx context.Context, entry *models.ReminderSendLog) error {
	if entry.SentAt.IsZero() {
		entry.SentAt = time.Now()
	}

	_, err := r.collection.InsertOne(ctx, entry)
	if err != nil {
		logrus.WithError(err).WithField("item_id", entry.ItemID.Hex()).Error("Failed to append send log")
		return fmt.Errorf("failed to append send log: %v", err)
	}
	return nil
}

// GetSendLogsByItem returns the send history for one item, newest first.
func (r *SendLogRepository) GetSendLogsByItem(ctx context.Context, itemID primitive.ObjectID) ([]models.ReminderSendLog, error) {
	findOptions := options.Find().SetSort(bson.M{"sent_at": -1})

	cursor, err := r.collection.Find(ctx, bson.M{"item_id": itemID}, findOptions)
	if err != nil {
		logrus.WithError(err).WithField("item_id", itemID.Hex()).Error("Failed to fetch send logs")
		return nil, fmt.Errorf("failed to fetch send logs: %v", err)
	}
	defer cursor.Close(ctx)

	var logs []models.ReminderSendLog
	for cursor.Next(ctx) {
		var entry models.ReminderSendLog
		if err := cursor.Decode(&entry); err != nil {
			return nil, err
		}
		logs = append(logs, entry)
	}

	return logs, nil
}
