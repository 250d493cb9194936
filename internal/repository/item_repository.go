package repository

import (
	"context"
	"time"

	"github.com/expirycare/expirycare/internal/models"
	"github.com/expirycare/expirycare/pkg/logger"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// ItemRepository handles database operations related to life items.
type ItemRepository struct {
	collection *mongo.Collection
}

// NewItemRepository creates a new instance of ItemRepository.
func NewItemRepository(db *mongo.Database) *ItemRepository {
	return &ItemRepository{
		collection: db.Collection("life_items"),
	}
}

// CreateItem inserts a new life item.
func (r *ItemRepository) CreateItem(ctx context.Context, item *models.LifeItem) (*models.LifeItem, error) {
	item.CreatedAt = time.Now()
	item.UpdatedAt = time.Now()

	result, err := r.collection.InsertOne(ctx, item)
	if err != nil {
		logger.Log.WithError(err).Error("Failed to insert item")
		return nil, err
	}

	insertedID, ok := result.InsertedID.(primitive.ObjectID)
	if !ok {
		logger.Log.Error("Failed to cast inserted ID")
		return nil, err
	}
	item.ID = insertedID

	logger.Log.WithField("item_id", item.ID.Hex()).Info("Item created successfully")
	return item, nil
}

// GetItemByID fetches a life item by its ID.
func (r *ItemRepository) GetItemByID(ctx context.Context, id primitive.ObjectID) (*models.LifeItem, error) {
	var item models.LifeItem

	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&item)
	if err != nil {
		logger.Log.WithError(err).WithField("item_id", id.Hex()).Error("Failed to find item by ID")
		return nil, err
	}

	return &item, nil
}

// UpdateItem updates an existing life item.
func (r *ItemRepository) UpdateItem(ctx context.Context, id primitive.ObjectID, item *models.LifeItem) (*models.LifeItem, error) {
	item.UpdatedAt = time.Now()

	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id},
		bson.M{"$set": item},
	)
	if err != nil {
		logger.Log.WithError(err).WithField("item_id", id.Hex()).Error("Failed to update item")
		return nil, err
	}

	logger.Log.WithField("item_id", id.Hex()).Info("Item updated successfully")
	return item, nil
}

// DeleteItem deletes a life item by its ID.
func (r *ItemRepository) DeleteItem(ctx context.Context, id primitive.ObjectID) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		logger.Log.WithError(err).WithField("item_id", id.Hex()).Error("Failed to delete item")
		return err
	}

	logger.Log.WithField("item_id", id.Hex()).Info("Item deleted successfully")
	return nil
}

// GetItems fetches a user's items with an optional category filter.
func (r *ItemRepository) GetItems(ctx context.Context, userID primitive.ObjectID, category string) ([]models.LifeItem, error) {
	var items []models.LifeItem

	filter := bson.M{"user_id": userID}
	if category != "" {
		filter["category"] = category
	}

	cursor, err := r.collection.Find(ctx, filter)
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to fetch items")
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var item models.LifeItem
		if err := cursor.Decode(&item); err != nil {
			logger.Log.WithError(err).Error("Failed to decode item")
			return nil, err
		}
		items = append(items, item)
	}

	return items, nil
}

// CountItemsByUser returns how many items a user currently has.
// Used for plan limit enforcement.
func (r *ItemRepository) CountItemsByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"user_id": userID})
	if err != nil {
		logger.Log.WithError(err).WithField("user_id", userID.Hex()).Error("Failed to count items")
		return 0, err
	}
	return count, nil
}

// GetItemsExpiringInWindow fetches items across all users whose expiry
// date falls between from and to. A zero to means unbounded future.
func (r *ItemRepository) GetItemsExpiringInWindow(ctx context.Context, from, to time.Time) ([]models.LifeItem, error) {
	var items []models.LifeItem

	dateFilter := bson.M{"$gte": from}
	if !to.IsZero() {
		dateFilter["$lte"] = to
	}

	cursor, err := r.collection.Find(ctx, bson.M{"expiry_date": dateFilter})
	if err != nil {
		logger.Log.WithError(err).Error("Failed to fetch items in expiry window")
		return nil, err
	}
	defer cursor.Close(ctx)

	for cursor.Next(ctx) {
		var item models.LifeItem
		if err := cursor.Decode(&item); err != nil {
			logger.Log.WithError(err).Error("Failed to decode item in expiry window")
			return nil, err
		}
		items = append(items, item)
	}

	logger.Log.WithField("count", len(items)).Info("Fetched items in expiry window")
	return items, nil
}

// MarkFirstReminderSent flips the first-reminder flag. The filter demands
// the flag still be false, so two overlapping batch runs cannot both
// claim the same reminder at the storage layer.
func (r *ItemRepository) MarkFirstReminderSent(ctx context.Context, id primitive.ObjectID) error {
	return r.markReminderSent(ctx, id, "first_reminder_sent")
}

// MarkLastDayReminderSent flips the last-day flag, same conditional rule.
func (r *ItemRepository) MarkLastDayReminderSent(ctx context.Context, id primitive.ObjectID) error {
	return r.markReminderSent(ctx, id, "last_day_reminder_sent")
}

func (r *ItemRepository) markReminderSent(ctx context.Context, id primitive.ObjectID, field string) error {
	_, err := r.collection.UpdateOne(
		ctx,
		bson.M{"_id": id, field: false},
		bson.M{"$set": bson.M{field: true, "updated_at": time.Now()}},
	)
	if err != nil {
		logger.Log.WithError(err).WithFields(map[string]interface{}{
			"item_id": id.Hex(),
			"field":   field,
		}).Error("Failed to mark reminder sent")
		return err
	}
	return nil
}
