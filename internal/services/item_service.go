package services

import (
	"context"
	"fmt"
	"time"

	"github.com/expirycare/expirycare/internal/expiry"
	"github.com/expirycare/expirycare/internal/models"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ItemRepo is the slice of the item repository the service needs. The
// Mongo-backed repository satisfies it; tests use a fake.
type ItemRepo interface {
	CreateItem(ctx context.Context, item *models.LifeItem) (*models.LifeItem, error)
	GetItemByID(ctx context.Context, id primitive.ObjectID) (*models.LifeItem, error)
	UpdateItem(ctx context.Context, id primitive.ObjectID, item *models.LifeItem) (*models.LifeItem, error)
	DeleteItem(ctx context.Context, id primitive.ObjectID) error
	GetItems(ctx context.Context, userID primitive.ObjectID, category string) ([]models.LifeItem, error)
	CountItemsByUser(ctx context.Context, userID primitive.ObjectID) (int64, error)
}

// UserGetter resolves accounts for plan checks.
type UserGetter interface {
	GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
}

// ItemService encapsulates the business logic for life items.
type ItemService struct {
	repo     ItemRepo
	userRepo UserGetter
}

// NewItemService creates a new instance of ItemService.
func NewItemService(repo ItemRepo, userRepo UserGetter) *ItemService {
	return &ItemService{
		repo:     repo,
		userRepo: userRepo,
	}
}

// CreateItem validates and stores a new item for the given user,
// enforcing the free plan quota.
func (s *ItemService) CreateItem(ctx context.Context, userID primitive.ObjectID, item *models.LifeItem) (*models.LifeItem, error) {
	if err := validateItem(item); err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve user: %v", err)
	}

	if user.Plan != models.PlanPlus {
		count, err := s.repo.CountItemsByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("failed to count items: %v", err)
		}
		if count >= models.FreePlanItemLimit {
			logrus.WithField("userID", userID.Hex()).Warn("Free plan item limit reached")
			return nil, fmt.Errorf("free plan limit of %d items reached, upgrade to add more", models.FreePlanItemLimit)
		}
	}

	item.UserID = userID
	item.FirstReminderSent = false
	item.LastDayReminderSent = false

	return s.repo.CreateItem(ctx, item)
}

// GetItem fetches a single item by its hex ID.
func (s *ItemService) GetItem(ctx context.Context, id string) (*models.LifeItem, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item ID: %v", err)
	}
	return s.repo.GetItemByID(ctx, objID)
}

// GetItems fetches a user's items with an optional category filter.
func (s *ItemService) GetItems(ctx context.Context, userID primitive.ObjectID, category string) ([]models.LifeItem, error) {
	return s.repo.GetItems(ctx, userID, category)
}

// UpdateItem applies user edits to an existing item. Ownership, creation
// time and the reminder sent flags always survive the edit: the flags are
// monotonic and only the batch runner may change them.
func (s *ItemService) UpdateItem(ctx context.Context, id string, updated *models.LifeItem) (*models.LifeItem, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("invalid item ID: %v", err)
	}

	existing, err := s.repo.GetItemByID(ctx, objID)
	if err != nil {
		return nil, err
	}

	if err := validateItem(updated); err != nil {
		return nil, err
	}

	updated.ID = objID
	updated.UserID = existing.UserID
	updated.CreatedAt = existing.CreatedAt
	updated.FirstReminderSent = existing.FirstReminderSent
	updated.LastDayReminderSent = existing.LastDayReminderSent

	return s.repo.UpdateItem(ctx, objID, updated)
}

// DeleteItem removes an item by its hex ID.
func (s *ItemService) DeleteItem(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("invalid item ID: %v", err)
	}
	return s.repo.DeleteItem(ctx, objID)
}

// DashboardSummary buckets a user's items for the dashboard view.
type DashboardSummary struct {
	Expired      []ClassifiedItem `json:"expired"`
	ExpiringSoon []ClassifiedItem `json:"expiring_soon"`
	Active       []ClassifiedItem `json:"active"`
}

// ClassifiedItem is an item together with its bucket and countdown.
type ClassifiedItem struct {
	models.LifeItem
	Status    expiry.Status `json:"status"`
	DaysUntil int           `json:"days_until"`
}

// Summarize classifies every item of a user as of today. Classification
// never fails; a bad date lands in the expired bucket.
func (s *ItemService) Summarize(ctx context.Context, userID primitive.ObjectID, today time.Time) (*DashboardSummary, error) {
	items, err := s.repo.GetItems(ctx, userID, "")
	if err != nil {
		return nil, err
	}

	summary := &DashboardSummary{}
	for _, item := range items {
		c := expiry.Classify(today, item.ExpiryDate)
		ci := ClassifiedItem{LifeItem: item, Status: c.Status, DaysUntil: c.DaysUntil}

		switch c.Status {
		case expiry.StatusExpired:
			summary.Expired = append(summary.Expired, ci)
		case expiry.StatusExpiringSoon:
			summary.ExpiringSoon = append(summary.ExpiringSoon, ci)
		default:
			summary.Active = append(summary.Active, ci)
		}
	}

	return summary, nil
}

func validateItem(item *models.LifeItem) error {
	if item.Title == "" {
		return fmt.Errorf("title is required")
	}
	if item.Category == "" {
		item.Category = "other"
	}
	if _, exists := models.AllowedCategories[item.Category]; !exists {
		return fmt.Errorf("invalid category: %s", item.Category)
	}
	if item.ExpiryDate.IsZero() {
		return fmt.Errorf("expiry date is required")
	}
	for _, off := range item.ReminderOffsets {
		if off < 0 {
			return fmt.Errorf("reminder offsets must be non-negative")
		}
	}
	return nil
}
