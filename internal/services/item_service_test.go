package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/expirycare/expirycare/internal/expiry"
	"github.com/expirycare/expirycare/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeItemRepo struct {
	items   []models.LifeItem
	count   int64
	created *models.LifeItem
	updated *models.LifeItem
}

func (f *fakeItemRepo) CreateItem(ctx context.Context, item *models.LifeItem) (*models.LifeItem, error) {
	item.ID = primitive.NewObjectID()
	f.created = item
	return item, nil
}

func (f *fakeItemRepo) GetItemByID(ctx context.Context, id primitive.ObjectID) (*models.LifeItem, error) {
	for i := range f.items {
		if f.items[i].ID == id {
			return &f.items[i], nil
		}
	}
	return nil, fmt.Errorf("not found")
}

func (f *fakeItemRepo) UpdateItem(ctx context.Context, id primitive.ObjectID, item *models.LifeItem) (*models.LifeItem, error) {
	f.updated = item
	return item, nil
}

func (f *fakeItemRepo) DeleteItem(ctx context.Context, id primitive.ObjectID) error { return nil }

func (f *fakeItemRepo) GetItems(ctx context.Context, userID primitive.ObjectID, category string) ([]models.LifeItem, error) {
	return f.items, nil
}

func (f *fakeItemRepo) CountItemsByUser(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return f.count, nil
}

type fakeUserGetter struct {
	user models.User
}

func (f *fakeUserGetter) GetUserByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return &f.user, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func validItem() *models.LifeItem {
	return &models.LifeItem{
		Title:           "TV warranty",
		Category:        "warranty",
		ExpiryDate:      date(2025, time.March, 1),
		ReminderOffsets: []int{30, 7},
	}
}

func TestCreateItemEnforcesFreePlanLimit(t *testing.T) {
	repo := &fakeItemRepo{count: models.FreePlanItemLimit}
	svc := NewItemService(repo, &fakeUserGetter{user: models.User{Plan: models.PlanFree}})

	_, err := svc.CreateItem(context.Background(), primitive.NewObjectID(), validItem())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "free plan limit")
	assert.Nil(t, repo.created)
}

func TestCreateItemPlusPlanIgnoresLimit(t *testing.T) {
	repo := &fakeItemRepo{count: 1000}
	svc := NewItemService(repo, &fakeUserGetter{user: models.User{Plan: models.PlanPlus}})

	created, err := svc.CreateItem(context.Background(), primitive.NewObjectID(), validItem())
	require.NoError(t, err)
	assert.False(t, created.FirstReminderSent)
	assert.False(t, created.LastDayReminderSent)
}

func TestCreateItemValidation(t *testing.T) {
	svc := NewItemService(&fakeItemRepo{}, &fakeUserGetter{user: models.User{Plan: models.PlanFree}})
	userID := primitive.NewObjectID()

	missingTitle := validItem()
	missingTitle.Title = ""
	_, err := svc.CreateItem(context.Background(), userID, missingTitle)
	assert.Error(t, err)

	badCategory := validItem()
	badCategory.Category = "vehicle"
	_, err = svc.CreateItem(context.Background(), userID, badCategory)
	assert.Error(t, err)

	negativeOffset := validItem()
	negativeOffset.ReminderOffsets = []int{30, -1}
	_, err = svc.CreateItem(context.Background(), userID, negativeOffset)
	assert.Error(t, err)

	noCategory := validItem()
	noCategory.Category = ""
	created, err := svc.CreateItem(context.Background(), userID, noCategory)
	require.NoError(t, err)
	assert.Equal(t, "other", created.Category)
}

func TestUpdateItemPreservesSentFlags(t *testing.T) {
	owner := primitive.NewObjectID()
	existing := *validItem()
	existing.ID = primitive.NewObjectID()
	existing.UserID = owner
	existing.FirstReminderSent = true

	repo := &fakeItemRepo{items: []models.LifeItem{existing}}
	svc := NewItemService(repo, &fakeUserGetter{})

	edit := validItem()
	edit.Title = "TV extended warranty"
	edit.FirstReminderSent = false // user input must not reset the flag

	updated, err := svc.UpdateItem(context.Background(), existing.ID.Hex(), edit)
	require.NoError(t, err)
	assert.True(t, updated.FirstReminderSent)
	assert.Equal(t, owner, updated.UserID)
}

func TestSummarizeBucketsItems(t *testing.T) {
	today := date(2024, time.June, 15)
	repo := &fakeItemRepo{items: []models.LifeItem{
		{Title: "old", ExpiryDate: date(2024, time.June, 1)},
		{Title: "today", ExpiryDate: date(2024, time.June, 15)},
		{Title: "soon", ExpiryDate: date(2024, time.July, 1)},
		{Title: "far", ExpiryDate: date(2024, time.August, 1)},
	}}
	svc := NewItemService(repo, &fakeUserGetter{})

	summary, err := svc.Summarize(context.Background(), primitive.NewObjectID(), today)
	require.NoError(t, err)

	assert.Len(t, summary.Expired, 2)
	assert.Len(t, summary.ExpiringSoon, 1)
	assert.Len(t, summary.Active, 1)
	assert.Equal(t, expiry.StatusExpiringSoon, summary.ExpiringSoon[0].Status)
	assert.Equal(t, 16, summary.ExpiringSoon[0].DaysUntil)
}

func TestParseExtractedFields(t *testing.T) {
	reply := "```json\n{\"title\":\"Dolo 650\",\"category\":\"Medicine\",\"expiry_date\":\"2025-03-01\",\"person_name\":\"\"}\n```"

	fields, err := parseExtractedFields(reply)
	require.NoError(t, err)
	assert.Equal(t, "Dolo 650", fields.Title)
	assert.Equal(t, "medicine", fields.Category)
	assert.Equal(t, "2025-03-01", fields.ExpiryDate)
	assert.True(t, fields.DateIsValid)

	fields, err = parseExtractedFields(`{"title":"X","category":"spaceship","expiry_date":"soon"}`)
	require.NoError(t, err)
	assert.Equal(t, "other", fields.Category)
	assert.False(t, fields.DateIsValid)

	_, err = parseExtractedFields("sorry, I cannot help with that")
	assert.Error(t, err)
}
