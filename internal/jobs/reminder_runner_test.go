package jobs

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/expirycare/expirycare/internal/metrics"
	"github.com/expirycare/expirycare/internal/models"
	"github.com/jmhodges/clock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeItemStore struct {
	items       []models.LifeItem
	scanErr     error
	markErr     error
	firstMarked map[primitive.ObjectID]int
	lastMarked  map[primitive.ObjectID]int
}

func (f *fakeItemStore) GetItemsExpiringInWindow(ctx context.Context, from, to time.Time) ([]models.LifeItem, error) {
	if f.scanErr != nil {
		return nil, f.scanErr
	}
	return f.items, nil
}

func (f *fakeItemStore) MarkFirstReminderSent(ctx context.Context, id primitive.ObjectID) error {
	if f.markErr != nil {
		return f.markErr
	}
	if f.firstMarked == nil {
		f.firstMarked = make(map[primitive.ObjectID]int)
	}
	f.firstMarked[id]++
	return nil
}

func (f *fakeItemStore) MarkLastDayReminderSent(ctx context.Context, id primitive.ObjectID) error {
	if f.markErr != nil {
		return f.markErr
	}
	if f.lastMarked == nil {
		f.lastMarked = make(map[primitive.ObjectID]int)
	}
	f.lastMarked[id]++
	return nil
}

type fakeDirectory struct {
	users []models.User
	err   error
}

func (f *fakeDirectory) GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users, nil
}

type fakeSendLog struct {
	entries []*models.ReminderSendLog
	err     error
}

func (f *fakeSendLog) AppendSendLog(ctx context.Context, entry *models.ReminderSendLog) error {
	if f.err != nil {
		return f.err
	}
	f.entries = append(f.entries, entry)
	return nil
}

type fakeSender struct {
	sent   []string // recipient addresses in send order
	failTo map[string]bool
}

func (f *fakeSender) Send(to, subject, htmlBody, textBody string) error {
	if f.failTo[to] {
		return fmt.Errorf("smtp unavailable")
	}
	f.sent = append(f.sent, to)
	return nil
}

func fixedClock(t *testing.T, today time.Time) clock.Clock {
	t.Helper()
	fc := clock.NewFake()
	fc.Set(today)
	return fc
}

func newRunner(t *testing.T, items *fakeItemStore, dir *fakeDirectory, logs *fakeSendLog, sender *fakeSender, today time.Time) *ReminderRunner {
	t.Helper()
	m := metrics.NewReminderMetrics(prometheus.NewRegistry())
	return NewReminderRunner(items, dir, logs, sender, m, fixedClock(t, today))
}

func newUser(email string, viewers ...string) models.User {
	u := models.User{ID: primitive.NewObjectID(), Email: email, Plan: models.PlanFree}
	for _, v := range viewers {
		u.FamilyViewers = append(u.FamilyViewers, models.FamilyViewer{Name: v, Email: v})
	}
	return u
}

func newDueItem(owner models.User, expiry time.Time, offsets []int) models.LifeItem {
	return models.LifeItem{
		ID:              primitive.NewObjectID(),
		UserID:          owner.ID,
		Title:           "Router warranty",
		Category:        "warranty",
		ExpiryDate:      expiry,
		ReminderOffsets: offsets,
	}
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestRunBatchFansOutToFamilyViewers(t *testing.T) {
	today := date(2024, time.June, 1)
	owner := newUser("owner@example.com", "mom@example.com", "dad@example.com")
	item := newDueItem(owner, date(2024, time.July, 1), []int{30})

	items := &fakeItemStore{items: []models.LifeItem{item}}
	logs := &fakeSendLog{}
	sender := &fakeSender{}
	runner := newRunner(t, items, &fakeDirectory{users: []models.User{owner}}, logs, sender, today)

	summary := runner.RunBatch(context.Background())

	assert.Equal(t, 1, summary.ItemsScanned)
	assert.Equal(t, 1, summary.RemindersFound)
	assert.Equal(t, 3, summary.RemindersSent)
	assert.Empty(t, summary.Errors)

	// Every recipient got an independent send, owner first.
	assert.Equal(t, []string{"owner@example.com", "mom@example.com", "dad@example.com"}, sender.sent)

	// One send-log row per recipient, but the flag update happens once.
	require.Len(t, logs.entries, 3)
	assert.Equal(t, 1, items.firstMarked[item.ID])
	assert.Empty(t, items.lastMarked)
	assert.Equal(t, 30, logs.entries[0].OffsetValue)
}

func TestRunBatchPartialSendFailureLeavesFlagsForRetry(t *testing.T) {
	today := date(2024, time.June, 1)
	expiry := date(2024, time.July, 1)

	var users []models.User
	var lifeItems []models.LifeItem
	for i := 0; i < 5; i++ {
		u := newUser(fmt.Sprintf("user%d@example.com", i))
		users = append(users, u)
		lifeItems = append(lifeItems, newDueItem(u, expiry, []int{30}))
	}

	items := &fakeItemStore{items: lifeItems}
	sender := &fakeSender{failTo: map[string]bool{
		"user1@example.com": true,
		"user3@example.com": true,
	}}
	runner := newRunner(t, items, &fakeDirectory{users: users}, &fakeSendLog{}, sender, today)

	summary := runner.RunBatch(context.Background())

	assert.Equal(t, 5, summary.RemindersFound)
	assert.Equal(t, 3, summary.RemindersSent)
	assert.Len(t, summary.Errors, 2)

	// Failed items keep their flags unset so the next run retries them.
	assert.Len(t, items.firstMarked, 3)
	assert.NotContains(t, items.firstMarked, lifeItems[1].ID)
	assert.NotContains(t, items.firstMarked, lifeItems[3].ID)
}

func TestRunBatchItemScanFailureIsFatal(t *testing.T) {
	items := &fakeItemStore{scanErr: fmt.Errorf("connection refused")}
	runner := newRunner(t, items, &fakeDirectory{}, &fakeSendLog{}, &fakeSender{}, date(2024, time.June, 1))

	summary := runner.RunBatch(context.Background())

	assert.True(t, summary.Fatal)
	assert.Zero(t, summary.RemindersSent)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "failed to load candidate items")
}

func TestRunBatchDirectoryFailureIsFatal(t *testing.T) {
	today := date(2024, time.June, 1)
	owner := newUser("owner@example.com")
	item := newDueItem(owner, date(2024, time.July, 1), []int{30})

	items := &fakeItemStore{items: []models.LifeItem{item}}
	sender := &fakeSender{}
	runner := newRunner(t, items, &fakeDirectory{err: fmt.Errorf("directory down")}, &fakeSendLog{}, sender, today)

	summary := runner.RunBatch(context.Background())

	assert.True(t, summary.Fatal)
	assert.Zero(t, summary.RemindersSent)
	assert.Empty(t, sender.sent)
	assert.Empty(t, items.firstMarked)
}

func TestRunBatchNothingDue(t *testing.T) {
	today := date(2024, time.June, 15) // neither trigger day
	owner := newUser("owner@example.com")
	item := newDueItem(owner, date(2024, time.July, 1), []int{30})

	sent := newDueItem(owner, date(2024, time.June, 16), []int{15})
	sent.FirstReminderSent = true // already handled on earlier runs
	sent.LastDayReminderSent = true

	items := &fakeItemStore{items: []models.LifeItem{item, sent}}
	sender := &fakeSender{}
	runner := newRunner(t, items, &fakeDirectory{users: []models.User{owner}}, &fakeSendLog{}, sender, today)

	summary := runner.RunBatch(context.Background())

	assert.Equal(t, 2, summary.ItemsScanned)
	assert.Zero(t, summary.RemindersFound)
	assert.Zero(t, summary.RemindersSent)
	assert.Empty(t, sender.sent)
}

func TestRunBatchFlagUpdateFailureIsWarningOnly(t *testing.T) {
	today := date(2024, time.June, 1)
	owner := newUser("owner@example.com")
	item := newDueItem(owner, date(2024, time.July, 1), []int{30})

	items := &fakeItemStore{items: []models.LifeItem{item}, markErr: fmt.Errorf("write timeout")}
	sender := &fakeSender{}
	runner := newRunner(t, items, &fakeDirectory{users: []models.User{owner}}, &fakeSendLog{}, sender, today)

	summary := runner.RunBatch(context.Background())

	// The email went out; the stuck flag is an accepted at-least-once
	// risk, logged but not reported as a run error.
	assert.Equal(t, 1, summary.RemindersSent)
	assert.Empty(t, summary.Errors)
}

func TestRunBatchPrimaryOffsetOneSendsBothReminders(t *testing.T) {
	today := date(2024, time.June, 30)
	owner := newUser("owner@example.com")
	item := newDueItem(owner, date(2024, time.July, 1), []int{1})

	items := &fakeItemStore{items: []models.LifeItem{item}}
	logs := &fakeSendLog{}
	sender := &fakeSender{}
	runner := newRunner(t, items, &fakeDirectory{users: []models.User{owner}}, logs, sender, today)

	summary := runner.RunBatch(context.Background())

	assert.Equal(t, 2, summary.RemindersFound)
	assert.Equal(t, 2, summary.RemindersSent)
	assert.Equal(t, 1, items.firstMarked[item.ID])
	assert.Equal(t, 1, items.lastMarked[item.ID])

	// The log distinguishes the two sends by offset value.
	require.Len(t, logs.entries, 2)
	assert.Equal(t, 1, logs.entries[0].OffsetValue)
	assert.Equal(t, 1, logs.entries[1].OffsetValue)
}

func TestRunBatchMissingOwnerIsPerItemError(t *testing.T) {
	today := date(2024, time.June, 1)
	orphan := newUser("ghost@example.com")
	item := newDueItem(orphan, date(2024, time.July, 1), []int{30})

	items := &fakeItemStore{items: []models.LifeItem{item}}
	sender := &fakeSender{}
	// Directory returns no matching account for the item's owner.
	runner := newRunner(t, items, &fakeDirectory{users: nil}, &fakeSendLog{}, sender, today)

	summary := runner.RunBatch(context.Background())

	assert.False(t, summary.Fatal)
	assert.Zero(t, summary.RemindersSent)
	require.Len(t, summary.Errors, 1)
	assert.Contains(t, summary.Errors[0], "owner")
	assert.Empty(t, items.firstMarked)
}
