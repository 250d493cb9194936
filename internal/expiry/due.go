package expiry

import (
	"time"

	"github.com/expirycare/expirycare/internal/models"
)

// Due says which reminders an item owes today. Both fields can be true in
// the same run only when the primary offset is 1, in which case the first
// and last-day reminder share a calendar day and both fire.
type Due struct {
	First   bool
	LastDay bool
}

// PrimaryOffset returns the largest configured reminder offset, or -1
// when the item has none and can never be scheduled.
func PrimaryOffset(item *models.LifeItem) int {
	if len(item.ReminderOffsets) == 0 {
		return -1
	}
	max := item.ReminderOffsets[0]
	for _, off := range item.ReminderOffsets[1:] {
		if off > max {
			max = off
		}
	}
	return max
}

// ComputeDue decides whether the item's first and/or last-day reminder is
// due today. It is pure: persistence of the sent flags is the batch
// runner's job.
//
// The daysUntil guards keep an item whose expiry date was edited backward
// from catching an old trigger date: a reminder never fires for an item
// that is already further expired than the offset implies.
func ComputeDue(today time.Time, item *models.LifeItem) Due {
	primary := PrimaryOffset(item)
	if primary < 0 {
		return Due{}
	}

	expiry := Midnight(item.ExpiryDate)
	daysUntil := DaysBetween(today, item.ExpiryDate)

	firstReminderDate := expiry.AddDate(0, 0, -primary)
	lastDayReminderDate := expiry.AddDate(0, 0, -1)

	return Due{
		First:   !item.FirstReminderSent && sameDay(today, firstReminderDate) && daysUntil >= primary,
		LastDay: !item.LastDayReminderSent && sameDay(today, lastDayReminderDate) && daysUntil >= 1,
	}
}

// sameDay compares calendar dates component-wise so that a date stored in
// UTC still matches a local "today".
func sameDay(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month() && a.Day() == b.Day()
}
