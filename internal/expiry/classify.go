// Package expiry holds the pure date logic behind the dashboard buckets
// and the reminder schedule. Nothing in here touches the database or the
// clock; callers pass "today" in explicitly.
package expiry

import (
	"math"
	"time"
)

// Status is the dashboard bucket for an item.
type Status string

const (
	StatusExpired      Status = "expired"
	StatusExpiringSoon Status = "expiring_soon"
	StatusActive       Status = "active"
)

// ExpiringSoonWindowDays is the width of the "expiring soon" bucket.
const ExpiringSoonWindowDays = 30

// Classification is the result of bucketing a single item.
type Classification struct {
	Status    Status `json:"status"`
	DaysUntil int    `json:"days_until"`
}

// Midnight strips the time-of-day from t, keeping its location.
// Comparing midnights avoids off-by-one buckets from hour drift.
func Midnight(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// DaysBetween returns the calendar-day difference to - from. The result
// is negative when to is in the past. Rounding absorbs DST transitions.
func DaysBetween(from, to time.Time) int {
	d := Midnight(to).Sub(Midnight(from))
	return int(math.Round(d.Hours() / 24))
}

// Classify buckets an item by its expiry date. An item expiring today is
// already in the expired bucket; clients may label it "Expires Today".
func Classify(today, expiryDate time.Time) Classification {
	days := DaysBetween(today, expiryDate)

	switch {
	case days <= 0:
		return Classification{Status: StatusExpired, DaysUntil: days}
	case days <= ExpiringSoonWindowDays:
		return Classification{Status: StatusExpiringSoon, DaysUntil: days}
	default:
		return Classification{Status: StatusActive, DaysUntil: days}
	}
}

// dateLayouts are the formats we accept for stored or extracted dates.
var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"02/01/2006",
	"2006-01-02 15:04:05",
}

// ParseDate parses a raw date string. It never panics; the boolean is
// false when no known layout matches.
func ParseDate(raw string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// ClassifyRaw classifies an expiry date that is still a string, e.g. one
// freshly extracted from a document. A date that does not parse lands in
// the expired bucket so that bad data is surfaced instead of hidden
// among active items.
func ClassifyRaw(today time.Time, raw string) Classification {
	expiryDate, ok := ParseDate(raw)
	if !ok {
		return Classification{Status: StatusExpired, DaysUntil: 0}
	}
	return Classify(today, expiryDate)
}
