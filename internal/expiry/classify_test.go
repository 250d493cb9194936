package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestClassifyBuckets(t *testing.T) {
	today := date(2024, time.June, 15)

	tests := []struct {
		name      string
		expiry    time.Time
		status    Status
		daysUntil int
	}{
		{"expires today is expired", date(2024, time.June, 15), StatusExpired, 0},
		{"past date is expired", date(2024, time.June, 1), StatusExpired, -14},
		{"inside 30 day window is expiring soon", date(2024, time.July, 1), StatusExpiringSoon, 16},
		{"exactly 30 days out is expiring soon", date(2024, time.July, 15), StatusExpiringSoon, 30},
		{"31 days out is active", date(2024, time.July, 16), StatusActive, 31},
		{"far future is active", date(2024, time.August, 1), StatusActive, 47},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Classify(today, tt.expiry)
			assert.Equal(t, tt.status, got.Status)
			assert.Equal(t, tt.daysUntil, got.DaysUntil)
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	today := date(2024, time.June, 15)
	expiry := date(2024, time.July, 1)

	first := Classify(today, expiry)
	second := Classify(today, expiry)
	assert.Equal(t, first, second)
}

func TestClassifyIgnoresTimeOfDay(t *testing.T) {
	// 23:59 on the 15th against 00:01 on the 16th is still one calendar day.
	today := time.Date(2024, time.June, 15, 23, 59, 0, 0, time.UTC)
	expiry := time.Date(2024, time.June, 16, 0, 1, 0, 0, time.UTC)

	got := Classify(today, expiry)
	assert.Equal(t, StatusExpiringSoon, got.Status)
	assert.Equal(t, 1, got.DaysUntil)
}

func TestClassifyRawMalformedDateIsExpired(t *testing.T) {
	today := date(2024, time.June, 15)

	for _, raw := range []string{"", "not-a-date", "2024-13-45", "soon"} {
		got := ClassifyRaw(today, raw)
		assert.Equal(t, StatusExpired, got.Status, "raw=%q", raw)
	}
}

func TestClassifyRawValidDate(t *testing.T) {
	today := date(2024, time.June, 15)

	got := ClassifyRaw(today, "2024-07-01")
	assert.Equal(t, StatusExpiringSoon, got.Status)
	assert.Equal(t, 16, got.DaysUntil)
}

func TestParseDateLayouts(t *testing.T) {
	for _, raw := range []string{"2024-07-01", "01/07/2024", "2024-07-01T00:00:00Z"} {
		parsed, ok := ParseDate(raw)
		assert.True(t, ok, "raw=%q", raw)
		assert.Equal(t, 2024, parsed.Year())
		assert.Equal(t, time.July, parsed.Month())
		assert.Equal(t, 1, parsed.Day())
	}

	_, ok := ParseDate("yesterday")
	assert.False(t, ok)
}
