package jobs

import (
	"fmt"
	"strings"

	"github.com/expirycare/expirycare/internal/models"
)

// reminderEmail builds the subject and both bodies for one reminder.
func reminderEmail(item *models.LifeItem, daysUntil int, lastDay bool) (subject, htmlBody, textBody string) {
	title := strings.TrimSpace(item.Title)
	expires := item.ExpiryDate.Format("Jan 2, 2006")

	var when string
	switch {
	case lastDay:
		when = "tomorrow"
	case daysUntil == 0:
		when = "today"
	case daysUntil == 1:
		when = "in 1 day"
	default:
		when = fmt.Sprintf("in %d days", daysUntil)
	}

	subject = fmt.Sprintf("⏰ Reminder: %s expires %s", title, when)

	textBody = fmt.Sprintf(
		"Your %s \"%s\" expires %s (%s).\n\nOpen ExpiryCare to renew or update it.\n",
		item.Category, title, when, expires,
	)

	htmlBody = fmt.Sprintf(
		`<p>Your %s <strong>%s</strong> expires %s (<strong>%s</strong>).</p>`+
			`<p>Open ExpiryCare to renew or update it.</p>`,
		item.Category, title, when, expires,
	)

	return subject, htmlBody, textBody
}
