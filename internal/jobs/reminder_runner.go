package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/expirycare/expirycare/internal/expiry"
	"github.com/expirycare/expirycare/internal/metrics"
	"github.com/expirycare/expirycare/internal/models"
	"github.com/expirycare/expirycare/pkg/email"
	"github.com/google/uuid"
	"github.com/jmhodges/clock"
	"github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// lookbackDays bounds the item scan: items that expired more than this
// many days ago are no longer candidates, while recently-expired ones
// still get a catch-up pass in case a run was missed.
const lookbackDays = 7

// ItemStore is the slice of the item repository the runner needs.
type ItemStore interface {
	GetItemsExpiringInWindow(ctx context.Context, from, to time.Time) ([]models.LifeItem, error)
	MarkFirstReminderSent(ctx context.Context, id primitive.ObjectID) error
	MarkLastDayReminderSent(ctx context.Context, id primitive.ObjectID) error
}

// UserDirectory resolves item owners to accounts (and thus recipients).
type UserDirectory interface {
	GetUsersByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.User, error)
}

// SendLogStore appends the audit trail of delivered reminders.
type SendLogStore interface {
	AppendSendLog(ctx context.Context, entry *models.ReminderSendLog) error
}

// Summary is the result of one batch run. The runner never returns an
// error; everything that went wrong is in Errors.
type Summary struct {
	RunID          string   `json:"run_id"`
	ItemsScanned   int      `json:"items_scanned"`
	RemindersFound int      `json:"reminders_found"`
	RemindersSent  int      `json:"reminders_sent"`
	Errors         []string `json:"errors,omitempty"`

	// Fatal is set when the run aborted before any reminder could be
	// considered (item scan or directory lookup failed).
	Fatal bool `json:"-"`
}

// ReminderRunner is the batch job that turns due reminders into emails.
//
// Idempotency rests on the two per-item sent flags, re-read at the start
// of each run and persisted through conditional updates. Two overlapping
// runs reading the same pre-update flags can still double-send; the
// deployment contract is therefore a single, non-overlapping cron
// trigger.
type ReminderRunner struct {
	items   ItemStore
	users   UserDirectory
	logs    SendLogStore
	sender  email.Sender
	metrics *metrics.ReminderMetrics
	clk     clock.Clock
}

// NewReminderRunner wires a runner. Pass clock.New() in production; tests
// use a fake clock to pin "today".
func NewReminderRunner(items ItemStore, users UserDirectory, logs SendLogStore, sender email.Sender, m *metrics.ReminderMetrics, clk clock.Clock) *ReminderRunner {
	return &ReminderRunner{
		items:   items,
		users:   users,
		logs:    logs,
		sender:  sender,
		metrics: m,
		clk:     clk,
	}
}

type dueReminder struct {
	item        models.LifeItem
	lastDay     bool // false = first reminder
	offsetValue int  // primary offset, or 1 for last-day
}

// RunBatch scans candidate items, sends every reminder due today to the
// owner and their family viewers, appends send logs and persists the
// sent flags. One failed send never aborts the run and never marks a
// flag; the item is retried on the next run.
func (r *ReminderRunner) RunBatch(ctx context.Context) (summary Summary) {
	summary.RunID = uuid.NewString()
	log := logrus.WithField("runID", summary.RunID)

	defer func() {
		if rec := recover(); rec != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("batch run panicked: %v", rec))
			log.WithField("panic", rec).Error("Reminder batch run panicked")
		}
	}()

	r.metrics.BatchRunsTotal.Inc()

	today := r.clk.Now()
	from := expiry.Midnight(today).AddDate(0, 0, -lookbackDays)

	items, err := r.items.GetItemsExpiringInWindow(ctx, from, time.Time{})
	if err != nil {
		summary.Fatal = true
		summary.Errors = append(summary.Errors, fmt.Sprintf("failed to load candidate items: %v", err))
		log.WithError(err).Error("Reminder batch aborted: item scan failed")
		return summary
	}

	summary.ItemsScanned = len(items)
	r.metrics.ItemsScannedTotal.Add(float64(len(items)))

	due := collectDue(today, items)
	summary.RemindersFound = len(due)
	if len(due) == 0 {
		log.WithField("itemsScanned", summary.ItemsScanned).Info("Reminder batch completed, nothing due")
		return summary
	}

	owners, err := r.resolveOwners(ctx, due)
	if err != nil {
		summary.Fatal = true
		summary.Errors = append(summary.Errors, fmt.Sprintf("failed to resolve recipients: %v", err))
		log.WithError(err).Error("Reminder batch aborted: recipient directory unavailable")
		return summary
	}

	for _, d := range due {
		r.process(ctx, d, owners, &summary)
	}

	log.WithFields(logrus.Fields{
		"itemsScanned":   summary.ItemsScanned,
		"remindersFound": summary.RemindersFound,
		"remindersSent":  summary.RemindersSent,
		"errors":         len(summary.Errors),
	}).Info("Reminder batch completed")

	return summary
}

// collectDue runs the due calculator over the scanned items. An item with
// a primary offset of 1 can owe both reminders on the same day.
func collectDue(today time.Time, items []models.LifeItem) []dueReminder {
	var due []dueReminder
	for _, item := range items {
		d := expiry.ComputeDue(today, &item)
		if d.First {
			due = append(due, dueReminder{item: item, offsetValue: expiry.PrimaryOffset(&item)})
		}
		if d.LastDay {
			due = append(due, dueReminder{item: item, lastDay: true, offsetValue: 1})
		}
	}
	return due
}

func (r *ReminderRunner) resolveOwners(ctx context.Context, due []dueReminder) (map[primitive.ObjectID]models.User, error) {
	seen := make(map[primitive.ObjectID]struct{})
	var ids []primitive.ObjectID
	for _, d := range due {
		if _, ok := seen[d.item.UserID]; ok {
			continue
		}
		seen[d.item.UserID] = struct{}{}
		ids = append(ids, d.item.UserID)
	}

	users, err := r.users.GetUsersByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	owners := make(map[primitive.ObjectID]models.User, len(users))
	for _, u := range users {
		owners[u.ID] = u
	}
	return owners, nil
}

// process sends one due reminder to every recipient and, if anyone got
// it, marks the item's flag. Items are handled one at a time so the two
// flag updates of a single item never interleave.
func (r *ReminderRunner) process(ctx context.Context, d dueReminder, owners map[primitive.ObjectID]models.User, summary *Summary) {
	log := logrus.WithFields(logrus.Fields{
		"itemID":  d.item.ID.Hex(),
		"lastDay": d.lastDay,
	})

	owner, ok := owners[d.item.UserID]
	if !ok {
		summary.Errors = append(summary.Errors, fmt.Sprintf("item %s: owner %s not found", d.item.ID.Hex(), d.item.UserID.Hex()))
		log.Warn("Skipping reminder, owner account missing")
		return
	}

	subject, htmlBody, textBody := reminderEmail(&d.item, d.offsetValue, d.lastDay)

	// Owner first, then every family viewer, each as an independent send.
	recipients := []string{owner.Email}
	for _, viewer := range owner.FamilyViewers {
		recipients = append(recipients, viewer.Email)
	}

	delivered := false
	for _, to := range recipients {
		if err := r.sender.Send(to, subject, htmlBody, textBody); err != nil {
			summary.Errors = append(summary.Errors, fmt.Sprintf("item %s: send to %s failed: %v", d.item.ID.Hex(), to, err))
			r.metrics.SendFailuresTotal.Inc()
			log.WithError(err).WithField("to", to).Warn("Reminder send failed")
			continue
		}

		delivered = true
		summary.RemindersSent++
		r.metrics.RemindersSentTotal.WithLabelValues(kindLabel(d.lastDay)).Inc()

		entry := &models.ReminderSendLog{
			ItemID:         d.item.ID,
			UserID:         owner.ID,
			RecipientEmail: to,
			OffsetValue:    d.offsetValue,
			SentAt:         r.clk.Now(),
		}
		if err := r.logs.AppendSendLog(ctx, entry); err != nil {
			// The flags stay authoritative; a missing audit row is not
			// worth failing the reminder over.
			log.WithError(err).WithField("to", to).Warn("Failed to append send log")
		}
	}

	if !delivered {
		// Every send failed: leave the flag unset so the next run retries.
		return
	}

	var err error
	if d.lastDay {
		err = r.items.MarkLastDayReminderSent(ctx, d.item.ID)
	} else {
		err = r.items.MarkFirstReminderSent(ctx, d.item.ID)
	}
	if err != nil {
		// The email went out but the flag did not stick: the next run
		// may send again. Accepted at-least-once tradeoff.
		log.WithError(err).Warn("Reminder delivered but flag update failed, may resend next run")
	}
}

func kindLabel(lastDay bool) string {
	if lastDay {
		return "last_day"
	}
	return "first"
}
