package cron

import (
	"context"
	"time"

	"github.com/expirycare/expirycare/internal/jobs"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartReminderCron schedules the daily reminder batch. The in-process
// cron is the single trigger; do not point an external scheduler at the
// run endpoint at the same time, overlapping runs can double-send.
func StartReminderCron(runner *jobs.ReminderRunner, spec string, timeout time.Duration) (*cron.Cron, error) {
	c := cron.New()

	_, err := c.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		summary := runner.RunBatch(ctx)
		logrus.WithFields(logrus.Fields{
			"runID":          summary.RunID,
			"itemsScanned":   summary.ItemsScanned,
			"remindersFound": summary.RemindersFound,
			"remindersSent":  summary.RemindersSent,
			"errors":         len(summary.Errors),
		}).Info("Scheduled reminder batch finished")
	})
	if err != nil {
		return nil, err
	}

	c.Start()
	logrus.WithField("spec", spec).Info("Reminder cron started")
	return c, nil
}
