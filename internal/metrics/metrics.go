package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ReminderMetrics tracks what the batch runner does.
type ReminderMetrics struct {
	BatchRunsTotal     prometheus.Counter
	ItemsScannedTotal  prometheus.Counter
	RemindersSentTotal *prometheus.CounterVec
	SendFailuresTotal  prometheus.Counter
}

// NewReminderMetrics registers the reminder counters on the given
// registerer. Tests pass a private registry to avoid double registration.
func NewReminderMetrics(reg prometheus.Registerer) *ReminderMetrics {
	m := &ReminderMetrics{
		BatchRunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "expirycare_reminder_batch_runs_total",
			Help: "Total number of reminder batch runs",
		}),
		ItemsScannedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "expirycare_reminder_items_scanned_total",
			Help: "Total number of items scanned across all batch runs",
		}),
		RemindersSentTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "expirycare_reminders_sent_total",
				Help: "Total number of reminder emails delivered",
			},
			[]string{"kind"}, // first | last_day
		),
		SendFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "expirycare_reminder_send_failures_total",
			Help: "Total number of reminder emails that failed to send",
		}),
	}

	reg.MustRegister(m.BatchRunsTotal, m.ItemsScannedTotal, m.RemindersSentTotal, m.SendFailuresTotal)
	return m
}
