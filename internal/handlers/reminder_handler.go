package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/expirycare/expirycare/internal/jobs"
	"github.com/sirupsen/logrus"
)

// ReminderHandler exposes the batch runner over HTTP, for the external
// cron trigger and for manual runs.
type ReminderHandler struct {
	Runner  *jobs.ReminderRunner
	Timeout time.Duration
}

// NewReminderHandler creates a new instance of ReminderHandler.
func NewReminderHandler(runner *jobs.ReminderRunner, timeout time.Duration) *ReminderHandler {
	return &ReminderHandler{
		Runner:  runner,
		Timeout: timeout,
	}
}

type runSummaryResponse struct {
	Message        string   `json:"message"`
	RemindersFound int      `json:"reminders_found"`
	RemindersSent  int      `json:"reminders_sent"`
	Errors         []string `json:"errors,omitempty"`
	Timestamp      string   `json:"timestamp"`
}

// RunRemindersHandler triggers one reminder batch run and reports its
// summary. Per-item failures come back in the errors list with a 200;
// only a run that could not start at all is a 500.
func (h *ReminderHandler) RunRemindersHandler(w http.ResponseWriter, r *http.Request) {
	logrus.Info("Reminder batch triggered over HTTP")

	ctx, cancel := context.WithTimeout(r.Context(), h.Timeout)
	defer cancel()

	summary := h.Runner.RunBatch(ctx)

	resp := runSummaryResponse{
		Message:        "reminder batch completed",
		RemindersFound: summary.RemindersFound,
		RemindersSent:  summary.RemindersSent,
		Errors:         summary.Errors,
		Timestamp:      time.Now().UTC().Format(time.RFC3339),
	}

	status := http.StatusOK
	if summary.Fatal {
		resp.Message = "reminder batch aborted"
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
