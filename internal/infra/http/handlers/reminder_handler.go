package handlers

import (
	"context"
	"net/http"

	"github.com/lapublica/leadflow/internal/infra/http/middleware"
	"github.com/lapublica/leadflow/internal/usecase"
)

type ReminderRunner interface {
	RunAllLeadReminders(ctx context.Context) usecase.ReminderRunResult
}

// ReminderHandler lets an external scheduler trigger a reminder run.
type ReminderHandler struct {
	Runner ReminderRunner
}

func NewReminderHandler(runner ReminderRunner) *ReminderHandler {
	return &ReminderHandler{Runner: runner}
}

type ReminderRunResponse struct {
	usecase.ReminderRunResult
	DurationMs int64 `json:"durationMs"`
}

// Run handles POST /internal/reminders/run.
func (h *ReminderHandler) Run(w http.ResponseWriter, r *http.Request) {
	result := h.Runner.RunAllLeadReminders(r.Context())
	if result.LockHeld {
		writeJSON(w, http.StatusConflict, ReminderRunResponse{ReminderRunResult: result})
		return
	}
	middleware.RecordReminderRun(
		result.Inactive.Notified,
		result.Expiring.GestorsNotified+result.Expiring.CRMNotified,
		result.Inactive.Errors,
		result.Expiring.Errors,
		result.Duration,
	)
	writeJSON(w, http.StatusOK, ReminderRunResponse{
		ReminderRunResult: result,
		DurationMs:        result.Duration.Milliseconds(),
	})
}
