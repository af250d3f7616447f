package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/infra/http/middleware"
	"github.com/lapublica/leadflow/internal/usecase"
)

type ReminderRunner interface {
	RunAllLeadReminders(ctx context.Context) usecase.ReminderRunResult
}

type NotificationCleaner interface {
	CleanOldNotifications(ctx context.Context) (int64, error)
}

// LeadReminderWorker is the in-process scheduler for reminder scans and the
// notification retention sweep.
type LeadReminderWorker struct {
	reminders    ReminderRunner
	cleaner      NotificationCleaner
	logger       *zap.Logger
	tickInterval time.Duration
}

func NewLeadReminderWorker(reminders ReminderRunner, cleaner NotificationCleaner, logger *zap.Logger, interval time.Duration) *LeadReminderWorker {
	if interval <= 0 {
		interval = time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadReminderWorker{
		reminders:    reminders,
		cleaner:      cleaner,
		logger:       logger,
		tickInterval: interval,
	}
}

func (w *LeadReminderWorker) Start(ctx context.Context) {
	w.logger.Info("🕒 lead reminder worker started", zap.Duration("interval", w.tickInterval))

	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	w.Tick(ctx)

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("⚠️ lead reminder worker stopped")
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs one reminder pass followed by the retention sweep.
func (w *LeadReminderWorker) Tick(ctx context.Context) {
	result := w.reminders.RunAllLeadReminders(ctx)
	if !result.LockHeld {
		middleware.RecordReminderRun(
			result.Inactive.Notified,
			result.Expiring.GestorsNotified+result.Expiring.CRMNotified,
			result.Inactive.Errors,
			result.Expiring.Errors,
			result.Duration,
		)
	}

	if w.cleaner == nil {
		return
	}
	deleted, err := w.cleaner.CleanOldNotifications(ctx)
	if err != nil {
		w.logger.Error("❌ notification retention sweep failed", zap.Error(err))
		return
	}
	middleware.RecordNotificationsCleaned(deleted)
	if deleted > 0 {
		w.logger.Info("🧹 old notifications removed", zap.Int64("deleted", deleted))
	}
}
