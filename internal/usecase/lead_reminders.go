package usecase

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/entity"
)

const (
	day = 24 * time.Hour

	InactiveThreshold    = 7 * day
	InactiveDedupWindow  = 24 * time.Hour
	ExpiringThreshold    = 30 * day
	ExpiringDedupWindow  = 7 * day
	expiringTitleKeyword = "expirar"

	reminderLockKey = "lead-reminders"
	reminderLockTTL = 10 * time.Minute
)

// Statuses the inactivity rule watches, including legacy imported rows.
var inactiveWatchStatuses = []string{
	string(entity.StatusActiveLegacy),
	string(entity.StageContacted),
	string(entity.StageQualified),
	string(entity.StageProspecting),
}

type InactiveScanResult struct {
	Checked  int `json:"checked"`
	Notified int `json:"notified"`
	Skipped  int `json:"skipped"`
	Errors   int `json:"errors"`
}

type ExpiringScanResult struct {
	Checked         int `json:"checked"`
	GestorsNotified int `json:"gestorsNotified"`
	CRMNotified     int `json:"crmNotified"`
	Skipped         int `json:"skipped"`
	Errors          int `json:"errors"`
}

type ReminderRunResult struct {
	Inactive InactiveScanResult `json:"inactive"`
	Expiring ExpiringScanResult `json:"expiring"`
	Duration time.Duration      `json:"duration"`
	// LockHeld is set when another run owned the lock and nothing was scanned.
	LockHeld bool `json:"lockHeld,omitempty"`
}

// LeadReminderUseCase scans for stale leads. It is meant to be triggered by an
// external scheduler; one lead failing never stops the scan.
type LeadReminderUseCase struct {
	LeadRepo entity.LeadRepositoryInterface
	Notifier NotificationSender
	Audience AudienceResolver
	Lock     RunLock
	Logger   *zap.Logger
	BaseURL  string
	Now      func() time.Time
}

func NewLeadReminderUseCase(
	leadRepo entity.LeadRepositoryInterface,
	notifier NotificationSender,
	audience AudienceResolver,
	lock RunLock,
	logger *zap.Logger,
	baseURL string,
) *LeadReminderUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadReminderUseCase{
		LeadRepo: leadRepo,
		Notifier: notifier,
		Audience: audience,
		Lock:     lock,
		Logger:   logger,
		BaseURL:  strings.TrimRight(baseURL, "/"),
		Now:      time.Now,
	}
}

// CheckInactiveLeads reminds gestors about assigned leads untouched for 7 days.
func (uc *LeadReminderUseCase) CheckInactiveLeads(ctx context.Context) InactiveScanResult {
	var result InactiveScanResult
	now := uc.Now()

	leads, err := uc.LeadRepo.ListStale(ctx, entity.StaleLeadFilter{
		Statuses:      inactiveWatchStatuses,
		UpdatedBefore: now.Add(-InactiveThreshold),
	})
	if err != nil {
		uc.Logger.Error("❌ inactive lead scan failed", zap.Error(err))
		result.Errors++
		return result
	}

	for _, lead := range leads {
		if !lead.IsAssigned() {
			continue
		}
		result.Checked++
		userID := *lead.AssignedToID
		leadID := lead.ID

		recent, err := uc.Notifier.HasRecentNotification(ctx, entity.NotificationFilter{
			UserID: userID,
			LeadID: leadID,
			Type:   entity.NotificationGeneral,
			Since:  now.Add(-InactiveDedupWindow),
		})
		if err != nil {
			uc.Logger.Warn("⚠️ dedup check failed", zap.String("lead_id", leadID), zap.Error(err))
			result.Errors++
			continue
		}
		if recent {
			result.Skipped++
			continue
		}

		daysInactive := int(now.Sub(lead.UpdatedAt) / day)
		_, err = uc.Notifier.CreateNotification(ctx, userID, NotificationPayload{
			Type:    entity.WorkflowLeadInactive,
			Title:   fmt.Sprintf("Lead inactiu: %s", lead.CompanyName),
			Message: fmt.Sprintf("El lead %s porta %d dies sense activitat.", lead.CompanyName, daysInactive),
			Link:    leadLink(uc.BaseURL, "gestor", leadID),
			Metadata: map[string]any{
				"daysInactive": daysInactive,
				"status":       lead.Status,
			},
			LeadID: &leadID,
		})
		if err != nil {
			uc.Logger.Warn("⚠️ inactive reminder failed", zap.String("lead_id", leadID), zap.Error(err))
			result.Errors++
			continue
		}
		result.Notified++
	}

	uc.Logger.Info("⏱️ inactive lead scan finished",
		zap.Int("checked", result.Checked),
		zap.Int("notified", result.Notified),
		zap.Int("errors", result.Errors))
	return result
}

// CheckExpiringLeads warns the gestor (primary) and CRM users (copies) about
// open leads untouched for 30 days.
func (uc *LeadReminderUseCase) CheckExpiringLeads(ctx context.Context) ExpiringScanResult {
	var result ExpiringScanResult
	now := uc.Now()

	leads, err := uc.LeadRepo.ListStale(ctx, entity.StaleLeadFilter{
		ExcludeStatuses: []string{string(entity.StageWon), string(entity.StageLost)},
		UpdatedBefore:   now.Add(-ExpiringThreshold),
	})
	if err != nil {
		uc.Logger.Error("❌ expiring lead scan failed", zap.Error(err))
		result.Errors++
		return result
	}

	var crmIDs []string
	crmResolved := false

	for _, lead := range leads {
		if !lead.IsAssigned() {
			continue
		}
		result.Checked++
		userID := *lead.AssignedToID
		leadID := lead.ID

		recent, err := uc.Notifier.HasRecentNotification(ctx, entity.NotificationFilter{
			LeadID:        leadID,
			TitleContains: expiringTitleKeyword,
			Since:         now.Add(-ExpiringDedupWindow),
		})
		if err != nil {
			uc.Logger.Warn("⚠️ dedup check failed", zap.String("lead_id", leadID), zap.Error(err))
			result.Errors++
			continue
		}
		if recent {
			result.Skipped++
			continue
		}

		if !crmResolved {
			crmIDs, err = uc.Audience.CRMUserIDs(ctx)
			if err != nil {
				uc.Logger.Warn("⚠️ CRM audience lookup failed, only gestors will be warned", zap.Error(err))
				result.Errors++
			}
			crmResolved = true
		}

		days := int(now.Sub(lead.UpdatedAt) / day)
		title := fmt.Sprintf("Lead a punt d'expirar: %s", lead.CompanyName)
		message := fmt.Sprintf("El lead %s no s'ha actualitzat en %d dies i està a punt d'expirar.", lead.CompanyName, days)

		failed := false
		_, err = uc.Notifier.CreateNotification(ctx, userID, NotificationPayload{
			Type:     entity.WorkflowLeadExpiring,
			Title:    title,
			Message:  message,
			Link:     leadLink(uc.BaseURL, "gestor", leadID),
			Metadata: map[string]any{"daysInactive": days, "primary": true},
			LeadID:   &leadID,
		})
		if err != nil {
			uc.Logger.Warn("⚠️ expiring reminder to gestor failed", zap.String("lead_id", leadID), zap.Error(err))
			failed = true
		} else {
			result.GestorsNotified++
		}

		copies := make([]string, 0, len(crmIDs))
		for _, id := range crmIDs {
			if id != userID {
				copies = append(copies, id)
			}
		}
		if len(copies) > 0 {
			created, err := uc.Notifier.CreateBulkNotifications(ctx, copies, NotificationPayload{
				Type:     entity.WorkflowLeadExpiring,
				Title:    title,
				Message:  message,
				Link:     leadLink(uc.BaseURL, "crm", leadID),
				Metadata: map[string]any{"daysInactive": days, "primary": false, "assignedToId": userID},
				LeadID:   &leadID,
			})
			if err != nil {
				uc.Logger.Warn("⚠️ expiring reminder to CRM failed", zap.String("lead_id", leadID), zap.Error(err))
				failed = true
			} else {
				result.CRMNotified += len(created)
			}
		}

		if failed {
			result.Errors++
		}
	}

	uc.Logger.Info("⏱️ expiring lead scan finished",
		zap.Int("checked", result.Checked),
		zap.Int("gestors_notified", result.GestorsNotified),
		zap.Int("crm_notified", result.CRMNotified),
		zap.Int("errors", result.Errors))
	return result
}

// RunAllLeadReminders runs both scans one after the other.
func (uc *LeadReminderUseCase) RunAllLeadReminders(ctx context.Context) ReminderRunResult {
	start := uc.Now()

	if uc.Lock != nil {
		release, acquired, err := uc.Lock.TryLock(ctx, reminderLockKey, reminderLockTTL)
		switch {
		case err != nil:
			uc.Logger.Warn("⚠️ reminder lock unavailable, running unlocked", zap.Error(err))
		case !acquired:
			uc.Logger.Info("reminder run skipped, another run holds the lock")
			return ReminderRunResult{LockHeld: true}
		default:
			defer func() {
				if err := release(context.WithoutCancel(ctx)); err != nil {
					uc.Logger.Warn("⚠️ reminder lock release failed", zap.Error(err))
				}
			}()
		}
	}

	result := ReminderRunResult{
		Inactive: uc.CheckInactiveLeads(ctx),
		Expiring: uc.CheckExpiringLeads(ctx),
	}
	result.Duration = uc.Now().Sub(start)

	uc.Logger.Info("✅ lead reminders finished", zap.Duration("duration", result.Duration))
	return result
}
