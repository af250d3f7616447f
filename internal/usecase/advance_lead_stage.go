package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/entity"
)

type AdvanceLeadStageInput struct {
	LeadID       string `json:"lead_id"`
	NewStatus    string `json:"status"`
	ActingUserID string `json:"acting_user_id"`
}

// StageChangeOutput is the result of every transition. Failures are reported
// here and never returned as errors.
type StageChangeOutput struct {
	Success        bool   `json:"success"`
	NewStatus      string `json:"newStatus,omitempty"`
	PreviousStatus string `json:"previousStatus,omitempty"`
	Error          string `json:"error,omitempty"`
	ErrorCode      string `json:"errorCode,omitempty"`
}

func failedStageChange(code, msg string) StageChangeOutput {
	return StageChangeOutput{Success: false, Error: msg, ErrorCode: code}
}

// LeadStageUseCase is the only path that changes a lead's stage.
type LeadStageUseCase struct {
	LeadRepo     entity.LeadRepositoryInterface
	ActivityRepo entity.ActivityRepositoryInterface
	Audience     AudienceResolver
	Notifier     NotificationSender
	Logger       *zap.Logger
	BaseURL      string
	Now          func() time.Time
}

func NewLeadStageUseCase(
	leadRepo entity.LeadRepositoryInterface,
	activityRepo entity.ActivityRepositoryInterface,
	audience AudienceResolver,
	notifier NotificationSender,
	logger *zap.Logger,
	baseURL string,
) *LeadStageUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LeadStageUseCase{
		LeadRepo:     leadRepo,
		ActivityRepo: activityRepo,
		Audience:     audience,
		Notifier:     notifier,
		Logger:       logger,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Now:          time.Now,
	}
}

// AdvanceLeadStage moves a lead to any ranked stage. LOST is not reachable
// here; use MarkLeadAsLost.
func (uc *LeadStageUseCase) AdvanceLeadStage(ctx context.Context, input AdvanceLeadStageInput) StageChangeOutput {
	if errs := ValidateAdvanceLeadStageInput(input); len(errs) > 0 {
		return failedStageChange(CodeValidation, joinValidationErrors(errs))
	}

	lead, out, ok := uc.load(ctx, input.LeadID)
	if !ok {
		return out
	}
	if !entity.IsValidStage(input.NewStatus) {
		return failedStageChange(CodeInvalidStage, "invalid stage")
	}
	return uc.changeStage(ctx, lead, entity.Stage(input.NewStatus), input.ActingUserID, "")
}

func (uc *LeadStageUseCase) MarkLeadAsWon(ctx context.Context, leadID, actingUserID string) StageChangeOutput {
	if leadID == "" || actingUserID == "" {
		return failedStageChange(CodeValidation, "lead_id and acting_user_id are required")
	}
	lead, out, ok := uc.load(ctx, leadID)
	if !ok {
		return out
	}
	return uc.changeStage(ctx, lead, entity.StageWon, actingUserID, "")
}

// MarkLeadAsLost closes the lead and appends reason to its notes.
func (uc *LeadStageUseCase) MarkLeadAsLost(ctx context.Context, leadID, actingUserID, reason string) StageChangeOutput {
	if leadID == "" || actingUserID == "" {
		return failedStageChange(CodeValidation, "lead_id and acting_user_id are required")
	}
	lead, out, ok := uc.load(ctx, leadID)
	if !ok {
		return out
	}
	return uc.changeStage(ctx, lead, entity.StageLost, actingUserID, strings.TrimSpace(reason))
}

func (uc *LeadStageUseCase) load(ctx context.Context, leadID string) (*entity.Lead, StageChangeOutput, bool) {
	lead, err := uc.LeadRepo.FindByID(ctx, leadID)
	if errors.Is(err, entity.ErrLeadNotFound) {
		return nil, failedStageChange(CodeLeadNotFound, "lead not found"), false
	}
	if err != nil {
		uc.Logger.Error("❌ failed to load lead", zap.String("lead_id", leadID), zap.Error(err))
		return nil, failedStageChange(CodeDatabase, "failed to load lead"), false
	}
	return lead, StageChangeOutput{}, true
}

func (uc *LeadStageUseCase) changeStage(ctx context.Context, lead *entity.Lead, target entity.Stage, actingUserID, lostReason string) StageChangeOutput {
	previous := lead.Status
	if entity.IsTerminal(previous) {
		return failedStageChange(CodeTerminalStage,
			fmt.Sprintf("lead is already %s", entity.StageLabel(previous)))
	}

	expectedVersion := lead.Version
	prevNotes := lead.Notes
	prevUpdatedAt := lead.UpdatedAt

	metadata := map[string]any{
		"previousStatus": previous,
		"newStatus":      string(target),
	}
	description := fmt.Sprintf("Etapa canviada de %s a %s",
		entity.StageLabel(previous), entity.StageLabel(string(target)))
	if target == entity.StageLost && lostReason != "" {
		metadata["reason"] = lostReason
	}

	txn := NewTransaction(uc.Logger)
	txn.AddOperation("update_lead_stage", func(ctx context.Context) error {
		lead.Status = string(target)
		lead.UpdatedAt = uc.Now()
		if target == entity.StageLost && lostReason != "" {
			lead.AppendNote("Motiu de pèrdua: " + lostReason)
		}
		return uc.LeadRepo.Update(ctx, lead, expectedVersion)
	})
	txn.AddCompensation("restore_lead_stage", func(ctx context.Context) error {
		lead.Status = previous
		lead.Notes = prevNotes
		lead.UpdatedAt = prevUpdatedAt
		return uc.LeadRepo.Update(ctx, lead, lead.Version)
	})
	txn.AddOperation("create_activity", func(ctx context.Context) error {
		activity := entity.NewLeadActivity(lead.ID, actingUserID, entity.ActivityStageChange, description, metadata)
		activity.CreatedAt = uc.Now()
		return uc.ActivityRepo.Create(ctx, activity)
	})

	if err := txn.Execute(ctx); err != nil {
		// keep the caller's view of the lead unchanged
		lead.Status = previous
		lead.Notes = prevNotes
		switch {
		case errors.Is(err, entity.ErrVersionConflict):
			return failedStageChange(CodeStageConflict, "lead was modified by another request, reload and retry")
		case errors.Is(err, entity.ErrLeadNotFound):
			return failedStageChange(CodeLeadNotFound, "lead not found")
		case errors.Is(err, entity.ErrUserNotFound):
			return failedStageChange(CodeUserNotFound, "acting user not found")
		}
		uc.Logger.Error("❌ failed to change lead stage",
			zap.String("lead_id", lead.ID),
			zap.String("target", string(target)),
			zap.Error(err))
		return failedStageChange(CodeDatabase, "failed to update lead stage")
	}

	uc.Logger.Info("🔄 lead stage changed",
		zap.String("lead_id", lead.ID),
		zap.String("from", previous),
		zap.String("to", string(target)),
		zap.String("user_id", actingUserID))

	// the stage change is committed; notifications are best effort
	uc.notifyTransition(ctx, lead, previous, target)

	return StageChangeOutput{Success: true, NewStatus: string(target), PreviousStatus: previous}
}

func (uc *LeadStageUseCase) notifyTransition(ctx context.Context, lead *entity.Lead, previous string, target entity.Stage) {
	if previous == string(target) {
		return
	}
	leadID := lead.ID

	switch target {
	case entity.StagePendingCRM:
		uc.notifyAudience(ctx, lead, "crm", uc.Audience.CRMUserIDs, NotificationPayload{
			Type:     entity.WorkflowLeadToVerify,
			Title:    fmt.Sprintf("Nou lead per verificar: %s", lead.CompanyName),
			Message:  fmt.Sprintf("El lead %s està pendent de verificació CRM.", lead.CompanyName),
			Link:     leadLink(uc.BaseURL, "crm", leadID),
			Metadata: map[string]any{"previousStatus": previous, "priority": string(lead.Priority)},
			LeadID:   &leadID,
		})
	case entity.StagePendingAdmin:
		uc.notifyAudience(ctx, lead, "admin", uc.Audience.AdminUserIDs, NotificationPayload{
			Type:     entity.WorkflowLeadVerified,
			Title:    fmt.Sprintf("Lead verificat pendent d'aprovació: %s", lead.CompanyName),
			Message:  fmt.Sprintf("El lead %s ha estat verificat per CRM i necessita aprovació d'Admin.", lead.CompanyName),
			Link:     leadLink(uc.BaseURL, "admin", leadID),
			Metadata: map[string]any{"previousStatus": previous, "priority": string(lead.Priority)},
			LeadID:   &leadID,
		})
	case entity.StageWon, entity.StageLost:
		if !lead.IsAssigned() {
			return
		}
		payload := NotificationPayload{
			Type:    entity.WorkflowLeadWon,
			Title:   fmt.Sprintf("Lead guanyat: %s", lead.CompanyName),
			Message: fmt.Sprintf("Enhorabona! El lead %s s'ha marcat com a guanyat.", lead.CompanyName),
			Link:    leadLink(uc.BaseURL, "gestor", leadID),
			LeadID:  &leadID,
		}
		if target == entity.StageLost {
			payload.Type = entity.WorkflowLeadLost
			payload.Title = fmt.Sprintf("Lead perdut: %s", lead.CompanyName)
			payload.Message = fmt.Sprintf("El lead %s s'ha marcat com a perdut.", lead.CompanyName)
		}
		if _, err := uc.Notifier.CreateNotification(ctx, *lead.AssignedToID, payload); err != nil {
			uc.Logger.Warn("⚠️ stage changed but gestor notification failed",
				zap.String("lead_id", leadID), zap.Error(err))
		}
	}
}

func (uc *LeadStageUseCase) notifyAudience(ctx context.Context, lead *entity.Lead, audience string, resolve func(context.Context) ([]string, error), payload NotificationPayload) {
	ids, err := resolve(ctx)
	if err != nil {
		uc.Logger.Warn("⚠️ stage changed but audience lookup failed",
			zap.String("lead_id", lead.ID),
			zap.String("audience", audience),
			zap.Error(err))
		return
	}
	if len(ids) == 0 {
		uc.Logger.Warn("⚠️ no recipients for escalation",
			zap.String("lead_id", lead.ID),
			zap.String("audience", audience))
		return
	}
	created, err := uc.Notifier.CreateBulkNotifications(ctx, ids, payload)
	if err != nil {
		uc.Logger.Warn("⚠️ stage changed but escalation notifications failed",
			zap.String("lead_id", lead.ID),
			zap.String("audience", audience),
			zap.Error(err))
		return
	}
	uc.Logger.Info("📣 escalation sent",
		zap.String("lead_id", lead.ID),
		zap.String("audience", audience),
		zap.Int("recipients", len(created)))
}

func leadLink(baseURL, area, leadID string) string {
	return fmt.Sprintf("%s/%s/leads/%s", baseURL, area, leadID)
}
