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

type AssignLeadInput struct {
	LeadID       string `json:"lead_id"`
	AssigneeID   string `json:"assignee_id"`
	ActingUserID string `json:"acting_user_id"`
}

type AssignLeadUseCase struct {
	LeadRepo     entity.LeadRepositoryInterface
	ActivityRepo entity.ActivityRepositoryInterface
	UserRepo     entity.UserRepositoryInterface
	Notifier     NotificationSender
	Logger       *zap.Logger
	BaseURL      string
	Now          func() time.Time
}

func NewAssignLeadUseCase(
	leadRepo entity.LeadRepositoryInterface,
	activityRepo entity.ActivityRepositoryInterface,
	userRepo entity.UserRepositoryInterface,
	notifier NotificationSender,
	logger *zap.Logger,
	baseURL string,
) *AssignLeadUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignLeadUseCase{
		LeadRepo:     leadRepo,
		ActivityRepo: activityRepo,
		UserRepo:     userRepo,
		Notifier:     notifier,
		Logger:       logger,
		BaseURL:      strings.TrimRight(baseURL, "/"),
		Now:          time.Now,
	}
}

func (uc *AssignLeadUseCase) Execute(ctx context.Context, input AssignLeadInput) (*entity.Lead, error) {
	if errs := ValidateAssignLeadInput(input); len(errs) > 0 {
		return nil, &DomainError{Code: CodeValidation, Message: joinValidationErrors(errs)}
	}

	assignee, err := uc.UserRepo.FindByID(ctx, input.AssigneeID)
	if errors.Is(err, entity.ErrUserNotFound) || (err == nil && !assignee.Active) {
		return nil, &DomainError{Code: CodeUserNotFound, Message: "assignee not found"}
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to load assignee", Err: err}
	}

	lead, err := uc.LeadRepo.FindByID(ctx, input.LeadID)
	if errors.Is(err, entity.ErrLeadNotFound) {
		return nil, &DomainError{Code: CodeLeadNotFound, Message: "lead not found"}
	}
	if err != nil {
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to load lead", Err: err}
	}
	if entity.IsTerminal(lead.Status) {
		return nil, &DomainError{Code: CodeTerminalStage, Message: "closed leads cannot be reassigned"}
	}
	if lead.IsAssigned() && *lead.AssignedToID == assignee.ID {
		return lead, nil
	}

	var previous string
	if lead.IsAssigned() {
		previous = *lead.AssignedToID
	}
	expectedVersion := lead.Version
	assigneeID := assignee.ID
	lead.AssignedToID = &assigneeID
	lead.UpdatedAt = uc.Now()

	if err := uc.LeadRepo.Update(ctx, lead, expectedVersion); err != nil {
		switch {
		case errors.Is(err, entity.ErrVersionConflict):
			return nil, &DomainError{Code: CodeStageConflict, Message: "lead was modified by another request, reload and retry"}
		case errors.Is(err, entity.ErrLeadNotFound):
			return nil, &DomainError{Code: CodeLeadNotFound, Message: "lead not found"}
		}
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to assign lead", Err: err}
	}

	activity := entity.NewLeadActivity(lead.ID, input.ActingUserID, entity.ActivityNote,
		fmt.Sprintf("Lead assignat a %s", assignee.Name),
		map[string]any{"previousAssignee": previous, "newAssignee": assignee.ID})
	if err := uc.ActivityRepo.Create(ctx, activity); err != nil {
		uc.Logger.Warn("⚠️ lead assigned but activity not recorded",
			zap.String("lead_id", lead.ID), zap.Error(err))
	}

	if assignee.ID != input.ActingUserID {
		notifyAssignee(ctx, uc.Notifier, uc.Logger, uc.BaseURL, lead)
	}
	return lead, nil
}
