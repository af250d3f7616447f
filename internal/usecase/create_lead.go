package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/lapublica/leadflow/internal/entity"
)

type CreateLeadInput struct {
	CompanyName  string  `json:"company_name"`
	ContactName  string  `json:"contact_name"`
	ContactEmail string  `json:"contact_email"`
	ContactPhone string  `json:"contact_phone"`
	Priority     string  `json:"priority"`
	AssignedToID *string `json:"assigned_to_id"`
	Source       string  `json:"source"`
	CreatedByID  string  `json:"created_by_id"`
}

type CreateLeadOutput struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Msg    string `json:"msg"`
}

type CreateLeadUseCase struct {
	LeadRepo     entity.LeadRepositoryInterface
	ActivityRepo entity.ActivityRepositoryInterface
	Notifier     NotificationSender
	Logger       *zap.Logger
	BaseURL      string
}

func NewCreateLeadUseCase(
	leadRepo entity.LeadRepositoryInterface,
	activityRepo entity.ActivityRepositoryInterface,
	notifier NotificationSender,
	logger *zap.Logger,
	baseURL string,
) *CreateLeadUseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CreateLeadUseCase{
		LeadRepo:     leadRepo,
		ActivityRepo: activityRepo,
		Notifier:     notifier,
		Logger:       logger,
		BaseURL:      strings.TrimRight(baseURL, "/"),
	}
}

func (uc *CreateLeadUseCase) Execute(ctx context.Context, input CreateLeadInput) (*CreateLeadOutput, error) {
	if errs := ValidateCreateLeadInput(input); len(errs) > 0 {
		return nil, &DomainError{Code: CodeValidation, Message: joinValidationErrors(errs)}
	}

	var assignee *string
	if input.AssignedToID != nil && strings.TrimSpace(*input.AssignedToID) != "" {
		id := strings.TrimSpace(*input.AssignedToID)
		assignee = &id
	}

	lead, err := entity.NewLead(input.CompanyName, input.ContactName, input.ContactEmail,
		input.ContactPhone, entity.Priority(input.Priority), assignee, input.Source)
	if err != nil {
		return nil, &DomainError{Code: CodeValidation, Message: err.Error()}
	}

	txn := NewTransaction(uc.Logger)
	txn.AddOperation("create_lead", func(ctx context.Context) error {
		return uc.LeadRepo.Create(ctx, lead)
	})
	txn.AddCompensation("delete_lead", func(ctx context.Context) error {
		return uc.LeadRepo.Delete(ctx, lead.ID)
	})
	txn.AddOperation("create_activity", func(ctx context.Context) error {
		return uc.ActivityRepo.Create(ctx, entity.NewLeadActivity(lead.ID, input.CreatedByID,
			entity.ActivityCreated, fmt.Sprintf("Lead creat (%s)", lead.Source),
			map[string]any{"newStatus": lead.Status, "source": lead.Source}))
	})

	if err := txn.Execute(ctx); err != nil {
		if errors.Is(err, entity.ErrUserNotFound) {
			return nil, &DomainError{Code: CodeUserNotFound, Message: "assignee or creator not found"}
		}
		return nil, &TechnicalError{Code: CodeDatabase, Message: "failed to persist lead", Err: err}
	}

	uc.Logger.Info("🆕 lead created",
		zap.String("lead_id", lead.ID),
		zap.String("company", lead.CompanyName),
		zap.String("source", lead.Source))

	if lead.IsAssigned() && *lead.AssignedToID != input.CreatedByID {
		notifyAssignee(ctx, uc.Notifier, uc.Logger, uc.BaseURL, lead)
	}

	return &CreateLeadOutput{
		ID:     lead.ID,
		Status: lead.Status,
		Msg:    "Lead creat correctament",
	}, nil
}

func notifyAssignee(ctx context.Context, notifier NotificationSender, logger *zap.Logger, baseURL string, lead *entity.Lead) {
	leadID := lead.ID
	_, err := notifier.CreateNotification(ctx, *lead.AssignedToID, NotificationPayload{
		Type:     entity.WorkflowLeadAssigned,
		Title:    fmt.Sprintf("Se t'ha assignat un lead: %s", lead.CompanyName),
		Message:  fmt.Sprintf("Tens un nou lead assignat (%s), prioritat %s.", lead.CompanyName, lead.Priority),
		Link:     leadLink(baseURL, "gestor", leadID),
		Metadata: map[string]any{"priority": string(lead.Priority)},
		LeadID:   &leadID,
	})
	if err != nil {
		logger.Warn("⚠️ assignment notification failed",
			zap.String("lead_id", leadID), zap.Error(err))
	}
}
