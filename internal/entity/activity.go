package entity

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ActivityType string

const (
	ActivityCreated     ActivityType = "CREATED"
	ActivityStageChange ActivityType = "STAGE_CHANGE"
	ActivityNote        ActivityType = "NOTE"
)

// LeadActivity is an append-only audit row.
type LeadActivity struct {
	ID          string         `json:"id"`
	LeadID      string         `json:"lead_id"`
	UserID      string         `json:"user_id"`
	Type        ActivityType   `json:"type"`
	Description string         `json:"description"`
	Metadata    map[string]any `json:"metadata,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}

func NewLeadActivity(leadID, userID string, activityType ActivityType, description string, metadata map[string]any) *LeadActivity {
	return &LeadActivity{
		ID:          uuid.New().String(),
		LeadID:      leadID,
		UserID:      userID,
		Type:        activityType,
		Description: description,
		Metadata:    metadata,
		CreatedAt:   time.Now(),
	}
}

type ActivityRepositoryInterface interface {
	Create(ctx context.Context, activity *LeadActivity) error
	ListByLead(ctx context.Context, leadID string) ([]*LeadActivity, error)
}
