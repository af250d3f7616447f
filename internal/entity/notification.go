package entity

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// NotificationType is the persisted category. The schema keeps fewer
// categories than the workflow distinguishes.
type NotificationType string

const (
	NotificationGeneral         NotificationType = "GENERAL"
	NotificationLeadToVerify    NotificationType = "LEAD_TO_VERIFY"
	NotificationLeadVerified    NotificationType = "LEAD_VERIFIED"
	NotificationCompanyApproved NotificationType = "COMPANY_APPROVED"
	NotificationCompanyRejected NotificationType = "COMPANY_REJECTED"
)

// WorkflowNotification is the semantic kind raised by the lead workflow.
type WorkflowNotification string

const (
	WorkflowLeadToVerify WorkflowNotification = "LEAD_TO_VERIFY"
	WorkflowLeadVerified WorkflowNotification = "LEAD_VERIFIED"
	WorkflowLeadInactive WorkflowNotification = "LEAD_INACTIVE"
	WorkflowLeadExpiring WorkflowNotification = "LEAD_EXPIRING"
	WorkflowLeadAssigned WorkflowNotification = "LEAD_ASSIGNED"
	WorkflowLeadWon      WorkflowNotification = "LEAD_WON"
	WorkflowLeadLost     WorkflowNotification = "LEAD_LOST"
	WorkflowLeadRejected WorkflowNotification = "LEAD_REJECTED"
)

// WorkflowNotifications lists every workflow kind; PersistedType must map all of them.
func WorkflowNotifications() []WorkflowNotification {
	return []WorkflowNotification{
		WorkflowLeadToVerify,
		WorkflowLeadVerified,
		WorkflowLeadInactive,
		WorkflowLeadExpiring,
		WorkflowLeadAssigned,
		WorkflowLeadWon,
		WorkflowLeadLost,
		WorkflowLeadRejected,
	}
}

// PersistedType narrows a workflow kind onto the stored category. Unknown kinds
// are an error so a new kind cannot silently land in GENERAL.
func (w WorkflowNotification) PersistedType() (NotificationType, error) {
	switch w {
	case WorkflowLeadToVerify:
		return NotificationLeadToVerify, nil
	case WorkflowLeadVerified:
		return NotificationLeadVerified, nil
	case WorkflowLeadInactive, WorkflowLeadExpiring, WorkflowLeadAssigned, WorkflowLeadLost:
		return NotificationGeneral, nil
	case WorkflowLeadWon:
		return NotificationCompanyApproved, nil
	case WorkflowLeadRejected:
		return NotificationCompanyRejected, nil
	}
	return "", fmt.Errorf("unmapped workflow notification %q", string(w))
}

type Notification struct {
	ID        string           `json:"id"`
	UserID    string           `json:"user_id"`
	Type      NotificationType `json:"type"`
	Title     string           `json:"title"`
	Message   string           `json:"message"`
	Link      string           `json:"link,omitempty"`
	Metadata  map[string]any   `json:"metadata,omitempty"`
	IsRead    bool             `json:"is_read"`
	ReadAt    *time.Time       `json:"read_at,omitempty"`
	LeadID    *string          `json:"lead_id,omitempty"`
	CompanyID *string          `json:"company_id,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
}

func NewNotification(userID string, notificationType NotificationType, title, message, link string, metadata map[string]any, leadID, companyID *string) *Notification {
	return &Notification{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      notificationType,
		Title:     title,
		Message:   message,
		Link:      link,
		Metadata:  metadata,
		LeadID:    leadID,
		CompanyID: companyID,
		CreatedAt: time.Now(),
	}
}

// NotificationFilter matches notifications created at or after Since. Empty
// fields do not constrain the match.
type NotificationFilter struct {
	UserID        string
	LeadID        string
	Type          NotificationType
	TitleContains string
	UnreadOnly    bool
	Since         time.Time
}

type NotificationRepositoryInterface interface {
	Create(ctx context.Context, n *Notification) error
	CreateMany(ctx context.Context, ns []*Notification) error
	// MarkAsRead keeps the first read timestamp when called again.
	MarkAsRead(ctx context.Context, id string, at time.Time) error
	MarkAllAsRead(ctx context.Context, userID string, at time.Time) (int64, error)
	Count(ctx context.Context, filter NotificationFilter) (int, error)
	ListByUser(ctx context.Context, userID string, unreadOnly bool, limit int) ([]*Notification, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time, readOnly bool) (int64, error)
}
