package entity

import (
	"context"
	"errors"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

const (
	LeadSourceManual   = "manual"
	LeadSourceSourcing = "sourcing"
)

// Lead is a prospective company tracked through the sales pipeline.
// Status is the only writable pipeline field; the stage column in the
// database is generated from it.
type Lead struct {
	ID           string    `json:"id"`
	CompanyName  string    `json:"company_name"`
	ContactName  string    `json:"contact_name,omitempty"`
	ContactEmail string    `json:"contact_email,omitempty"`
	ContactPhone string    `json:"contact_phone,omitempty"`
	Status       string    `json:"status"`
	Priority     Priority  `json:"priority"`
	AssignedToID *string   `json:"assigned_to_id,omitempty"`
	Notes        string    `json:"notes,omitempty"`
	Source       string    `json:"source"`
	Version      int       `json:"version"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Stage is the filtering projection of Status.
func (l *Lead) Stage() string {
	return l.Status
}

func (l *Lead) IsAssigned() bool {
	return l.AssignedToID != nil && *l.AssignedToID != ""
}

// AppendNote adds a line to the free-text notes.
func (l *Lead) AppendNote(note string) {
	note = strings.TrimSpace(note)
	if note == "" {
		return
	}
	if l.Notes == "" {
		l.Notes = note
		return
	}
	l.Notes = l.Notes + "\n" + note
}

// NewLead builds a lead in the initial stage.
func NewLead(companyName, contactName, contactEmail, contactPhone string, priority Priority, assignedToID *string, source string) (*Lead, error) {
	if priority == "" {
		priority = PriorityMedium
	}
	if source == "" {
		source = LeadSourceManual
	}
	now := time.Now()
	lead := &Lead{
		ID:           uuid.New().String(),
		CompanyName:  strings.TrimSpace(companyName),
		ContactName:  strings.TrimSpace(contactName),
		ContactEmail: strings.TrimSpace(contactEmail),
		ContactPhone: strings.TrimSpace(contactPhone),
		Status:       string(StageNew),
		Priority:     priority,
		AssignedToID: assignedToID,
		Source:       source,
		Version:      1,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := lead.Validate(); err != nil {
		return nil, err
	}
	return lead, nil
}

func (l *Lead) Validate() error {
	if l.CompanyName == "" {
		return errors.New("company name is required")
	}
	if !l.Priority.Valid() {
		return errors.New("priority must be low, medium, high or urgent")
	}
	if l.ContactEmail != "" {
		if _, err := mail.ParseAddress(l.ContactEmail); err != nil {
			return errors.New("contact email is invalid")
		}
	}
	if !IsKnownStatus(l.Status) {
		return errors.New("status is not a known stage")
	}
	if l.Source != LeadSourceManual && l.Source != LeadSourceSourcing {
		return errors.New("source must be manual or sourcing")
	}
	return nil
}

// StaleLeadFilter selects assigned leads whose last update is older than
// UpdatedBefore. Statuses and ExcludeStatuses are mutually exclusive.
type StaleLeadFilter struct {
	Statuses        []string
	ExcludeStatuses []string
	UpdatedBefore   time.Time
}

type LeadRepositoryInterface interface {
	Create(ctx context.Context, lead *Lead) error
	FindByID(ctx context.Context, id string) (*Lead, error)
	// Update persists status, priority, assignment and notes when the stored
	// version still equals expectedVersion, and bumps lead.Version on success.
	// It returns ErrVersionConflict when the row moved on and ErrLeadNotFound
	// when it is gone.
	Update(ctx context.Context, lead *Lead, expectedVersion int) error
	ListStale(ctx context.Context, filter StaleLeadFilter) ([]*Lead, error)
	Delete(ctx context.Context, id string) error
}
