package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/lapublica/leadflow/internal/entity"
)

const leadColumns = `id, company_name, contact_name, contact_email, contact_phone, status,
	priority, assigned_to_id, notes, source, version, created_at, updated_at`

type LeadRepository struct {
	DB *sql.DB
}

func NewLeadRepository(db *sql.DB) *LeadRepository {
	return &LeadRepository{DB: db}
}

func (r *LeadRepository) Create(ctx context.Context, lead *entity.Lead) error {
	query := `
		INSERT INTO leads (id, company_name, contact_name, contact_email, contact_phone, status,
			priority, assigned_to_id, notes, source, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`
	_, err := r.DB.ExecContext(ctx, query,
		lead.ID,
		lead.CompanyName,
		nullString(lead.ContactName),
		nullString(lead.ContactEmail),
		nullString(lead.ContactPhone),
		lead.Status,
		string(lead.Priority),
		lead.AssignedToID,
		lead.Notes,
		lead.Source,
		lead.Version,
		lead.CreatedAt,
		lead.UpdatedAt,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return entity.ErrUserNotFound
		}
		return fmt.Errorf("insert lead: %w", err)
	}
	return nil
}

func (r *LeadRepository) FindByID(ctx context.Context, id string) (*entity.Lead, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+leadColumns+` FROM leads WHERE id = $1`, id)
	lead, err := scanLead(row)
	if errors.Is(err, sql.ErrNoRows) || pgCode(err) == pgInvalidTextRepr {
		return nil, entity.ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find lead: %w", err)
	}
	return lead, nil
}

func (r *LeadRepository) Update(ctx context.Context, lead *entity.Lead, expectedVersion int) error {
	query := `
		UPDATE leads
		SET status = $1, priority = $2, assigned_to_id = $3, notes = $4,
			updated_at = $5, version = version + 1
		WHERE id = $6 AND version = $7
	`
	res, err := r.DB.ExecContext(ctx, query,
		lead.Status,
		string(lead.Priority),
		lead.AssignedToID,
		lead.Notes,
		lead.UpdatedAt,
		lead.ID,
		expectedVersion,
	)
	if err != nil {
		if pgCode(err) == pgForeignKeyViolation {
			return entity.ErrUserNotFound
		}
		return fmt.Errorf("update lead: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update lead: %w", err)
	}
	if affected == 0 {
		var exists bool
		if err := r.DB.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM leads WHERE id = $1)`, lead.ID).Scan(&exists); err != nil {
			return fmt.Errorf("check lead: %w", err)
		}
		if !exists {
			return entity.ErrLeadNotFound
		}
		return entity.ErrVersionConflict
	}

	lead.Version = expectedVersion + 1
	return nil
}

// ListStale filters on the generated stage column and only returns assigned leads.
func (r *LeadRepository) ListStale(ctx context.Context, filter entity.StaleLeadFilter) ([]*entity.Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE assigned_to_id IS NOT NULL AND updated_at < $1`
	args := []any{filter.UpdatedBefore}

	switch {
	case len(filter.Statuses) > 0:
		query += ` AND stage = ANY($2)`
		args = append(args, pq.Array(filter.Statuses))
	case len(filter.ExcludeStatuses) > 0:
		query += ` AND NOT (stage = ANY($2))`
		args = append(args, pq.Array(filter.ExcludeStatuses))
	}
	query += ` ORDER BY updated_at ASC`

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list stale leads: %w", err)
	}
	defer rows.Close()

	var leads []*entity.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("scan lead: %w", err)
		}
		leads = append(leads, lead)
	}
	return leads, rows.Err()
}

func (r *LeadRepository) Delete(ctx context.Context, id string) error {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete lead: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return entity.ErrLeadNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(s rowScanner) (*entity.Lead, error) {
	var (
		lead                             entity.Lead
		contactName, contactEmail, phone sql.NullString
		assignedTo                       sql.NullString
		priority                         string
	)
	err := s.Scan(
		&lead.ID,
		&lead.CompanyName,
		&contactName,
		&contactEmail,
		&phone,
		&lead.Status,
		&priority,
		&assignedTo,
		&lead.Notes,
		&lead.Source,
		&lead.Version,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	lead.ContactName = contactName.String
	lead.ContactEmail = contactEmail.String
	lead.ContactPhone = phone.String
	lead.Priority = entity.Priority(priority)
	if assignedTo.Valid {
		id := assignedTo.String
		lead.AssignedToID = &id
	}
	return &lead, nil
}
