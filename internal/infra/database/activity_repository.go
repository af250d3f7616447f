package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/lapublica/leadflow/internal/entity"
)

type ActivityRepository struct {
	DB *sql.DB
}

func NewActivityRepository(db *sql.DB) *ActivityRepository {
	return &ActivityRepository{DB: db}
}

func (r *ActivityRepository) Create(ctx context.Context, a *entity.LeadActivity) error {
	metadata, err := marshalMetadata(a.Metadata)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO lead_activities (id, lead_id, user_id, type, description, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err = r.DB.ExecContext(ctx, query,
		a.ID,
		a.LeadID,
		a.UserID,
		string(a.Type),
		a.Description,
		metadata,
		a.CreatedAt,
	)
	if err != nil {
		// the lead row is written first in every caller, so a missing or
		// malformed reference is the acting user
		switch pgCode(err) {
		case pgForeignKeyViolation, pgInvalidTextRepr:
			return fmt.Errorf("insert activity: %w", entity.ErrUserNotFound)
		}
		return fmt.Errorf("insert activity: %w", err)
	}
	return nil
}

func (r *ActivityRepository) ListByLead(ctx context.Context, leadID string) ([]*entity.LeadActivity, error) {
	query := `
		SELECT id, lead_id, user_id, type, description, metadata, created_at
		FROM lead_activities
		WHERE lead_id = $1
		ORDER BY created_at ASC
	`
	rows, err := r.DB.QueryContext(ctx, query, leadID)
	if err != nil {
		return nil, fmt.Errorf("list activities: %w", err)
	}
	defer rows.Close()

	var out []*entity.LeadActivity
	for rows.Next() {
		var (
			a        entity.LeadActivity
			kind     string
			metadata []byte
		)
		if err := rows.Scan(&a.ID, &a.LeadID, &a.UserID, &kind, &a.Description, &metadata, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan activity: %w", err)
		}
		a.Type = entity.ActivityType(kind)
		if a.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}

// marshalMetadata returns nil for empty maps so the column stays NULL.
func marshalMetadata(m map[string]any) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(m)
	if err != nil {
		return nil, fmt.Errorf("encode metadata: %w", err)
	}
	return b, nil
}

func unmarshalMetadata(b []byte) (map[string]any, error) {
	if len(b) == 0 {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("decode metadata: %w", err)
	}
	return m, nil
}
