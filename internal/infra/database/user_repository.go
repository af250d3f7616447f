package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lapublica/leadflow/internal/entity"
)

type UserRepository struct {
	DB *sql.DB
}

func NewUserRepository(db *sql.DB) *UserRepository {
	return &UserRepository{DB: db}
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*entity.User, error) {
	var (
		u    entity.User
		role string
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT id, name, email, role, active FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &role, &u.Active)
	if errors.Is(err, sql.ErrNoRows) || pgCode(err) == pgInvalidTextRepr {
		return nil, entity.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	u.Role = entity.Role(role)
	return &u, nil
}

func (r *UserRepository) FindIDsByRole(ctx context.Context, role entity.Role) ([]string, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id FROM users WHERE role = $1 AND active ORDER BY created_at`, string(role))
	if err != nil {
		return nil, fmt.Errorf("list users by role: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
