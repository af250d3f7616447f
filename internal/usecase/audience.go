package usecase

import (
	"context"

	"github.com/lapublica/leadflow/internal/entity"
)

// RoleAudience resolves escalation audiences from user roles.
type RoleAudience struct {
	Users entity.UserRepositoryInterface
}

func NewRoleAudience(users entity.UserRepositoryInterface) *RoleAudience {
	return &RoleAudience{Users: users}
}

func (a *RoleAudience) CRMUserIDs(ctx context.Context) ([]string, error) {
	return a.Users.FindIDsByRole(ctx, entity.RoleCRM)
}

func (a *RoleAudience) AdminUserIDs(ctx context.Context) ([]string, error) {
	return a.Users.FindIDsByRole(ctx, entity.RoleAdmin)
}
