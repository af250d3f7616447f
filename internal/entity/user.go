package entity

import "context"

type Role string

const (
	RoleGestor Role = "GESTOR"
	RoleCRM    Role = "CRM"
	RoleAdmin  Role = "ADMIN"
)

type User struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
	Active bool   `json:"active"`
}

type UserRepositoryInterface interface {
	FindByID(ctx context.Context, id string) (*User, error)
	// FindIDsByRole lists active users holding role.
	FindIDsByRole(ctx context.Context, role Role) ([]string, error)
}
