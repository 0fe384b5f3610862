package repository

import (
	"context"

	"github.com/bomdev/auth-service/internal/domain"
)

// UserRepository is the credential store. Every lookup is scoped by project
// except FindByID.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string, projectID int64) (*domain.User, error)
	FindByID(ctx context.Context, id int64) (*domain.User, error)
	Exists(ctx context.Context, email string, projectID int64) (bool, error)

	// CreateWithRole inserts the user and its first role binding atomically.
	// A duplicate (email, project) returns domain.ErrUserExists.
	CreateWithRole(ctx context.Context, user *domain.User, roleID int64) (*domain.User, error)

	UpdatePassword(ctx context.Context, userID int64, digest string) error
	ConfirmEmail(ctx context.Context, userID int64) error
	BindRole(ctx context.Context, userID, roleID int64) error
	FindRoleBindings(ctx context.Context, userID int64) ([]int64, error)
}
