package repository

import (
	"context"

	"github.com/bomdev/auth-service/internal/domain"
)

type RoleRepository interface {
	GetByName(ctx context.Context, name domain.RoleName) (*domain.Role, error)
	// ListByIDs returns roles ordered by id; unknown ids are skipped.
	ListByIDs(ctx context.Context, ids []int64) ([]*domain.Role, error)
}
