package usecase

import (
	"context"
	"fmt"
	"slices"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/repository"
)

type RoleResolver struct {
	roles      repository.RoleRepository
	users      repository.UserRepository
	superUsers []domain.RoleName
}

// NewRoleResolver treats every role in superUsers as granting cross-project
// access.
func NewRoleResolver(roles repository.RoleRepository, users repository.UserRepository, superUsers []domain.RoleName) *RoleResolver {
	return &RoleResolver{
		roles:      roles,
		users:      users,
		superUsers: slices.Clone(superUsers),
	}
}

func (r *RoleResolver) GetRoleIDByName(ctx context.Context, name domain.RoleName) (int64, error) {
	role, err := r.roles.GetByName(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("get role %s: %w", name, err)
	}
	return role.ID, nil
}

// GetRoleNamesByIDs returns names in role-id order; an empty input yields an
// empty result without touching the store.
func (r *RoleResolver) GetRoleNamesByIDs(ctx context.Context, ids []int64) ([]domain.RoleName, error) {
	if len(ids) == 0 {
		return []domain.RoleName{}, nil
	}

	roles, err := r.roles.ListByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}

	names := make([]domain.RoleName, 0, len(roles))
	for _, role := range roles {
		names = append(names, role.Name)
	}
	return names, nil
}

func (r *RoleResolver) IsSuperUser(names []domain.RoleName) bool {
	for _, name := range names {
		if slices.Contains(r.superUsers, name) {
			return true
		}
	}
	return false
}

// Resolve loads the user's bindings. A user without any binding is a data
// fault, reported as domain.ErrNoRoles.
func (r *RoleResolver) Resolve(ctx context.Context, userID int64) (domain.RoleSet, error) {
	ids, err := r.users.FindRoleBindings(ctx, userID)
	if err != nil {
		return domain.RoleSet{}, fmt.Errorf("find role bindings: %w", err)
	}
	if len(ids) == 0 {
		return domain.RoleSet{}, fmt.Errorf("user %d: %w", userID, domain.ErrNoRoles)
	}

	names, err := r.GetRoleNamesByIDs(ctx, ids)
	if err != nil {
		return domain.RoleSet{}, err
	}
	if len(names) == 0 {
		return domain.RoleSet{}, fmt.Errorf("user %d: %w", userID, domain.ErrNoRoles)
	}

	return domain.RoleSet{Names: names, SuperUser: r.IsSuperUser(names)}, nil
}
