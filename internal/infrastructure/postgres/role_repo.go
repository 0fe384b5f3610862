package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type RoleRepository struct {
	pool *pgxpool.Pool
}

func NewRoleRepository(pool *pgxpool.Pool) *RoleRepository {
	return &RoleRepository{pool: pool}
}

func (r *RoleRepository) GetByName(ctx context.Context, name domain.RoleName) (*domain.Role, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT role_id, name, description FROM roles WHERE name = $1`, string(name))
	return scanRole(row)
}

func (r *RoleRepository) ListByIDs(ctx context.Context, ids []int64) ([]*domain.Role, error) {
	if len(ids) == 0 {
		return []*domain.Role{}, nil
	}

	rows, err := r.pool.Query(ctx,
		`SELECT role_id, name, description FROM roles WHERE role_id = ANY($1) ORDER BY role_id`, ids)
	if err != nil {
		return nil, fmt.Errorf("list roles: %w", err)
	}
	defer rows.Close()

	roles := make([]*domain.Role, 0, len(ids))
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, err
		}
		roles = append(roles, role)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate roles: %w", err)
	}
	return roles, nil
}

func scanRole(row pgx.Row) (*domain.Role, error) {
	var (
		role domain.Role
		name string
	)
	if err := row.Scan(&role.ID, &name, &role.Description); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrRoleNotFound
		}
		return nil, fmt.Errorf("scan role: %w", err)
	}

	parsed, err := domain.ParseRoleName(name)
	if err != nil {
		return nil, fmt.Errorf("scan role %d: %w", role.ID, err)
	}
	role.Name = parsed
	return &role, nil
}
