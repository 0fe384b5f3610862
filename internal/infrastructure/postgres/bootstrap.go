package postgres

import (
	"context"
	"fmt"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

const DefaultProjectName = "Default"

var documentTypes = []domain.DocumentType{
	{ID: 1, Name: "CPF", Description: "Cadastro de Pessoas Física"},
	{ID: 2, Name: "CNPJ", Description: "Cadastro Nacional de Pessoas Jurídicas"},
}

// EnsureRoles creates the bootstrap roles if missing. Safe to run on every start.
func EnsureRoles(ctx context.Context, pool *pgxpool.Pool) error {
	for _, name := range domain.BootstrapRoles {
		_, err := pool.Exec(ctx,
			`INSERT INTO roles (name, description) VALUES ($1, $1) ON CONFLICT (name) DO NOTHING`,
			string(name),
		)
		if err != nil {
			return fmt.Errorf("ensure role %s: %w", name, err)
		}
	}
	return nil
}

// Bootstrap seeds the default project, document types and roles and returns
// the default project id.
func Bootstrap(ctx context.Context, pool *pgxpool.Pool) (int64, error) {
	var projectID int64
	err := pool.QueryRow(ctx, `
		INSERT INTO projects (name, description)
		VALUES ($1, $1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING project_id`,
		DefaultProjectName,
	).Scan(&projectID)
	if err != nil {
		return 0, fmt.Errorf("ensure default project: %w", err)
	}

	for _, dt := range documentTypes {
		_, err := pool.Exec(ctx, `
			INSERT INTO document_types (document_type_id, name, description)
			VALUES ($1, $2, $3)
			ON CONFLICT (document_type_id) DO NOTHING`,
			dt.ID, dt.Name, dt.Description,
		)
		if err != nil {
			return 0, fmt.Errorf("ensure document type %s: %w", dt.Name, err)
		}
	}

	if err := EnsureRoles(ctx, pool); err != nil {
		return 0, err
	}
	return projectID, nil
}
