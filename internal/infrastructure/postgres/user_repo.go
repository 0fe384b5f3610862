package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

const userColumns = `user_id, project_id, first_name, last_name, email, password,
		document, document_type_id, default_language, picture,
		enabled, email_confirmed, created_at, updated_at`

type UserRepository struct {
	pool *pgxpool.Pool
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{pool: pool}
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string, projectID int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 AND project_id = $2`

	row := r.pool.QueryRow(ctx, query, email, projectID)
	return scanUser(row)
}

func (r *UserRepository) FindByID(ctx context.Context, id int64) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE user_id = $1`

	row := r.pool.QueryRow(ctx, query, id)
	return scanUser(row)
}

func (r *UserRepository) Exists(ctx context.Context, email string, projectID int64) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM users WHERE email = $1 AND project_id = $2)`,
		email, projectID,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

// CreateWithRole runs the user insert and the default role binding in one
// transaction so a failure between them cannot leave a roleless user.
func (r *UserRepository) CreateWithRole(ctx context.Context, user *domain.User, roleID int64) (*domain.User, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	query := `
		INSERT INTO users (
			project_id, first_name, last_name, email, password,
			document, document_type_id, default_language, picture,
			enabled, email_confirmed
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING ` + userColumns

	row := tx.QueryRow(ctx, query,
		user.ProjectID,
		user.FirstName,
		user.LastName,
		user.Email,
		user.PasswordDigest,
		user.Document,
		user.DocumentTypeID,
		user.DefaultLanguage,
		user.Picture,
		user.Enabled,
		user.EmailConfirmed,
	)

	created, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("insert user: %w", err)
	}

	if _, err = tx.Exec(ctx,
		`INSERT INTO users_roles (user_id, role_id) VALUES ($1, $2)`,
		created.ID, roleID,
	); err != nil {
		return nil, fmt.Errorf("bind role: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit user: %w", err)
	}
	return created, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, userID int64, digest string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password = $2, updated_at = NOW() WHERE user_id = $1`,
		userID, digest,
	)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) ConfirmEmail(ctx context.Context, userID int64) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET email_confirmed = TRUE, updated_at = NOW() WHERE user_id = $1`,
		userID,
	)
	if err != nil {
		return fmt.Errorf("confirm email: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

func (r *UserRepository) BindRole(ctx context.Context, userID, roleID int64) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users_roles (user_id, role_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
		userID, roleID,
	)
	if err != nil {
		return fmt.Errorf("bind role: %w", err)
	}
	return nil
}

func (r *UserRepository) FindRoleBindings(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT role_id FROM users_roles WHERE user_id = $1 ORDER BY role_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("find role bindings: %w", err)
	}

	ids, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scan role bindings: %w", err)
	}
	return ids, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.ID, &u.ProjectID, &u.FirstName, &u.LastName, &u.Email, &u.PasswordDigest,
		&u.Document, &u.DocumentTypeID, &u.DefaultLanguage, &u.Picture,
		&u.Enabled, &u.EmailConfirmed, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return &u, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
