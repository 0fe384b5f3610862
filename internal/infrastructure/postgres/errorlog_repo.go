package postgres

import (
	"context"
	"fmt"

	"github.com/bomdev/auth-service/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ErrorLogRepository struct {
	pool *pgxpool.Pool
}

func NewErrorLogRepository(pool *pgxpool.Pool) *ErrorLogRepository {
	return &ErrorLogRepository{pool: pool}
}

func (r *ErrorLogRepository) Insert(ctx context.Context, e *repository.ErrorLogEntry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO error_log (endpoint, code, severity, message, details, user_id, ip_address, ticket)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		e.Endpoint, e.Code, e.Severity, e.Message, e.Details, e.UserID, e.IPAddress, e.Ticket,
	)
	if err != nil {
		return fmt.Errorf("insert error log: %w", err)
	}
	return nil
}
