package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TokenRepository struct {
	pool *pgxpool.Pool
}

func NewTokenRepository(pool *pgxpool.Pool) *TokenRepository {
	return &TokenRepository{pool: pool}
}

func (r *TokenRepository) Create(ctx context.Context, t *domain.Token) error {
	err := r.pool.QueryRow(ctx, `
		INSERT INTO tokens (token_hash, user_id, purpose, issuing_ip, ip_bound, payload, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`,
		t.TokenHash, t.UserID, string(t.Purpose), t.IssuingIP, t.IPBound, t.Payload, t.ExpiresAt,
	).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert token: %w", err)
	}
	return nil
}

// Consume claims the token with a single conditional UPDATE; the row lock
// taken by the update serialises concurrent consumers of the same hash.
func (r *TokenRepository) Consume(ctx context.Context, in repository.ConsumeTokenInput) (*domain.Token, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE tokens
		SET    consumed_at = NOW()
		WHERE  token_hash  = $1
		  AND  purpose     = $2
		  AND  consumed_at IS NULL
		  AND  expires_at  > NOW()
		  AND  (NOT ip_bound OR issuing_ip = $3)
		RETURNING id, token_hash, user_id, purpose, issuing_ip, ip_bound,
		          payload, created_at, expires_at, consumed_at`,
		in.TokenHash, string(in.Purpose), in.RequestIP,
	)

	var (
		t       domain.Token
		purpose string
	)
	err := row.Scan(&t.ID, &t.TokenHash, &t.UserID, &purpose, &t.IssuingIP, &t.IPBound,
		&t.Payload, &t.CreatedAt, &t.ExpiresAt, &t.ConsumedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("consume token: %w", err)
	}
	if t.Purpose, err = domain.ParsePurpose(purpose); err != nil {
		return nil, fmt.Errorf("consume token: %w", err)
	}
	return &t, nil
}

func (r *TokenRepository) Purge(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM tokens WHERE expires_at < $1 OR consumed_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
