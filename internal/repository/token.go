package repository

import (
	"context"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
)

type ConsumeTokenInput struct {
	TokenHash string
	Purpose   domain.Purpose
	RequestIP string
}

type TokenRepository interface {
	Create(ctx context.Context, token *domain.Token) error

	// Consume marks a matching unconsumed, unexpired token as consumed and
	// returns it. Check and update happen in one statement so concurrent
	// callers cannot both succeed. Anything else yields domain.ErrTokenInvalid.
	Consume(ctx context.Context, input ConsumeTokenInput) (*domain.Token, error)

	// Purge deletes tokens that expired or were consumed before cutoff.
	Purge(ctx context.Context, cutoff time.Time) (int64, error)
}
