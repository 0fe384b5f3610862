package usecase

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/metrics"
	"github.com/bomdev/auth-service/internal/repository"
)

const tokenBytes = 32

type CreateTokenInput struct {
	UserID    *int64
	Purpose   domain.Purpose
	ExpiresAt time.Time
	OriginIP  string // recorded when non-empty
	BindIP    bool   // consumption must then come from OriginIP
	Payload   *string
}

// TokenService mints and spends opaque single-use tokens. Callers only ever
// see the raw value; the store keeps its SHA-256.
type TokenService struct {
	repo   repository.TokenRepository
	random io.Reader
	now    func() time.Time
}

func NewTokenService(repo repository.TokenRepository) *TokenService {
	return &TokenService{repo: repo, random: rand.Reader, now: time.Now}
}

// Create persists a new token and returns its raw value.
func (s *TokenService) Create(ctx context.Context, input CreateTokenInput) (string, error) {
	if !input.Purpose.Valid() {
		return "", fmt.Errorf("create token: unknown purpose %q", input.Purpose)
	}
	if !input.ExpiresAt.After(s.now()) {
		return "", fmt.Errorf("create token: expiry %s is not in the future", input.ExpiresAt)
	}
	if input.BindIP && input.OriginIP == "" {
		return "", fmt.Errorf("create token: ip binding requested without an origin ip")
	}

	raw := make([]byte, tokenBytes)
	if _, err := io.ReadFull(s.random, raw); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	rawToken := hex.EncodeToString(raw)

	token := &domain.Token{
		TokenHash: HashToken(rawToken),
		UserID:    input.UserID,
		Purpose:   input.Purpose,
		IPBound:   input.BindIP,
		Payload:   input.Payload,
		ExpiresAt: input.ExpiresAt,
	}
	if input.OriginIP != "" {
		ip := input.OriginIP
		token.IssuingIP = &ip
	}

	if err := s.repo.Create(ctx, token); err != nil {
		return "", fmt.Errorf("store token: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues(string(input.Purpose)).Inc()
	return rawToken, nil
}

// Verify spends a token that belongs to a user and returns that user's id.
// Missing, expired, consumed or foreign-purpose tokens yield
// domain.ErrTokenInvalid.
func (s *TokenService) Verify(ctx context.Context, purpose domain.Purpose, rawToken, requestIP string) (int64, error) {
	token, err := s.VerifyAll(ctx, purpose, rawToken, requestIP)
	if err != nil {
		return 0, err
	}
	if token.UserID == nil {
		return 0, domain.ErrTokenInvalid
	}
	return *token.UserID, nil
}

// VerifyAll spends a token and returns the whole row, payload included.
func (s *TokenService) VerifyAll(ctx context.Context, purpose domain.Purpose, rawToken, requestIP string) (*domain.Token, error) {
	if rawToken == "" {
		s.observe(purpose, false)
		return nil, domain.ErrTokenInvalid
	}

	token, err := s.repo.Consume(ctx, repository.ConsumeTokenInput{
		TokenHash: HashToken(rawToken),
		Purpose:   purpose,
		RequestIP: requestIP,
	})
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) {
			s.observe(purpose, false)
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("consume token: %w", err)
	}

	s.observe(purpose, true)
	return token, nil
}

// Park stores payload as JSON behind a fresh userless token.
func (s *TokenService) Park(ctx context.Context, purpose domain.Purpose, payload any, ttl time.Duration, originIP string) (string, error) {
	var data string
	switch v := payload.(type) {
	case string:
		data = v
	default:
		b, err := json.Marshal(payload)
		if err != nil {
			return "", fmt.Errorf("encode parked payload: %w", err)
		}
		data = string(b)
	}

	return s.Create(ctx, CreateTokenInput{
		Purpose:   purpose,
		ExpiresAt: s.now().Add(ttl),
		OriginIP:  originIP,
		Payload:   &data,
	})
}

// Redeem spends a parked token and decodes its payload into dst. A string
// dst receives the payload verbatim.
func (s *TokenService) Redeem(ctx context.Context, purpose domain.Purpose, rawToken, requestIP string, dst any) error {
	token, err := s.VerifyAll(ctx, purpose, rawToken, requestIP)
	if err != nil {
		return err
	}
	if token.Payload == nil {
		return domain.ErrTokenInvalid
	}

	if sp, ok := dst.(*string); ok {
		*sp = *token.Payload
		return nil
	}
	if err := json.Unmarshal([]byte(*token.Payload), dst); err != nil {
		// a payload we cannot read is as good as a forged token
		return domain.ErrTokenInvalid
	}
	return nil
}

func (s *TokenService) observe(purpose domain.Purpose, consumed bool) {
	result := "rejected"
	if consumed {
		result = "consumed"
	}
	metrics.TokensConsumedTotal.WithLabelValues(string(purpose), result).Inc()
}

// HashToken is the stored form of a raw token.
func HashToken(rawToken string) string {
	sum := sha256.Sum256([]byte(rawToken))
	return hex.EncodeToString(sum[:])
}
