package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/email"
	"github.com/bomdev/auth-service/internal/repository"
)

type PasswordResetConfig struct {
	TTL      time.Duration
	ResetURL string
}

type PasswordReset struct {
	users  repository.UserRepository
	tokens *TokenService
	hasher PasswordHasher
	mailer *Mailer
	cfg    PasswordResetConfig
	logger *slog.Logger
	now    func() time.Time
}

func NewPasswordReset(
	users repository.UserRepository,
	tokens *TokenService,
	hasher PasswordHasher,
	mailer *Mailer,
	cfg PasswordResetConfig,
	logger *slog.Logger,
) *PasswordReset {
	return &PasswordReset{
		users:  users,
		tokens: tokens,
		hasher: hasher,
		mailer: mailer,
		cfg:    cfg,
		logger: logger.With("component", "password_reset"),
		now:    time.Now,
	}
}

type PasswordResetRequest struct {
	Email     string `validate:"required,max=200,email" label:"Email"`
	ProjectID int64  `validate:"required" label:"Project Id"`
	RequestIP string `validate:"-"`
}

// Request emails a FORGET_PASSWORD link. It reports success for unknown
// accounts too.
func (p *PasswordReset) Request(ctx context.Context, in PasswordResetRequest) error {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return err
	}

	user, err := p.users.FindByEmail(ctx, in.Email, in.ProjectID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			p.logger.DebugContext(ctx, "password reset for unknown account", "project_id", in.ProjectID)
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	if !user.Enabled {
		return nil
	}

	raw, err := p.tokens.Create(ctx, CreateTokenInput{
		UserID:    &user.ID,
		Purpose:   domain.PurposeForgetPassword,
		ExpiresAt: p.now().Add(p.cfg.TTL),
		OriginIP:  in.RequestIP,
	})
	if err != nil {
		return fmt.Errorf("create reset token: %w", err)
	}

	link, err := email.Link(p.cfg.ResetURL, raw)
	if err != nil {
		return err
	}
	p.mailer.send(ctx, user, "Reset your password", email.PasswordResetBody(user.FirstName, link))
	return nil
}

type ResetPasswordInput struct {
	Token     string `validate:"required" label:"Token"`
	Password  string `validate:"required,max=300" label:"Password"`
	RequestIP string `validate:"-"`
}

// Reset validates the new password before spending the token, so a rejected
// password leaves the link usable.
func (p *PasswordReset) Reset(ctx context.Context, in ResetPasswordInput) error {
	if err := validateInput(in); err != nil {
		return err
	}

	digest, err := p.hasher.Hash(in.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	userID, err := p.tokens.Verify(ctx, domain.PurposeForgetPassword, in.Token, in.RequestIP)
	if err != nil {
		return err
	}

	if err := p.users.UpdatePassword(ctx, userID, digest); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrTokenInvalid
		}
		return fmt.Errorf("update password: %w", err)
	}

	p.logger.InfoContext(ctx, "password reset", "user_id", userID)
	return nil
}
