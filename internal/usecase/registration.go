package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bomdev/auth-service/internal/document"
	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/email"
	"github.com/bomdev/auth-service/internal/metrics"
	"github.com/bomdev/auth-service/internal/repository"
)

type RegistrationConfig struct {
	// RequireEmailConfirmation leaves self-service accounts unconfirmed
	// until the emailed token is spent.
	RequireEmailConfirmation bool
	ConfirmationTTL          time.Duration
	ConfirmationURL          string
}

type RegistrationOrchestrator struct {
	users     repository.UserRepository
	projects  repository.ProjectRepository
	roles     *RoleResolver
	tokens    *TokenService
	hasher    PasswordHasher
	documents *document.Registry
	mailer    *Mailer
	cfg       RegistrationConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewRegistrationOrchestrator(
	users repository.UserRepository,
	projects repository.ProjectRepository,
	roles *RoleResolver,
	tokens *TokenService,
	hasher PasswordHasher,
	documents *document.Registry,
	mailer *Mailer,
	cfg RegistrationConfig,
	logger *slog.Logger,
) *RegistrationOrchestrator {
	return &RegistrationOrchestrator{
		users:     users,
		projects:  projects,
		roles:     roles,
		tokens:    tokens,
		hasher:    hasher,
		documents: documents,
		mailer:    mailer,
		cfg:       cfg,
		logger:    logger.With("component", "registration"),
		now:       time.Now,
	}
}

type RegisterInput struct {
	FirstName       string  `validate:"required,max=100" label:"First Name"`
	LastName        string  `validate:"required,max=100" label:"Last Name"`
	Email           string  `validate:"required,max=200,email" label:"Email"`
	Password        string  `validate:"required,max=300" label:"Password"`
	ProjectID       int64   `validate:"required" label:"Project Id"`
	Document        *string `validate:"omitempty,max=50" label:"Document"`
	DocumentTypeID  *int    `validate:"-"`
	DefaultLanguage *string `validate:"omitempty,max=50" label:"Default Language"`
	Picture         *string `validate:"omitempty,max=500" label:"Picture"`
}

// Register is the self-service path: the account may need its email
// confirmed before it can log in.
func (r *RegistrationOrchestrator) Register(ctx context.Context, in RegisterInput) (*domain.User, error) {
	user, err := r.register(ctx, in, !r.cfg.RequireEmailConfirmation)
	metrics.RegistrationsTotal.WithLabelValues(registrationOutcome(err)).Inc()
	if err != nil {
		return nil, err
	}

	if !user.EmailConfirmed {
		if err := r.sendConfirmation(ctx, user); err != nil {
			// the account exists; the user can ask for a new link
			r.logger.ErrorContext(ctx, "issue confirmation token", "user_id", user.ID, "error", err)
		}
	}
	return user, nil
}

// RegisterByAdmin creates an already-confirmed account on behalf of an
// authenticated caller. Callers scoped to one project may only create users
// in that project.
func (r *RegistrationOrchestrator) RegisterByAdmin(ctx context.Context, caller *AccessClaims, in RegisterInput) (*domain.User, error) {
	if caller == nil || !(caller.HasRole(domain.RoleAdministrator) || caller.HasRole(domain.RoleApplication)) {
		return nil, domain.ErrUnauthorized
	}
	if in.ProjectID != 0 && !caller.CanAccessProject(in.ProjectID) {
		return nil, domain.ErrUnauthorized
	}

	user, err := r.register(ctx, in, true)
	metrics.RegistrationsTotal.WithLabelValues(registrationOutcome(err)).Inc()
	return user, err
}

func (r *RegistrationOrchestrator) register(ctx context.Context, in RegisterInput, confirmed bool) (*domain.User, error) {
	in.Email = normalizeEmail(in.Email)

	verrs := &domain.ValidationError{}
	collectValidation(verrs, in)

	var normalizedDoc *string
	if (in.Document != nil && *in.Document != "") || in.DocumentTypeID != nil {
		typeID := 0
		if in.DocumentTypeID != nil {
			typeID = *in.DocumentTypeID
		}
		value := ""
		if in.Document != nil {
			value = *in.Document
		}
		doc, err := r.documents.Validate(typeID, value)
		if err != nil {
			verrs.Add(err.Error())
		} else {
			normalizedDoc = &doc
		}
	}

	if in.ProjectID != 0 {
		exists, err := r.projects.Exists(ctx, in.ProjectID)
		if err != nil {
			return nil, fmt.Errorf("check project: %w", err)
		}
		if !exists {
			verrs.Add("Invalid Project Id.")
		}
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	// Fast path for a friendly error; the unique constraint still decides.
	taken, err := r.users.Exists(ctx, in.Email, in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("check user exists: %w", err)
	}
	if taken {
		return nil, domain.ErrUserExists
	}

	digest, err := r.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	roleID, err := r.roles.GetRoleIDByName(ctx, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ProjectID:       in.ProjectID,
		FirstName:       in.FirstName,
		LastName:        in.LastName,
		Email:           in.Email,
		PasswordDigest:  &digest,
		Document:        normalizedDoc,
		DocumentTypeID:  in.DocumentTypeID,
		DefaultLanguage: in.DefaultLanguage,
		Picture:         in.Picture,
		Enabled:         true,
		EmailConfirmed:  confirmed,
	}
	if normalizedDoc == nil {
		user.DocumentTypeID = nil
	}

	created, err := r.users.CreateWithRole(ctx, user, roleID)
	if err != nil {
		if errors.Is(err, domain.ErrUserExists) {
			return nil, domain.ErrUserExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	r.logger.InfoContext(ctx, "user registered",
		"user_id", created.ID,
		"project_id", created.ProjectID,
		"confirmed", created.EmailConfirmed,
	)
	return created, nil
}

// ConfirmEmail spends an EMAIL_CONFIRMATION token and activates the account.
func (r *RegistrationOrchestrator) ConfirmEmail(ctx context.Context, rawToken, requestIP string) error {
	userID, err := r.tokens.Verify(ctx, domain.PurposeEmailConfirmation, rawToken, requestIP)
	if err != nil {
		return err
	}
	if err := r.users.ConfirmEmail(ctx, userID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.ErrTokenInvalid
		}
		return fmt.Errorf("confirm email: %w", err)
	}
	return nil
}

type ResendConfirmationInput struct {
	Email     string `validate:"required,max=200,email" label:"Email"`
	ProjectID int64  `validate:"required" label:"Project Id"`
}

// ResendConfirmation mails a fresh link. Unknown or already confirmed
// accounts succeed silently so the endpoint cannot enumerate users.
func (r *RegistrationOrchestrator) ResendConfirmation(ctx context.Context, in ResendConfirmationInput) error {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return err
	}

	user, err := r.users.FindByEmail(ctx, in.Email, in.ProjectID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil
		}
		return fmt.Errorf("find user: %w", err)
	}
	if user.EmailConfirmed {
		return nil
	}
	return r.sendConfirmation(ctx, user)
}

func (r *RegistrationOrchestrator) sendConfirmation(ctx context.Context, user *domain.User) error {
	raw, err := r.tokens.Create(ctx, CreateTokenInput{
		UserID:    &user.ID,
		Purpose:   domain.PurposeEmailConfirmation,
		ExpiresAt: r.now().Add(r.cfg.ConfirmationTTL),
	})
	if err != nil {
		return fmt.Errorf("create confirmation token: %w", err)
	}

	link, err := email.Link(r.cfg.ConfirmationURL, raw)
	if err != nil {
		return err
	}
	r.mailer.send(ctx, user, "Confirm your email", email.ConfirmationBody(user.FirstName, link))
	return nil
}

func registrationOutcome(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "created"
	case errors.Is(err, domain.ErrUserExists):
		return "conflict"
	case errors.As(err, &verr):
		return "invalid"
	case errors.Is(err, domain.ErrUnauthorized):
		return "forbidden"
	default:
		return "error"
	}
}
