package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/email"
	"github.com/bomdev/auth-service/internal/metrics"
	"github.com/bomdev/auth-service/internal/password"
	"github.com/bomdev/auth-service/internal/repository"
)

type SessionConfig struct {
	RefreshTTL time.Duration
	OTPTTL     time.Duration
	OTPURL     string
}

// SessionIssuer runs the login state machine: credentials or continuation
// token, account state, roles, then access and refresh tokens.
type SessionIssuer struct {
	users    repository.UserRepository
	projects repository.ProjectRepository
	tokens   *TokenService
	roles    *RoleResolver
	hasher   PasswordHasher
	signer   *AccessTokenSigner
	mailer   *Mailer
	cfg      SessionConfig
	now      func() time.Time
}

func NewSessionIssuer(
	users repository.UserRepository,
	projects repository.ProjectRepository,
	tokens *TokenService,
	roles *RoleResolver,
	hasher PasswordHasher,
	signer *AccessTokenSigner,
	mailer *Mailer,
	cfg SessionConfig,
) *SessionIssuer {
	return &SessionIssuer{
		users:    users,
		projects: projects,
		tokens:   tokens,
		roles:    roles,
		hasher:   hasher,
		signer:   signer,
		mailer:   mailer,
		cfg:      cfg,
		now:      time.Now,
	}
}

// LoginInput carries either credentials or a continuation Token, never both.
type LoginInput struct {
	Email     string `validate:"required,max=200,email" label:"Email"`
	Password  string `validate:"required,max=300" label:"Password"`
	ProjectID int64  `validate:"required" label:"Project Id"`

	Token     string `validate:"-"`
	RequestIP string `validate:"-"`
}

func (in LoginInput) hasCredentials() bool {
	return in.Email != "" || in.Password != "" || in.ProjectID != 0
}

func (s *SessionIssuer) Login(ctx context.Context, in LoginInput) (*domain.Session, error) {
	method := "password"
	if in.Token != "" {
		method = "token"
	}

	session, err := s.login(ctx, in)
	metrics.LoginsTotal.WithLabelValues(method, loginOutcome(err)).Inc()
	return session, err
}

func (s *SessionIssuer) login(ctx context.Context, in LoginInput) (*domain.Session, error) {
	if in.Token == "" {
		user, err := s.authenticate(ctx, in)
		if err != nil {
			return nil, err
		}
		return s.issue(ctx, user, in.RequestIP)
	}

	if in.hasCredentials() {
		return nil, domain.ErrMalformedRequest
	}

	userID, err := s.tokens.Verify(ctx, domain.PurposeRefresh, in.Token, in.RequestIP)
	if err != nil {
		return nil, err
	}
	user, err := s.loadTokenOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, in.RequestIP)
}

// RequestOTP checks credentials like Login but, instead of a session, emails
// a second-factor link carrying an OTPFor2Step token.
func (s *SessionIssuer) RequestOTP(ctx context.Context, in LoginInput) error {
	if in.Token != "" {
		return domain.ErrMalformedRequest
	}

	user, err := s.authenticate(ctx, in)
	if err != nil {
		metrics.LoginsTotal.WithLabelValues("otp", loginOutcome(err)).Inc()
		return err
	}

	raw, err := s.tokens.Create(ctx, CreateTokenInput{
		UserID:    &user.ID,
		Purpose:   domain.PurposeOTP,
		ExpiresAt: s.now().Add(s.cfg.OTPTTL),
		OriginIP:  in.RequestIP,
	})
	if err != nil {
		return fmt.Errorf("create otp token: %w", err)
	}

	link, err := email.Link(s.cfg.OTPURL, raw)
	if err != nil {
		return err
	}
	s.mailer.send(ctx, user, "Your sign-in code", email.OTPBody(user.FirstName, link))

	metrics.LoginsTotal.WithLabelValues("otp", "challenged").Inc()
	return nil
}

// VerifyOTP spends the emailed second factor and completes the login.
func (s *SessionIssuer) VerifyOTP(ctx context.Context, rawToken, requestIP string) (*domain.Session, error) {
	session, err := s.verifyOTP(ctx, rawToken, requestIP)
	metrics.LoginsTotal.WithLabelValues("otp", loginOutcome(err)).Inc()
	return session, err
}

func (s *SessionIssuer) verifyOTP(ctx context.Context, rawToken, requestIP string) (*domain.Session, error) {
	userID, err := s.tokens.Verify(ctx, domain.PurposeOTP, rawToken, requestIP)
	if err != nil {
		return nil, err
	}
	user, err := s.loadTokenOwner(ctx, userID)
	if err != nil {
		return nil, err
	}
	return s.issue(ctx, user, requestIP)
}

// authenticate covers presence checks, project existence, lookup, account
// state and the password itself. Unknown email and wrong password both
// return domain.ErrInvalidCredentials.
func (s *SessionIssuer) authenticate(ctx context.Context, in LoginInput) (*domain.User, error) {
	in.Email = normalizeEmail(in.Email)
	if err := validateInput(in); err != nil {
		return nil, err
	}

	exists, err := s.projects.Exists(ctx, in.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("check project: %w", err)
	}
	if !exists {
		return nil, &domain.ValidationError{Errors: []string{"Invalid Project Id."}}
	}

	user, err := s.users.FindByEmail(ctx, in.Email, in.ProjectID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if err := checkAccountState(user); err != nil {
		return nil, err
	}

	if !user.HasPassword() {
		return nil, domain.ErrInvalidCredentials
	}
	if err := s.hasher.Verify(in.Password, *user.PasswordDigest); err != nil {
		if errors.Is(err, password.ErrMismatch) {
			return nil, domain.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("verify password: %w", err)
	}
	return user, nil
}

func (s *SessionIssuer) loadTokenOwner(ctx context.Context, userID int64) (*domain.User, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.ErrTokenInvalid
		}
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := checkAccountState(user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *SessionIssuer) issue(ctx context.Context, user *domain.User, requestIP string) (*domain.Session, error) {
	roles, err := s.roles.Resolve(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("resolve roles: %w", err)
	}

	now := s.now()
	access, accessExp, err := s.signer.Sign(user, roles, now)
	if err != nil {
		return nil, err
	}

	refreshExp := now.Add(s.cfg.RefreshTTL)
	refresh, err := s.tokens.Create(ctx, CreateTokenInput{
		UserID:    &user.ID,
		Purpose:   domain.PurposeRefresh,
		ExpiresAt: refreshExp,
		OriginIP:  requestIP,
	})
	if err != nil {
		return nil, fmt.Errorf("create refresh token: %w", err)
	}

	return &domain.Session{
		AccessToken:      access,
		AccessExpiresAt:  accessExp,
		RefreshToken:     refresh,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func checkAccountState(user *domain.User) error {
	if !user.Enabled {
		return domain.ErrAccountLocked
	}
	if !user.EmailConfirmed {
		return domain.ErrEmailNotConfirmed
	}
	return nil
}

func loginOutcome(err error) string {
	var verr *domain.ValidationError
	switch {
	case err == nil:
		return "success"
	case errors.Is(err, domain.ErrInvalidCredentials), errors.Is(err, domain.ErrTokenInvalid):
		return "invalid_credentials"
	case errors.Is(err, domain.ErrAccountLocked):
		return "locked"
	case errors.Is(err, domain.ErrEmailNotConfirmed):
		return "unconfirmed"
	case errors.Is(err, domain.ErrMalformedRequest), errors.As(err, &verr):
		return "bad_request"
	default:
		return "error"
	}
}
