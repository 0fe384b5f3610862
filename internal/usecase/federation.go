package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"strings"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/metrics"
	"github.com/bomdev/auth-service/internal/repository"
)

type FederationConfig struct {
	StateTTL   time.Duration
	RefreshTTL time.Duration

	// BindOriginIP makes the federated refresh token consumable only from
	// the address that started the login.
	BindOriginIP bool
	// EnforceOriginIP rejects callbacks arriving from another address.
	EnforceOriginIP bool

	// AllowedRedirectHosts limits redirectUri hosts. An empty list rejects
	// every redirect unless AllowAnyRedirectHost is set.
	AllowedRedirectHosts []string
	AllowAnyRedirectHost bool
}

// FederationCoordinator drives the two-hop external login. Context travels
// between hops in parked tokens rather than a server-side session.
type FederationCoordinator struct {
	tokens    *TokenService
	users     repository.UserRepository
	projects  repository.ProjectRepository
	roles     *RoleResolver
	providers map[string]ExternalProvider
	cfg       FederationConfig
	logger    *slog.Logger
	now       func() time.Time
}

func NewFederationCoordinator(
	tokens *TokenService,
	users repository.UserRepository,
	projects repository.ProjectRepository,
	roles *RoleResolver,
	cfg FederationConfig,
	logger *slog.Logger,
	providers ...ExternalProvider,
) *FederationCoordinator {
	byName := make(map[string]ExternalProvider, len(providers))
	for _, p := range providers {
		byName[strings.ToLower(p.Name())] = p
	}
	hosts := make([]string, 0, len(cfg.AllowedRedirectHosts))
	for _, h := range cfg.AllowedRedirectHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			hosts = append(hosts, h)
		}
	}
	cfg.AllowedRedirectHosts = hosts

	return &FederationCoordinator{
		tokens:    tokens,
		users:     users,
		projects:  projects,
		roles:     roles,
		providers: byName,
		cfg:       cfg,
		logger:    logger.With("component", "federation"),
		now:       time.Now,
	}
}

type InitiateInput struct {
	Provider    string `validate:"-"`
	RedirectURI string `validate:"required,absurl" label:"Redirect Uri"`
	ProjectID   int64  `validate:"required" label:"Project Id"`
	RequestIP   string `validate:"-"`
}

// Initiate parks the login context as EXTERNAL_OAUTH_DATA, uses that token as
// the provider state, then parks the resulting authorization URL behind an
// EXTERNAL_OAUTH_REDIRECT token which is returned to the caller.
func (f *FederationCoordinator) Initiate(ctx context.Context, in InitiateInput) (string, error) {
	provider, ok := f.provider(in.Provider)
	if !ok {
		return "", domain.ErrProviderMismatch
	}

	verrs := &domain.ValidationError{}
	collectValidation(verrs, in)
	if in.RedirectURI != "" && !f.redirectAllowed(in.RedirectURI) {
		verrs.Add("Redirect Uri host is not allowed.")
	}
	if err := verrs.Err(); err != nil {
		return "", err
	}

	exists, err := f.projects.Exists(ctx, in.ProjectID)
	if err != nil {
		return "", fmt.Errorf("check project: %w", err)
	}
	if !exists {
		return "", &domain.ValidationError{Errors: []string{"Invalid Project Id."}}
	}

	state, err := f.tokens.Park(ctx, domain.PurposeExternalOAuthData, domain.OAuthData{
		ProjectID:       in.ProjectID,
		RedirectURI:     in.RedirectURI,
		OriginRequestIP: in.RequestIP,
		Provider:        provider.Name(),
	}, f.cfg.StateTTL, in.RequestIP)
	if err != nil {
		return "", fmt.Errorf("park oauth data: %w", err)
	}

	redirectToken, err := f.tokens.Park(ctx, domain.PurposeExternalOAuthRedirect,
		provider.AuthCodeURL(state), f.cfg.StateTTL, in.RequestIP)
	if err != nil {
		return "", fmt.Errorf("park oauth redirect: %w", err)
	}
	return redirectToken, nil
}

// ResolveRedirect spends a redirect token and returns the provider URL.
func (f *FederationCoordinator) ResolveRedirect(ctx context.Context, rawToken, requestIP string) (string, error) {
	var authURL string
	if err := f.tokens.Redeem(ctx, domain.PurposeExternalOAuthRedirect, rawToken, requestIP, &authURL); err != nil {
		return "", err
	}
	return authURL, nil
}

type CompleteInput struct {
	Provider  string
	Code      string
	State     string
	RequestIP string
}

// Complete handles the provider callback and returns the client URL carrying
// a short-lived refresh token. The state is spent and checked before any
// provider call or account write.
func (f *FederationCoordinator) Complete(ctx context.Context, in CompleteInput) (string, error) {
	target, err := f.complete(ctx, in)
	metrics.LoginsTotal.WithLabelValues("federated", loginOutcome(err)).Inc()
	return target, err
}

func (f *FederationCoordinator) complete(ctx context.Context, in CompleteInput) (string, error) {
	provider, ok := f.provider(in.Provider)
	if !ok {
		return "", domain.ErrProviderMismatch
	}
	if in.Code == "" || in.State == "" {
		return "", domain.ErrMalformedRequest
	}

	var data domain.OAuthData
	if err := f.tokens.Redeem(ctx, domain.PurposeExternalOAuthData, in.State, in.RequestIP, &data); err != nil {
		return "", err
	}

	if !strings.EqualFold(data.Provider, provider.Name()) {
		return "", domain.ErrProviderMismatch
	}
	if data.RedirectURI == "" || !f.redirectAllowed(data.RedirectURI) {
		return "", domain.ErrRedirectURIMissing
	}
	if data.ProjectID == 0 {
		return "", &domain.ValidationError{Errors: []string{"Project Id is required."}}
	}
	if f.cfg.EnforceOriginIP && data.OriginRequestIP != in.RequestIP {
		f.logger.WarnContext(ctx, "oauth callback origin mismatch",
			"origin_ip", data.OriginRequestIP,
			"request_ip", in.RequestIP,
		)
		return "", domain.ErrOriginMismatch
	}

	grant, err := provider.Exchange(ctx, in.Code)
	if err != nil {
		return "", fmt.Errorf("exchange code: %w", err)
	}
	profile, err := provider.Profile(ctx, grant)
	if err != nil {
		return "", fmt.Errorf("fetch profile: %w", err)
	}

	user, err := f.findOrCreate(ctx, profile, data.ProjectID)
	if err != nil {
		return "", err
	}

	refresh, err := f.tokens.Create(ctx, CreateTokenInput{
		UserID:    &user.ID,
		Purpose:   domain.PurposeRefresh,
		ExpiresAt: f.now().Add(f.cfg.RefreshTTL),
		OriginIP:  data.OriginRequestIP,
		BindIP:    f.cfg.BindOriginIP && data.OriginRequestIP != "",
	})
	if err != nil {
		return "", fmt.Errorf("create refresh token: %w", err)
	}

	target, err := url.Parse(data.RedirectURI)
	if err != nil {
		return "", domain.ErrRedirectURIMissing
	}
	q := target.Query()
	q.Set("token", refresh)
	target.RawQuery = q.Encode()
	return target.String(), nil
}

// findOrCreate loses a concurrent insert race gracefully: the unique
// constraint rejects the second insert and the winner's row is returned.
func (f *FederationCoordinator) findOrCreate(ctx context.Context, profile *domain.ExternalProfile, projectID int64) (*domain.User, error) {
	user, err := f.users.FindByEmail(ctx, profile.Email, projectID)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrUserNotFound) {
		return nil, fmt.Errorf("find user: %w", err)
	}

	roleID, err := f.roles.GetRoleIDByName(ctx, domain.RoleUser)
	if err != nil {
		return nil, err
	}

	newUser := &domain.User{
		ProjectID:      projectID,
		FirstName:      truncate(profile.FirstName, maxNameLength),
		LastName:       truncate(profile.LastName, maxNameLength),
		Email:          profile.Email,
		Enabled:        true,
		EmailConfirmed: profile.EmailVerified,
	}
	if profile.Picture != "" {
		newUser.Picture = &profile.Picture
	}
	if profile.Locale != "" {
		locale := truncate(profile.Locale, maxLanguageLength)
		newUser.DefaultLanguage = &locale
	}

	created, err := f.users.CreateWithRole(ctx, newUser, roleID)
	if errors.Is(err, domain.ErrUserExists) {
		return f.users.FindByEmail(ctx, profile.Email, projectID)
	}
	if err != nil {
		return nil, fmt.Errorf("create federated user: %w", err)
	}

	metrics.RegistrationsTotal.WithLabelValues("federated").Inc()
	f.logger.InfoContext(ctx, "federated user created", "user_id", created.ID, "project_id", projectID)
	return created, nil
}

func (f *FederationCoordinator) provider(name string) (ExternalProvider, bool) {
	p, ok := f.providers[strings.ToLower(name)]
	return p, ok
}

func (f *FederationCoordinator) redirectAllowed(raw string) bool {
	if len(f.cfg.AllowedRedirectHosts) == 0 {
		return f.cfg.AllowAnyRedirectHost
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return slices.Contains(f.cfg.AllowedRedirectHosts, strings.ToLower(u.Hostname()))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
