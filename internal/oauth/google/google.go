// Package google talks to Google's OAuth 2.0 endpoints: authorization URL,
// authorization-code exchange and the userinfo profile.
package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
)

// ProviderName is the value parked in OAuth state payloads.
const ProviderName = "Google"

const (
	defaultAuthURL     = "https://accounts.google.com/o/oauth2/v2/auth"
	defaultTokenURL    = "https://oauth2.googleapis.com/token"
	defaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"
)

type Config struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	AuthURL     string
	TokenURL    string
	UserInfoURL string
	JWKSURL     string

	HTTPClient *http.Client
}

type Provider struct {
	config     Config
	httpClient *http.Client
	idTokens   *idTokenVerifier
}

func New(cfg Config) *Provider {
	if len(cfg.Scopes) == 0 {
		cfg.Scopes = []string{"openid", "email", "profile"}
	}
	if cfg.AuthURL == "" {
		cfg.AuthURL = defaultAuthURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserInfoURL == "" {
		cfg.UserInfoURL = defaultUserInfoURL
	}
	if cfg.JWKSURL == "" {
		cfg.JWKSURL = defaultJWKSURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &Provider{
		config:     cfg,
		httpClient: client,
		idTokens:   newIDTokenVerifier(cfg.JWKSURL, cfg.ClientID),
	}
}

func (p *Provider) Name() string {
	return ProviderName
}

func (p *Provider) AuthCodeURL(state string) string {
	params := url.Values{
		"client_id":     {p.config.ClientID},
		"redirect_uri":  {p.config.CallbackURL},
		"response_type": {"code"},
		"scope":         {strings.Join(p.config.Scopes, " ")},
		"state":         {state},
		"prompt":        {"select_account"},
	}
	return p.config.AuthURL + "?" + params.Encode()
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	IDToken     string `json:"id_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Exchange trades an authorization code for a provider access token. When the
// response carries an id_token it must verify against the provider keys.
func (p *Provider) Exchange(ctx context.Context, code string) (*domain.ExternalGrant, error) {
	data := url.Values{
		"client_id":     {p.config.ClientID},
		"client_secret": {p.config.ClientSecret},
		"code":          {code},
		"redirect_uri":  {p.config.CallbackURL},
		"grant_type":    {"authorization_code"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.TokenURL, strings.NewReader(data.Encode()))
	if err != nil {
		return nil, fmt.Errorf("google: create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	body, status, err := p.do(req)
	if err != nil {
		return nil, fmt.Errorf("google: token exchange: %w", err)
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return nil, fmt.Errorf("google: decode token response (%d): %w", status, err)
	}
	if status != http.StatusOK || tr.Error != "" {
		return nil, fmt.Errorf("google: token exchange failed (%d): %s %s", status, tr.Error, tr.ErrorDesc)
	}
	if tr.AccessToken == "" {
		return nil, fmt.Errorf("google: token response missing access token")
	}

	grant := &domain.ExternalGrant{AccessToken: tr.AccessToken}
	if tr.IDToken != "" {
		sub, err := p.idTokens.Verify(ctx, tr.IDToken)
		if err != nil {
			return nil, err
		}
		grant.Subject = sub
	}
	return grant, nil
}

type userInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	GivenName     string `json:"given_name"`
	FamilyName    string `json:"family_name"`
	Picture       string `json:"picture"`
	Locale        string `json:"locale"`
}

// Profile fetches userinfo. When the grant carries a verified subject the
// profile must belong to it.
func (p *Provider) Profile(ctx context.Context, grant *domain.ExternalGrant) (*domain.ExternalProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.config.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("google: create profile request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+grant.AccessToken)

	body, status, err := p.do(req)
	if err != nil {
		return nil, fmt.Errorf("google: fetch profile: %w", err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("google: profile fetch failed (%d): %s", status, strings.TrimSpace(string(body)))
	}

	var info userInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, fmt.Errorf("google: decode profile: %w", err)
	}
	if info.Email == "" {
		return nil, fmt.Errorf("google: profile has no email")
	}
	if grant.Subject != "" && info.Sub != grant.Subject {
		return nil, errSubjectMismatch
	}

	first, last := info.GivenName, info.FamilyName
	if first == "" {
		first, last, _ = strings.Cut(info.Name, " ")
	}
	if first == "" {
		first, _, _ = strings.Cut(info.Email, "@")
	}

	return &domain.ExternalProfile{
		Subject:       info.Sub,
		Email:         strings.ToLower(info.Email),
		EmailVerified: info.EmailVerified,
		FirstName:     first,
		LastName:      last,
		Picture:       info.Picture,
		Locale:        info.Locale,
	}, nil
}

func (p *Provider) do(req *http.Request) ([]byte, int, error) {
	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, resp.StatusCode, err
	}
	return body, resp.StatusCode, nil
}
