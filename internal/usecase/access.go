package usecase

import (
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/golang-jwt/jwt/v5"
)

// AccessClaims is the payload of a signed access token. ProjectID is
// domain.AllProjectsID for superusers.
type AccessClaims struct {
	UserID    int64    `json:"userId"`
	Email     string   `json:"email"`
	FirstName string   `json:"firstName"`
	ProjectID int64    `json:"projectId"`
	Roles     []string `json:"roles"`
	jwt.RegisteredClaims
}

// AllProjects reports whether the bearer is not scoped to one project.
func (c *AccessClaims) AllProjects() bool {
	return c.ProjectID == domain.AllProjectsID
}

func (c *AccessClaims) HasRole(name domain.RoleName) bool {
	return slices.Contains(c.Roles, string(name))
}

// CanAccessProject is true for the bearer's own project or any project
// when the bearer is a superuser.
func (c *AccessClaims) CanAccessProject(projectID int64) bool {
	return c.AllProjects() || c.ProjectID == projectID
}

type AccessTokenSigner struct {
	secret []byte
	issuer string
	ttl    time.Duration
}

func NewAccessTokenSigner(secret []byte, issuer string, ttl time.Duration) *AccessTokenSigner {
	return &AccessTokenSigner{secret: secret, issuer: issuer, ttl: ttl}
}

func (s *AccessTokenSigner) TTL() time.Duration {
	return s.ttl
}

// Sign mints an HS256 token for user. The project id is replaced by
// domain.AllProjectsID when roles grant superuser access.
func (s *AccessTokenSigner) Sign(user *domain.User, roles domain.RoleSet, now time.Time) (string, time.Time, error) {
	projectID := user.ProjectID
	if roles.SuperUser {
		projectID = domain.AllProjectsID
	}

	expiresAt := now.Add(s.ttl)
	claims := AccessClaims{
		UserID:    user.ID,
		Email:     user.Email,
		FirstName: user.FirstName,
		ProjectID: projectID,
		Roles:     roles.Strings(),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   strconv.FormatInt(user.ID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign jwt: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse verifies signature, issuer and expiry.
func (s *AccessTokenSigner) Parse(raw string) (*AccessClaims, error) {
	claims := &AccessClaims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(s.issuer),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		return nil, domain.ErrUnauthorized
	}
	return claims, nil
}
