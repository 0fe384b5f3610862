package domain

import (
	"errors"
	"time"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrTokenInvalid       = errors.New("token is invalid or expired")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("user account is locked")
	ErrEmailNotConfirmed  = errors.New("email is not confirmed")
	ErrMalformedRequest   = errors.New("malformed request")
	ErrNoRoles            = errors.New("user has no role bindings")
)

type User struct {
	ID              int64
	ProjectID       int64
	FirstName       string
	LastName        string
	Email           string
	PasswordDigest  *string // nil for federated-only accounts
	Document        *string
	DocumentTypeID  *int
	DefaultLanguage *string
	Picture         *string
	Enabled         bool
	EmailConfirmed  bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordDigest != nil && *u.PasswordDigest != ""
}

// Session is the result of a successful login.
type Session struct {
	AccessToken      string    `json:"accessToken"`
	AccessExpiresAt  time.Time `json:"accessExpiresAt"`
	RefreshToken     string    `json:"refreshToken"`
	RefreshExpiresAt time.Time `json:"refreshExpiresAt"`
}
