package domain

import (
	"fmt"
	"time"
)

type Purpose string

const (
	PurposeRefresh               Purpose = "REFRESH_TOKEN"
	PurposeForgetPassword        Purpose = "FORGET_PASSWORD"
	PurposeOTP                   Purpose = "OTPFor2Step"
	PurposeExternalOAuthRedirect Purpose = "EXTERNAL_OAUTH_REDIRECT"
	PurposeExternalOAuthData     Purpose = "EXTERNAL_OAUTH_DATA"
	PurposeEmailConfirmation     Purpose = "EMAIL_CONFIRMATION"
)

var purposes = map[Purpose]struct{}{
	PurposeRefresh:               {},
	PurposeForgetPassword:        {},
	PurposeOTP:                   {},
	PurposeExternalOAuthRedirect: {},
	PurposeExternalOAuthData:     {},
	PurposeEmailConfirmation:     {},
}

func ParsePurpose(s string) (Purpose, error) {
	p := Purpose(s)
	if _, ok := purposes[p]; !ok {
		return "", fmt.Errorf("unknown token purpose %q", s)
	}
	return p, nil
}

func (p Purpose) Valid() bool {
	_, err := ParsePurpose(string(p))
	return err == nil
}

// Token is a stored single-use credential. Only the SHA-256 of the raw
// value is persisted.
type Token struct {
	ID         string
	TokenHash  string
	UserID     *int64 // nil for tokens minted before a user is known (OAuth state)
	Purpose    Purpose
	IssuingIP  *string
	IPBound    bool // consumption must come from IssuingIP
	Payload    *string
	CreatedAt  time.Time
	ExpiresAt  time.Time
	ConsumedAt *time.Time
}

// OAuthData is the payload parked behind an EXTERNAL_OAUTH_DATA token and
// sent to the provider as the state parameter.
type OAuthData struct {
	ProjectID       int64  `json:"projectId"`
	RedirectURI     string `json:"redirectUri"`
	OriginRequestIP string `json:"originRequestIp"`
	Provider        string `json:"provider"`
}
