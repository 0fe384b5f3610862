package domain

import "errors"

var (
	ErrProviderMismatch   = errors.New("unsupported identity provider")
	ErrRedirectURIMissing = errors.New("redirect uri is missing or invalid")
	ErrOriginMismatch     = errors.New("callback origin does not match")
)

// ExternalGrant is the result of a provider code exchange. Subject is the
// verified id_token subject, empty when the provider sent no id_token.
type ExternalGrant struct {
	AccessToken string
	Subject     string
}

// ExternalProfile is the identity returned by a federated provider.
type ExternalProfile struct {
	Subject       string
	Email         string
	EmailVerified bool
	FirstName     string
	LastName      string
	Picture       string
	Locale        string
}
