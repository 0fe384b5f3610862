package google

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const defaultJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"

var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

var (
	errIDTokenInvalid  = errors.New("google: id token is invalid")
	errSubjectMismatch = errors.New("google: userinfo subject does not match id token")
)

// idTokenVerifier checks the OpenID id_token returned with the access token.
// Keys come from the provider JWKS and are cached, refreshed at most every
// 15 minutes.
type idTokenVerifier struct {
	jwksURL  string
	audience string

	once     sync.Once
	cache    *jwk.Cache
	setupErr error
}

func newIDTokenVerifier(jwksURL, audience string) *idTokenVerifier {
	return &idTokenVerifier{jwksURL: jwksURL, audience: audience}
}

func (v *idTokenVerifier) keys(ctx context.Context) (jwk.Set, error) {
	v.once.Do(func() {
		c := jwk.NewCache(context.Background())
		if err := c.Register(v.jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
			v.setupErr = fmt.Errorf("google: register jwks: %w", err)
			return
		}
		v.cache = c
	})
	if v.setupErr != nil {
		return nil, v.setupErr
	}
	set, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("google: fetch jwks: %w", err)
	}
	return set, nil
}

// Verify validates signature, expiry, audience and issuer and returns the
// subject.
func (v *idTokenVerifier) Verify(ctx context.Context, raw string) (string, error) {
	set, err := v.keys(ctx)
	if err != nil {
		return "", err
	}

	tok, err := jwt.Parse([]byte(raw),
		jwt.WithKeySet(set),
		jwt.WithValidate(true),
		jwt.WithAudience(v.audience),
	)
	if err != nil || tok == nil {
		return "", fmt.Errorf("%w: %v", errIDTokenInvalid, err)
	}

	issuerOK := false
	for _, iss := range googleIssuers {
		if tok.Issuer() == iss {
			issuerOK = true
			break
		}
	}
	if !issuerOK || tok.Subject() == "" {
		return "", errIDTokenInvalid
	}
	return tok.Subject(), nil
}
