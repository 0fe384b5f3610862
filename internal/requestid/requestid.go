// Package requestid carries the per-request correlation id. Incoming ids are
// accepted only when they are short and free of control characters, so a
// client cannot smuggle content into log lines.
package requestid

import (
	"context"

	"github.com/google/uuid"
)

// Header is the HTTP header read from requests and echoed on responses.
const Header = "X-Request-ID"

const maxLength = 64

type ctxKey struct{}

func New() string {
	return uuid.NewString()
}

// Accept returns incoming when it is a usable id, otherwise a fresh one.
func Accept(incoming string) string {
	if incoming == "" || len(incoming) > maxLength {
		return New()
	}
	for _, r := range incoming {
		if !isIDRune(r) {
			return New()
		}
	}
	return incoming
}

func isIDRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-' || r == '_' || r == '.' || r == ':':
		return true
	}
	return false
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

// FromContext returns "" when no id is attached.
func FromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
