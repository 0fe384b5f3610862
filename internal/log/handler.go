// Package log holds the slog handler shared by every binary. Records logged
// with a request context pick up the correlation id and, once the caller is
// authenticated, the user and project the access token names.
package log

import (
	"context"
	"log/slog"

	"github.com/bomdev/auth-service/internal/requestid"
)

type identity struct {
	userID    int64
	projectID int64
}

type identityKey struct{}

// WithIdentity attaches the authenticated caller to ctx.
func WithIdentity(ctx context.Context, userID, projectID int64) context.Context {
	return context.WithValue(ctx, identityKey{}, identity{userID: userID, projectID: projectID})
}

type ContextHandler struct {
	inner slog.Handler
}

func NewContextHandler(inner slog.Handler) *ContextHandler {
	return &ContextHandler{inner: inner}
}

func (h *ContextHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *ContextHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := requestid.FromContext(ctx); id != "" {
		r.AddAttrs(slog.String("request_id", id))
	}
	if who, ok := ctx.Value(identityKey{}).(identity); ok {
		r.AddAttrs(slog.Int64("user_id", who.userID), slog.Int64("project_id", who.projectID))
	}
	return h.inner.Handle(ctx, r)
}

func (h *ContextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ContextHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *ContextHandler) WithGroup(name string) slog.Handler {
	return &ContextHandler{inner: h.inner.WithGroup(name)}
}
