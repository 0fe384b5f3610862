// Package errorlog is the sink for unexpected failures. Each capture gets a
// correlation ticket that is the only detail returned to the client.
package errorlog

import (
	"context"
	"log/slog"
	"time"

	"github.com/bomdev/auth-service/internal/repository"
	"github.com/bomdev/auth-service/internal/ticket"
)

const (
	SeverityError    = 3
	SeverityCritical = 4
)

type Event struct {
	Endpoint  string
	Code      int
	Severity  int
	Err       error
	UserID    *int64
	IPAddress string
}

type Recorder struct {
	repo   repository.ErrorLogRepository
	logger *slog.Logger
	ticket func() string
}

// NewRecorder persists events through repo when it is non-nil; the slog
// record is always written.
func NewRecorder(repo repository.ErrorLogRepository, logger *slog.Logger) *Recorder {
	return &Recorder{
		repo:   repo,
		logger: logger.With("component", "error_log"),
		ticket: ticket.New,
	}
}

// Capture logs the event and returns its ticket. Persistence failures are
// logged, never returned: the caller is already on an error path.
func (r *Recorder) Capture(ctx context.Context, ev Event) string {
	t := r.ticket()
	if ev.Severity == 0 {
		ev.Severity = SeverityError
	}

	msg := "unknown error"
	if ev.Err != nil {
		msg = ev.Err.Error()
	}

	r.logger.ErrorContext(ctx, "unhandled error",
		"endpoint", ev.Endpoint,
		"ticket", t,
		"severity", ev.Severity,
		"ip", ev.IPAddress,
		"error", msg,
	)

	if r.repo == nil {
		return t
	}

	// the request context may already be cancelled
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 3*time.Second)
	defer cancel()

	entry := &repository.ErrorLogEntry{
		Endpoint:  ev.Endpoint,
		Code:      ev.Code,
		Severity:  ev.Severity,
		Message:   msg,
		Details:   detail(ev.Err),
		UserID:    ev.UserID,
		IPAddress: ev.IPAddress,
		Ticket:    t,
		CreatedAt: time.Now(),
	}
	if err := r.repo.Insert(storeCtx, entry); err != nil {
		r.logger.ErrorContext(ctx, "persist error log", "ticket", t, "error", err)
	}
	return t
}

// Message is the client-facing text for a captured failure.
func Message(ticket string) string {
	return "Try again later, your ticket is " + ticket
}

func detail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
