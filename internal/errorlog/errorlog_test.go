package errorlog

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/bomdev/auth-service/internal/repository"
)

type fakeErrorLogRepo struct {
	entries []*repository.ErrorLogEntry
	err     error
}

func (r *fakeErrorLogRepo) Insert(_ context.Context, e *repository.ErrorLogEntry) error {
	r.entries = append(r.entries, e)
	return r.err
}

func newTestRecorder(repo repository.ErrorLogRepository) (*Recorder, *bytes.Buffer) {
	var buf bytes.Buffer
	r := NewRecorder(repo, slog.New(slog.NewTextHandler(&buf, nil)))
	r.ticket = func() string { return "T-1" }
	return r, &buf
}

func TestCapture_PersistsEntryWithTicket(t *testing.T) {
	repo := &fakeErrorLogRepo{}
	r, buf := newTestRecorder(repo)

	got := r.Capture(context.Background(), Event{
		Endpoint:  "/auth/login",
		Err:       errors.New("db down"),
		IPAddress: "10.0.0.1",
	})

	if got != "T-1" {
		t.Errorf("ticket = %q, want T-1", got)
	}
	if len(repo.entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(repo.entries))
	}
	e := repo.entries[0]
	if e.Ticket != "T-1" || e.Endpoint != "/auth/login" || e.Message != "db down" {
		t.Errorf("unexpected entry %+v", e)
	}
	if e.Severity != SeverityError {
		t.Errorf("severity = %d, want default %d", e.Severity, SeverityError)
	}
	if !strings.Contains(buf.String(), "ticket=T-1") {
		t.Errorf("log output missing ticket: %s", buf.String())
	}
}

func TestCapture_RepoFailure_StillReturnsTicket(t *testing.T) {
	repo := &fakeErrorLogRepo{err: errors.New("insert failed")}
	r, buf := newTestRecorder(repo)

	if got := r.Capture(context.Background(), Event{Endpoint: "/x", Err: errors.New("boom")}); got != "T-1" {
		t.Errorf("ticket = %q", got)
	}
	if !strings.Contains(buf.String(), "persist error log") {
		t.Errorf("expected persistence failure to be logged: %s", buf.String())
	}
}

func TestCapture_NilRepo_OnlyLogs(t *testing.T) {
	r, buf := newTestRecorder(nil)

	r.Capture(context.Background(), Event{Endpoint: "/x", Err: errors.New("boom")})
	if !strings.Contains(buf.String(), "unhandled error") {
		t.Errorf("missing log line: %s", buf.String())
	}
}

func TestMessage_ContainsTicketOnly(t *testing.T) {
	if got := Message("ABC"); got != "Try again later, your ticket is ABC" {
		t.Errorf("Message = %q", got)
	}
}
