package email_test

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"

	"github.com/bomdev/auth-service/internal/email"
)

func TestNewSender_LocalLogsMessage(t *testing.T) {
	var buf bytes.Buffer
	s := email.NewSender("local", "", "", slog.New(slog.NewTextHandler(&buf, nil)))

	err := s.Send(context.Background(), email.Message{To: "a@x.com", Subject: "hello", ProjectID: 7})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "to=a@x.com") || !strings.Contains(out, "project_id=7") {
		t.Errorf("log output %q missing fields", out)
	}
}

func TestNewSender_ProductionUsesResend(t *testing.T) {
	s := email.NewSender("production", "re_key", "from@x.com", slog.Default())
	if _, ok := s.(*email.ResendSender); !ok {
		t.Errorf("got %T, want *email.ResendSender", s)
	}
}

func TestLink_AppendsToken(t *testing.T) {
	got, err := email.Link("https://app.example.com/reset?lang=pt", "abc")
	if err != nil {
		t.Fatal(err)
	}
	if got != "https://app.example.com/reset?lang=pt&token=abc" {
		t.Errorf("Link = %q", got)
	}
}

func TestBodies_EscapeUserInput(t *testing.T) {
	body := email.ConfirmationBody("<b>A</b>", "https://x/confirm?token=1")
	if strings.Contains(body, "<b>A</b>") {
		t.Errorf("first name not escaped: %s", body)
	}
}
