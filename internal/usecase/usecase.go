package usecase

import (
	"context"
	"log/slog"

	"github.com/bomdev/auth-service/internal/domain"
	"github.com/bomdev/auth-service/internal/email"
	"github.com/bomdev/auth-service/internal/ticket"
)

// PasswordHasher is satisfied by *password.Bcrypt. Verify returns nil only
// on a match.
type PasswordHasher interface {
	Hash(plaintext string) (string, error)
	Verify(plaintext, digest string) error
}

// ExternalProvider is a federated identity provider such as
// *google.Provider.
type ExternalProvider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*domain.ExternalGrant, error)
	Profile(ctx context.Context, grant *domain.ExternalGrant) (*domain.ExternalProfile, error)
}

// Mailer delivers account emails. Delivery is best effort: a failed send
// is logged with its ticket and never undoes the token already issued.
type Mailer struct {
	sender email.Sender
	from   string
	logger *slog.Logger
}

func NewMailer(sender email.Sender, from string, logger *slog.Logger) *Mailer {
	return &Mailer{sender: sender, from: from, logger: logger.With("component", "mailer")}
}

func (m *Mailer) send(ctx context.Context, user *domain.User, subject, html string) {
	t := ticket.New()
	err := m.sender.Send(ctx, email.Message{
		From:      m.from,
		To:        user.Email,
		Subject:   subject,
		HTML:      html,
		ProjectID: user.ProjectID,
		Ticket:    t,
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "send email failed",
			"ticket", t,
			"user_id", user.ID,
			"subject", subject,
			"error", err,
		)
	}
}
