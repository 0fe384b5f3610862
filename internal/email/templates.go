package email

import (
	"fmt"
	"html"
	"net/url"
)

// Link appends token as a query parameter to base.
func Link(base, token string) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse link base: %w", err)
	}
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func PasswordResetBody(firstName, link string) string {
	return fmt.Sprintf(
		`<p>Hi %s,</p><p>Use the link below to choose a new password. If you did not ask for this, ignore this email.</p><p><a href="%s">%s</a></p>`,
		html.EscapeString(firstName), html.EscapeString(link), html.EscapeString(link),
	)
}

func ConfirmationBody(firstName, link string) string {
	return fmt.Sprintf(
		`<p>Welcome %s,</p><p>Confirm your email address to activate your account:</p><p><a href="%s">%s</a></p>`,
		html.EscapeString(firstName), html.EscapeString(link), html.EscapeString(link),
	)
}

func OTPBody(firstName, link string) string {
	return fmt.Sprintf(
		`<p>Hi %s,</p><p>Someone signed in to your account with your password. Finish signing in with this link:</p><p><a href="%s">%s</a></p>`,
		html.EscapeString(firstName), html.EscapeString(link), html.EscapeString(link),
	)
}
