package auth

import (
	"context"
	"fmt"

	"github.com/justincavery/yoga-app-sub000/internal/flows"
)

// ForgotPassword describes the forgotpassword operation and its observable behavior.
//
// ForgotPassword returns nil for every well-formed request, whether or not
// the address belongs to an active account, so callers cannot probe for
// registered emails. Store and mailer failures are logged, not returned.
func (e *Engine) ForgotPassword(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunForgotPassword(ctx, email, e.flows.PasswordReset)
}

// ResetPassword consumes a reset token and sets a new password. The token is
// spent even when it has expired. A weak password is rejected before the
// token is touched. Success clears any lockout and revokes every token the
// user holds.
func (e *Engine) ResetPassword(ctx context.Context, token, next string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunResetPassword(ctx, token, next, e.flows.PasswordReset)
}

func (e *Engine) resetMail(name, token string) (string, string) {
	subject := "Reset your password"
	if app := e.config.Email.AppName; app != "" {
		subject = app + ": " + subject
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nWe received a request to reset your password. Use the link below within %s:\n\n%s\n\nIf you did not ask for this, you can ignore this email.\n",
		greetingName(name),
		humanDuration(e.config.PasswordReset.TokenTTL),
		e.link(e.config.PasswordReset.Path, token),
	)
	return subject, body
}
