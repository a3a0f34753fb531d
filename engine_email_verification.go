package auth

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/justincavery/yoga-app-sub000/internal/flows"
)

// VerifyEmail consumes a verification token and marks the address verified.
// It returns ErrInvalidToken for unknown or already used tokens and
// ErrExpiredToken for stale ones; either way the token cannot be used again.
func (e *Engine) VerifyEmail(ctx context.Context, token string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return flows.RunVerifyEmail(ctx, token, e.flows.EmailVerification)
}

// ResendVerification issues a fresh verification token for an unverified
// account. Like ForgotPassword it returns nil regardless of whether the
// address is known.
func (e *Engine) ResendVerification(ctx context.Context, email string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunResendVerification(ctx, email, e.flows.EmailVerification)
}

func (e *Engine) verificationMail(name, token string) (string, string) {
	subject := "Verify your email address"
	if app := e.config.Email.AppName; app != "" {
		subject = app + ": " + subject
	}

	body := fmt.Sprintf(
		"Hi %s,\n\nPlease confirm your email address by opening the link below within %s:\n\n%s\n",
		greetingName(name),
		humanDuration(e.config.EmailVerification.TokenTTL),
		e.link(e.config.EmailVerification.Path, token),
	)
	return subject, body
}

func greetingName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "there"
	}
	return name
}

func humanDuration(d time.Duration) string {
	switch {
	case d >= time.Hour && d%time.Hour == 0:
		h := int(d / time.Hour)
		if h == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", h)
	case d >= time.Minute && d%time.Minute == 0:
		m := int(d / time.Minute)
		if m == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", m)
	default:
		return d.String()
	}
}
