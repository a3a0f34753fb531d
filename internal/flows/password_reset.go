package flows

import (
	"context"
	"time"

	"github.com/justincavery/yoga-app-sub000/account"
	"github.com/justincavery/yoga-app-sub000/internal"
	"github.com/justincavery/yoga-app-sub000/internal/limiters"
)

type PasswordResetMetrics struct {
	Request        int
	ConfirmSuccess int
	ConfirmFailure int
	EmailFailure   int
}

type PasswordResetEvents struct {
	Request string
	Confirm string
}

type PasswordResetDeps struct {
	Common

	Users            account.Store
	Passwords        Passwords
	Kind             SingleUseKind
	NewToken         func() (string, error)
	SendMail         Mail
	ResetMail        func(name, token string) (subject, body string)
	RevokeAllForUser func(ctx context.Context, userID string) error

	Metrics PasswordResetMetrics
	Events  PasswordResetEvents
}

// RunForgotPassword issues a reset token and mails it when email belongs to
// an active account. The result is nil whether or not the account exists;
// failures are logged.
func RunForgotPassword(ctx context.Context, email string, deps PasswordResetDeps) error {
	deps.normalize()
	if deps.Users == nil || deps.NewToken == nil || deps.Kind.Set == nil {
		return deps.Errors.EngineNotReady
	}

	email = account.NormalizeEmail(email)
	deps.MetricInc(deps.Metrics.Request)

	u, err := deps.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if !isNotFound(err) {
			deps.Warn(ctx, "password reset lookup failed", "operation", "forgot_password", "error", err)
		}
		deps.EmitAudit(ctx, deps.Events.Request, true, "", nil, func() map[string]string {
			return map[string]string{"enumeration_safe": "true"}
		})
		return nil
	}
	if !u.IsActive {
		deps.EmitAudit(ctx, deps.Events.Request, false, u.ID, deps.Errors.InactiveAccount, nil)
		return nil
	}

	now := deps.Now()
	token, err := assignSingleUse(u, deps.Kind, deps.NewToken, now)
	if err != nil {
		deps.Warn(ctx, "password reset token not generated", "operation", "forgot_password", "user_id", u.ID, "error", err)
		return nil
	}
	u.UpdatedAt = now
	if err := deps.Users.SaveUser(ctx, u); err != nil {
		deps.Warn(ctx, "password reset token not saved", "operation", "forgot_password", "user_id", u.ID, "error", err)
		return nil
	}

	if deps.SendMail != nil && deps.ResetMail != nil {
		subject, body := deps.ResetMail(u.Name, token)
		if !deps.SendMail(ctx, u.Email, subject, body) {
			deps.MetricInc(deps.Metrics.EmailFailure)
			deps.Warn(ctx, "password reset email not sent",
				"operation", "send_reset_email",
				"user_id", u.ID,
				"token", internal.RedactToken(token),
			)
		}
	}

	deps.EmitAudit(ctx, deps.Events.Request, true, u.ID, nil, nil)
	return nil
}

// RunResetPassword consumes a reset token and sets a new password. Strength
// is checked before the token is looked up, so a rejected password leaves
// the link usable. Success clears lockout state and ends all sessions.
func RunResetPassword(ctx context.Context, token, next string, deps PasswordResetDeps) error {
	deps.normalize()
	if deps.Users == nil || !deps.Passwords.ready() || deps.Kind.Find == nil || deps.RevokeAllForUser == nil {
		return deps.Errors.EngineNotReady
	}

	fail := func(userID string, err error, reason string) error {
		deps.MetricInc(deps.Metrics.ConfirmFailure)
		deps.EmitAudit(ctx, deps.Events.Confirm, false, userID, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	if err := deps.Passwords.ValidateStrength(next); err != nil {
		return fail("", weakPassword(err, deps.Errors), "weak_password")
	}

	u, err := consumeSingleUse(ctx, token, deps.Kind, deps.Users.SaveUser, deps.Common, func(u *account.User, _ time.Time) error {
		hash, err := deps.Passwords.Hash(next)
		if err != nil {
			return err
		}
		u.PasswordHash = hash
		limiters.Clear(u)
		return nil
	})
	switch {
	case err == deps.Errors.InvalidToken:
		return fail("", err, "unknown_token")
	case err == deps.Errors.ExpiredToken:
		return fail("", err, "expired")
	case err != nil:
		return err
	}

	if err := deps.RevokeAllForUser(ctx, u.ID); err != nil {
		deps.Warn(ctx, "session revocation after password reset not recorded",
			"operation", "reset_password", "user_id", u.ID, "error", err)
	}

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.Confirm, true, u.ID, nil, nil)
	return nil
}
