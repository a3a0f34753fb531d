package flows

import (
	"context"
	"time"

	"github.com/justincavery/yoga-app-sub000/account"
)

type EmailVerificationMetrics struct {
	Request        int
	ConfirmSuccess int
	ConfirmFailure int
	EmailFailure   int
}

type EmailVerificationEvents struct {
	Request string
	Confirm string
}

type EmailVerificationDeps struct {
	Common

	Users      account.Store
	Kind       SingleUseKind
	NewToken   func() (string, error)
	SendMail   Mail
	VerifyMail func(name, token string) (subject, body string)

	Metrics EmailVerificationMetrics
	Events  EmailVerificationEvents
}

// RunVerifyEmail consumes a verification token and marks the address verified.
func RunVerifyEmail(ctx context.Context, token string, deps EmailVerificationDeps) (*account.User, error) {
	deps.normalize()
	if deps.Users == nil || deps.Kind.Find == nil {
		return nil, deps.Errors.EngineNotReady
	}

	u, err := consumeSingleUse(ctx, token, deps.Kind, deps.Users.SaveUser, deps.Common, func(u *account.User, _ time.Time) error {
		u.EmailVerified = true
		return nil
	})
	if err != nil {
		if err == deps.Errors.InvalidToken || err == deps.Errors.ExpiredToken {
			deps.MetricInc(deps.Metrics.ConfirmFailure)
			deps.EmitAudit(ctx, deps.Events.Confirm, false, "", err, nil)
		}
		return nil, err
	}

	deps.MetricInc(deps.Metrics.ConfirmSuccess)
	deps.EmitAudit(ctx, deps.Events.Confirm, true, u.ID, nil, nil)
	return u.Clone(), nil
}

// RunResendVerification mints a fresh verification token for an active,
// unverified account and mails it. Like forgot-password it returns nil for
// every input.
func RunResendVerification(ctx context.Context, email string, deps EmailVerificationDeps) error {
	deps.normalize()
	if deps.Users == nil || deps.NewToken == nil || deps.Kind.Set == nil {
		return deps.Errors.EngineNotReady
	}

	deps.MetricInc(deps.Metrics.Request)
	u, err := deps.Users.FindUserByEmail(ctx, account.NormalizeEmail(email))
	if err != nil {
		if !isNotFound(err) {
			deps.Warn(ctx, "verification lookup failed", "operation", "resend_verification", "error", err)
		}
		return nil
	}
	if u.EmailVerified || !u.IsActive {
		return nil
	}

	now := deps.Now()
	token, err := assignSingleUse(u, deps.Kind, deps.NewToken, now)
	if err != nil {
		deps.Warn(ctx, "verification token not generated", "operation", "resend_verification", "user_id", u.ID, "error", err)
		return nil
	}
	u.UpdatedAt = now
	if err := deps.Users.SaveUser(ctx, u); err != nil {
		deps.Warn(ctx, "verification token not saved", "operation", "resend_verification", "user_id", u.ID, "error", err)
		return nil
	}

	sendVerificationMail(ctx, u, token, deps.SendMail, deps.VerifyMail, deps.Common, deps.Metrics.EmailFailure)
	deps.EmitAudit(ctx, deps.Events.Request, true, u.ID, nil, nil)
	return nil
}
