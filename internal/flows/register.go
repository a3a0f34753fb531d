package flows

import (
	"context"
	"errors"
	"strings"

	"github.com/justincavery/yoga-app-sub000/account"
	"github.com/justincavery/yoga-app-sub000/internal"
)

// RegisterMetrics carries metric IDs needed by the register flow.
type RegisterMetrics struct {
	RegisterSuccess int
	RegisterFailure int
	EmailFailure    int
}

// RegisterEvents carries audit event names used by the register flow.
type RegisterEvents struct {
	RegisterSuccess string
	RegisterFailure string
}

// RegisterDeps captures register dependencies.
type RegisterDeps struct {
	Common

	Users        account.Store
	Passwords    Passwords
	Verification SingleUseKind
	NewUserID    func() string
	NewToken     func() (string, error)
	SendMail     Mail
	VerifyMail   func(name, token string) (subject, body string)

	Metrics RegisterMetrics
	Events  RegisterEvents
}

// RunRegister creates an active, unverified account and mails the
// verification link. It never logs the user in.
func RunRegister(ctx context.Context, email, plain, name string, deps RegisterDeps) (*account.User, error) {
	deps.normalize()
	if deps.Users == nil || !deps.Passwords.ready() || deps.NewUserID == nil || deps.NewToken == nil || deps.Verification.Set == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email = account.NormalizeEmail(email)
	fail := func(err error, reason string) (*account.User, error) {
		deps.MetricInc(deps.Metrics.RegisterFailure)
		deps.EmitAudit(ctx, deps.Events.RegisterFailure, false, "", err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return nil, err
	}

	if _, err := deps.Users.FindUserByEmail(ctx, email); err == nil {
		return fail(deps.Errors.EmailTaken, "email_taken")
	} else if !isNotFound(err) {
		return nil, err
	}

	if err := deps.Passwords.ValidateStrength(plain); err != nil {
		return fail(weakPassword(err, deps.Errors), "weak_password")
	}

	hash, err := deps.Passwords.Hash(plain)
	if err != nil {
		return nil, err
	}

	now := deps.Now()
	u := &account.User{
		ID:           deps.NewUserID(),
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hash,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	token, err := assignSingleUse(u, deps.Verification, deps.NewToken, now)
	if err != nil {
		return nil, err
	}

	if err := deps.Users.SaveUser(ctx, u); err != nil {
		if errors.Is(err, account.ErrDuplicateEmail) {
			return fail(deps.Errors.EmailTaken, "email_taken")
		}
		return nil, err
	}

	sendVerificationMail(ctx, u, token, deps.SendMail, deps.VerifyMail, deps.Common, deps.Metrics.EmailFailure)

	deps.MetricInc(deps.Metrics.RegisterSuccess)
	deps.EmitAudit(ctx, deps.Events.RegisterSuccess, true, u.ID, nil, nil)
	return u.Clone(), nil
}

func sendVerificationMail(ctx context.Context, u *account.User, token string, send Mail, compose func(name, token string) (string, string), c Common, failureMetric int) {
	if send == nil || compose == nil {
		return
	}
	subject, body := compose(u.Name, token)
	if !send(ctx, u.Email, subject, body) {
		c.MetricInc(failureMetric)
		c.Warn(ctx, "verification email not sent",
			"operation", "send_verification_email",
			"user_id", u.ID,
			"token", internal.RedactToken(token),
		)
	}
}
