package flows

import (
	"context"

	"github.com/justincavery/yoga-app-sub000/account"
)

// ChangePasswordMetrics carries metric IDs needed by the change-password flow.
type ChangePasswordMetrics struct {
	Success int
	Failure int
}

// ChangePasswordEvents carries audit event names used by the change-password flow.
type ChangePasswordEvents struct {
	Success string
	Failure string
}

// ChangePasswordDeps captures change-password dependencies.
type ChangePasswordDeps struct {
	Common

	Users            account.Store
	Passwords        Passwords
	RevokeAllForUser func(ctx context.Context, userID string) error

	Metrics ChangePasswordMetrics
	Events  ChangePasswordEvents
}

// RunChangePassword replaces the password of an authenticated user and ends
// every session issued before the change.
func RunChangePassword(ctx context.Context, userID, current, next string, deps ChangePasswordDeps) error {
	deps.normalize()
	if deps.Users == nil || !deps.Passwords.ready() || deps.RevokeAllForUser == nil {
		return deps.Errors.EngineNotReady
	}

	fail := func(err error, reason string) error {
		deps.MetricInc(deps.Metrics.Failure)
		deps.EmitAudit(ctx, deps.Events.Failure, false, userID, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return err
	}

	u, err := deps.Users.FindUserByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return fail(deps.Errors.Unauthorized, "unknown_user")
		}
		return err
	}
	if !deps.Passwords.Verify(current, u.PasswordHash) {
		return fail(deps.Errors.InvalidCredentials, "bad_password")
	}
	if deps.Passwords.Verify(next, u.PasswordHash) {
		return fail(deps.Errors.PasswordReuse, "reuse")
	}
	if err := deps.Passwords.ValidateStrength(next); err != nil {
		return fail(weakPassword(err, deps.Errors), "weak_password")
	}

	hash, err := deps.Passwords.Hash(next)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.UpdatedAt = deps.Now()
	if err := deps.Users.SaveUser(ctx, u); err != nil {
		return err
	}

	if err := deps.RevokeAllForUser(ctx, u.ID); err != nil {
		deps.Warn(ctx, "session revocation after password change not recorded",
			"operation", "change_password", "user_id", u.ID, "error", err)
	}

	deps.MetricInc(deps.Metrics.Success)
	deps.EmitAudit(ctx, deps.Events.Success, true, u.ID, nil, nil)
	return nil
}
