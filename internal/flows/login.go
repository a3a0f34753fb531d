package flows

import (
	"context"
	"strconv"
	"time"

	"github.com/justincavery/yoga-app-sub000/account"
	"github.com/justincavery/yoga-app-sub000/internal/limiters"
)

// LoginResult is the flow-local login response shape.
type LoginResult struct {
	User         *account.User
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// LoginMetrics carries metric IDs needed by the login flow.
type LoginMetrics struct {
	LoginSuccess    int
	LoginFailure    int
	LoginLocked     int
	AccountLocked   int
	PasswordUpgrade int
}

// LoginEvents carries audit event names used by the login flow.
type LoginEvents struct {
	LoginSuccess  string
	LoginFailure  string
	AccountLocked string
}

// LoginDeps captures login dependencies.
type LoginDeps struct {
	Common

	RequireVerified        bool
	PasswordUpgradeOnLogin bool
	AccessTTL              time.Duration

	Users        account.Store
	Passwords    Passwords
	Lockout      *limiters.LockoutGuard
	IssueAccess  func(subject string) (string, error)
	IssueRefresh func(subject string) (string, error)

	Metrics LoginMetrics
	Events  LoginEvents
}

// RunLogin authenticates email/password. Lockout state on the record is
// consulted first, then the password, then account status. A refresh token
// is issued only when remember is set.
func RunLogin(ctx context.Context, email, plain string, remember bool, deps LoginDeps) (*LoginResult, error) {
	deps.normalize()
	if deps.Users == nil || !deps.Passwords.ready() || deps.Passwords.VerifyDummy == nil ||
		deps.Lockout == nil || deps.IssueAccess == nil || deps.IssueRefresh == nil || deps.Errors.AccountLocked == nil {
		return nil, deps.Errors.EngineNotReady
	}

	email = account.NormalizeEmail(email)
	fail := func(userID string, err error, reason string) {
		deps.MetricInc(deps.Metrics.LoginFailure)
		deps.EmitAudit(ctx, deps.Events.LoginFailure, false, userID, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
	}

	u, err := deps.Users.FindUserByEmail(ctx, email)
	if err != nil {
		if !isNotFound(err) {
			return nil, err
		}
		deps.Passwords.VerifyDummy(plain)
		fail("", deps.Errors.InvalidCredentials, "unknown_user")
		return nil, deps.Errors.InvalidCredentials
	}

	now := deps.Now()
	retryAfter, locked, lockExpired := deps.Lockout.Check(u, now)
	if locked {
		lockErr := deps.Errors.AccountLocked(retryAfter)
		deps.MetricInc(deps.Metrics.LoginLocked)
		fail(u.ID, lockErr, "locked")
		return nil, lockErr
	}

	if !deps.Passwords.Verify(plain, u.PasswordHash) {
		lockedNow := deps.Lockout.RecordFailure(u, now)
		u.UpdatedAt = now
		saveBestEffort(ctx, deps.Users, u, "record_login_failure", deps.Common)

		if lockedNow {
			lockErr := deps.Errors.AccountLocked(limiters.RetryAfterMinutes(deps.Lockout.Config().Duration))
			deps.MetricInc(deps.Metrics.AccountLocked)
			deps.EmitAudit(ctx, deps.Events.AccountLocked, false, u.ID, lockErr, func() map[string]string {
				return map[string]string{"failed_attempts": strconv.Itoa(u.FailedLoginAttempts)}
			})
			fail(u.ID, lockErr, "locked")
			return nil, lockErr
		}
		fail(u.ID, deps.Errors.InvalidCredentials, "bad_password")
		return nil, deps.Errors.InvalidCredentials
	}

	if !u.IsActive {
		if lockExpired {
			saveBestEffort(ctx, deps.Users, u, "clear_expired_lock", deps.Common)
		}
		fail(u.ID, deps.Errors.InactiveAccount, "inactive")
		return nil, deps.Errors.InactiveAccount
	}
	if deps.RequireVerified && !u.EmailVerified {
		if lockExpired {
			saveBestEffort(ctx, deps.Users, u, "clear_expired_lock", deps.Common)
		}
		fail(u.ID, deps.Errors.EmailNotVerified, "unverified")
		return nil, deps.Errors.EmailNotVerified
	}

	if deps.PasswordUpgradeOnLogin && deps.Passwords.NeedsUpgrade != nil && deps.Passwords.NeedsUpgrade(u.PasswordHash) {
		if upgraded, err := deps.Passwords.Hash(plain); err == nil {
			u.PasswordHash = upgraded
			deps.MetricInc(deps.Metrics.PasswordUpgrade)
		} else {
			deps.Warn(ctx, "password hash upgrade failed", "operation", "upgrade_hash", "user_id", u.ID, "error", err)
		}
	}

	deps.Lockout.RecordSuccess(u, now)
	u.UpdatedAt = now
	saveBestEffort(ctx, deps.Users, u, "record_login_success", deps.Common)

	access, err := deps.IssueAccess(u.ID)
	if err != nil {
		return nil, err
	}
	result := &LoginResult{
		User:        u.Clone(),
		AccessToken: access,
		ExpiresIn:   deps.AccessTTL,
	}
	if remember {
		refresh, err := deps.IssueRefresh(u.ID)
		if err != nil {
			return nil, err
		}
		result.RefreshToken = refresh
	}

	deps.MetricInc(deps.Metrics.LoginSuccess)
	deps.EmitAudit(ctx, deps.Events.LoginSuccess, true, u.ID, nil, func() map[string]string {
		if remember {
			return map[string]string{"remember": "true"}
		}
		return nil
	})
	return result, nil
}

// saveBestEffort persists lockout bookkeeping. Failures are logged, not
// returned.
func saveBestEffort(ctx context.Context, users account.Store, u *account.User, op string, c Common) {
	if err := users.SaveUser(ctx, u); err != nil {
		c.Warn(ctx, "user record not saved", "operation", op, "user_id", u.ID, "error", err)
	}
}
