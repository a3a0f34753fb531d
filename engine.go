package auth

import (
	"context"
	"log/slog"
	"net/url"
	"strings"
	"time"

	internalaudit "github.com/justincavery/yoga-app-sub000/internal/audit"
	"github.com/justincavery/yoga-app-sub000/internal/flows"
	"github.com/justincavery/yoga-app-sub000/internal/limiters"
	"github.com/justincavery/yoga-app-sub000/jwt"
	"github.com/justincavery/yoga-app-sub000/mailer"
	"github.com/justincavery/yoga-app-sub000/password"
	"github.com/justincavery/yoga-app-sub000/revocation"
)

// Engine orchestrates registration, login, token lifecycle and the
// single-use email flows. It holds no per-user state: the user store and
// the revocation cache own everything mutable.
//
// Engine methods are safe for concurrent use once built.
type Engine struct {
	config     Config
	users      UserStore
	hasher     *password.Hasher
	policy     password.Policy
	tokens     *jwt.Manager
	revocation *revocation.Store
	lockout    *limiters.LockoutGuard
	mailer     mailer.Sender
	audit      *internalaudit.Dispatcher
	metrics    *Metrics
	logger     *slog.Logger
	now        func() time.Time

	flows flows.Deps
}

// Close stops the audit dispatcher after delivering buffered events. It does
// not close the user store, the cache or the mailer.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	if e.audit != nil {
		e.audit.Close()
	}
}

// AuditDropped returns how many audit events were discarded because the
// buffer was full or the engine was closed.
func (e *Engine) AuditDropped() uint64 {
	if e == nil || e.audit == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
//
// MetricsSnapshot never returns nil maps, even on an engine built with
// metrics disabled.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Metrics exposes the live counters for exporters.
func (e *Engine) Metrics() *Metrics {
	if e == nil {
		return nil
	}
	return e.metrics
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

func (e *Engine) ready() bool {
	return e != nil && e.users != nil && e.hasher != nil && e.tokens != nil && e.revocation != nil
}

func (e *Engine) warn(ctx context.Context, msg string, args ...any) {
	e.logger.WarnContext(ctx, msg, args...)
}

// Login describes the login operation and its observable behavior.
//
// Login may return ErrInvalidCredentials, an *AccountLockedError,
// ErrInactiveAccount or ErrEmailNotVerified. An unknown email costs the same
// hashing work as a wrong password. A refresh token is issued only when
// remember is true.
func (e *Engine) Login(ctx context.Context, email, plain string, remember bool) (*LoginResult, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	res, err := flows.RunLogin(ctx, email, plain, remember, e.flows.Login)
	if err != nil {
		return nil, err
	}
	return &LoginResult{
		User:         res.User,
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		ExpiresIn:    res.ExpiresIn,
	}, nil
}

// Logout revokes accessToken for the rest of its lifetime. An already
// expired token is a successful no-op; a malformed one is ErrInvalidToken.
// Revocation cache outages are logged and do not fail the call.
func (e *Engine) Logout(ctx context.Context, accessToken string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunLogout(ctx, accessToken, e.flows.Logout)
}

// LogoutAll invalidates every token issued to userID before now.
func (e *Engine) LogoutAll(ctx context.Context, userID string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunLogoutAll(ctx, userID, e.flows.Logout)
}

// Refresh describes the refresh operation and its observable behavior.
//
// Refresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated. Every rejection is ErrInvalidToken except a
// deactivated account, which is ErrInactiveAccount.
func (e *Engine) Refresh(ctx context.Context, refreshToken string) (string, error) {
	if !e.ready() {
		return "", ErrEngineNotReady
	}
	return flows.RunRefresh(ctx, refreshToken, e.flows.Refresh)
}

func (e *Engine) revokeAllForUser(ctx context.Context, userID string) error {
	return e.revocation.RevokeAllForUser(ctx, userID, e.config.revocationUserTTL())
}

func (e *Engine) issueAccess(subject string) (string, error) {
	return e.tokens.IssueAccess(subject, e.config.JWT.AccessTTL)
}

func (e *Engine) issueRefresh(subject string) (string, error) {
	return e.tokens.IssueRefresh(subject, e.config.JWT.RefreshTTL)
}

func (e *Engine) link(path, token string) string {
	base := strings.TrimRight(e.config.Email.BaseURL, "/")
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return base + path + "?token=" + url.QueryEscape(token)
}

func (e *Engine) buildFlowDeps() flows.Deps {
	common := flows.Common{
		Now:       e.now,
		MetricInc: func(id int) { e.metricInc(MetricID(id)) },
		EmitAudit: e.emitAudit,
		Warn:      e.warn,
		Errors: flows.Errors{
			EngineNotReady:     ErrEngineNotReady,
			InvalidCredentials: ErrInvalidCredentials,
			EmailTaken:         ErrEmailTaken,
			InvalidToken:       ErrInvalidToken,
			ExpiredToken:       ErrExpiredToken,
			InactiveAccount:    ErrInactiveAccount,
			Unauthorized:       ErrUnauthorized,
			PasswordReuse:      ErrPasswordReuse,
			EmailNotVerified:   ErrEmailNotVerified,
			AccountLocked: func(retryAfterMinutes int) error {
				return &AccountLockedError{RetryAfterMinutes: retryAfterMinutes}
			},
			WeakPassword: func(reason string) error {
				return &WeakPasswordError{Reason: reason}
			},
		},
	}

	passwords := flows.Passwords{
		Hash:             e.hasher.Hash,
		Verify:           e.hasher.Verify,
		VerifyDummy:      e.hasher.VerifyDummy,
		NeedsUpgrade:     e.hasher.NeedsUpgrade,
		ValidateStrength: e.policy.Validate,
	}

	resetKind := flows.PasswordResetKind(e.users, e.config.PasswordReset.TokenTTL)
	verifyKind := flows.EmailVerificationKind(e.users, e.config.EmailVerification.TokenTTL)
	send := flows.Mail(e.mailer.Send)

	return flows.Deps{
		Register: flows.RegisterDeps{
			Common:       common,
			Users:        e.users,
			Passwords:    passwords,
			Verification: verifyKind,
			NewUserID:    newUserID,
			NewToken:     newOpaqueToken,
			SendMail:     send,
			VerifyMail:   e.verificationMail,
			Metrics: flows.RegisterMetrics{
				RegisterSuccess: int(MetricRegisterSuccess),
				RegisterFailure: int(MetricRegisterFailure),
				EmailFailure:    int(MetricEmailDispatchFailure),
			},
			Events: flows.RegisterEvents{
				RegisterSuccess: auditEventRegisterSuccess,
				RegisterFailure: auditEventRegisterFailure,
			},
		},
		Login: flows.LoginDeps{
			Common:                 common,
			RequireVerified:        e.config.EmailVerification.RequireForLogin,
			PasswordUpgradeOnLogin: e.config.Password.UpgradeOnLogin,
			AccessTTL:              e.config.JWT.AccessTTL,
			Users:                  e.users,
			Passwords:              passwords,
			Lockout:                e.lockout,
			IssueAccess:            e.issueAccess,
			IssueRefresh:           e.issueRefresh,
			Metrics: flows.LoginMetrics{
				LoginSuccess:    int(MetricLoginSuccess),
				LoginFailure:    int(MetricLoginFailure),
				LoginLocked:     int(MetricLoginLocked),
				AccountLocked:   int(MetricAccountLocked),
				PasswordUpgrade: int(MetricPasswordUpgraded),
			},
			Events: flows.LoginEvents{
				LoginSuccess:  auditEventLoginSuccess,
				LoginFailure:  auditEventLoginFailure,
				AccountLocked: auditEventAccountLocked,
			},
		},
		Logout: flows.LogoutDeps{
			Common:           common,
			Decode:           e.tokens.Decode,
			Remaining:        e.tokens.Remaining,
			RevokeToken:      e.revocation.RevokeToken,
			RevokeAllForUser: e.revokeAllForUser,
			Metrics: flows.LogoutMetrics{
				Logout:    int(MetricLogout),
				LogoutAll: int(MetricLogoutAll),
			},
			Events: flows.LogoutEvents{
				Logout:    auditEventLogout,
				LogoutAll: auditEventLogoutAll,
			},
		},
		Refresh: flows.RefreshDeps{
			Common:             common,
			Users:              e.users,
			Decode:             e.tokens.Decode,
			IsRevoked:          e.revocation.IsRevoked,
			IssuedBeforeRevoke: e.revocation.TokenIssuedBeforeUserRevocation,
			IssueAccess:        e.issueAccess,
			Metrics: flows.RefreshMetrics{
				RefreshSuccess: int(MetricRefreshSuccess),
				RefreshFailure: int(MetricRefreshFailure),
			},
			Events: flows.RefreshEvents{
				RefreshSuccess: auditEventRefreshSuccess,
				RefreshFailure: auditEventRefreshFailure,
			},
		},
		ChangePassword: flows.ChangePasswordDeps{
			Common:           common,
			Users:            e.users,
			Passwords:        passwords,
			RevokeAllForUser: e.revokeAllForUser,
			Metrics: flows.ChangePasswordMetrics{
				Success: int(MetricPasswordChangeSuccess),
				Failure: int(MetricPasswordChangeFailure),
			},
			Events: flows.ChangePasswordEvents{
				Success: auditEventPasswordChangeSuccess,
				Failure: auditEventPasswordChangeFailure,
			},
		},
		PasswordReset: flows.PasswordResetDeps{
			Common:           common,
			Users:            e.users,
			Passwords:        passwords,
			Kind:             resetKind,
			NewToken:         newOpaqueToken,
			SendMail:         send,
			ResetMail:        e.resetMail,
			RevokeAllForUser: e.revokeAllForUser,
			Metrics: flows.PasswordResetMetrics{
				Request:        int(MetricPasswordResetRequest),
				ConfirmSuccess: int(MetricPasswordResetConfirmSuccess),
				ConfirmFailure: int(MetricPasswordResetConfirmFailure),
				EmailFailure:   int(MetricEmailDispatchFailure),
			},
			Events: flows.PasswordResetEvents{
				Request: auditEventPasswordResetRequest,
				Confirm: auditEventPasswordResetConfirm,
			},
		},
		EmailVerification: flows.EmailVerificationDeps{
			Common:     common,
			Users:      e.users,
			Kind:       verifyKind,
			NewToken:   newOpaqueToken,
			SendMail:   send,
			VerifyMail: e.verificationMail,
			Metrics: flows.EmailVerificationMetrics{
				Request:        int(MetricEmailVerificationRequest),
				ConfirmSuccess: int(MetricEmailVerificationSuccess),
				ConfirmFailure: int(MetricEmailVerificationFailure),
				EmailFailure:   int(MetricEmailDispatchFailure),
			},
			Events: flows.EmailVerificationEvents{
				Request: auditEventEmailVerificationRequest,
				Confirm: auditEventEmailVerificationConfirm,
			},
		},
		Authorize: flows.AuthorizeDeps{
			Common:             common,
			Users:              e.users,
			Decode:             e.tokens.Decode,
			IsRevoked:          e.revocation.IsRevoked,
			IssuedBeforeRevoke: e.revocation.TokenIssuedBeforeUserRevocation,
			Metrics: flows.AuthorizeMetrics{
				Success:  int(MetricAuthorizeSuccess),
				Rejected: int(MetricAuthorizeRejected),
			},
			Events: flows.AuthorizeEvents{
				Rejected: auditEventAuthorizeRejected,
			},
		},
	}
}
