package flows

import (
	"context"
	"time"

	"github.com/justincavery/yoga-app-sub000/account"
	"github.com/justincavery/yoga-app-sub000/jwt"
)

// RefreshMetrics carries metric IDs needed by the refresh flow.
type RefreshMetrics struct {
	RefreshSuccess int
	RefreshFailure int
}

// RefreshEvents carries audit event names used by the refresh flow.
type RefreshEvents struct {
	RefreshSuccess string
	RefreshFailure string
}

// RefreshDeps captures refresh dependencies.
type RefreshDeps struct {
	Common

	Users              account.Store
	Decode             func(string) (*jwt.Claims, error)
	IsRevoked          func(ctx context.Context, token string) bool
	IssuedBeforeRevoke func(ctx context.Context, userID string, issuedAt time.Time) bool
	IssueAccess        func(subject string) (string, error)

	Metrics RefreshMetrics
	Events  RefreshEvents
}

// RunRefresh exchanges a refresh token for a new access token. The refresh
// token itself is not rotated.
func RunRefresh(ctx context.Context, token string, deps RefreshDeps) (string, error) {
	deps.normalize()
	if deps.Users == nil || deps.Decode == nil || deps.IsRevoked == nil ||
		deps.IssuedBeforeRevoke == nil || deps.IssueAccess == nil {
		return "", deps.Errors.EngineNotReady
	}

	fail := func(userID string, err error, reason string) (string, error) {
		deps.MetricInc(deps.Metrics.RefreshFailure)
		deps.EmitAudit(ctx, deps.Events.RefreshFailure, false, userID, err, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return "", err
	}

	claims, err := deps.Decode(token)
	if err != nil {
		return fail("", deps.Errors.InvalidToken, "decode")
	}
	if claims.Type != jwt.TypeRefresh {
		return fail(claims.Subject, deps.Errors.InvalidToken, "wrong_type")
	}
	if deps.IsRevoked(ctx, token) {
		return fail(claims.Subject, deps.Errors.InvalidToken, "revoked")
	}
	if deps.IssuedBeforeRevoke(ctx, claims.Subject, claims.Issued()) {
		return fail(claims.Subject, deps.Errors.InvalidToken, "user_revoked")
	}

	u, err := deps.Users.FindUserByID(ctx, claims.Subject)
	if err != nil {
		if isNotFound(err) {
			return fail(claims.Subject, deps.Errors.InvalidToken, "unknown_user")
		}
		return "", err
	}
	if !u.IsActive {
		return fail(u.ID, deps.Errors.InactiveAccount, "inactive")
	}

	access, err := deps.IssueAccess(u.ID)
	if err != nil {
		return "", err
	}

	deps.MetricInc(deps.Metrics.RefreshSuccess)
	deps.EmitAudit(ctx, deps.Events.RefreshSuccess, true, u.ID, nil, nil)
	return access, nil
}
