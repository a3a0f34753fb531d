package flows

import (
	"context"
	"errors"
	"time"

	"github.com/justincavery/yoga-app-sub000/jwt"
)

// LogoutMetrics carries metric IDs needed by logout flows.
type LogoutMetrics struct {
	Logout    int
	LogoutAll int
}

// LogoutEvents carries audit event names used by logout flows.
type LogoutEvents struct {
	Logout    string
	LogoutAll string
}

// LogoutDeps captures logout dependencies.
type LogoutDeps struct {
	Common

	Decode           func(string) (*jwt.Claims, error)
	Remaining        func(*jwt.Claims) time.Duration
	RevokeToken      func(ctx context.Context, token string, ttl time.Duration) error
	RevokeAllForUser func(ctx context.Context, userID string) error

	Metrics LogoutMetrics
	Events  LogoutEvents
}

// RunLogout revokes token for the rest of its lifetime. A token that has
// already expired needs nothing and succeeds; any other decode failure is
// InvalidToken. Cache write failures are logged only.
func RunLogout(ctx context.Context, token string, deps LogoutDeps) error {
	deps.normalize()
	if deps.Decode == nil || deps.Remaining == nil || deps.RevokeToken == nil {
		return deps.Errors.EngineNotReady
	}

	claims, err := deps.Decode(token)
	if err != nil {
		if errors.Is(err, jwt.ErrExpiredToken) {
			return nil
		}
		return deps.Errors.InvalidToken
	}

	if err := deps.RevokeToken(ctx, token, deps.Remaining(claims)); err != nil {
		deps.Warn(ctx, "logout revocation not recorded", "operation", "logout", "user_id", claims.Subject, "error", err)
	}

	deps.MetricInc(deps.Metrics.Logout)
	deps.EmitAudit(ctx, deps.Events.Logout, true, claims.Subject, nil, nil)
	return nil
}

// RunLogoutAll revokes every token issued to userID up to now.
func RunLogoutAll(ctx context.Context, userID string, deps LogoutDeps) error {
	deps.normalize()
	if deps.RevokeAllForUser == nil {
		return deps.Errors.EngineNotReady
	}
	if userID == "" {
		return deps.Errors.Unauthorized
	}

	if err := deps.RevokeAllForUser(ctx, userID); err != nil {
		deps.Warn(ctx, "logout-all revocation not recorded", "operation", "logout_all", "user_id", userID, "error", err)
	}

	deps.MetricInc(deps.Metrics.LogoutAll)
	deps.EmitAudit(ctx, deps.Events.LogoutAll, true, userID, nil, nil)
	return nil
}
