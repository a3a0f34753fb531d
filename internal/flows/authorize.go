package flows

import (
	"context"
	"time"

	"github.com/justincavery/yoga-app-sub000/account"
	"github.com/justincavery/yoga-app-sub000/jwt"
)

// Principal is the flow-local result of a successful authorization.
type Principal struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type AuthorizeMetrics struct {
	Success  int
	Rejected int
}

type AuthorizeEvents struct {
	Rejected string
}

type AuthorizeDeps struct {
	Common

	Users              account.Store
	Decode             func(string) (*jwt.Claims, error)
	IsRevoked          func(ctx context.Context, token string) bool
	IssuedBeforeRevoke func(ctx context.Context, userID string, issuedAt time.Time) bool

	Metrics AuthorizeMetrics
	Events  AuthorizeEvents
}

// RunAuthorize validates an access token for a protected request. Every
// failure collapses to Unauthorized; the reason only reaches the audit trail.
func RunAuthorize(ctx context.Context, token string, deps AuthorizeDeps) (*Principal, error) {
	deps.normalize()
	if deps.Decode == nil || deps.IsRevoked == nil || deps.IssuedBeforeRevoke == nil {
		return nil, deps.Errors.EngineNotReady
	}

	reject := func(userID, reason string) (*Principal, error) {
		deps.MetricInc(deps.Metrics.Rejected)
		deps.EmitAudit(ctx, deps.Events.Rejected, false, userID, deps.Errors.Unauthorized, func() map[string]string {
			return map[string]string{"reason": reason}
		})
		return nil, deps.Errors.Unauthorized
	}

	if token == "" {
		return reject("", "missing")
	}
	claims, err := deps.Decode(token)
	if err != nil {
		return reject("", "decode")
	}
	if claims.Type != jwt.TypeAccess {
		return reject(claims.Subject, "wrong_type")
	}
	if deps.IsRevoked(ctx, token) {
		return reject(claims.Subject, "revoked")
	}
	if deps.IssuedBeforeRevoke(ctx, claims.Subject, claims.Issued()) {
		return reject(claims.Subject, "user_revoked")
	}

	p := &Principal{
		UserID:   claims.Subject,
		TokenID:  claims.ID,
		IssuedAt: claims.Issued(),
	}
	if claims.ExpiresAt != nil {
		p.ExpiresAt = claims.ExpiresAt.Time
	}
	deps.MetricInc(deps.Metrics.Success)
	return p, nil
}

// RunCurrentUser authorizes token and loads the account behind it.
func RunCurrentUser(ctx context.Context, token string, deps AuthorizeDeps) (*account.User, error) {
	p, err := RunAuthorize(ctx, token, deps)
	if err != nil {
		return nil, err
	}
	if deps.Users == nil {
		return nil, deps.Errors.EngineNotReady
	}

	u, err := deps.Users.FindUserByID(ctx, p.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, deps.Errors.Unauthorized
		}
		return nil, err
	}
	if !u.IsActive {
		return nil, deps.Errors.InactiveAccount
	}
	return u, nil
}
