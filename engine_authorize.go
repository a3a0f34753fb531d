package auth

import (
	"context"
	"time"

	"github.com/justincavery/yoga-app-sub000/internal/flows"
)

// Authorize describes the authorize operation and its observable behavior.
//
// Authorize validates an access token for a protected request: signature,
// expiry, token type, per-token revocation and user-wide revocation. Every
// failure is reported as ErrUnauthorized. When the revocation cache is
// unreachable the check fails open and the token is accepted.
func (e *Engine) Authorize(ctx context.Context, accessToken string) (*Principal, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}

	start := time.Now()
	defer func() {
		if e.metrics != nil {
			e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
		}
	}()

	p, err := flows.RunAuthorize(ctx, accessToken, e.flows.Authorize)
	if err != nil {
		return nil, err
	}
	return &Principal{
		UserID:    p.UserID,
		TokenID:   p.TokenID,
		IssuedAt:  p.IssuedAt,
		ExpiresAt: p.ExpiresAt,
	}, nil
}

// CurrentUser authorizes accessToken and loads its owner. A deleted owner is
// ErrUnauthorized; a deactivated one is ErrInactiveAccount.
func (e *Engine) CurrentUser(ctx context.Context, accessToken string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return flows.RunCurrentUser(ctx, accessToken, e.flows.Authorize)
}
