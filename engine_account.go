package auth

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/justincavery/yoga-app-sub000/internal"
	"github.com/justincavery/yoga-app-sub000/internal/flows"
	"github.com/justincavery/yoga-app-sub000/password"
)

var (
	newUserID      = uuid.NewString
	newOpaqueToken = internal.NewOpaqueToken
)

// Register describes the register operation and its observable behavior.
//
// Register may return ErrEmailTaken or a *WeakPasswordError. On success the
// account is active but unverified, a verification email has been handed to
// the mailer, and no tokens are issued.
func (e *Engine) Register(ctx context.Context, email, plain, name string) (*User, error) {
	if !e.ready() {
		return nil, ErrEngineNotReady
	}
	return flows.RunRegister(ctx, email, plain, name, e.flows.Register)
}

// ChangePassword verifies current, stores next and revokes every token the
// user holds. The caller must log in again afterwards.
func (e *Engine) ChangePassword(ctx context.Context, userID, current, next string) error {
	if !e.ready() {
		return ErrEngineNotReady
	}
	return flows.RunChangePassword(ctx, userID, current, next, e.flows.ChangePassword)
}

// ValidatePasswordStrength applies the configured policy and returns a
// *WeakPasswordError naming the first rule that failed.
func (e *Engine) ValidatePasswordStrength(plain string) error {
	policy := password.Policy{}
	if e != nil {
		policy = e.policy
	}

	err := policy.Validate(plain)
	if err == nil {
		return nil
	}
	var se *password.StrengthError
	if errors.As(err, &se) {
		return &WeakPasswordError{Reason: se.Reason}
	}
	return &WeakPasswordError{Reason: err.Error()}
}
