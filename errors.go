package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned for an unknown email or a wrong password.
	// The two cases are indistinguishable to the caller.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrAccountLocked matches every *AccountLockedError.
	ErrAccountLocked = errors.New("account locked")
	// ErrWeakPassword matches every *WeakPasswordError.
	ErrWeakPassword = errors.New("password too weak")
	// ErrEmailTaken is returned by Register when the address already has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidToken covers malformed, unknown, consumed, revoked and wrong-type tokens.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when a single-use token is found but past its expiry.
	ErrExpiredToken = errors.New("token expired")
	// ErrInactiveAccount is returned for deactivated accounts with valid credentials.
	ErrInactiveAccount = errors.New("account inactive")
	// ErrUnauthorized is the only failure Authorize reports.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrPasswordReuse is returned by ChangePassword when the new password equals the current one.
	ErrPasswordReuse = errors.New("new password must be different from current password")
	// ErrEmailNotVerified is returned by Login when verification is required and missing.
	ErrEmailNotVerified = errors.New("email not verified")
	// ErrEngineNotReady is returned when an Engine was not built through Builder.
	ErrEngineNotReady = errors.New("engine not initialized")
)

// AccountLockedError reports a lockout together with the whole minutes until
// it lifts.
type AccountLockedError struct {
	RetryAfterMinutes int
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked, retry after %d minute(s)", e.RetryAfterMinutes)
}

func (e *AccountLockedError) Is(target error) bool {
	return target == ErrAccountLocked
}

// WeakPasswordError carries the first strength rule a password failed.
type WeakPasswordError struct {
	Reason string
}

func (e *WeakPasswordError) Error() string {
	return e.Reason
}

func (e *WeakPasswordError) Is(target error) bool {
	return target == ErrWeakPassword
}
