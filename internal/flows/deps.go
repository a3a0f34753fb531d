package flows

import (
	"context"
	"errors"
	"time"

	"github.com/justincavery/yoga-app-sub000/account"
	"github.com/justincavery/yoga-app-sub000/password"
)

// Errors carries the host's public error values so flows can return them
// without importing the root package.
type Errors struct {
	EngineNotReady     error
	InvalidCredentials error
	EmailTaken         error
	InvalidToken       error
	ExpiredToken       error
	InactiveAccount    error
	Unauthorized       error
	PasswordReuse      error
	EmailNotVerified   error

	AccountLocked func(retryAfterMinutes int) error
	WeakPassword  func(reason string) error
}

// Common holds the hooks every flow uses.
type Common struct {
	Now       func() time.Time
	MetricInc func(int)
	EmitAudit func(ctx context.Context, event string, success bool, userID string, err error, meta func() map[string]string)
	Warn      func(ctx context.Context, msg string, args ...any)

	Errors Errors
}

func (c *Common) normalize() {
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.MetricInc == nil {
		c.MetricInc = func(int) {}
	}
	if c.EmitAudit == nil {
		c.EmitAudit = func(context.Context, string, bool, string, error, func() map[string]string) {}
	}
	if c.Warn == nil {
		c.Warn = func(context.Context, string, ...any) {}
	}
}

// Passwords is the hashing capability shared by credential flows.
type Passwords struct {
	Hash             func(string) (string, error)
	Verify           func(plain, encoded string) bool
	VerifyDummy      func(string)
	NeedsUpgrade     func(string) bool
	ValidateStrength func(string) error
}

func (p Passwords) ready() bool {
	return p.Hash != nil && p.Verify != nil && p.ValidateStrength != nil
}

// Mail sends one message and reports whether it was accepted.
type Mail func(ctx context.Context, to, subject, body string) bool

// weakPassword converts a strength failure into the host error.
func weakPassword(err error, errs Errors) error {
	var se *password.StrengthError
	if errors.As(err, &se) && errs.WeakPassword != nil {
		return errs.WeakPassword(se.Reason)
	}
	if errs.WeakPassword != nil {
		return errs.WeakPassword(err.Error())
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, account.ErrNotFound)
}

// Deps groups flow dependency sets. The root engine builds this once and
// delegates each request method to the matching flow.
type Deps struct {
	Register          RegisterDeps
	Login             LoginDeps
	Logout            LogoutDeps
	Refresh           RefreshDeps
	ChangePassword    ChangePasswordDeps
	PasswordReset     PasswordResetDeps
	EmailVerification EmailVerificationDeps
	Authorize         AuthorizeDeps
}
