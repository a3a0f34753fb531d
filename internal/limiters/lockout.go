package limiters

import (
	"math"
	"time"

	"github.com/justincavery/yoga-app-sub000/account"
)

const (
	DefaultLockoutAttempts = 5
	DefaultLockoutDuration = 30 * time.Minute
)

// LockoutConfig holds the automatic account lockout policy.
type LockoutConfig struct {
	MaxAttempts int
	Duration    time.Duration
}

// LockoutGuard applies the lockout policy to the counters stored on a user
// record. It never persists anything; callers save the record.
type LockoutGuard struct {
	config LockoutConfig
}

// NewLockoutGuard returns a guard, filling zero fields with defaults.
func NewLockoutGuard(cfg LockoutConfig) *LockoutGuard {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultLockoutAttempts
	}
	if cfg.Duration <= 0 {
		cfg.Duration = DefaultLockoutDuration
	}
	return &LockoutGuard{config: cfg}
}

// Config returns the effective policy.
func (g *LockoutGuard) Config() LockoutConfig {
	return g.config
}

// Check inspects u at now. When a lock is in force it returns locked=true and
// the whole minutes (rounded up, at least 1) until it lifts. An elapsed lock
// is cleared on u together with the failure counter, and expired reports
// that u was modified.
func (g *LockoutGuard) Check(u *account.User, now time.Time) (retryAfterMinutes int, locked bool, expired bool) {
	if u.AccountLockedUntil == nil {
		return 0, false, false
	}
	until := *u.AccountLockedUntil
	if now.Before(until) {
		return RetryAfterMinutes(until.Sub(now)), true, false
	}

	u.AccountLockedUntil = nil
	u.FailedLoginAttempts = 0
	return 0, false, true
}

// RecordFailure bumps the failure counter on u and, once it reaches the
// threshold, locks the account until now+Duration. It reports whether this
// failure triggered the lock.
func (g *LockoutGuard) RecordFailure(u *account.User, now time.Time) bool {
	u.FailedLoginAttempts++
	if u.FailedLoginAttempts < g.config.MaxAttempts {
		return false
	}
	until := now.Add(g.config.Duration)
	u.AccountLockedUntil = &until
	return true
}

// RecordSuccess clears lockout state and stamps the last login.
func (g *LockoutGuard) RecordSuccess(u *account.User, now time.Time) {
	u.FailedLoginAttempts = 0
	u.AccountLockedUntil = nil
	ts := now
	u.LastLogin = &ts
}

// Clear drops lockout state without touching LastLogin.
func Clear(u *account.User) {
	u.FailedLoginAttempts = 0
	u.AccountLockedUntil = nil
}

// RetryAfterMinutes rounds d up to whole minutes with a floor of 1.
func RetryAfterMinutes(d time.Duration) int {
	m := int(math.Ceil(d.Minutes()))
	if m < 1 {
		return 1
	}
	return m
}
