// Package account defines the user security record and the persistence
// contract the authentication core relies on.
package account

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	// ErrNotFound is returned by every Store lookup that matches no user.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned by SaveUser when another user already owns the email.
	ErrDuplicateEmail = errors.New("email already registered")
)

// User is the security-relevant subset of a user. Only the authentication
// core mutates the lockout and single-use token fields.
type User struct {
	ID    string
	Email string
	Name  string

	PasswordHash string
	IsActive     bool

	EmailVerified bool

	FailedLoginAttempts int
	AccountLockedUntil  *time.Time

	PasswordResetToken   *string
	PasswordResetExpires *time.Time

	EmailVerificationToken   *string
	EmailVerificationExpires *time.Time

	LastLogin *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a deep copy so callers can hand records across goroutines
// without sharing pointer fields.
func (u *User) Clone() *User {
	if u == nil {
		return nil
	}
	out := *u
	out.AccountLockedUntil = cloneTime(u.AccountLockedUntil)
	out.PasswordResetToken = cloneString(u.PasswordResetToken)
	out.PasswordResetExpires = cloneTime(u.PasswordResetExpires)
	out.EmailVerificationToken = cloneString(u.EmailVerificationToken)
	out.EmailVerificationExpires = cloneTime(u.EmailVerificationExpires)
	out.LastLogin = cloneTime(u.LastLogin)
	return &out
}

// Store is the persistent user store. SaveUser is an atomic upsert keyed by
// ID; implementations must reject a second user with the same email with
// ErrDuplicateEmail.
type Store interface {
	FindUserByEmail(ctx context.Context, email string) (*User, error)
	FindUserByID(ctx context.Context, id string) (*User, error)
	FindUserByResetToken(ctx context.Context, token string) (*User, error)
	FindUserByVerificationToken(ctx context.Context, token string) (*User, error)
	SaveUser(ctx context.Context, user *User) error
}

// NormalizeEmail trims and lower-cases an address for storage and lookup.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
