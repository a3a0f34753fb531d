package flows

import (
	"context"
	"time"

	"github.com/justincavery/yoga-app-sub000/account"
)

// SingleUseKind describes where one kind of single-use token lives on the
// user record.
type SingleUseKind struct {
	Name string
	TTL  time.Duration
	Find func(ctx context.Context, token string) (*account.User, error)
	Get  func(u *account.User) (token *string, expires *time.Time)
	Set  func(u *account.User, token *string, expires *time.Time)
}

// PasswordResetKind stores tokens in the password_reset_* fields.
func PasswordResetKind(store account.Store, ttl time.Duration) SingleUseKind {
	return SingleUseKind{
		Name: "password_reset",
		TTL:  ttl,
		Find: store.FindUserByResetToken,
		Get: func(u *account.User) (*string, *time.Time) {
			return u.PasswordResetToken, u.PasswordResetExpires
		},
		Set: func(u *account.User, token *string, expires *time.Time) {
			u.PasswordResetToken = token
			u.PasswordResetExpires = expires
		},
	}
}

// EmailVerificationKind stores tokens in the email_verification_* fields.
func EmailVerificationKind(store account.Store, ttl time.Duration) SingleUseKind {
	return SingleUseKind{
		Name: "email_verification",
		TTL:  ttl,
		Find: store.FindUserByVerificationToken,
		Get: func(u *account.User) (*string, *time.Time) {
			return u.EmailVerificationToken, u.EmailVerificationExpires
		},
		Set: func(u *account.User, token *string, expires *time.Time) {
			u.EmailVerificationToken = token
			u.EmailVerificationExpires = expires
		},
	}
}

// assignSingleUse mints a token and stores it with its absolute expiry on u.
// The caller saves u.
func assignSingleUse(u *account.User, kind SingleUseKind, newToken func() (string, error), now time.Time) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}
	expires := now.Add(kind.TTL)
	kind.Set(u, &token, &expires)
	return token, nil
}

// consumeSingleUse looks up token, clears it from the record and then either
// reports expiry or applies mutate. The record is saved exactly once on every
// path that found it, so a token can never be presented twice.
func consumeSingleUse(
	ctx context.Context,
	token string,
	kind SingleUseKind,
	save func(context.Context, *account.User) error,
	c Common,
	mutate func(u *account.User, now time.Time) error,
) (*account.User, error) {
	if token == "" {
		return nil, c.Errors.InvalidToken
	}

	u, err := kind.Find(ctx, token)
	if err != nil {
		if isNotFound(err) {
			return nil, c.Errors.InvalidToken
		}
		return nil, err
	}

	now := c.Now()
	_, expires := kind.Get(u)
	kind.Set(u, nil, nil)
	u.UpdatedAt = now

	if expires == nil || now.After(*expires) {
		if err := save(ctx, u); err != nil {
			return nil, err
		}
		return nil, c.Errors.ExpiredToken
	}

	mutateErr := mutate(u, now)
	if err := save(ctx, u); err != nil {
		return nil, err
	}
	if mutateErr != nil {
		return nil, mutateErr
	}
	return u, nil
}
