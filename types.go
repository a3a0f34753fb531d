package auth

import (
	"time"

	"github.com/justincavery/yoga-app-sub000/account"
)

// User is the security record returned by Register, VerifyEmail and
// CurrentUser. It is always a copy; mutating it does not affect the store.
type User = account.User

// UserStore is the persistence contract the Engine depends on.
type UserStore = account.Store

// LoginResult is returned by a successful Login. RefreshToken is empty
// unless the caller asked to be remembered.
type LoginResult struct {
	User         *User
	AccessToken  string
	RefreshToken string
	ExpiresIn    time.Duration
}

// Principal identifies the caller of an authorized request.
type Principal struct {
	UserID    string
	TokenID   string
	IssuedAt  time.Time
	ExpiresAt time.Time
}
