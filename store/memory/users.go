// Package memory is an in-process account.Store for tests and single-node
// development.
package memory

import (
	"context"
	"sync"

	"github.com/justincavery/yoga-app-sub000/account"
)

// UserStore keeps users in a map guarded by a RWMutex. Every read and write
// copies the record, so callers never share memory with the store.
type UserStore struct {
	mu      sync.RWMutex
	byID    map[string]*account.User
	byEmail map[string]string
}

func NewUserStore() *UserStore {
	return &UserStore{
		byID:    make(map[string]*account.User),
		byEmail: make(map[string]string),
	}
}

func (s *UserStore) FindUserByEmail(_ context.Context, email string) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[account.NormalizeEmail(email)]
	if !ok {
		return nil, account.ErrNotFound
	}
	return s.byID[id].Clone(), nil
}

func (s *UserStore) FindUserByID(_ context.Context, id string) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.byID[id]
	if !ok {
		return nil, account.ErrNotFound
	}
	return u.Clone(), nil
}

func (s *UserStore) FindUserByResetToken(_ context.Context, token string) (*account.User, error) {
	return s.findBy(func(u *account.User) bool {
		return u.PasswordResetToken != nil && *u.PasswordResetToken == token
	})
}

func (s *UserStore) FindUserByVerificationToken(_ context.Context, token string) (*account.User, error) {
	return s.findBy(func(u *account.User) bool {
		return u.EmailVerificationToken != nil && *u.EmailVerificationToken == token
	})
}

// SaveUser inserts or replaces u. It fails with account.ErrDuplicateEmail
// when another id already owns the email.
func (s *UserStore) SaveUser(_ context.Context, u *account.User) error {
	if u == nil || u.ID == "" {
		return account.ErrNotFound
	}
	email := account.NormalizeEmail(u.Email)

	s.mu.Lock()
	defer s.mu.Unlock()

	if owner, ok := s.byEmail[email]; ok && owner != u.ID {
		return account.ErrDuplicateEmail
	}
	if prev, ok := s.byID[u.ID]; ok && prev.Email != email {
		delete(s.byEmail, prev.Email)
	}

	stored := u.Clone()
	stored.Email = email
	s.byID[u.ID] = stored
	s.byEmail[email] = u.ID
	return nil
}

// Len reports how many users are stored.
func (s *UserStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

func (s *UserStore) findBy(match func(*account.User) bool) (*account.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.byID {
		if match(u) {
			return u.Clone(), nil
		}
	}
	return nil, account.ErrNotFound
}

var _ account.Store = (*UserStore)(nil)
