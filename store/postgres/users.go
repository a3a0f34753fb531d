package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/justincavery/yoga-app-sub000/account"
)

const uniqueViolation = "23505"

// DB is the subset of *pgxpool.Pool the store uses.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// UserStore implements account.Store using PostgreSQL.
type UserStore struct {
	db DB
}

// NewUserStore creates a UserStore on db.
func NewUserStore(db DB) *UserStore {
	return &UserStore{db: db}
}

const selectUser = `
	SELECT id, email, name, password_hash, is_active, email_verified,
	       failed_login_attempts, account_locked_until,
	       password_reset_token, password_reset_expires,
	       email_verification_token, email_verification_expires,
	       last_login, created_at, updated_at
	FROM users
`

// FindUserByEmail looks a user up by email, case-insensitively.
func (s *UserStore) FindUserByEmail(ctx context.Context, email string) (*account.User, error) {
	return s.findOne(ctx, "email", selectUser+`WHERE LOWER(email) = LOWER($1)`, email)
}

// FindUserByID looks a user up by id.
func (s *UserStore) FindUserByID(ctx context.Context, id string) (*account.User, error) {
	return s.findOne(ctx, "id", selectUser+`WHERE id = $1`, id)
}

// FindUserByResetToken looks a user up by stored password-reset token.
func (s *UserStore) FindUserByResetToken(ctx context.Context, token string) (*account.User, error) {
	if token == "" {
		return nil, oops.Code("USER_NOT_FOUND").With("by", "reset_token").Wrap(account.ErrNotFound)
	}
	return s.findOne(ctx, "reset_token", selectUser+`WHERE password_reset_token = $1`, token)
}

// FindUserByVerificationToken looks a user up by stored email-verification token.
func (s *UserStore) FindUserByVerificationToken(ctx context.Context, token string) (*account.User, error) {
	if token == "" {
		return nil, oops.Code("USER_NOT_FOUND").With("by", "verification_token").Wrap(account.ErrNotFound)
	}
	return s.findOne(ctx, "verification_token", selectUser+`WHERE email_verification_token = $1`, token)
}

func (s *UserStore) findOne(ctx context.Context, by, query string, arg string) (*account.User, error) {
	u, err := scanUser(s.db.QueryRow(ctx, query, arg))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("USER_NOT_FOUND").
			With("by", by).
			Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("USER_LOOKUP_FAILED").
			With("operation", "find user").
			With("by", by).
			Wrap(err)
	}
	return u, nil
}

// SaveUser inserts or fully replaces the user row with the same id.
func (s *UserStore) SaveUser(ctx context.Context, u *account.User) error {
	if u == nil || u.ID == "" {
		return oops.Code("USER_SAVE_FAILED").Errorf("user id is required")
	}

	_, err := s.db.Exec(ctx, `
		INSERT INTO users (
			id, email, name, password_hash, is_active, email_verified,
			failed_login_attempts, account_locked_until,
			password_reset_token, password_reset_expires,
			email_verification_token, email_verification_expires,
			last_login, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			name = EXCLUDED.name,
			password_hash = EXCLUDED.password_hash,
			is_active = EXCLUDED.is_active,
			email_verified = EXCLUDED.email_verified,
			failed_login_attempts = EXCLUDED.failed_login_attempts,
			account_locked_until = EXCLUDED.account_locked_until,
			password_reset_token = EXCLUDED.password_reset_token,
			password_reset_expires = EXCLUDED.password_reset_expires,
			email_verification_token = EXCLUDED.email_verification_token,
			email_verification_expires = EXCLUDED.email_verification_expires,
			last_login = EXCLUDED.last_login,
			updated_at = EXCLUDED.updated_at
	`,
		u.ID,
		u.Email,
		u.Name,
		u.PasswordHash,
		u.IsActive,
		u.EmailVerified,
		u.FailedLoginAttempts,
		u.AccountLockedUntil,
		u.PasswordResetToken,
		u.PasswordResetExpires,
		u.EmailVerificationToken,
		u.EmailVerificationExpires,
		u.LastLogin,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return oops.Code("USER_DUPLICATE_EMAIL").
				With("user_id", u.ID).
				With("constraint", pgErr.ConstraintName).
				Wrap(account.ErrDuplicateEmail)
		}
		return oops.Code("USER_SAVE_FAILED").
			With("operation", "upsert user").
			With("user_id", u.ID).
			Wrap(err)
	}
	return nil
}

func scanUser(row pgx.Row) (*account.User, error) {
	var u account.User
	err := row.Scan(
		&u.ID,
		&u.Email,
		&u.Name,
		&u.PasswordHash,
		&u.IsActive,
		&u.EmailVerified,
		&u.FailedLoginAttempts,
		&u.AccountLockedUntil,
		&u.PasswordResetToken,
		&u.PasswordResetExpires,
		&u.EmailVerificationToken,
		&u.EmailVerificationExpires,
		&u.LastLogin,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

var _ account.Store = (*UserStore)(nil)
