package revocation

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"strconv"
	"time"
)

const defaultPrefix = "revoked"

// Option configures a Store.
type Option func(*Store)

// WithPrefix overrides the key prefix.
func WithPrefix(prefix string) Option {
	return func(s *Store) {
		if prefix != "" {
			s.prefix = prefix
		}
	}
}

// WithLogger sets the logger used for fail-open and write-failure warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock overrides the clock used to stamp user revocations.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// WithFailOpenHook registers fn to be called with the operation name each
// time a check fails open.
func WithFailOpenHook(fn func(op string)) Option {
	return func(s *Store) {
		s.onFailOpen = fn
	}
}

// Store tracks revoked tokens and users on top of a Cache.
type Store struct {
	cache      Cache
	prefix     string
	logger     *slog.Logger
	now        func() time.Time
	onFailOpen func(op string)
}

// NewStore returns a Store backed by cache.
func NewStore(cache Cache, opts ...Option) *Store {
	s := &Store{
		cache:  cache,
		prefix: defaultPrefix,
		logger: slog.Default(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RevokeToken marks token unusable for ttl. A non-positive ttl means the
// token is already dead and nothing is written.
func (s *Store) RevokeToken(ctx context.Context, token string, ttl time.Duration) error {
	if ttl <= 0 || token == "" {
		return nil
	}
	if err := s.cache.SetWithTTL(ctx, s.tokenKey(token), "1", ttl); err != nil {
		s.logger.WarnContext(ctx, "token revocation not recorded",
			"operation", "revoke_token",
			"error", err,
		)
		return err
	}
	return nil
}

// IsRevoked reports whether token was revoked. It fails open.
func (s *Store) IsRevoked(ctx context.Context, token string) bool {
	if token == "" {
		return false
	}
	_, found, err := s.cache.Get(ctx, s.tokenKey(token))
	if err != nil {
		s.failOpen(ctx, "is_revoked", err)
		return false
	}
	return found
}

// RevokeAllForUser invalidates every token issued to userID before now.
// Tokens issued afterwards stay valid.
func (s *Store) RevokeAllForUser(ctx context.Context, userID string, ttl time.Duration) error {
	if ttl <= 0 || userID == "" {
		return nil
	}
	stamp := strconv.FormatInt(s.now().UnixNano(), 10)
	if err := s.cache.SetWithTTL(ctx, s.userKey(userID), stamp, ttl); err != nil {
		s.logger.WarnContext(ctx, "user revocation not recorded",
			"operation", "revoke_all_for_user",
			"user_id", userID,
			"error", err,
		)
		return err
	}
	return nil
}

// IsUserRevoked reports whether a user-wide revocation is in force. It
// fails open.
func (s *Store) IsUserRevoked(ctx context.Context, userID string) bool {
	_, ok := s.UserRevokedAt(ctx, userID)
	return ok
}

// UserRevokedAt returns the instant of the user's latest revocation. It
// fails open.
func (s *Store) UserRevokedAt(ctx context.Context, userID string) (time.Time, bool) {
	if userID == "" {
		return time.Time{}, false
	}
	v, found, err := s.cache.Get(ctx, s.userKey(userID))
	if err != nil {
		s.failOpen(ctx, "user_revoked_at", err)
		return time.Time{}, false
	}
	if !found {
		return time.Time{}, false
	}
	nanos, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		// Unparseable entries still mean "revoked"; treat every earlier token as dead.
		return s.now(), true
	}
	return time.Unix(0, nanos), true
}

// TokenIssuedBeforeUserRevocation reports whether a token with the given
// issue time predates the user's latest revocation. Both sides compare at
// nanosecond precision; a token issued at the revocation instant survives.
func (s *Store) TokenIssuedBeforeUserRevocation(ctx context.Context, userID string, issuedAt time.Time) bool {
	revokedAt, ok := s.UserRevokedAt(ctx, userID)
	if !ok {
		return false
	}
	return issuedAt.Before(revokedAt)
}

func (s *Store) failOpen(ctx context.Context, op string, err error) {
	s.logger.WarnContext(ctx, "revocation check failed open",
		"operation", op,
		"error", err,
	)
	if s.onFailOpen != nil {
		s.onFailOpen(op)
	}
}

func (s *Store) tokenKey(token string) string {
	sum := sha256.Sum256([]byte(token))
	return s.prefix + ":token:" + hex.EncodeToString(sum[:])
}

func (s *Store) userKey(userID string) string {
	return s.prefix + ":user:" + userID
}
