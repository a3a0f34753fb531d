package revocation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newRevocationStoreTest(t *testing.T, opts ...Option) (*Store, *miniredis.Miniredis, func()) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewStore(NewRedisCache(rdb), opts...)
	return store, mr, func() {
		rdb.Close()
		mr.Close()
	}
}

type downCache struct{}

func (downCache) SetWithTTL(context.Context, string, string, time.Duration) error {
	return ErrUnavailable
}

func (downCache) Get(context.Context, string) (string, bool, error) {
	return "", false, ErrUnavailable
}

func TestRevokeTokenAndExpiry(t *testing.T) {
	store, mr, done := newRevocationStoreTest(t)
	defer done()
	ctx := context.Background()

	if store.IsRevoked(ctx, "tok-a") {
		t.Fatal("fresh token must not be revoked")
	}
	if err := store.RevokeToken(ctx, "tok-a", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if !store.IsRevoked(ctx, "tok-a") {
		t.Fatal("expected token to be revoked")
	}
	if store.IsRevoked(ctx, "tok-b") {
		t.Fatal("unrelated token must not be revoked")
	}

	mr.FastForward(61 * time.Second)
	if store.IsRevoked(ctx, "tok-a") {
		t.Fatal("revocation entry should expire with the token")
	}
}

func TestRevokeTokenNonPositiveTTLIsNoop(t *testing.T) {
	store, mr, done := newRevocationStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.RevokeToken(ctx, "tok", 0); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if err := store.RevokeToken(ctx, "tok", -time.Second); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	if n := len(mr.Keys()); n != 0 {
		t.Fatalf("expected no keys, got %d", n)
	}
}

func TestTokenKeyDoesNotContainRawToken(t *testing.T) {
	store, mr, done := newRevocationStoreTest(t, WithPrefix("rv"))
	defer done()

	if err := store.RevokeToken(context.Background(), "raw-secret-token", time.Minute); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	keys := mr.Keys()
	if len(keys) != 1 {
		t.Fatalf("expected one key, got %v", keys)
	}
	if keys[0] != store.tokenKey("raw-secret-token") {
		t.Fatalf("unexpected key %q", keys[0])
	}
	if len(keys[0]) != len("rv:token:")+64 {
		t.Fatalf("expected hex digest key, got %q", keys[0])
	}
}

func TestRevokeAllForUserComparesIssueTime(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	store, _, done := newRevocationStoreTest(t, WithClock(func() time.Time { return now }))
	defer done()
	ctx := context.Background()

	if store.IsUserRevoked(ctx, "u-1") {
		t.Fatal("user should not start revoked")
	}
	if err := store.RevokeAllForUser(ctx, "u-1", time.Hour); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	if !store.IsUserRevoked(ctx, "u-1") {
		t.Fatal("expected user revocation")
	}

	at, ok := store.UserRevokedAt(ctx, "u-1")
	if !ok || !at.Equal(now) {
		t.Fatalf("unexpected revokedAt %v ok=%v", at, ok)
	}

	if !store.TokenIssuedBeforeUserRevocation(ctx, "u-1", now.Add(-time.Second)) {
		t.Fatal("older token must be rejected")
	}
	if store.TokenIssuedBeforeUserRevocation(ctx, "u-1", now) {
		t.Fatal("token issued at the revocation instant must survive")
	}
	if store.TokenIssuedBeforeUserRevocation(ctx, "u-1", now.Add(time.Second)) {
		t.Fatal("newer token must survive")
	}
	if store.TokenIssuedBeforeUserRevocation(ctx, "u-2", now.Add(-time.Hour)) {
		t.Fatal("other users are unaffected")
	}
}

func TestRevokeAllForUserWithinSameSecond(t *testing.T) {
	now := time.Unix(1_700_000_000, 500*int64(time.Millisecond))
	store, _, done := newRevocationStoreTest(t, WithClock(func() time.Time { return now }))
	defer done()
	ctx := context.Background()

	if err := store.RevokeAllForUser(ctx, "u-1", time.Hour); err != nil {
		t.Fatalf("revoke all: %v", err)
	}

	if !store.TokenIssuedBeforeUserRevocation(ctx, "u-1", now.Add(-400*time.Millisecond)) {
		t.Fatal("token issued earlier in the same second must be rejected")
	}
	if !store.TokenIssuedBeforeUserRevocation(ctx, "u-1", now.Add(-time.Nanosecond)) {
		t.Fatal("token issued a nanosecond earlier must be rejected")
	}
	if store.TokenIssuedBeforeUserRevocation(ctx, "u-1", now.Add(300*time.Millisecond)) {
		t.Fatal("token issued later in the same second must survive")
	}
}

func TestUserRevocationExpires(t *testing.T) {
	store, mr, done := newRevocationStoreTest(t)
	defer done()
	ctx := context.Background()

	if err := store.RevokeAllForUser(ctx, "u-1", time.Minute); err != nil {
		t.Fatalf("revoke all: %v", err)
	}
	mr.FastForward(2 * time.Minute)
	if store.IsUserRevoked(ctx, "u-1") {
		t.Fatal("user revocation should expire")
	}
}

func TestChecksFailOpen(t *testing.T) {
	var ops []string
	store := NewStore(downCache{}, WithFailOpenHook(func(op string) { ops = append(ops, op) }))
	ctx := context.Background()

	if store.IsRevoked(ctx, "tok") {
		t.Fatal("unavailable cache must fail open")
	}
	if store.IsUserRevoked(ctx, "u-1") {
		t.Fatal("unavailable cache must fail open")
	}
	if len(ops) != 2 || ops[0] != "is_revoked" || ops[1] != "user_revoked_at" {
		t.Fatalf("unexpected fail-open ops %v", ops)
	}
}

func TestWritesReportUnavailable(t *testing.T) {
	store := NewStore(downCache{})
	ctx := context.Background()

	if err := store.RevokeToken(ctx, "tok", time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if err := store.RevokeAllForUser(ctx, "u-1", time.Minute); !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestRedisCacheWrapsConnectionErrors(t *testing.T) {
	store, mr, done := newRevocationStoreTest(t)
	defer done()
	mr.Close()

	err := store.RevokeToken(context.Background(), "tok", time.Minute)
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if store.IsRevoked(context.Background(), "tok") {
		t.Fatal("closed redis must fail open")
	}
}
