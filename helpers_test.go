package auth

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/justincavery/yoga-app-sub000/mailer"
	"github.com/justincavery/yoga-app-sub000/revocation"
	"github.com/justincavery/yoga-app-sub000/store/memory"
)

const (
	testSecret    = "engine-test-secret-0123456789abcdef"
	goodPassword  = "Sun-Salutation-1"
	otherPassword = "Warrior-Pose-22"
)

type outbox struct {
	mu   sync.Mutex
	msgs []struct{ to, subject, body string }
}

func (o *outbox) Send(_ context.Context, to, subject, body string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.msgs = append(o.msgs, struct{ to, subject, body string }{to, subject, body})
	return true
}

func (o *outbox) count() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.msgs)
}

// lastToken extracts the token query parameter from the newest message.
func (o *outbox) lastToken(t *testing.T) string {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.msgs, "no email sent")

	body := o.msgs[len(o.msgs)-1].body
	i := strings.Index(body, "token=")
	require.GreaterOrEqual(t, i, 0, "no token in body: %q", body)
	rest := body[i+len("token="):]
	if j := strings.IndexAny(rest, "\n &"); j >= 0 {
		rest = rest[:j]
	}
	return rest
}

type downCache struct{}

func (downCache) SetWithTTL(context.Context, string, string, time.Duration) error {
	return errors.New("connection refused")
}

func (downCache) Get(context.Context, string) (string, bool, error) {
	return "", false, errors.New("connection refused")
}

var _ revocation.Cache = downCache{}

type engineFixture struct {
	t      *testing.T
	now    time.Time
	mr     *miniredis.Miniredis
	users  *memory.UserStore
	mail   *outbox
	engine *Engine
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.JWT.Secret = []byte(testSecret)
	cfg.JWT.RefreshTTL = 7 * 24 * time.Hour
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	cfg.Email.BaseURL = "https://yoga.example.com/"
	return cfg
}

type fixtureOption func(*Builder)

func newEngineFixture(t *testing.T, opts ...fixtureOption) *engineFixture {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	f := &engineFixture{
		t:     t,
		now:   time.Date(2026, 5, 4, 7, 30, 0, 0, time.UTC),
		mr:    mr,
		users: memory.NewUserStore(),
		mail:  &outbox{},
	}

	b := New().
		WithConfig(testConfig()).
		WithUserStore(f.users).
		WithRedis(rdb).
		WithMailer(mailer.Sender(f.mail)).
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))).
		WithClock(f.clock)
	for _, opt := range opts {
		opt(b)
	}

	f.engine, err = b.Build()
	require.NoError(t, err)

	t.Cleanup(func() {
		f.engine.Close()
		_ = rdb.Close()
		mr.Close()
	})
	return f
}

func (f *engineFixture) clock() time.Time { return f.now }

func (f *engineFixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
	f.mr.FastForward(d)
}

func (f *engineFixture) register(email string) *User {
	f.t.Helper()
	u, err := f.engine.Register(context.Background(), email, goodPassword, "Test User")
	require.NoError(f.t, err)
	return u
}
