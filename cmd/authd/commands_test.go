package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/justincavery/yoga-app-sub000/internal/errutil"
)

type fakeMigrator struct {
	upCalls   int
	downCalls int
	version   uint
	closed    bool
	err       error
}

func (f *fakeMigrator) Up() error {
	f.upCalls++
	return f.err
}

func (f *fakeMigrator) Down() error {
	f.downCalls++
	return f.err
}

func (f *fakeMigrator) Version() (uint, bool, error) { return f.version, false, f.err }

func (f *fakeMigrator) Close() error {
	f.closed = true
	return nil
}

func useFakeMigrator(t *testing.T, m *fakeMigrator) *string {
	t.Helper()
	var gotURL string
	prev := newMigrator
	newMigrator = func(url string) (migrator, error) {
		gotURL = url
		return m, nil
	}
	t.Cleanup(func() { newMigrator = prev })
	return &gotURL
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append(args, "--env-file="))
	err := cmd.Execute()
	return out.String(), err
}

func TestMigrateUp(t *testing.T) {
	m := &fakeMigrator{}
	url := useFakeMigrator(t, m)

	out, err := execute(t, "migrate", "up", "--database-url", "postgres://yoga@db/yoga")
	require.NoError(t, err)
	assert.Equal(t, 1, m.upCalls)
	assert.True(t, m.closed)
	assert.Equal(t, "postgres://yoga@db/yoga", *url)
	assert.Contains(t, out, "migrations applied")
}

func TestMigrateVersion(t *testing.T) {
	useFakeMigrator(t, &fakeMigrator{version: 1})

	out, err := execute(t, "migrate", "version", "--database-url", "postgres://db/yoga")
	require.NoError(t, err)
	assert.Contains(t, out, "version 1 (dirty: false)")
}

func TestMigrateDownFailure(t *testing.T) {
	m := &fakeMigrator{err: errors.New("locked")}
	useFakeMigrator(t, m)

	_, err := execute(t, "migrate", "down", "--database-url", "postgres://db/yoga")
	require.Error(t, err)
	assert.Equal(t, 1, m.downCalls)
	assert.True(t, m.closed)
}

func TestMigrateRequiresDatabaseURL(t *testing.T) {
	t.Setenv("AUTHD_DATABASE_URL", "")
	useFakeMigrator(t, &fakeMigrator{})

	_, err := execute(t, "migrate", "up")
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "CONFIG_INVALID")
}

func TestConnectRedisFallsBackToMiniredis(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	client, closeFn, err := connectRedis(context.Background(), daemonConfig{}, logger)
	require.NoError(t, err)
	defer closeFn()

	require.NoError(t, client.Set(context.Background(), "k", "v", time.Minute).Err())
	assert.Equal(t, "v", client.Get(context.Background(), "k").Val())
}

func TestConnectRedisGivesUp(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cfg := daemonConfig{RedisAddr: "127.0.0.1:1", ConnectTimeout: 300 * time.Millisecond}

	_, _, err := connectRedis(context.Background(), cfg, logger)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "REDIS_CONNECT_FAILED")
}

func TestRunBench(t *testing.T) {
	var out bytes.Buffer
	err := runBench(context.Background(), &out, daemonConfig{
		AccessTTL:       15 * time.Minute,
		RefreshTTL:      24 * time.Hour,
		LockoutAttempts: 5,
		LockoutDuration: 30 * time.Minute,
		BaseURL:         "http://localhost:3000",
		AppName:         "Bench",
	}, 3, 2, 20)
	require.NoError(t, err)

	assert.Contains(t, out.String(), "authorize: ops=20 failures=0")
	assert.Contains(t, out.String(), "logout: ops=20 failures=0")
}

func TestPercentile(t *testing.T) {
	samples := []time.Duration{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}
	assert.Equal(t, time.Duration(1), percentile(samples, 0))
	assert.Equal(t, time.Duration(5), percentile(samples, 50))
	assert.Equal(t, time.Duration(10), percentile(samples, 100))
	assert.Zero(t, percentile(nil, 50))

	s := computeStats(time.Second, []time.Duration{3, 1, 2}, 1)
	assert.Equal(t, 3, s.ops)
	assert.Equal(t, int64(1), s.failures)
	assert.Equal(t, time.Duration(2), s.p50)
}
