package main

import (
	"context"
	"log/slog"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/justincavery/yoga-app-sub000/store/postgres"
)

func startupBackoff(timeout time.Duration) retry.Backoff {
	b := retry.NewExponential(250 * time.Millisecond)
	b = retry.WithCappedDuration(5*time.Second, b)
	return retry.WithMaxDuration(timeout, b)
}

// connectRedis pings the configured Redis until it answers or timeout
// elapses. Without an address it starts an in-process miniredis, which
// keeps revocations only for the life of the process.
func connectRedis(ctx context.Context, cfg daemonConfig, logger *slog.Logger) (redis.UniversalClient, func(), error) {
	if cfg.RedisAddr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, oops.Code("REDIS_CONNECT_FAILED").With("operation", "start miniredis").Wrap(err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		logger.Warn("no redis-addr configured, using in-process redis", slog.String("addr", mr.Addr()))
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewUniversalClient(&redis.UniversalOptions{
		Addrs:    []string{cfg.RedisAddr},
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})

	attempt := 0
	err := retry.Do(ctx, startupBackoff(cfg.ConnectTimeout), func(ctx context.Context) error {
		attempt++
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis not ready", slog.Int("attempt", attempt), slog.Any("error", err))
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		_ = client.Close()
		return nil, nil, oops.Code("REDIS_CONNECT_FAILED").With("addr", cfg.RedisAddr).Wrap(err)
	}

	return client, func() { _ = client.Close() }, nil
}

func connectPostgres(ctx context.Context, cfg daemonConfig, logger *slog.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	attempt := 0
	err := retry.Do(ctx, startupBackoff(cfg.ConnectTimeout), func(ctx context.Context) error {
		attempt++
		p, err := postgres.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("postgres not ready", slog.Int("attempt", attempt), slog.Any("error", err))
			return retry.RetryableError(err)
		}
		pool = p
		return nil
	})
	if err != nil {
		return nil, oops.Code("DB_CONNECT_FAILED").With("operation", "connect with retry").Wrap(err)
	}
	return pool, nil
}

func migrateUp(databaseURL string) error {
	m, err := postgres.NewMigrator(databaseURL)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }()
	return m.Up()
}
