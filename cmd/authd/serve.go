package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	auth "github.com/justincavery/yoga-app-sub000"
	"github.com/justincavery/yoga-app-sub000/internal/errutil"
	"github.com/justincavery/yoga-app-sub000/internal/httpapi"
	"github.com/justincavery/yoga-app-sub000/internal/logging"
	"github.com/justincavery/yoga-app-sub000/internal/observability"
	"github.com/justincavery/yoga-app-sub000/mailer"
	promexport "github.com/justincavery/yoga-app-sub000/metrics/export/prometheus"
	"github.com/justincavery/yoga-app-sub000/store/memory"
	"github.com/justincavery/yoga-app-sub000/store/postgres"
)

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the authentication HTTP API",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	registerConfigFlags(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, cfg daemonConfig) error {
	logger := logging.New(logging.Options{
		Service: "authd",
		Version: version,
		Format:  cfg.LogFormat,
		Level:   logging.ParseLevel(cfg.LogLevel),
	})
	slog.SetDefault(logger)

	if err := observability.InitSentry(cfg.SentryDSN, cfg.Environment, version); err != nil {
		errutil.LogError(logger, "sentry init failed", err)
	}
	defer observability.FlushSentry()

	rdb, closeRedis, err := connectRedis(ctx, cfg, logger)
	if err != nil {
		errutil.LogError(logger, "redis unavailable", err)
		return err
	}
	defer closeRedis()

	var (
		users auth.UserStore
		pool  *pgxpool.Pool
	)
	if cfg.DatabaseURL == "" {
		logger.Warn("no database-url configured, users are kept in memory")
		users = memory.NewUserStore()
	} else {
		if cfg.AutoMigrate {
			if err := migrateUp(cfg.DatabaseURL); err != nil {
				errutil.LogError(logger, "migrations failed", err)
				return err
			}
		}
		pool, err = connectPostgres(ctx, cfg, logger)
		if err != nil {
			errutil.LogError(logger, "postgres unavailable", err)
			return err
		}
		defer pool.Close()
		users = postgres.NewUserStore(pool)
	}

	mail := mailer.NewAsync(mailer.NewLogSender(logger), mailer.WithLogger(logger))
	defer mail.Close()

	builder := auth.New().
		WithConfig(cfg.authConfig()).
		WithRedis(rdb).
		WithUserStore(users).
		WithMailer(mail).
		WithLogger(logger)
	if cfg.Audit {
		builder = builder.WithAuditSink(auth.NewSlogSink(logger))
	}
	engine, err := builder.Build()
	if err != nil {
		errutil.LogError(logger, "engine configuration rejected", err)
		return err
	}
	defer engine.Close()

	stopMetrics, err := startOTelMetrics(engine, cfg.OTelMetricsInterval, os.Stderr)
	if err != nil {
		errutil.LogError(logger, "otel metrics not registered", err)
	} else {
		defer func() {
			if err := stopMetrics(context.Background()); err != nil {
				errutil.LogError(logger, "otel metrics shutdown failed", err)
			}
		}()
	}

	router := httpapi.NewRouter(httpapi.Options{
		Service:    engine,
		Logger:     logger,
		AccessTTL:  cfg.AccessTTL,
		Redis:      rdb,
		TrustProxy: cfg.TrustProxy,
		Metrics:    promexport.NewCollector(engine).Handler(),
		Ready:      readiness(rdb, pool),
	})

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening", slog.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return oops.Code("HTTP_SERVE_FAILED").With("addr", cfg.HTTPAddr).Wrap(err)
		}
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

func readiness(rdb redis.UniversalClient, pool *pgxpool.Pool) func(context.Context) error {
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()

		if err := rdb.Ping(ctx).Err(); err != nil {
			return err
		}
		if pool != nil {
			return pool.Ping(ctx)
		}
		return nil
	}
}
