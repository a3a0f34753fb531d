package main

import (
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"

	auth "github.com/justincavery/yoga-app-sub000"
)

const envPrefix = "AUTHD_"

// daemonConfig is the flat configuration shared by every subcommand. Values
// come from flag defaults, then the YAML file, then AUTHD_* variables, then
// flags set on the command line.
type daemonConfig struct {
	HTTPAddr        string        `koanf:"http-addr"`
	TrustProxy      bool          `koanf:"trust-proxy"`
	ShutdownTimeout time.Duration `koanf:"shutdown-timeout"`

	DatabaseURL    string        `koanf:"database-url"`
	AutoMigrate    bool          `koanf:"auto-migrate"`
	RedisAddr      string        `koanf:"redis-addr"`
	RedisPassword  string        `koanf:"redis-password"`
	RedisDB        int           `koanf:"redis-db"`
	ConnectTimeout time.Duration `koanf:"connect-timeout"`

	JWTSecret  string        `koanf:"jwt-secret"`
	JWTIssuer  string        `koanf:"jwt-issuer"`
	AccessTTL  time.Duration `koanf:"access-ttl"`
	RefreshTTL time.Duration `koanf:"refresh-ttl"`

	LockoutAttempts int           `koanf:"lockout-attempts"`
	LockoutDuration time.Duration `koanf:"lockout-duration"`
	RequireVerified bool          `koanf:"require-verified"`

	BaseURL string `koanf:"base-url"`
	AppName string `koanf:"app-name"`

	Audit               bool          `koanf:"audit"`
	LogFormat           string        `koanf:"log-format"`
	LogLevel            string        `koanf:"log-level"`
	OTelMetricsInterval time.Duration `koanf:"otel-metrics-interval"`

	SentryDSN   string `koanf:"sentry-dsn"`
	Environment string `koanf:"environment"`
}

func registerConfigFlags(fs *pflag.FlagSet) {
	core := auth.DefaultConfig()

	fs.String("http-addr", ":8080", "HTTP listen address")
	fs.Bool("trust-proxy", false, "take the client IP from X-Forwarded-For")
	fs.Duration("shutdown-timeout", 15*time.Second, "graceful shutdown timeout")

	fs.String("database-url", "", "PostgreSQL URL; empty keeps users in memory")
	fs.Bool("auto-migrate", true, "apply schema migrations on startup")
	fs.String("redis-addr", "", "Redis address; empty starts an in-process Redis")
	fs.String("redis-password", "", "Redis password")
	fs.Int("redis-db", 0, "Redis database number")
	fs.Duration("connect-timeout", 30*time.Second, "how long to retry backing services on startup")

	fs.String("jwt-secret", "", "HMAC signing secret, at least 32 bytes")
	fs.String("jwt-issuer", "", "iss claim for issued tokens")
	fs.Duration("access-ttl", core.JWT.AccessTTL, "access token lifetime")
	fs.Duration("refresh-ttl", core.JWT.RefreshTTL, "refresh token lifetime")

	fs.Int("lockout-attempts", core.Lockout.MaxAttempts, "failed logins before the account locks")
	fs.Duration("lockout-duration", core.Lockout.Duration, "account lock duration")
	fs.Bool("require-verified", core.EmailVerification.RequireForLogin, "refuse login until the email is verified")

	fs.String("base-url", core.Email.BaseURL, "frontend URL used in emailed links")
	fs.String("app-name", core.Email.AppName, "application name used in emails")

	fs.Bool("audit", false, "write audit events to the log")
	fs.String("log-format", "json", "log format: json or text")
	fs.String("log-level", "info", "log level: debug, info, warn or error")
	fs.Duration("otel-metrics-interval", 0, "write OpenTelemetry metrics to stderr at this interval; 0 disables")

	fs.String("sentry-dsn", "", "Sentry DSN; empty disables error reporting")
	fs.String("environment", "development", "deployment environment name")
}

func envKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, envPrefix)), "_", "-")
}

func loadConfig(fs *pflag.FlagSet) (daemonConfig, error) {
	k := koanf.New(".")

	path, _ := fs.GetString("config")
	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return daemonConfig{}, oops.Code("CONFIG_LOAD_FAILED").With("path", path).Wrap(err)
		}
	}

	if err := k.Load(env.Provider(envPrefix, ".", envKey), nil); err != nil {
		return daemonConfig{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "env").Wrap(err)
	}

	if err := k.Load(posflag.Provider(fs, ".", k), nil); err != nil {
		return daemonConfig{}, oops.Code("CONFIG_LOAD_FAILED").With("source", "flags").Wrap(err)
	}

	var cfg daemonConfig
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return daemonConfig{}, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	return cfg, nil
}

func (c daemonConfig) authConfig() auth.Config {
	cfg := auth.DefaultConfig()
	cfg.JWT.Secret = []byte(c.JWTSecret)
	cfg.JWT.Issuer = c.JWTIssuer
	cfg.JWT.AccessTTL = c.AccessTTL
	cfg.JWT.RefreshTTL = c.RefreshTTL
	cfg.Lockout.MaxAttempts = c.LockoutAttempts
	cfg.Lockout.Duration = c.LockoutDuration
	cfg.EmailVerification.RequireForLogin = c.RequireVerified
	cfg.Email.BaseURL = c.BaseURL
	cfg.Email.AppName = c.AppName
	cfg.Audit.Enabled = c.Audit
	return cfg
}
