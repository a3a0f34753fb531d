package auth

import (
	"errors"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	internalaudit "github.com/justincavery/yoga-app-sub000/internal/audit"
	"github.com/justincavery/yoga-app-sub000/internal/limiters"
	"github.com/justincavery/yoga-app-sub000/jwt"
	"github.com/justincavery/yoga-app-sub000/mailer"
	"github.com/justincavery/yoga-app-sub000/password"
	"github.com/justincavery/yoga-app-sub000/revocation"
)

// Builder assembles an Engine. A Builder can be built once.
type Builder struct {
	config Config
	redis  redis.UniversalClient
	cache  revocation.Cache

	users     UserStore
	mailer    mailer.Sender
	auditSink AuditSink
	logger    *slog.Logger
	now       func() time.Time

	built bool
}

// New returns a Builder seeded with DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig replaces the whole configuration.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis uses client as the revocation cache.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithRevocationCache uses cache as the revocation cache. It takes precedence
// over WithRedis.
func (b *Builder) WithRevocationCache(cache revocation.Cache) *Builder {
	b.cache = cache
	return b
}

// WithUserStore sets the persistent user store. It is required.
func (b *Builder) WithUserStore(store UserStore) *Builder {
	b.users = store
	return b
}

// WithMailer sets the outbound email sender. Without one, messages are
// written to the logger.
func (b *Builder) WithMailer(sender mailer.Sender) *Builder {
	b.mailer = sender
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink does not enable auditing on its own; Audit.Enabled must also be set.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the logger for best-effort failures.
func (b *Builder) WithLogger(logger *slog.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source for every component. Tests use it to
// move through lockout windows and token lifetimes.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.now = now
	return b
}

// WithMetricsEnabled toggles counters.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms toggles the authorize latency histogram.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when the configuration is invalid or a required
// collaborator is missing. The Builder cannot be reused afterwards.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.users == nil {
		return nil, errors.New("user store required")
	}

	cache := b.cache
	if cache == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or revocation cache required")
		}
		cache = revocation.NewRedisCache(b.redis)
	}

	logger := b.logger
	if logger == nil {
		logger = slog.Default()
	}
	now := b.now
	if now == nil {
		now = time.Now
	}
	sender := b.mailer
	if sender == nil {
		sender = mailer.NewLogSender(logger)
	}

	engine := &Engine{
		config:  cloneConfig(cfg),
		users:   b.users,
		mailer:  sender,
		logger:  logger,
		now:     now,
		policy: password.Policy{
			MinLength: cfg.Password.MinLength,
			MaxBytes:  password.DefaultMaxPasswordBytes,
		},
		metrics: NewMetrics(cfg.Metrics),
		lockout: limiters.NewLockoutGuard(limiters.LockoutConfig{
			MaxAttempts: cfg.Lockout.MaxAttempts,
			Duration:    cfg.Lockout.Duration,
		}),
	}

	engine.revocation = revocation.NewStore(cache,
		revocation.WithPrefix(cfg.Revocation.Prefix),
		revocation.WithLogger(logger),
		revocation.WithClock(now),
		revocation.WithFailOpenHook(func(string) {
			engine.metricInc(MetricRevocationFailOpen)
		}),
	)

	ph, err := password.NewHasher(password.Config{
		Memory:      cfg.Password.Memory,
		Time:        cfg.Password.Time,
		Parallelism: cfg.Password.Parallelism,
		SaltLength:  cfg.Password.SaltLength,
		KeyLength:   cfg.Password.KeyLength,

		MaxPasswordBytes: password.DefaultMaxPasswordBytes,
	})
	if err != nil {
		return nil, err
	}
	engine.hasher = ph

	jm, err := jwt.NewManager(jwt.Config{
		Secret:        cloneBytes(cfg.JWT.Secret),
		SigningMethod: signingMethod(cfg.JWT.SigningMethod),
		Issuer:        cfg.JWT.Issuer,
		Leeway:        cfg.JWT.Leeway,
		Now:           now,
	})
	if err != nil {
		return nil, err
	}
	engine.tokens = jm

	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:    cfg.Audit.Enabled,
		BufferSize: cfg.Audit.BufferSize,
		DropIfFull: cfg.Audit.DropIfFull,
	}, b.auditSink)

	engine.flows = engine.buildFlowDeps()

	b.built = true

	return engine, nil
}

func signingMethod(name string) jwt.SigningMethod {
	switch name {
	case "hs384":
		return jwt.MethodHS384
	case "hs512":
		return jwt.MethodHS512
	default:
		return jwt.MethodHS256
	}
}
