package auth

import (
	"errors"
	"time"

	"github.com/justincavery/yoga-app-sub000/internal/limiters"
	"github.com/justincavery/yoga-app-sub000/password"
)

// Config holds every tunable of the Engine. It is copied at build time, so
// changes made after Build have no effect.
type Config struct {
	JWT               JWTConfig
	Password          PasswordConfig
	Lockout           LockoutConfig
	PasswordReset     PasswordResetConfig
	EmailVerification EmailVerificationConfig
	Revocation        RevocationConfig
	Email             EmailConfig
	Audit             AuditConfig
	Metrics           MetricsConfig
}

/*
====================================
JWT CONFIG
====================================
*/

// JWTConfig configures token issuance. Secret is the shared HMAC key and
// must be at least 32 bytes.
type JWTConfig struct {
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	SigningMethod string // "hs256" (default), "hs384", "hs512"
	Secret        []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
PASSWORD CONFIG
====================================
*/

// PasswordConfig holds the Argon2id cost parameters and the strength policy.
type PasswordConfig struct {
	Memory         uint32 // in KB
	Time           uint32
	Parallelism    uint8
	SaltLength     uint32
	KeyLength      uint32
	MinLength      int
	UpgradeOnLogin bool
}

/*
====================================
LOCKOUT CONFIG
====================================
*/

// LockoutConfig controls automatic account lockout after repeated failed
// logins.
type LockoutConfig struct {
	MaxAttempts int
	Duration    time.Duration
}

/*
====================================
SINGLE-USE TOKEN CONFIG
====================================
*/

// PasswordResetConfig configures reset links. Path is appended to
// Email.BaseURL and receives the token as the "token" query parameter.
type PasswordResetConfig struct {
	TokenTTL time.Duration
	Path     string
}

// EmailVerificationConfig configures verification links and the optional
// login gate.
type EmailVerificationConfig struct {
	TokenTTL        time.Duration
	Path            string
	RequireForLogin bool
}

/*
====================================
REVOCATION CONFIG
====================================
*/

// RevocationConfig configures the revocation cache layout. A zero UserTTL
// keeps user-wide revocations for the longer of the access and refresh
// lifetimes.
type RevocationConfig struct {
	Prefix  string
	UserTTL time.Duration
}

/*
====================================
EMAIL CONFIG
====================================
*/

// EmailConfig configures outbound message content.
type EmailConfig struct {
	BaseURL string
	AppName string
}

/*
====================================
AUDIT / METRICS CONFIG
====================================
*/

// AuditConfig controls the asynchronous audit dispatcher.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

// MetricsConfig toggles in-process counters and the authorize latency
// histogram.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the production defaults. JWT.Secret is left empty
// and must be supplied by the caller.
func DefaultConfig() Config {
	hash := password.DefaultConfig()

	return Config{
		JWT: JWTConfig{
			AccessTTL:     15 * time.Minute,
			RefreshTTL:    30 * 24 * time.Hour,
			SigningMethod: "hs256",
			Leeway:        30 * time.Second,
		},
		Password: PasswordConfig{
			Memory:         hash.Memory,
			Time:           hash.Time,
			Parallelism:    hash.Parallelism,
			SaltLength:     hash.SaltLength,
			KeyLength:      hash.KeyLength,
			MinLength:      password.MinLength,
			UpgradeOnLogin: true,
		},
		Lockout: LockoutConfig{
			MaxAttempts: limiters.DefaultLockoutAttempts,
			Duration:    limiters.DefaultLockoutDuration,
		},
		PasswordReset: PasswordResetConfig{
			TokenTTL: time.Hour,
			Path:     "/reset-password",
		},
		EmailVerification: EmailVerificationConfig{
			TokenTTL: 24 * time.Hour,
			Path:     "/verify-email",
		},
		Revocation: RevocationConfig{
			Prefix: "revoked",
		},
		Email: EmailConfig{
			BaseURL: "http://localhost:3000",
			AppName: "Yoga Practice",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 true,
			EnableLatencyHistograms: false,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.JWT.Secret = cloneBytes(cfg.JWT.Secret)
	return out
}

func cloneBytes(src []byte) []byte {
	if src == nil {
		return nil
	}
	dst := make([]byte, len(src))
	copy(dst, src)
	return dst
}

// revocationUserTTL is how long a user-wide revocation entry must live to
// outlast every token issued before it.
func (c *Config) revocationUserTTL() time.Duration {
	if c.Revocation.UserTTL > 0 {
		return c.Revocation.UserTTL
	}
	if c.JWT.RefreshTTL > c.JWT.AccessTTL {
		return c.JWT.RefreshTTL
	}
	return c.JWT.AccessTTL
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	// JWT
	if c.JWT.AccessTTL <= 0 {
		return errors.New("JWT AccessTTL must be > 0")
	}
	if c.JWT.RefreshTTL <= 0 {
		return errors.New("JWT RefreshTTL must be > 0")
	}
	if c.JWT.RefreshTTL < c.JWT.AccessTTL {
		return errors.New("JWT RefreshTTL must be >= AccessTTL")
	}
	switch c.JWT.SigningMethod {
	case "", "hs256", "hs384", "hs512":
		// valid
	default:
		return errors.New("JWT SigningMethod must be hs256, hs384 or hs512")
	}
	if len(c.JWT.Secret) < 32 {
		return errors.New("JWT Secret must be at least 32 bytes")
	}
	if c.JWT.Leeway < 0 || c.JWT.Leeway > 2*time.Minute {
		return errors.New("JWT Leeway must be between 0 and 2m")
	}

	// Password
	if c.Password.Memory < 8*1024 {
		return errors.New("Password Memory must be >= 8192 KB")
	}
	if c.Password.Time < 1 {
		return errors.New("Password Time must be >= 1")
	}
	if c.Password.Parallelism < 1 {
		return errors.New("Password Parallelism must be >= 1")
	}
	if c.Password.SaltLength < 16 {
		return errors.New("Password SaltLength must be >= 16")
	}
	if c.Password.KeyLength < 16 {
		return errors.New("Password KeyLength must be >= 16")
	}
	if c.Password.MinLength != 0 && c.Password.MinLength < password.MinLength {
		return errors.New("Password MinLength must be >= 8")
	}

	// Lockout
	if c.Lockout.MaxAttempts <= 0 {
		return errors.New("Lockout MaxAttempts must be > 0")
	}
	if c.Lockout.Duration <= 0 {
		return errors.New("Lockout Duration must be > 0")
	}

	// Single-use tokens
	if c.PasswordReset.TokenTTL <= 0 {
		return errors.New("PasswordReset TokenTTL must be > 0")
	}
	if c.EmailVerification.TokenTTL <= 0 {
		return errors.New("EmailVerification TokenTTL must be > 0")
	}

	// Revocation
	if c.Revocation.Prefix == "" {
		return errors.New("Revocation Prefix is required")
	}
	if c.Revocation.UserTTL < 0 {
		return errors.New("Revocation UserTTL must be >= 0")
	}
	if c.Revocation.UserTTL > 0 && c.Revocation.UserTTL < c.JWT.RefreshTTL {
		return errors.New("Revocation UserTTL must be >= JWT RefreshTTL")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when audit is enabled")
	}

	return nil
}
