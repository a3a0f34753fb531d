package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// SigningMethod names the HMAC algorithm used for every token of a Manager.
type SigningMethod string

const (
	// MethodHS256 is the default signing method.
	MethodHS256 SigningMethod = "hs256"
	MethodHS384 SigningMethod = "hs384"
	MethodHS512 SigningMethod = "hs512"
)

// TokenType is the discriminator carried in the "type" claim.
type TokenType string

const (
	TypeAccess            TokenType = "access"
	TypeRefresh           TokenType = "refresh"
	TypePasswordReset     TokenType = "password_reset"
	TypeEmailVerification TokenType = "email_verification"
)

const minSecretBytes = 32

var (
	// ErrInvalidToken wraps every decode failure.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is wrapped alongside ErrInvalidToken when the only
	// problem with a token is that its exp is in the past.
	ErrExpiredToken = errors.New("token expired")
)

// Config configures a Manager.
type Config struct {
	Secret        []byte
	SigningMethod SigningMethod
	Issuer        string
	Leeway        time.Duration
	// Now overrides the clock used for iat/exp. Nil means time.Now.
	Now func() time.Time
}

// Claims is the decoded payload of a token.
type Claims struct {
	Type TokenType `json:"type"`
	// IssuedAtNano repeats iat at nanosecond precision so user-wide
	// revocations can tell apart tokens minted within the same second.
	IssuedAtNano int64 `json:"iat_ns,omitempty"`
	jwt.RegisteredClaims
}

// Issued returns the issue instant, preferring the nanosecond claim.
func (c *Claims) Issued() time.Time {
	if c == nil {
		return time.Time{}
	}
	if c.IssuedAtNano > 0 {
		return time.Unix(0, c.IssuedAtNano)
	}
	if c.IssuedAt == nil {
		return time.Time{}
	}
	return c.IssuedAt.Time
}

// Manager issues and decodes signed tokens. It never consults revocation
// state; that is layered on top by the caller.
type Manager struct {
	config Config
	method jwt.SigningMethod
}

// NewManager validates cfg and returns a Manager.
func NewManager(cfg Config) (*Manager, error) {
	if len(cfg.Secret) < minSecretBytes {
		return nil, fmt.Errorf("signing secret must be at least %d bytes", minSecretBytes)
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	if cfg.SigningMethod == "" {
		cfg.SigningMethod = MethodHS256
	}

	var method jwt.SigningMethod
	switch cfg.SigningMethod {
	case MethodHS256:
		method = jwt.SigningMethodHS256
	case MethodHS384:
		method = jwt.SigningMethodHS384
	case MethodHS512:
		method = jwt.SigningMethodHS512
	default:
		return nil, errors.New("unsupported signing method")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}

	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)
	cfg.Secret = secret

	return &Manager{config: cfg, method: method}, nil
}

// IssueAccess mints an access token for subject.
func (m *Manager) IssueAccess(subject string, ttl time.Duration) (string, error) {
	return m.Issue(subject, TypeAccess, ttl)
}

// IssueRefresh mints a refresh token for subject.
func (m *Manager) IssueRefresh(subject string, ttl time.Duration) (string, error) {
	return m.Issue(subject, TypeRefresh, ttl)
}

// Issue mints a token of the given type. Every token carries sub, iat, exp,
// type and a random jti, so two tokens minted in the same second differ.
func (m *Manager) Issue(subject string, typ TokenType, ttl time.Duration) (string, error) {
	if subject == "" {
		return "", errors.New("token subject is required")
	}
	if !validType(typ) {
		return "", fmt.Errorf("unknown token type %q", typ)
	}
	if ttl <= 0 {
		return "", errors.New("token ttl must be > 0")
	}

	now := m.config.Now()
	claims := Claims{
		Type:         typ,
		IssuedAtNano: now.UnixNano(),
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        uuid.NewString(),
			Issuer:    m.config.Issuer,
		},
	}

	return jwt.NewWithClaims(m.method, claims).SignedString(m.config.Secret)
}

// Decode verifies the signature, algorithm, mandatory claims and expiry of
// token and returns its claims. An iat in the future (beyond leeway) is
// rejected.
//
// Every failure wraps ErrInvalidToken. A token that is well formed and
// correctly signed but past its exp additionally wraps ErrExpiredToken.
func (m *Manager) Decode(token string) (*Claims, error) {
	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{m.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(m.config.Now),
	}
	if m.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(m.config.Leeway))
	}
	if m.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(m.config.Issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != m.method.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return m.config.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", ErrInvalidToken, ErrExpiredToken)
		}
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" || claims.IssuedAt == nil || !validType(claims.Type) {
		return nil, fmt.Errorf("%w: missing mandatory claims", ErrInvalidToken)
	}

	return claims, nil
}

// Remaining returns how long claims stay valid relative to the manager clock.
// It is never negative.
func (m *Manager) Remaining(claims *Claims) time.Duration {
	if claims == nil || claims.ExpiresAt == nil {
		return 0
	}
	d := claims.ExpiresAt.Time.Sub(m.config.Now())
	if d < 0 {
		return 0
	}
	return d
}

func validType(t TokenType) bool {
	switch t {
	case TypeAccess, TypeRefresh, TypePasswordReset, TypeEmailVerification:
		return true
	}
	return false
}
