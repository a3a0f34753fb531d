package middleware

import (
	"errors"
	"log/slog"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	auth "github.com/justincavery/yoga-app-sub000"
	"github.com/justincavery/yoga-app-sub000/internal/rate"
)

// RateLimitConfig is one endpoint budget.
type RateLimitConfig struct {
	// Scope separates budgets of different endpoints, e.g. "login".
	Scope  string
	Max    int
	Window time.Duration
	// Prefix is the Redis key prefix. Empty means "rl".
	Prefix string
	Logger *slog.Logger
}

// RateLimit allows Max requests per client IP per Window for one scope and
// answers the rest with 429 and a Retry-After header. When Redis cannot be
// reached the request is let through and a warning is logged.
func RateLimit(client redis.UniversalClient, cfg RateLimitConfig) func(http.Handler) http.Handler {
	limiter := rate.New(client, cfg.Prefix)
	rule := rate.Rule{Max: cfg.Max, Window: cfg.Window}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if client == nil || !rule.Enabled() {
				next.ServeHTTP(w, r)
				return
			}

			ip := auth.ClientIPFromContext(r.Context())
			if ip == "" {
				ip = remoteIP(r)
			}

			retryAfter, err := limiter.Allow(r.Context(), cfg.Scope+":"+ip, rule)
			switch {
			case errors.Is(err, rate.ErrRateLimited):
				secs := int(math.Ceil(retryAfter.Seconds()))
				if secs < 1 {
					secs = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(secs))
				http.Error(w, "too many requests", http.StatusTooManyRequests)
				return
			case err != nil:
				logger.WarnContext(r.Context(), "rate limiter unavailable, allowing request",
					slog.String("operation", "rate_limit"),
					slog.String("scope", cfg.Scope),
					slog.Any("error", err),
				)
			}

			next.ServeHTTP(w, r)
		})
	}
}

// RequestContext stores the client IP and User-Agent in the request context
// for audit events. With trustProxy set, the first X-Forwarded-For entry wins
// over the socket address.
func RequestContext(trustProxy bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ip := ""
			if trustProxy {
				ip = forwardedIP(r.Header.Get("X-Forwarded-For"))
			}
			if ip == "" {
				ip = remoteIP(r)
			}

			ctx := auth.WithClientIP(r.Context(), ip)
			ctx = auth.WithUserAgent(ctx, r.UserAgent())
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func forwardedIP(header string) string {
	if header == "" {
		return ""
	}
	first, _, _ := strings.Cut(header, ",")
	first = strings.TrimSpace(first)
	if net.ParseIP(first) == nil {
		return ""
	}
	return first
}
