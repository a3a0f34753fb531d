// Package httpapi exposes the authentication engine as a JSON API on a chi
// router.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/redis/go-redis/v9"

	auth "github.com/justincavery/yoga-app-sub000"
	"github.com/justincavery/yoga-app-sub000/internal/observability"
	"github.com/justincavery/yoga-app-sub000/middleware"
)

// Service is the engine surface the API serves. *auth.Engine implements it.
type Service interface {
	Register(ctx context.Context, email, plain, name string) (*auth.User, error)
	Login(ctx context.Context, email, plain string, remember bool) (*auth.LoginResult, error)
	Logout(ctx context.Context, accessToken string) error
	LogoutAll(ctx context.Context, userID string) error
	Refresh(ctx context.Context, refreshToken string) (string, error)
	ChangePassword(ctx context.Context, userID, current, next string) error
	ForgotPassword(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, token, next string) error
	VerifyEmail(ctx context.Context, token string) (*auth.User, error)
	ResendVerification(ctx context.Context, email string) error
	Authorize(ctx context.Context, accessToken string) (*auth.Principal, error)
	CurrentUser(ctx context.Context, accessToken string) (*auth.User, error)
}

// Limit is a per-IP request budget for one endpoint.
type Limit struct {
	Max    int
	Window time.Duration
}

// DefaultLimits returns the budgets for the unauthenticated endpoints.
func DefaultLimits() map[string]Limit {
	return map[string]Limit{
		"register":            {Max: 5, Window: 10 * time.Minute},
		"login":               {Max: 10, Window: time.Minute},
		"forgot-password":     {Max: 5, Window: 15 * time.Minute},
		"reset-password":      {Max: 10, Window: 15 * time.Minute},
		"verify-email":        {Max: 10, Window: 15 * time.Minute},
		"resend-verification": {Max: 5, Window: 15 * time.Minute},
	}
}

// Options configures NewRouter.
type Options struct {
	Service Service
	Logger  *slog.Logger
	// AccessTTL is reported as expires_in by refresh.
	AccessTTL time.Duration
	// Redis enables the per-IP rate limits. Nil disables them.
	Redis  redis.UniversalClient
	Limits map[string]Limit
	// TrustProxy takes the client IP from X-Forwarded-For.
	TrustProxy bool
	// Metrics is mounted at GET /metrics when set.
	Metrics http.Handler
	// Ready backs GET /readyz. Nil reports ready.
	Ready func(ctx context.Context) error
}

// NewRouter builds the API router.
func NewRouter(opts Options) chi.Router {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	limits := opts.Limits
	if limits == nil {
		limits = DefaultLimits()
	}

	h := &handler{svc: opts.Service, logger: logger, accessTTL: opts.AccessTTL}

	limit := func(scope string) func(http.Handler) http.Handler {
		l, ok := limits[scope]
		if !ok || opts.Redis == nil {
			return func(next http.Handler) http.Handler { return next }
		}
		return middleware.RateLimit(opts.Redis, middleware.RateLimitConfig{
			Scope:  scope,
			Max:    l.Max,
			Window: l.Window,
			Logger: logger,
		})
	}

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(observability.Recover(logger))
	r.Use(observability.RequestLogger(logger))
	r.Use(middleware.RequestContext(opts.TrustProxy))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if opts.Ready != nil {
			if err := opts.Ready(r.Context()); err != nil {
				logger.WarnContext(r.Context(), "readiness check failed", slog.Any("error", err))
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.Route("/auth", func(r chi.Router) {
		r.With(limit("register")).Post("/register", h.register)
		r.With(limit("login")).Post("/login", h.login)
		r.Post("/logout", h.logout)
		r.Post("/refresh", h.refresh)
		r.With(limit("forgot-password")).Post("/forgot-password", h.forgotPassword)
		r.With(limit("reset-password")).Post("/reset-password", h.resetPassword)
		r.With(limit("verify-email")).Post("/verify-email", h.verifyEmail)
		r.With(limit("resend-verification")).Post("/resend-verification", h.resendVerification)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Guard(opts.Service))
			r.Get("/me", h.me)
			r.Post("/change-password", h.changePassword)
			r.Post("/logout-all", h.logoutAll)
		})
	})

	return r
}
