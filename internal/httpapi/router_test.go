package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	auth "github.com/justincavery/yoga-app-sub000"
	"github.com/justincavery/yoga-app-sub000/mailer"
	"github.com/justincavery/yoga-app-sub000/store/memory"
)

// fakeService answers every call with the configured error, or a fixed
// successful result.
type fakeService struct {
	err        error
	authorized bool
	lastUserID string
	lastToken  string
}

var testUser = &auth.User{ID: "u-1", Email: "yogi@example.com", Name: "Yogi", IsActive: true}

func (f *fakeService) Register(context.Context, string, string, string) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return testUser, nil
}

func (f *fakeService) Login(_ context.Context, _, _ string, remember bool) (*auth.LoginResult, error) {
	if f.err != nil {
		return nil, f.err
	}
	res := &auth.LoginResult{User: testUser, AccessToken: "access", ExpiresIn: 15 * time.Minute}
	if remember {
		res.RefreshToken = "refresh"
	}
	return res, nil
}

func (f *fakeService) Logout(_ context.Context, token string) error {
	f.lastToken = token
	return f.err
}

func (f *fakeService) LogoutAll(_ context.Context, userID string) error {
	f.lastUserID = userID
	return f.err
}

func (f *fakeService) Refresh(context.Context, string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return "new-access", nil
}

func (f *fakeService) ChangePassword(_ context.Context, userID, _, _ string) error {
	f.lastUserID = userID
	return f.err
}

func (f *fakeService) ForgotPassword(context.Context, string) error { return f.err }

func (f *fakeService) ResetPassword(context.Context, string, string) error { return f.err }

func (f *fakeService) ResendVerification(context.Context, string) error { return f.err }

func (f *fakeService) VerifyEmail(context.Context, string) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return testUser, nil
}

func (f *fakeService) Authorize(_ context.Context, token string) (*auth.Principal, error) {
	if !f.authorized {
		return nil, auth.ErrUnauthorized
	}
	return &auth.Principal{UserID: "u-1", TokenID: token}, nil
}

func (f *fakeService) CurrentUser(context.Context, string) (*auth.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return testUser, nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func do(t *testing.T, h http.Handler, method, path, body, bearer string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealthz(t *testing.T) {
	r := NewRouter(Options{Service: &fakeService{}, Logger: discard()})
	rec := do(t, r, http.MethodGet, "/healthz", "", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", decodeBody(t, rec)["status"])
}

func TestReadyz(t *testing.T) {
	r := NewRouter(Options{
		Service: &fakeService{},
		Logger:  discard(),
		Ready:   func(context.Context) error { return errors.New("redis down") },
	})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, r, http.MethodGet, "/readyz", "", "").Code)
}

func TestLoginResponse(t *testing.T) {
	r := NewRouter(Options{Service: &fakeService{}, Logger: discard()})

	rec := do(t, r, http.MethodPost, "/auth/login", `{"email":"yogi@example.com","password":"x","remember":true}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "access", body["access_token"])
	assert.Equal(t, "refresh", body["refresh_token"])
	assert.Equal(t, "Bearer", body["token_type"])
	assert.EqualValues(t, 900, body["expires_in"])

	rec = do(t, r, http.MethodPost, "/auth/login", `{"email":"yogi@example.com","password":"x"}`, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, decodeBody(t, rec), "refresh_token")
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		path   string
		body   string
		status int
		code   string
	}{
		{"bad credentials", auth.ErrInvalidCredentials, "/auth/login", `{"email":"a","password":"b"}`, http.StatusUnauthorized, "invalid_credentials"},
		{"locked", &auth.AccountLockedError{RetryAfterMinutes: 30}, "/auth/login", `{"email":"a","password":"b"}`, http.StatusLocked, "account_locked"},
		{"inactive", auth.ErrInactiveAccount, "/auth/login", `{"email":"a","password":"b"}`, http.StatusForbidden, "account_inactive"},
		{"unverified", auth.ErrEmailNotVerified, "/auth/login", `{"email":"a","password":"b"}`, http.StatusForbidden, "email_not_verified"},
		{"weak password", &auth.WeakPasswordError{Reason: "password must contain a digit"}, "/auth/register", `{"email":"a","password":"b"}`, http.StatusBadRequest, "weak_password"},
		{"email taken", auth.ErrEmailTaken, "/auth/register", `{"email":"a","password":"b"}`, http.StatusConflict, "email_taken"},
		{"invalid reset token", auth.ErrInvalidToken, "/auth/reset-password", `{"token":"t","password":"p"}`, http.StatusBadRequest, "invalid_token"},
		{"expired reset token", auth.ErrExpiredToken, "/auth/reset-password", `{"token":"t","password":"p"}`, http.StatusGone, "expired_token"},
		{"expired verification", auth.ErrExpiredToken, "/auth/verify-email", `{"token":"t"}`, http.StatusGone, "expired_token"},
		{"invalid refresh", auth.ErrInvalidToken, "/auth/refresh", `{"refresh_token":"r"}`, http.StatusUnauthorized, "invalid_token"},
		{"not ready", auth.ErrEngineNotReady, "/auth/forgot-password", `{"email":"a"}`, http.StatusServiceUnavailable, "unavailable"},
		{"unexpected", errors.New("disk on fire"), "/auth/resend-verification", `{"email":"a"}`, http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRouter(Options{Service: &fakeService{err: tt.err}, Logger: discard()})
			rec := do(t, r, http.MethodPost, tt.path, tt.body, "")
			require.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.Equal(t, tt.code, decodeBody(t, rec)["code"])
		})
	}
}

func TestLockedResponseCarriesRetryAfter(t *testing.T) {
	r := NewRouter(Options{Service: &fakeService{err: &auth.AccountLockedError{RetryAfterMinutes: 20}}, Logger: discard()})

	rec := do(t, r, http.MethodPost, "/auth/login", `{"email":"a","password":"b"}`, "")
	require.Equal(t, http.StatusLocked, rec.Code)
	assert.Equal(t, "1200", rec.Header().Get("Retry-After"))
	assert.EqualValues(t, 20, decodeBody(t, rec)["retry_after_minutes"])
}

func TestEmailEndpointsAlwaysAccept(t *testing.T) {
	r := NewRouter(Options{Service: &fakeService{}, Logger: discard()})
	assert.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/auth/forgot-password", `{"email":"nobody@example.com"}`, "").Code)
	assert.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/auth/resend-verification", `{"email":"nobody@example.com"}`, "").Code)
}

func TestRejectsMalformedJSON(t *testing.T) {
	r := NewRouter(Options{Service: &fakeService{}, Logger: discard()})

	rec := do(t, r, http.MethodPost, "/auth/login", `{"email":`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPost, "/auth/login", `{"email":"a","password":"b","admin":true}`, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGuardedRoutes(t *testing.T) {
	svc := &fakeService{}
	r := NewRouter(Options{Service: svc, Logger: discard()})

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/auth/me", "", "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/auth/me", "", "stale").Code)

	svc.authorized = true
	rec := do(t, r, http.MethodGet, "/auth/me", "", "good")
	require.Equal(t, http.StatusOK, rec.Code)
	user := decodeBody(t, rec)["user"].(map[string]any)
	assert.Equal(t, "u-1", user["id"])

	rec = do(t, r, http.MethodPost, "/auth/change-password", `{"current_password":"a","new_password":"b"}`, "good")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u-1", svc.lastUserID)

	svc.lastUserID = ""
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/auth/logout-all", "", "good").Code)
	assert.Equal(t, "u-1", svc.lastUserID)
}

func TestLogoutNeedsBearer(t *testing.T) {
	svc := &fakeService{}
	r := NewRouter(Options{Service: svc, Logger: discard()})

	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/auth/logout", "", "").Code)
	assert.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/auth/logout", "", "tok").Code)
	assert.Equal(t, "tok", svc.lastToken)
}

func TestLoginRateLimited(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	r := NewRouter(Options{
		Service: &fakeService{err: auth.ErrInvalidCredentials},
		Logger:  discard(),
		Redis:   rdb,
		Limits:  map[string]Limit{"login": {Max: 2, Window: time.Minute}},
	})

	body := `{"email":"a","password":"b"}`
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/auth/login", body, "").Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodPost, "/auth/login", body, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, r, http.MethodPost, "/auth/login", body, "").Code)

	// Scopes without a configured limit are not throttled.
	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusAccepted, do(t, r, http.MethodPost, "/auth/forgot-password", `{"email":"a"}`, "").Code)
	}
}

func newEngineRouter(t *testing.T) (http.Handler, *atomic.Int32) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	cfg := auth.DefaultConfig()
	cfg.JWT.Secret = []byte("httpapi-test-secret-0123456789abcdef")
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1

	sent := &atomic.Int32{}
	engine, err := auth.New().
		WithConfig(cfg).
		WithRedis(rdb).
		WithUserStore(memory.NewUserStore()).
		WithMailer(mailer.SenderFunc(func(context.Context, string, string, string) bool {
			sent.Add(1)
			return true
		})).
		WithLogger(discard()).
		Build()
	require.NoError(t, err)
	t.Cleanup(engine.Close)

	return NewRouter(Options{Service: engine, Logger: discard(), AccessTTL: cfg.JWT.AccessTTL}), sent
}

func TestEndToEndWithEngine(t *testing.T) {
	r, _ := newEngineRouter(t)

	rec := do(t, r, http.MethodPost, "/auth/register", `{"email":"Asana@Example.com","password":"Sun-Salutation-1","name":"Asana"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = do(t, r, http.MethodPost, "/auth/register", `{"email":"asana@example.com","password":"Sun-Salutation-1"}`, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPost, "/auth/login", `{"email":"asana@example.com","password":"Sun-Salutation-1"}`, "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	access := decodeBody(t, rec)["access_token"].(string)

	rec = do(t, r, http.MethodGet, "/auth/me", "", access)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "asana@example.com", decodeBody(t, rec)["user"].(map[string]any)["email"])

	require.Equal(t, http.StatusNoContent, do(t, r, http.MethodPost, "/auth/logout", "", access).Code)
	assert.Equal(t, http.StatusUnauthorized, do(t, r, http.MethodGet, "/auth/me", "", access).Code)
}

func TestEmailEndpointsLookIdenticalForUnknownAccounts(t *testing.T) {
	r, sent := newEngineRouter(t)

	rec := do(t, r, http.MethodPost, "/auth/register", `{"email":"known@example.com","password":"Sun-Salutation-1","name":"Known"}`, "")
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	for _, path := range []string{"/auth/forgot-password", "/auth/resend-verification"} {
		t.Run(path, func(t *testing.T) {
			before := sent.Load()
			known := do(t, r, http.MethodPost, path, `{"email":"known@example.com"}`, "")
			unknown := do(t, r, http.MethodPost, path, `{"email":"ghost@example.com"}`, "")

			assert.Equal(t, http.StatusAccepted, known.Code)
			assert.Equal(t, known.Code, unknown.Code)
			assert.Equal(t, known.Body.Bytes(), unknown.Body.Bytes())
			assert.Equal(t, known.Header().Get("Content-Type"), unknown.Header().Get("Content-Type"))
			assert.Equal(t, before+1, sent.Load(), "only the real account gets mail")
		})
	}
}

func TestOversizedPasswordIsBadRequest(t *testing.T) {
	r, _ := newEngineRouter(t)

	body := `{"email":"long@example.com","password":"Aa1` + strings.Repeat("x", 2000) + `"}`
	rec := do(t, r, http.MethodPost, "/auth/register", body, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
}
