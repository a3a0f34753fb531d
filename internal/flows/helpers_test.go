package flows

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/justincavery/yoga-app-sub000/account"
	"github.com/justincavery/yoga-app-sub000/internal"
	"github.com/justincavery/yoga-app-sub000/internal/limiters"
	"github.com/justincavery/yoga-app-sub000/jwt"
	"github.com/justincavery/yoga-app-sub000/password"
	"github.com/justincavery/yoga-app-sub000/revocation"
	"github.com/justincavery/yoga-app-sub000/store/memory"
)

var (
	errInvalidCredentials = errors.New("invalid credentials")
	errEmailTaken         = errors.New("email taken")
	errInvalidToken       = errors.New("invalid token")
	errExpiredToken       = errors.New("expired token")
	errInactive           = errors.New("inactive")
	errUnauthorized       = errors.New("unauthorized")
	errReuse              = errors.New("reuse")
	errUnverified         = errors.New("unverified")
	errNotReady           = errors.New("not ready")
)

type lockedErr struct{ minutes int }

func (e *lockedErr) Error() string { return fmt.Sprintf("locked for %d minutes", e.minutes) }

type weakErr struct{ reason string }

func (e *weakErr) Error() string { return e.reason }

var testErrors = Errors{
	EngineNotReady:     errNotReady,
	InvalidCredentials: errInvalidCredentials,
	EmailTaken:         errEmailTaken,
	InvalidToken:       errInvalidToken,
	ExpiredToken:       errExpiredToken,
	InactiveAccount:    errInactive,
	Unauthorized:       errUnauthorized,
	PasswordReuse:      errReuse,
	EmailNotVerified:   errUnverified,
	AccountLocked:      func(m int) error { return &lockedErr{minutes: m} },
	WeakPassword:       func(r string) error { return &weakErr{reason: r} },
}

type sentMail struct {
	to, subject, body string
}

type mailbox struct {
	mu   sync.Mutex
	sent []sentMail
	fail bool
}

func (m *mailbox) send(_ context.Context, to, subject, body string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return false
	}
	m.sent = append(m.sent, sentMail{to: to, subject: subject, body: body})
	return true
}

func (m *mailbox) last() sentMail {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sent) == 0 {
		return sentMail{}
	}
	return m.sent[len(m.sent)-1]
}

type auditRecord struct {
	event   string
	success bool
	userID  string
	meta    map[string]string
}

// fixture wires every flow against in-memory and miniredis collaborators.
type fixture struct {
	t       *testing.T
	now     time.Time
	users   *memory.UserStore
	hasher  *password.Hasher
	tokens  *jwt.Manager
	revoked *revocation.Store
	lockout *limiters.LockoutGuard
	mr      *miniredis.Miniredis
	mail    *mailbox
	audit   []auditRecord
	metrics map[int]int
}

const (
	accessTTL  = 15 * time.Minute
	refreshTTL = 24 * time.Hour
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})

	f := &fixture{
		t:       t,
		now:     time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
		users:   memory.NewUserStore(),
		mr:      mr,
		mail:    &mailbox{},
		metrics: make(map[int]int),
		lockout: limiters.NewLockoutGuard(limiters.LockoutConfig{MaxAttempts: 5, Duration: 30 * time.Minute}),
	}

	f.hasher, err = password.NewHasher(password.Config{Memory: 8 * 1024, Time: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	f.tokens, err = jwt.NewManager(jwt.Config{Secret: []byte("0123456789abcdef0123456789abcdef"), Now: f.clock})
	if err != nil {
		t.Fatalf("jwt manager: %v", err)
	}
	f.revoked = revocation.NewStore(revocation.NewRedisCache(rdb), revocation.WithClock(f.clock))
	return f
}

func (f *fixture) clock() time.Time { return f.now }

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
	f.mr.FastForward(d)
}

func (f *fixture) common() Common {
	return Common{
		Now:       f.clock,
		MetricInc: func(id int) { f.metrics[id]++ },
		EmitAudit: func(_ context.Context, event string, success bool, userID string, _ error, meta func() map[string]string) {
			rec := auditRecord{event: event, success: success, userID: userID}
			if meta != nil {
				rec.meta = meta()
			}
			f.audit = append(f.audit, rec)
		},
		Errors: testErrors,
	}
}

func (f *fixture) passwords() Passwords {
	return Passwords{
		Hash:             f.hasher.Hash,
		Verify:           f.hasher.Verify,
		VerifyDummy:      f.hasher.VerifyDummy,
		NeedsUpgrade:     f.hasher.NeedsUpgrade,
		ValidateStrength: password.ValidateStrength,
	}
}

func (f *fixture) revokeAll(ctx context.Context, userID string) error {
	return f.revoked.RevokeAllForUser(ctx, userID, refreshTTL)
}

func (f *fixture) issueAccess(sub string) (string, error)  { return f.tokens.IssueAccess(sub, accessTTL) }
func (f *fixture) issueRefresh(sub string) (string, error) { return f.tokens.IssueRefresh(sub, refreshTTL) }

func (f *fixture) registerDeps() RegisterDeps {
	return RegisterDeps{
		Common:       f.common(),
		Users:        f.users,
		Passwords:    f.passwords(),
		Verification: EmailVerificationKind(f.users, 24*time.Hour),
		NewUserID:    uuid.NewString,
		NewToken:     internal.NewOpaqueToken,
		SendMail:     f.mail.send,
		VerifyMail: func(_, token string) (string, string) {
			return "Verify your email", "verify:" + token
		},
		Metrics: RegisterMetrics{RegisterSuccess: 1, RegisterFailure: 2, EmailFailure: 3},
		Events:  RegisterEvents{RegisterSuccess: "register_success", RegisterFailure: "register_failure"},
	}
}

func (f *fixture) loginDeps() LoginDeps {
	return LoginDeps{
		Common:                 f.common(),
		PasswordUpgradeOnLogin: true,
		AccessTTL:              accessTTL,
		Users:                  f.users,
		Passwords:              f.passwords(),
		Lockout:                f.lockout,
		IssueAccess:            f.issueAccess,
		IssueRefresh:           f.issueRefresh,
		Metrics:                LoginMetrics{LoginSuccess: 10, LoginFailure: 11, LoginLocked: 12, AccountLocked: 13, PasswordUpgrade: 14},
		Events:                 LoginEvents{LoginSuccess: "login_success", LoginFailure: "login_failure", AccountLocked: "account_locked"},
	}
}

func (f *fixture) logoutDeps() LogoutDeps {
	return LogoutDeps{
		Common:           f.common(),
		Decode:           f.tokens.Decode,
		Remaining:        f.tokens.Remaining,
		RevokeToken:      f.revoked.RevokeToken,
		RevokeAllForUser: f.revokeAll,
		Metrics:          LogoutMetrics{Logout: 20, LogoutAll: 21},
		Events:           LogoutEvents{Logout: "logout", LogoutAll: "logout_all"},
	}
}

func (f *fixture) refreshDeps() RefreshDeps {
	return RefreshDeps{
		Common:             f.common(),
		Users:              f.users,
		Decode:             f.tokens.Decode,
		IsRevoked:          f.revoked.IsRevoked,
		IssuedBeforeRevoke: f.revoked.TokenIssuedBeforeUserRevocation,
		IssueAccess:        f.issueAccess,
		Metrics:            RefreshMetrics{RefreshSuccess: 30, RefreshFailure: 31},
		Events:             RefreshEvents{RefreshSuccess: "refresh_success", RefreshFailure: "refresh_failure"},
	}
}

func (f *fixture) changePasswordDeps() ChangePasswordDeps {
	return ChangePasswordDeps{
		Common:           f.common(),
		Users:            f.users,
		Passwords:        f.passwords(),
		RevokeAllForUser: f.revokeAll,
		Metrics:          ChangePasswordMetrics{Success: 40, Failure: 41},
		Events:           ChangePasswordEvents{Success: "password_change_success", Failure: "password_change_failure"},
	}
}

func (f *fixture) passwordResetDeps() PasswordResetDeps {
	return PasswordResetDeps{
		Common:    f.common(),
		Users:     f.users,
		Passwords: f.passwords(),
		Kind:      PasswordResetKind(f.users, time.Hour),
		NewToken:  internal.NewOpaqueToken,
		SendMail:  f.mail.send,
		ResetMail: func(_, token string) (string, string) {
			return "Reset your password", "reset:" + token
		},
		RevokeAllForUser: f.revokeAll,
		Metrics:          PasswordResetMetrics{Request: 50, ConfirmSuccess: 51, ConfirmFailure: 52, EmailFailure: 53},
		Events:           PasswordResetEvents{Request: "password_reset_request", Confirm: "password_reset_confirm"},
	}
}

func (f *fixture) emailVerificationDeps() EmailVerificationDeps {
	return EmailVerificationDeps{
		Common:   f.common(),
		Users:    f.users,
		Kind:     EmailVerificationKind(f.users, 24*time.Hour),
		NewToken: internal.NewOpaqueToken,
		SendMail: f.mail.send,
		VerifyMail: func(_, token string) (string, string) {
			return "Verify your email", "verify:" + token
		},
		Metrics: EmailVerificationMetrics{Request: 60, ConfirmSuccess: 61, ConfirmFailure: 62, EmailFailure: 63},
		Events:  EmailVerificationEvents{Request: "email_verification_request", Confirm: "email_verification_confirm"},
	}
}

func (f *fixture) authorizeDeps() AuthorizeDeps {
	return AuthorizeDeps{
		Common:             f.common(),
		Users:              f.users,
		Decode:             f.tokens.Decode,
		IsRevoked:          f.revoked.IsRevoked,
		IssuedBeforeRevoke: f.revoked.TokenIssuedBeforeUserRevocation,
		Metrics:            AuthorizeMetrics{Success: 70, Rejected: 71},
		Events:             AuthorizeEvents{Rejected: "authorize_rejected"},
	}
}

const (
	goodPassword  = "Correct-Horse-9"
	otherPassword = "Another-Pass-42"
)

// register creates alice@example.com with goodPassword and returns her.
func (f *fixture) register() *account.User {
	f.t.Helper()
	u, err := RunRegister(context.Background(), "alice@example.com", goodPassword, "Alice", f.registerDeps())
	if err != nil {
		f.t.Fatalf("register: %v", err)
	}
	return u
}

func (f *fixture) stored(id string) *account.User {
	f.t.Helper()
	u, err := f.users.FindUserByID(context.Background(), id)
	if err != nil {
		f.t.Fatalf("load user %s: %v", id, err)
	}
	return u
}

func (f *fixture) lastAudit() auditRecord {
	if len(f.audit) == 0 {
		return auditRecord{}
	}
	return f.audit[len(f.audit)-1]
}
