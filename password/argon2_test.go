package password

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

// cheapConfig keeps tests fast while staying above the enforced minimums.
func cheapConfig() Config {
	return Config{
		Memory:      8 * 1024,
		Time:        1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	}
}

func newTestHasher(t *testing.T) *Hasher {
	t.Helper()
	h, err := NewHasher(cheapConfig())
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}
	return h
}

func TestHashAndVerify(t *testing.T) {
	hasher := newTestHasher(t)

	hash, err := hasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	if !strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$") {
		t.Fatalf("unexpected PHC prefix: %s", hash)
	}
	if !hasher.Verify("Password1", hash) {
		t.Fatal("expected password verification to succeed")
	}
}

func TestHashUsesFreshSalt(t *testing.T) {
	hasher := newTestHasher(t)

	a, err := hasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	b, err := hasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}
	if a == b {
		t.Fatal("expected two hashes of the same password to differ")
	}
}

func TestVerifyWrongPassword(t *testing.T) {
	hasher := newTestHasher(t)

	hash, err := hasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	for _, candidate := range []string{"Password2", "password1", "Password1 ", ""} {
		if hasher.Verify(candidate, hash) {
			t.Fatalf("expected %q to be rejected", candidate)
		}
	}
}

func TestVerifyMalformedHashIsFalse(t *testing.T) {
	hasher := newTestHasher(t)

	for _, encoded := range []string{
		"",
		"not-a-phc-hash",
		"$argon2i$v=19$m=8192,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=1,t=1,p=1$c2FsdHNhbHRzYWx0c2FsdA$aGFzaA",
		"$argon2id$v=19$m=8192,t=1,p=1$!!!$aGFzaA",
	} {
		if hasher.Verify("Password1", encoded) {
			t.Fatalf("expected malformed hash %q to verify as false", encoded)
		}
	}
}

func TestVerifyWrongVersion(t *testing.T) {
	hasher := newTestHasher(t)

	hash, err := hasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	wrongVersion := strings.Replace(hash, "$v=19$", "$v=18$", 1)
	if hasher.Verify("Password1", wrongVersion) {
		t.Fatal("expected unsupported version verification to fail")
	}
}

func TestHashEmptyPassword(t *testing.T) {
	hasher := newTestHasher(t)

	if _, err := hasher.Hash(""); err != ErrEmptyPassword {
		t.Fatalf("expected ErrEmptyPassword, got %v", err)
	}
}

func TestHashTooLongPasswordRejected(t *testing.T) {
	cfg := cheapConfig()
	cfg.MaxPasswordBytes = 64
	hasher, err := NewHasher(cfg)
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	if _, err := hasher.Hash(strings.Repeat("a", 65)); err != ErrPasswordTooLong {
		t.Fatalf("expected ErrPasswordTooLong, got %v", err)
	}

	exact := strings.Repeat("b", 64)
	hash, err := hasher.Hash(exact)
	if err != nil {
		t.Fatalf("expected exactly-max password to be accepted: %v", err)
	}
	if !hasher.Verify(exact, hash) {
		t.Fatal("Verify failed for max-length password")
	}
	if hasher.Verify(strings.Repeat("b", 65), hash) {
		t.Fatal("expected over-long candidate to be rejected")
	}
}

func TestNeedsUpgrade(t *testing.T) {
	oldHasher := newTestHasher(t)
	hash, err := oldHasher.Hash("Password1")
	if err != nil {
		t.Fatalf("Hash error: %v", err)
	}

	stronger := cheapConfig()
	stronger.Time = 2
	newHasher, err := NewHasher(stronger)
	if err != nil {
		t.Fatalf("NewHasher error: %v", err)
	}

	if !newHasher.NeedsUpgrade(hash) {
		t.Fatal("expected NeedsUpgrade to return true for weaker hash parameters")
	}
	if oldHasher.NeedsUpgrade(hash) {
		t.Fatal("expected NeedsUpgrade to return false for current parameters")
	}
	if !newHasher.Verify("Password1", hash) {
		t.Fatal("expected older hash to keep verifying")
	}
}

func TestLegacyBcryptHash(t *testing.T) {
	hasher := newTestHasher(t)

	legacy, err := bcrypt.GenerateFromPassword([]byte("Password1"), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("bcrypt error: %v", err)
	}

	if !hasher.Verify("Password1", string(legacy)) {
		t.Fatal("expected legacy bcrypt hash to verify")
	}
	if hasher.Verify("Password2", string(legacy)) {
		t.Fatal("expected wrong password against bcrypt hash to fail")
	}
	if !hasher.NeedsUpgrade(string(legacy)) {
		t.Fatal("expected bcrypt hash to need an upgrade")
	}
}

func TestVerifyDummyDoesNotPanic(t *testing.T) {
	hasher := newTestHasher(t)
	hasher.VerifyDummy("Password1")
	hasher.VerifyDummy("")
}

func TestNewHasherRejectsWeakConfig(t *testing.T) {
	cfg := cheapConfig()
	cfg.Memory = 1024
	if _, err := NewHasher(cfg); err == nil {
		t.Fatal("expected memory below minimum to be rejected")
	}

	cfg = cheapConfig()
	cfg.SaltLength = 8
	if _, err := NewHasher(cfg); err == nil {
		t.Fatal("expected short salt to be rejected")
	}
}
