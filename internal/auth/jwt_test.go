package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/sakif/resource-hub/internal/apperror"
)

// newTestTokenService creates a TokenService with a fixed, known secret.
func newTestTokenService(t *testing.T) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// fakeClock is a manually advanced time source.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time          { return c.now }
func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

// =========================================================================
// CONSTRUCTION
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short", 0)
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTL(t *testing.T) {
	ts := newTestTokenService(t)
	if ts.TTL() != DefaultTokenTTL {
		t.Errorf("TTL() = %v, want %v", ts.TTL(), DefaultTokenTTL)
	}
	if DefaultTokenTTL != 30*time.Minute {
		t.Errorf("DefaultTokenTTL = %v, want 30m", DefaultTokenTTL)
	}
}

// =========================================================================
// ISSUE / GENERATE
// =========================================================================

func TestGenerate_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Generate("ana@college.edu")
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	if got := strings.Count(token, "."); got != 2 {
		t.Errorf("Generate() token has %d dots, want 2", got)
	}
}

func TestIssue_EmptySubject(t *testing.T) {
	ts := newTestTokenService(t)

	if _, err := ts.Issue("", time.Minute); err == nil {
		t.Fatal("Issue() should reject an empty subject")
	}
}

func TestIssue_ZeroTTLUsesDefault(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	ts := newTestTokenService(t).WithClock(clock.Now)

	token, err := ts.Issue("ana@college.edu", 0)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.Advance(DefaultTokenTTL - time.Second)
	if _, err := ts.Validate(token); err != nil {
		t.Fatalf("Validate() before default expiry error = %v", err)
	}

	clock.Advance(2 * time.Second)
	if _, err := ts.Validate(token); !errors.Is(err, apperror.ErrExpiredToken) {
		t.Fatalf("Validate() after default expiry error = %v, want ErrExpiredToken", err)
	}
}

// =========================================================================
// VALIDATE
// =========================================================================

func TestValidate_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)
	subject := "ana@college.edu"

	token, err := ts.Generate(subject)
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}

	got, err := ts.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if got != subject {
		t.Errorf("Validate() subject = %q, want %q", got, subject)
	}
}

func TestValidate_ExpiresStrictlyAfterTTL(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1_700_000_000, 0)}
	ts := newTestTokenService(t).WithClock(clock.Now)
	ttl := 5 * time.Minute

	token, err := ts.Issue("ana@college.edu", ttl)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	clock.Advance(ttl - time.Second)
	if _, err := ts.Validate(token); err != nil {
		t.Fatalf("Validate() one second before expiry error = %v", err)
	}

	clock.Advance(2 * time.Second)
	_, err = ts.Validate(token)
	if !errors.Is(err, apperror.ErrExpiredToken) {
		t.Fatalf("Validate() after expiry error = %v, want ErrExpiredToken", err)
	}
}

func TestValidate_InvalidTokens(t *testing.T) {
	ts := newTestTokenService(t)
	good, _ := ts.Generate("ana@college.edu")

	other, _ := NewTokenService("wrong-secret-32-chars-long!!!!!!", 0)
	foreign, _ := other.Generate("ana@college.edu")

	tests := []struct {
		name  string
		token string
	}{
		{name: "empty", token: ""},
		{name: "garbage", token: "not.a.jwt.token"},
		{name: "tampered signature", token: good[:len(good)-3] + "xxx"},
		{name: "signed with another secret", token: foreign},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ts.Validate(tt.token)
			if !errors.Is(err, apperror.ErrInvalidToken) {
				t.Errorf("Validate() error = %v, want ErrInvalidToken", err)
			}
		})
	}
}
