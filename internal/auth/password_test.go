package auth

import (
	"errors"
	"strings"
	"testing"

	"github.com/sakif/resource-hub/internal/apperror"
)

// newTestPasswordService uses bcrypt cost 4 so each hash takes milliseconds.
func newTestPasswordService() *PasswordService {
	return NewPasswordServiceForTest(4)
}

func TestHash_OutputLooksBcrypt(t *testing.T) {
	ps := newTestPasswordService()

	hash, err := ps.Hash("password123")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2") {
		t.Errorf("Hash() does not look like a bcrypt hash: %q", hash)
	}
}

func TestHash_UsesConfiguredCost(t *testing.T) {
	hash, err := NewPasswordServiceForTest(5).Hash("uni-notes")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if !strings.HasPrefix(hash, "$2a$05$") {
		t.Errorf("Hash() = %q, want cost 05", hash)
	}

	if got := NewPasswordService().cost; got != defaultCost {
		t.Errorf("NewPasswordService cost = %d, want %d", got, defaultCost)
	}
}

func TestHash_IsSalted(t *testing.T) {
	ps := newTestPasswordService()

	hash1, _ := ps.Hash("uni-notes")
	hash2, _ := ps.Hash("uni-notes")

	if hash1 == hash2 {
		t.Error("Hash() produced identical hashes for the same password")
	}
}

func TestHash_LengthLimit(t *testing.T) {
	ps := newTestPasswordService()

	if _, err := ps.Hash(strings.Repeat("a", 72)); err != nil {
		t.Fatalf("Hash() should accept a 72-byte password, got: %v", err)
	}

	_, err := ps.Hash(strings.Repeat("a", 73))
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Hash() error = %v, want ErrValidation", err)
	}
}

func TestVerify(t *testing.T) {
	ps := newTestPasswordService()
	hash, err := ps.Hash("correct-horse-battery-staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}

	tests := []struct {
		name      string
		hash      string
		plaintext string
		wantErr   error
		wantMatch bool
	}{
		{name: "correct", hash: hash, plaintext: "correct-horse-battery-staple", wantMatch: true},
		{name: "wrong", hash: hash, plaintext: "incorrect", wantErr: ErrPasswordMismatch},
		{name: "empty plaintext", hash: hash, plaintext: "", wantErr: ErrPasswordMismatch},
		{name: "empty hash", hash: "", plaintext: "anything"},
		{name: "garbage hash", hash: "not-a-valid-bcrypt-hash", plaintext: "password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ps.Verify(tt.hash, tt.plaintext)
			if tt.wantMatch {
				if err != nil {
					t.Fatalf("Verify() error = %v, want nil", err)
				}
			} else if err == nil {
				t.Fatal("Verify() = nil, want an error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Errorf("Verify() error = %v, want %v", err, tt.wantErr)
			}
			if got := ps.Matches(tt.hash, tt.plaintext); got != tt.wantMatch {
				t.Errorf("Matches() = %v, want %v", got, tt.wantMatch)
			}
		})
	}
}

func TestHashVerify_RoundTrip(t *testing.T) {
	ps := newTestPasswordService()

	for _, pw := range []string{"hello123", "p@$$w0rd!#%", "пароль-密码", "  padded  "} {
		hash, err := ps.Hash(pw)
		if err != nil {
			t.Fatalf("Hash(%q) error = %v", pw, err)
		}
		if err := ps.Verify(hash, pw); err != nil {
			t.Errorf("Verify() failed for %q: %v", pw, err)
		}
	}
}
