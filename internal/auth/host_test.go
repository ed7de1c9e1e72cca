package auth

import (
	"testing"
	"time"
)

func TestIssueAndVerify(t *testing.T) {
	a := NewHostAuthenticator("letmein", "signing-secret", time.Hour)

	token, err := a.IssueToken("letmein")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if token == "" {
		t.Fatalf("empty token")
	}
	if err := a.Verify(token); err != nil {
		t.Fatalf("verify: %v", err)
	}
}

func TestWrongKeyRejected(t *testing.T) {
	a := NewHostAuthenticator("letmein", "signing-secret", time.Hour)

	for _, key := range []string{"", "LETMEIN", "letmein "} {
		if _, err := a.IssueToken(key); err != ErrInvalidKey {
			t.Fatalf("key %q: got %v", key, err)
		}
	}
}

func TestEmptyConfiguredKeyDisablesLogin(t *testing.T) {
	a := NewHostAuthenticator("", "signing-secret", time.Hour)
	if _, err := a.IssueToken(""); err != ErrInvalidKey {
		t.Fatalf("expected login disabled, got %v", err)
	}
}

func TestTamperedTokenRejected(t *testing.T) {
	a := NewHostAuthenticator("letmein", "signing-secret", time.Hour)
	token, err := a.IssueToken("letmein")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	other := NewHostAuthenticator("letmein", "other-secret", time.Hour)
	if err := other.Verify(token); err != ErrInvalidToken {
		t.Fatalf("cross-secret token: got %v", err)
	}
	if err := a.Verify(token + "x"); err != ErrInvalidToken {
		t.Fatalf("mangled token: got %v", err)
	}
	if err := a.Verify(""); err != ErrInvalidToken {
		t.Fatalf("empty token: got %v", err)
	}
}

func TestExpiredTokenRejected(t *testing.T) {
	base := time.Unix(1700000000, 0)
	current := base
	a := NewHostAuthenticatorWithClock("letmein", "signing-secret", time.Minute, func() time.Time { return current })

	token, err := a.IssueToken("letmein")
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := a.Verify(token); err != nil {
		t.Fatalf("fresh token: %v", err)
	}

	current = base.Add(2 * time.Minute)
	if err := a.Verify(token); err != ErrInvalidToken {
		t.Fatalf("expired token: got %v", err)
	}
}
