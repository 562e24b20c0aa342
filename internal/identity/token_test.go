package identity

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func testUser() User {
	return User{
		ID:     "01J0TESTUSER",
		Email:  "abebe@example.com",
		Role:   RoleResident,
		Status: StatusApproved,
	}
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	tokens, err := NewTokens("round-trip-secret")
	if err != nil {
		t.Fatalf("NewTokens: %v", err)
	}
	user := testUser()

	signed, expiresAt, err := tokens.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining < 23*time.Hour {
		t.Fatalf("expected ~24h validity, got %s", remaining)
	}

	p, err := tokens.Verify(signed)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if p.UserID != user.ID || p.Email != user.Email || p.Role != RoleResident {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	issuer, _ := NewTokens("secret-one")
	verifier, _ := NewTokens("secret-two")

	signed, _, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	issuer, _ := NewTokens("expiry-secret", WithTokenClock(func() time.Time { return past }))
	verifier, _ := NewTokens("expiry-secret")

	signed, _, err := issuer.Issue(testUser())
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := verifier.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyRejectsWrongAlgorithm(t *testing.T) {
	tokens, _ := NewTokens("alg-secret")

	// token signed with "none" must never pass
	claims := Claims{
		Email: "x@example.com",
		Role:  string(RoleResident),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "kebele-api",
			Subject:   "u1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	raw, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := tokens.Verify(raw); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for alg=none, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	tokens, _ := NewTokens("garbage-secret")
	for _, raw := range []string{"", "   ", "not.a.jwt", "a.b"} {
		if _, err := tokens.Verify(raw); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): expected ErrInvalidToken, got %v", raw, err)
		}
	}
}

func TestVerifyRejectsUnknownRole(t *testing.T) {
	tokens, _ := NewTokens("role-secret")
	user := testUser()
	user.Role = Role("mayor")
	signed, _, err := tokens.Issue(user)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := tokens.Verify(signed); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for unknown role, got %v", err)
	}
}
