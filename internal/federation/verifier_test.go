package federation

import (
	"context"
	"errors"
	"testing"

	"kebeleportal.org/internal/identity"
)

func TestProfileFromClaims(t *testing.T) {
	profile, err := ProfileFromClaims("google-sub-1", " Abebe@Example.COM ", "  Abebe Bikila  ", true)
	if err != nil {
		t.Fatalf("ProfileFromClaims: %v", err)
	}
	if profile.Subject != "google-sub-1" {
		t.Fatalf("subject = %q", profile.Subject)
	}
	if profile.Email != "abebe@example.com" {
		t.Fatalf("email = %q, want normalized lowercase", profile.Email)
	}
	if profile.Name != "Abebe Bikila" {
		t.Fatalf("name = %q, want trimmed", profile.Name)
	}
}

func TestProfileFromClaimsRejectsIncomplete(t *testing.T) {
	cases := []struct {
		name     string
		subject  string
		email    string
		verified bool
	}{
		{"missing subject", "", "abebe@example.com", true},
		{"missing email", "google-sub-1", "", true},
		{"unverified email", "google-sub-1", "abebe@example.com", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := ProfileFromClaims(tc.subject, tc.email, "Abebe", tc.verified); !errors.Is(err, identity.ErrInvalidInput) {
				t.Fatalf("got %v, want ErrInvalidInput", err)
			}
		})
	}
}

func TestNewVerifierConfigValidation(t *testing.T) {
	ctx := context.Background()
	if _, err := NewVerifier(ctx, Config{ClientID: "client"}); err == nil {
		t.Fatal("expected error for missing issuer URL")
	}
	if _, err := NewVerifier(ctx, Config{IssuerURL: "https://accounts.google.com"}); err == nil {
		t.Fatal("expected error for missing client id")
	}
}
