// Package federation verifies identity assertions issued by an external
// OpenID Connect provider (Google in the deployed portal) and maps them to
// the portal's external-profile shape. Cryptographic verification is
// delegated to the provider's published keys via OIDC discovery.
package federation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"

	"kebeleportal.org/internal/identity"
)

// Config selects the identity provider.
type Config struct {
	IssuerURL    string
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// Verifier validates provider-issued ID tokens.
type Verifier struct {
	verifier     *oidc.IDTokenVerifier
	oauth2Config *oauth2.Config
}

// NewVerifier discovers the provider and prepares an ID-token verifier.
func NewVerifier(ctx context.Context, cfg Config) (*Verifier, error) {
	if strings.TrimSpace(cfg.IssuerURL) == "" {
		return nil, errors.New("federation: issuer URL is required")
	}
	if strings.TrimSpace(cfg.ClientID) == "" {
		return nil, errors.New("federation: client id is required")
	}
	provider, err := oidc.NewProvider(ctx, cfg.IssuerURL)
	if err != nil {
		return nil, fmt.Errorf("federation: discover provider: %w", err)
	}
	return &Verifier{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2Config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint:     provider.Endpoint(),
			RedirectURL:  cfg.RedirectURL,
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}, nil
}

// AuthCodeURL returns the provider's authorization URL for a browser-based
// login flow.
func (v *Verifier) AuthCodeURL(state string) string {
	return v.oauth2Config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// Exchange trades an authorization code for the provider's ID token and
// verifies it.
func (v *Verifier) Exchange(ctx context.Context, code string) (identity.ExternalProfile, error) {
	token, err := v.oauth2Config.Exchange(ctx, code)
	if err != nil {
		return identity.ExternalProfile{}, fmt.Errorf("federation: exchange code: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return identity.ExternalProfile{}, errors.New("federation: missing id_token in response")
	}
	return v.VerifyIDToken(ctx, rawIDToken)
}

// VerifyIDToken validates a raw ID token and extracts the verified profile.
func (v *Verifier) VerifyIDToken(ctx context.Context, rawIDToken string) (identity.ExternalProfile, error) {
	idToken, err := v.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return identity.ExternalProfile{}, fmt.Errorf("%w: %v", identity.ErrInvalidToken, err)
	}
	var claims struct {
		Email         string `json:"email"`
		EmailVerified bool   `json:"email_verified"`
		Name          string `json:"name"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return identity.ExternalProfile{}, fmt.Errorf("federation: parse claims: %w", err)
	}
	return ProfileFromClaims(idToken.Subject, claims.Email, claims.Name, claims.EmailVerified)
}

// ProfileFromClaims builds an external profile from verified token claims.
// The provider must have verified the email; an unverified address cannot
// establish an identity.
func ProfileFromClaims(subject, email, name string, emailVerified bool) (identity.ExternalProfile, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	if subject == "" || email == "" {
		return identity.ExternalProfile{}, fmt.Errorf("%w: incomplete federated profile", identity.ErrInvalidInput)
	}
	if !emailVerified {
		return identity.ExternalProfile{}, fmt.Errorf("%w: email not verified by provider", identity.ErrInvalidInput)
	}
	return identity.ExternalProfile{
		Subject: subject,
		Email:   email,
		Name:    strings.TrimSpace(name),
	}, nil
}
