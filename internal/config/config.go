package config

import (
	"errors"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the portal API.
type Config struct {
	Addr         string        `envconfig:"KEBELE_ADDR" default:":8080"`
	ReadTimeout  time.Duration `envconfig:"KEBELE_READ_TIMEOUT" default:"15s"`
	WriteTimeout time.Duration `envconfig:"KEBELE_WRITE_TIMEOUT" default:"15s"`
	IdleTimeout  time.Duration `envconfig:"KEBELE_IDLE_TIMEOUT" default:"60s"`

	PGDSN string `envconfig:"KEBELE_PG_DSN"`

	TokenSecret string        `envconfig:"KEBELE_TOKEN_SECRET" required:"true"`
	TokenTTL    time.Duration `envconfig:"KEBELE_TOKEN_TTL" default:"24h"`

	OIDCIssuerURL    string `envconfig:"KEBELE_OIDC_ISSUER" default:"https://accounts.google.com"`
	OIDCClientID     string `envconfig:"KEBELE_OIDC_CLIENT_ID"`
	OIDCClientSecret string `envconfig:"KEBELE_OIDC_CLIENT_SECRET"`
	OIDCRedirectURL  string `envconfig:"KEBELE_OIDC_REDIRECT_URL"`

	BootstrapAdminEmail    string `envconfig:"KEBELE_BOOTSTRAP_ADMIN_EMAIL"`
	BootstrapAdminPassword string `envconfig:"KEBELE_BOOTSTRAP_ADMIN_PASSWORD"`

	RateLimitBurst     int `envconfig:"KEBELE_RATE_LIMIT_BURST" default:"50"`
	RateLimitPerSecond int `envconfig:"KEBELE_RATE_LIMIT_PER_SECOND" default:"25"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if cfg.TokenSecret == "" {
		return nil, errors.New("token secret must be provided")
	}
	return &cfg, nil
}
