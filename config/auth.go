package config

import (
	"fmt"
	"strings"
	"time"
)

// AuthMode represents the identity provider integration in use.
type AuthMode string

const (
	// AuthModeOIDC talks to an OpenID Connect provider.
	AuthModeOIDC AuthMode = "oidc"
	// AuthModeMock uses a local provider (for development only).
	AuthModeMock AuthMode = "mock"
)

// UnmarshalText implements encoding.TextUnmarshaler for AuthMode.
func (a *AuthMode) UnmarshalText(text []byte) error {
	v := strings.ToLower(string(text))
	switch v {
	case "oidc", "mock":
		*a = AuthMode(v)
		return nil
	default:
		return fmt.Errorf("invalid AuthMode: %q (valid options: oidc, mock)", v)
	}
}

// ProviderConfig contains identity provider endpoint configuration.
type ProviderConfig struct {
	// URL is the provider base URL. The OIDC issuer and the provider session cookie
	// name are both derived from it.
	URL          string `env:"URL"`
	Issuer       string `env:"ISSUER"`
	ClientID     string `env:"CLIENT_ID"`
	ClientSecret string `env:"CLIENT_SECRET"`
	// RevocationURL overrides the discovered revocation endpoint.
	RevocationURL string `env:"REVOCATION_URL"`
	// SignOutTimeout bounds the remote invalidation call made during logout.
	SignOutTimeout time.Duration `env:"SIGNOUT_TIMEOUT" envDefault:"5s"`
	// IssuesAccessToken marks the first-party access cookie as provider-issued.
	// Only then is it sent to the provider's userinfo and revocation endpoints.
	IssuesAccessToken bool `env:"ISSUES_ACCESS_TOKEN" envDefault:"false"`
	// LookupTimeout bounds userinfo calls made while resolving roles.
	LookupTimeout time.Duration `env:"LOOKUP_TIMEOUT" envDefault:"3s"`
	// BreakerFailures consecutive failures open the circuit breaker.
	BreakerFailures uint32 `env:"BREAKER_FAILURES" envDefault:"5"`
	// BreakerCooldown is how long the breaker stays open.
	BreakerCooldown time.Duration `env:"BREAKER_COOLDOWN" envDefault:"30s"`
}

// ClaimsConfig holds JMESPath expressions that project provider claims onto roles.
type ClaimsConfig struct {
	Subject      string `env:"SUBJECT"       envDefault:"sub"`
	Email        string `env:"EMAIL"         envDefault:"email"`
	PlatformRole string `env:"PLATFORM_ROLE" envDefault:"app_metadata.platform_role"`
	IsAdmin      string `env:"IS_ADMIN"      envDefault:"app_metadata.is_admin"`
	MetadataRole string `env:"METADATA_ROLE" envDefault:"user_metadata.role"`
}

// DevAuthConfig controls the mock provider identity.
// Used when AUTH_MODE=mock for development and testing.
type DevAuthConfig struct {
	UserID       string `env:"USER_ID"       envDefault:"dev-user"`
	Email        string `env:"EMAIL"         envDefault:"dev@example.com"`
	PlatformRole string `env:"PLATFORM_ROLE" envDefault:"admin"`
	ProjectRef   string `env:"PROJECT_REF"   envDefault:"localdev"`
}

// AuthConfig groups all identity-provider configuration.
type AuthConfig struct {
	// Mode determines which provider integration to use.
	Mode AuthMode `env:"AUTH_MODE" envDefault:"oidc"`

	Provider ProviderConfig `envPrefix:"AUTH_PROVIDER_"`
	Claims   ClaimsConfig   `envPrefix:"AUTH_CLAIMS_"`
	DevAuth  DevAuthConfig  `envPrefix:"DEV_AUTH_"`
}

// Sanitize trims endpoints and applies timeout floors.
func (a *AuthConfig) Sanitize() {
	a.Provider.URL = strings.TrimRight(strings.TrimSpace(a.Provider.URL), "/")
	a.Provider.Issuer = strings.TrimSpace(a.Provider.Issuer)
	a.Provider.RevocationURL = strings.TrimSpace(a.Provider.RevocationURL)
	if a.Provider.SignOutTimeout <= 0 {
		a.Provider.SignOutTimeout = 5 * time.Second
	}
	if a.Provider.LookupTimeout <= 0 {
		a.Provider.LookupTimeout = 3 * time.Second
	}
	if a.Provider.BreakerFailures == 0 {
		a.Provider.BreakerFailures = 5
	}
	if a.Provider.BreakerCooldown <= 0 {
		a.Provider.BreakerCooldown = 30 * time.Second
	}
}

// IssuerURL returns the OIDC issuer, falling back to the provider URL.
func (p ProviderConfig) IssuerURL() string {
	if p.Issuer != "" {
		return p.Issuer
	}
	return p.URL
}
