package devauth

// Package devauth provides a simple, config-driven identity provider for local development.

import (
	"context"
	"errors"
	"sync"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/ports"
)

var _ ports.IdentityProvider = (*Provider)(nil)

// ErrTokenRevoked is returned by FetchClaims for a token that was signed out.
var ErrTokenRevoked = errors.New("dev auth: token revoked")

// Config controls the dev provider identity. UserID and Email are required.
type Config struct {
	UserID       string
	Email        string
	PlatformRole string
	// ProjectRef names the fake provider cookie ("sb-<ref>-auth-token").
	ProjectRef string
}

// Provider implements ports.IdentityProvider without any network calls.
// Every token resolves to the configured identity until it is signed out.
type Provider struct {
	claims     map[string]any
	cookieName string

	mu      sync.RWMutex
	revoked map[string]struct{}
}

// NewProvider constructs a dev auth provider from Config.
func NewProvider(cfg Config) (*Provider, error) {
	if cfg.UserID == "" {
		return nil, errors.New("dev auth: UserID is required")
	}
	if cfg.Email == "" {
		return nil, errors.New("dev auth: Email is required")
	}
	ref := cfg.ProjectRef
	if ref == "" {
		ref = "localdev"
	}
	return &Provider{
		claims: map[string]any{
			"sub":   cfg.UserID,
			"email": cfg.Email,
			"app_metadata": map[string]any{
				"platform_role": cfg.PlatformRole,
			},
		},
		cookieName: "sb-" + ref + "-auth-token",
		revoked:    make(map[string]struct{}),
	}, nil
}

// SignOut marks the token revoked. It always succeeds.
func (p *Provider) SignOut(_ context.Context, accessToken string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked[accessToken] = struct{}{}
	return nil
}

// FetchClaims returns a copy of the configured claims.
func (p *Provider) FetchClaims(_ context.Context, accessToken string) (map[string]any, error) {
	if accessToken == "" {
		return nil, errors.New("dev auth: access token is required")
	}
	p.mu.RLock()
	_, revoked := p.revoked[accessToken]
	p.mu.RUnlock()
	if revoked {
		return nil, ErrTokenRevoked
	}

	out := make(map[string]any, len(p.claims))
	for k, v := range p.claims {
		out[k] = v
	}
	return out, nil
}

func (p *Provider) CookieName() string { return p.cookieName }

// Cookie returns a provider cookie carrying token, for local login flows that
// need to mimic the provider having set its own session.
func (p *Provider) Cookie(token string, rc domainauth.RequestContext, baseDomain string) domainauth.CookiePolicy {
	return domainauth.CookiePolicy{
		Name:     p.cookieName,
		Value:    token,
		SameSite: domainauth.SameSiteLax,
		MaxAge:   int(domainauth.AccessTokenMaxAge.Seconds()),
		Path:     "/",
		Domain:   domainauth.ResolveCookieDomain(rc.Hostname, baseDomain),
	}
}
