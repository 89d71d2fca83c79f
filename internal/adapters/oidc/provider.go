package oidc

// Package oidc provides the OpenID Connect identity provider adapter used for
// remote sign-out and claim lookup.

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	gooidc "github.com/coreos/go-oidc/v3/oidc"
	"github.com/sony/gobreaker/v2"
	"golang.org/x/oauth2"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
	"github.com/target/mmk-sessiongate/internal/ports"
)

var _ ports.IdentityProvider = (*Provider)(nil)

// ErrCircuitOpen is returned while the breaker is rejecting calls to the provider.
var ErrCircuitOpen = gobreaker.ErrOpenState

// ErrNoRevocationEndpoint is returned by SignOut when neither configuration nor
// discovery supplied a revocation endpoint.
var ErrNoRevocationEndpoint = errors.New("identity provider has no revocation endpoint")

// ProviderConfig holds configuration for the OIDC provider.
type ProviderConfig struct {
	// ProviderURL is the provider base URL; the session cookie name derives from it.
	ProviderURL  string
	IssuerURL    string
	ClientID     string
	ClientSecret string
	// RevocationURL overrides the discovered revocation_endpoint.
	RevocationURL string
	// CookieName overrides the derived provider session cookie name.
	CookieName      string
	BreakerFailures uint32
	BreakerCooldown time.Duration
	HTTPClient      *http.Client // Optional, defaults to a client with a 30s timeout
	Logger          *slog.Logger
	Metrics         *metrics.Auth
}

// Provider implements ports.IdentityProvider against an OIDC issuer.
type Provider struct {
	oidcProvider  *gooidc.Provider
	httpClient    *http.Client
	clientID      string
	clientSecret  string
	revocationURL string
	cookieName    string
	breaker       *gobreaker.CircuitBreaker[map[string]any]
	logger        *slog.Logger
}

// discoveryClaims are the optional discovery fields go-oidc does not surface.
type discoveryClaims struct {
	RevocationEndpoint string `json:"revocation_endpoint"`
	EndSessionEndpoint string `json:"end_session_endpoint"`
}

// NewProvider performs OIDC discovery against the issuer and returns a ready provider.
func NewProvider(ctx context.Context, cfg ProviderConfig) (*Provider, error) {
	if cfg.IssuerURL == "" {
		return nil, errors.New("issuer URL is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client ID is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "oidc_provider")

	issuer := strings.TrimSuffix(cfg.IssuerURL, "/")
	issuer = strings.TrimSuffix(issuer, "/.well-known/openid-configuration")
	op, err := gooidc.NewProvider(gooidc.ClientContext(ctx, httpClient), issuer)
	if err != nil {
		return nil, fmt.Errorf("oidc new provider: %w", err)
	}

	revocation := cfg.RevocationURL
	if revocation == "" {
		var dc discoveryClaims
		if claimsErr := op.Claims(&dc); claimsErr != nil {
			return nil, fmt.Errorf("decode discovery document: %w", claimsErr)
		}
		revocation = dc.RevocationEndpoint
	}

	cookieName := cfg.CookieName
	if cookieName == "" {
		base := cfg.ProviderURL
		if base == "" {
			base = issuer
		}
		cookieName = domainauth.ProviderCookieName(base)
	}

	p := &Provider{
		oidcProvider:  op,
		httpClient:    httpClient,
		clientID:      cfg.ClientID,
		clientSecret:  cfg.ClientSecret,
		revocationURL: revocation,
		cookieName:    cookieName,
		logger:        logger,
	}
	p.breaker = newBreaker(cfg, logger)

	logger.Info("oidc provider ready",
		"issuer", issuer,
		"revocation", revocation != "",
		"cookie", cookieName,
	)
	return p, nil
}

func newBreaker(cfg ProviderConfig, logger *slog.Logger) *gobreaker.CircuitBreaker[map[string]any] {
	failures := cfg.BreakerFailures
	if failures == 0 {
		failures = 5
	}
	cooldown := cfg.BreakerCooldown
	if cooldown <= 0 {
		cooldown = 30 * time.Second
	}
	const name = "identity_provider"
	cfg.Metrics.SetBreakerState(name, 0)

	return gobreaker.NewCircuitBreaker[map[string]any](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		// Token rejections are the caller's problem, not provider health.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, errTokenRejected) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				"breaker", name,
				"from", from.String(),
				"to", to.String(),
			)
			cfg.Metrics.SetBreakerState(name, stateToFloat(to))
		},
	})
}

func stateToFloat(state gobreaker.State) float64 {
	switch state {
	case gobreaker.StateClosed:
		return 0
	case gobreaker.StateHalfOpen:
		return 1
	case gobreaker.StateOpen:
		return 2
	default:
		return -1
	}
}

var errTokenRejected = errors.New("token rejected by identity provider")

// CookieName returns the provider's own session cookie name.
func (p *Provider) CookieName() string { return p.cookieName }

// SignOut revokes the access token at the provider (RFC 7009).
func (p *Provider) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return errors.New("access token is required")
	}
	if p.revocationURL == "" {
		return ErrNoRevocationEndpoint
	}
	_, err := p.breaker.Execute(func() (map[string]any, error) {
		return nil, p.revoke(ctx, accessToken)
	})
	return err
}

func (p *Provider) revoke(ctx context.Context, token string) error {
	form := url.Values{
		"token":           {token},
		"token_type_hint": {"access_token"},
	}
	if p.clientSecret == "" {
		form.Set("client_id", p.clientID)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.revocationURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build revocation request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if p.clientSecret != "" {
		req.SetBasicAuth(url.QueryEscape(p.clientID), url.QueryEscape(p.clientSecret))
	}

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("revoke token: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%w: status %d: %s", errTokenRejected, resp.StatusCode, strings.TrimSpace(string(body)))
	default:
		return fmt.Errorf("revoke token: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
}

// FetchClaims returns the userinfo claims for the access token.
func (p *Provider) FetchClaims(ctx context.Context, accessToken string) (map[string]any, error) {
	if accessToken == "" {
		return nil, errors.New("access token is required")
	}
	return p.breaker.Execute(func() (map[string]any, error) {
		clientCtx := gooidc.ClientContext(ctx, p.httpClient)
		ui, err := p.oidcProvider.UserInfo(clientCtx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: accessToken}))
		if err != nil {
			// go-oidc reports non-200 userinfo responses as "<status>: <body>".
			if strings.HasPrefix(err.Error(), "401") || strings.HasPrefix(err.Error(), "403") {
				return nil, fmt.Errorf("%w: %w", errTokenRejected, err)
			}
			return nil, fmt.Errorf("fetch user info: %w", err)
		}
		claims := make(map[string]any)
		if claimsErr := ui.Claims(&claims); claimsErr != nil {
			return nil, fmt.Errorf("decode user info: %w", claimsErr)
		}
		return claims, nil
	})
}
