package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/target/mmk-sessiongate/config"
	"github.com/target/mmk-sessiongate/internal/adapters/authroles"
	"github.com/target/mmk-sessiongate/internal/adapters/devauth"
	"github.com/target/mmk-sessiongate/internal/adapters/oidc"
	"github.com/target/mmk-sessiongate/internal/observability/metrics"
	"github.com/target/mmk-sessiongate/internal/ports"
)

// ProviderConfig contains what BuildIdentityProvider needs.
type ProviderConfig struct {
	Auth       config.AuthConfig
	HTTPClient *http.Client  // Optional
	Metrics    *metrics.Auth // Optional
	Logger     *slog.Logger
}

// BuildIdentityProvider creates the identity provider for the configured auth mode.
//
//nolint:ireturn // the concrete provider depends on AUTH_MODE.
func BuildIdentityProvider(ctx context.Context, cfg ProviderConfig) (ports.IdentityProvider, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	switch cfg.Auth.Mode {
	case config.AuthModeMock:
		logger.WarnContext(ctx, "using mock identity provider; do not enable in production")
		prov, err := devauth.NewProvider(devauth.Config{
			UserID:       cfg.Auth.DevAuth.UserID,
			Email:        cfg.Auth.DevAuth.Email,
			PlatformRole: cfg.Auth.DevAuth.PlatformRole,
			ProjectRef:   cfg.Auth.DevAuth.ProjectRef,
		})
		if err != nil {
			return nil, fmt.Errorf("dev auth provider: %w", err)
		}
		return prov, nil

	case config.AuthModeOIDC:
		p := cfg.Auth.Provider
		prov, err := oidc.NewProvider(ctx, oidc.ProviderConfig{
			ProviderURL:     p.URL,
			IssuerURL:       p.IssuerURL(),
			ClientID:        p.ClientID,
			ClientSecret:    p.ClientSecret,
			RevocationURL:   p.RevocationURL,
			BreakerFailures: p.BreakerFailures,
			BreakerCooldown: p.BreakerCooldown,
			HTTPClient:      cfg.HTTPClient,
			Logger:          logger,
			Metrics:         cfg.Metrics,
		})
		if err != nil {
			return nil, fmt.Errorf("oidc provider: %w", err)
		}
		return prov, nil

	default:
		return nil, fmt.Errorf("unsupported auth mode %q", cfg.Auth.Mode)
	}
}

// BuildClaimMapper compiles the configured claim projections.
func BuildClaimMapper(cfg config.ClaimsConfig) (*authroles.ClaimMapper, error) {
	m, err := authroles.NewClaimMapper(authroles.Expressions{
		Subject:      cfg.Subject,
		Email:        cfg.Email,
		PlatformRole: cfg.PlatformRole,
		IsAdmin:      cfg.IsAdmin,
		MetadataRole: cfg.MetadataRole,
	})
	if err != nil {
		return nil, fmt.Errorf("claim mapper: %w", err)
	}
	return m, nil
}
