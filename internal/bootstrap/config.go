package bootstrap

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/net/publicsuffix"

	"github.com/target/mmk-sessiongate/config"
	"github.com/target/mmk-sessiongate/internal/adapters/principaljwt"
)

// InitLogger initializes the structured JSON logger at the given level and makes
// it the process default. Unknown levels fall back to info.
func InitLogger(level string) *slog.Logger {
	return initLogger(os.Stdout, level)
}

func initLogger(w io.Writer, level string) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: parseLevel(level),
	}))
	slog.SetDefault(logger)
	return logger
}

func parseLevel(level string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(level)); err != nil {
		return slog.LevelInfo
	}
	return l
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() (config.AppConfig, error) {
	// Load .env file if it exists (development)
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return config.AppConfig{}, fmt.Errorf("load .env file: %w", err)
		}
	}

	var cfg config.AppConfig
	if err := env.Parse(&cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}

	cfg.Sanitize()
	return cfg, nil
}

// ValidateServiceConfig validates that at least one service is enabled and that
// each enabled service has what it needs.
func ValidateServiceConfig(cfg *config.AppConfig) error {
	if cfg == nil {
		return errors.New("service config is required")
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		return fmt.Errorf("invalid service configuration: %w", err)
	}

	if len(services) == 0 {
		return errors.New("no services enabled")
	}

	if services[config.ServiceModeReaper] && !cfg.Postgres.Enabled {
		return errors.New("reaper service requires DB_ENABLED=true")
	}
	if services[config.ServiceModeHTTP] && cfg.Auth.Mode == config.AuthModeOIDC && cfg.Auth.Provider.IssuerURL() == "" {
		return errors.New("AUTH_PROVIDER_URL or AUTH_PROVIDER_ISSUER is required in oidc mode")
	}
	if cfg.IsProduction() && cfg.Auth.Mode == config.AuthModeMock {
		return errors.New("AUTH_MODE=mock is not allowed in production")
	}
	if key := cfg.Session.PrincipalSigningKey; key != "" && len(key) < principaljwt.MinKeyLength {
		return fmt.Errorf("APP_PRINCIPAL_SIGNING_KEY must be at least %d bytes", principaljwt.MinKeyLength)
	}
	if isPublicSuffix(cfg.Session.BaseDomain) {
		return fmt.Errorf("APP_BASE_DOMAIN %q is a public suffix; cookies scoped to it would be rejected or shared across sites",
			cfg.Session.BaseDomain)
	}

	return nil
}

// isPublicSuffix reports whether domain is itself a registry suffix such as
// "com", "co.uk" or "github.io". Single-label private names like "localhost" pass.
func isPublicSuffix(domain string) bool {
	domain = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(domain)), ".")
	if domain == "" {
		return false
	}
	suffix, icann := publicsuffix.PublicSuffix(domain)
	return suffix == domain && (icann || strings.Contains(domain, "."))
}

// GetEnabledServices returns the sorted names of enabled services.
func GetEnabledServices(cfg *config.AppConfig) []string {
	if cfg == nil {
		return []string{}
	}
	services, err := cfg.GetEnabledServices()
	if err != nil {
		// Return empty list on error - validation will catch this
		return []string{}
	}

	enabledServices := make([]string, 0, len(services))
	for svc, on := range services {
		if on {
			enabledServices = append(enabledServices, string(svc))
		}
	}
	sort.Strings(enabledServices)

	return enabledServices
}
