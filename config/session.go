package config

import "strings"

// SessionConfig controls cookie scope and the Origin allow-list.
type SessionConfig struct {
	// BaseDomain enables cross-subdomain cookies (".example.com") and accepts any
	// Origin ending in "."+BaseDomain. Leave empty for host-only cookies.
	BaseDomain string `env:"APP_BASE_DOMAIN"`

	// AllowedOrigins is the exact-match Origin allow-list. Loopback development
	// origins are used when empty.
	AllowedOrigins []string `env:"APP_ALLOWED_ORIGINS" envSeparator:","`

	// PrincipalSigningKey is the HS256 key the first-party login backend signs
	// principal tokens with. Principal tokens are refused when empty.
	PrincipalSigningKey string `env:"APP_PRINCIPAL_SIGNING_KEY"`
	// PrincipalIssuer, when set, must match the token's iss claim.
	PrincipalIssuer string `env:"APP_PRINCIPAL_ISSUER"`

	// CSRFAuditRate and CSRFAuditBurst cap audit-log writes for Origin rejections.
	CSRFAuditRate  float64 `env:"APP_CSRF_AUDIT_RATE"  envDefault:"5"`
	CSRFAuditBurst int     `env:"APP_CSRF_AUDIT_BURST" envDefault:"20"`
}

// Sanitize trims values and drops empty allow-list entries.
func (s *SessionConfig) Sanitize() {
	s.BaseDomain = strings.ToLower(strings.Trim(strings.TrimSpace(s.BaseDomain), "."))
	s.PrincipalSigningKey = strings.TrimSpace(s.PrincipalSigningKey)
	s.PrincipalIssuer = strings.TrimSpace(s.PrincipalIssuer)

	origins := s.AllowedOrigins[:0]
	for _, o := range s.AllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	if len(origins) == 0 {
		origins = nil
	}
	s.AllowedOrigins = origins
}
