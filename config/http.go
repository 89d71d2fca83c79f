package config

// HTTPConfig contains HTTP server configuration.
type HTTPConfig struct {
	// Addr is the address to bind the HTTP server to.
	Addr string `env:"HTTP_ADDR" envDefault:":8080"`

	// TrustProxyHeaders honours X-Forwarded-Host / X-Forwarded-For from a fronting proxy.
	TrustProxyHeaders bool `env:"HTTP_TRUST_PROXY_HEADERS" envDefault:"false"`

	// RateLimitRPS is the sustained per-client rate on mutating auth endpoints.
	// Zero disables rate limiting.
	RateLimitRPS float64 `env:"HTTP_RATE_LIMIT_RPS" envDefault:"5"`

	// RateLimitBurst is the per-client burst allowance.
	RateLimitBurst int `env:"HTTP_RATE_LIMIT_BURST" envDefault:"10"`
}

// Sanitize applies guardrails to HTTP configuration values.
func (h *HTTPConfig) Sanitize() {
	if h.RateLimitRPS < 0 {
		h.RateLimitRPS = 0
	}
	if h.RateLimitRPS > 0 && h.RateLimitBurst < 1 {
		h.RateLimitBurst = 1
	}
}
