package service

import (
	"net/http"
	"strings"
	"time"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
)

const cookiePath = "/"

// CookieManagerOptions groups deployment settings for CookieManager.
type CookieManagerOptions struct {
	BaseDomain string // Optional: enables cross-subdomain cookie scope
	Secure     bool   // Production deployments set the Secure attribute
	// ProviderCookieName is the identity provider's own session cookie. Empty disables
	// provider cookie clearing.
	ProviderCookieName string
}

// CookieManager builds cookie-set and cookie-clear instructions for session tokens.
// It holds no per-request state; every method is a pure function of its inputs.
type CookieManager struct {
	baseDomain     string
	secure         bool
	providerCookie string
}

// NewCookieManager constructs a CookieManager.
func NewCookieManager(opts CookieManagerOptions) *CookieManager {
	return &CookieManager{
		baseDomain:     strings.TrimSpace(opts.BaseDomain),
		secure:         opts.Secure,
		providerCookie: strings.TrimSpace(opts.ProviderCookieName),
	}
}

// sessionCookie describes one first-party session cookie.
type sessionCookie struct {
	name   string
	maxAge time.Duration
	value  func(domainauth.TokenSet) string
}

//nolint:gochecknoglobals // fixed wire contract.
var sessionCookies = []sessionCookie{
	{
		name:   domainauth.AccessCookieName,
		maxAge: domainauth.AccessTokenMaxAge,
		value:  func(t domainauth.TokenSet) string { return t.AccessToken },
	},
	{
		name:   domainauth.RefreshCookieName,
		maxAge: domainauth.RefreshTokenMaxAge,
		value:  func(t domainauth.TokenSet) string { return t.RefreshToken },
	},
	{
		name:   domainauth.DeviceCookieName,
		maxAge: domainauth.DeviceTokenMaxAge,
		value:  func(t domainauth.TokenSet) string { return t.DeviceToken },
	},
}

// Scope returns the cookie domain scope for the request.
func (m *CookieManager) Scope(rc domainauth.RequestContext) string {
	return domainauth.ResolveCookieDomain(rc.Hostname, m.baseDomain)
}

// Secure reports whether cookies carry the Secure attribute.
func (m *CookieManager) Secure() bool { return m.secure }

// SetSession returns one set instruction per present token.
func (m *CookieManager) SetSession(tokens domainauth.TokenSet, rc domainauth.RequestContext) []domainauth.CookiePolicy {
	scope := m.Scope(rc)
	out := make([]domainauth.CookiePolicy, 0, len(sessionCookies))
	for _, c := range sessionCookies {
		v := c.value(tokens)
		if v == "" {
			continue
		}
		out = append(out, domainauth.CookiePolicy{
			Name:     c.name,
			Value:    v,
			HTTPOnly: true,
			Secure:   m.secure,
			SameSite: domainauth.SameSiteLax,
			MaxAge:   int(c.maxAge / time.Second),
			Path:     cookiePath,
			Domain:   scope,
		})
	}
	return out
}

// ClearSession returns clear instructions for every first-party session cookie under
// both the resolved scope and host-only, so a cookie issued before a base-domain
// change is removed too. Two entries are emitted per name even when the scope is
// absent.
func (m *CookieManager) ClearSession(rc domainauth.RequestContext) []domainauth.CookiePolicy {
	scope := m.Scope(rc)
	out := make([]domainauth.CookiePolicy, 0, len(sessionCookies)*2)
	for _, c := range sessionCookies {
		out = append(out,
			m.clearPolicy(c.name, scope, true),
			m.clearPolicy(c.name, "", true),
		)
	}
	return out
}

// ClearProviderSession clears the identity provider's session cookie under both
// scopes, each in HttpOnly and script-readable form since the provider may have
// set either.
func (m *CookieManager) ClearProviderSession(rc domainauth.RequestContext) []domainauth.CookiePolicy {
	if m.providerCookie == "" {
		return nil
	}
	scope := m.Scope(rc)
	return []domainauth.CookiePolicy{
		m.clearPolicy(m.providerCookie, scope, true),
		m.clearPolicy(m.providerCookie, scope, false),
		m.clearPolicy(m.providerCookie, "", true),
		m.clearPolicy(m.providerCookie, "", false),
	}
}

// ClearAll is ClearSession followed by ClearProviderSession.
func (m *CookieManager) ClearAll(rc domainauth.RequestContext) []domainauth.CookiePolicy {
	return append(m.ClearSession(rc), m.ClearProviderSession(rc)...)
}

func (m *CookieManager) clearPolicy(name, domain string, httpOnly bool) domainauth.CookiePolicy {
	return domainauth.CookiePolicy{
		Name:     name,
		HTTPOnly: httpOnly,
		Secure:   m.secure,
		SameSite: domainauth.SameSiteLax,
		MaxAge:   0,
		Path:     cookiePath,
		Domain:   domain,
	}
}

// ReadDeviceToken returns the device token cookie, or nil when absent or empty.
func (m *CookieManager) ReadDeviceToken(r *http.Request) *string {
	v := readCookie(r, domainauth.DeviceCookieName)
	if v == "" {
		return nil
	}
	return &v
}

// ReadSession returns whatever first-party session tokens the request carries.
func (m *CookieManager) ReadSession(r *http.Request) domainauth.TokenSet {
	return domainauth.TokenSet{
		AccessToken:  readCookie(r, domainauth.AccessCookieName),
		RefreshToken: readCookie(r, domainauth.RefreshCookieName),
		DeviceToken:  readCookie(r, domainauth.DeviceCookieName),
	}
}

// ReadProviderSession returns the raw value of the provider's session cookie.
func (m *CookieManager) ReadProviderSession(r *http.Request) string {
	if m.providerCookie == "" {
		return ""
	}
	return readCookie(r, m.providerCookie)
}

func readCookie(r *http.Request, name string) string {
	if r == nil {
		return ""
	}
	c, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(c.Value)
}
