package auth

import (
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SameSite mirrors the cookie SameSite attribute without tying the domain to net/http.
type SameSite string

const (
	SameSiteLax    SameSite = "Lax"
	SameSiteStrict SameSite = "Strict"
	SameSiteNone   SameSite = "None"
)

// CookiePolicy is a single cookie-set instruction. MaxAge is in seconds; zero means
// "expire now".
type CookiePolicy struct {
	Name     string
	Value    string
	HTTPOnly bool
	Secure   bool
	SameSite SameSite
	MaxAge   int
	Path     string
	Domain   string
}

// IsClear reports whether the policy removes the cookie.
func (p CookiePolicy) IsClear() bool { return p.MaxAge <= 0 }

// ToHTTPCookie renders the policy for net/http. A clearing policy is emitted with a
// negative MaxAge (Max-Age=0 on the wire) and an epoch Expires for older browsers.
func (p CookiePolicy) ToHTTPCookie() *http.Cookie {
	c := &http.Cookie{
		Name:     p.Name,
		Value:    p.Value,
		Path:     p.Path,
		Domain:   p.Domain,
		HttpOnly: p.HTTPOnly,
		Secure:   p.Secure,
		SameSite: p.SameSite.httpMode(),
		MaxAge:   p.MaxAge,
	}
	if p.IsClear() {
		c.Value = ""
		c.MaxAge = -1
		c.Expires = time.Unix(0, 0).UTC()
	}
	return c
}

func (s SameSite) httpMode() http.SameSite {
	switch s {
	case SameSiteStrict:
		return http.SameSiteStrictMode
	case SameSiteNone:
		return http.SameSiteNoneMode
	case SameSiteLax:
		return http.SameSiteLaxMode
	default:
		return http.SameSiteDefaultMode
	}
}

// ResolveCookieDomain derives the cookie domain scope for a request hostname.
// It returns "."+baseDomain when hostname is the base domain itself or one of its
// subdomains, and "" (host-only cookie) otherwise or when no base domain is configured.
func ResolveCookieDomain(hostname, baseDomain string) string {
	base := strings.ToLower(strings.Trim(strings.TrimSpace(baseDomain), "."))
	if base == "" {
		return ""
	}
	host := strings.ToLower(strings.TrimSuffix(stripPort(strings.TrimSpace(hostname)), "."))
	if host == "" {
		return ""
	}
	if host == base || strings.HasSuffix(host, "."+base) {
		return "." + base
	}
	return ""
}

func stripPort(host string) string {
	if strings.HasPrefix(host, "[") {
		if i := strings.Index(host, "]"); i > 0 {
			return host[1:i]
		}
		return host
	}
	if strings.Count(host, ":") == 1 {
		return host[:strings.Index(host, ":")]
	}
	return host
}

// ProviderCookieName derives the identity provider's session cookie name from its
// endpoint URL. The project identifier is the first label of the endpoint host, so
// "https://abcd1234.supabase.co" yields "sb-abcd1234-auth-token". Returns "" when no
// identifier can be extracted.
func ProviderCookieName(endpoint string) string {
	ref := ProviderProjectRef(endpoint)
	if ref == "" {
		return ""
	}
	return "sb-" + ref + "-auth-token"
}

// ProviderProjectRef extracts the project identifier from a provider endpoint URL.
func ProviderProjectRef(endpoint string) string {
	u, err := url.Parse(strings.TrimSpace(endpoint))
	if err != nil || u.Hostname() == "" {
		return ""
	}
	host := u.Hostname()
	label, _, _ := strings.Cut(host, ".")
	return strings.ToLower(label)
}
