package httpx

import (
	"net"
	"net/http"
	"strconv"
	"strings"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
)

// requestInfo is what the session services need to know about a request.
type requestInfo struct {
	Context    domainauth.RequestContext
	Origin     string
	RemoteAddr string
}

func readRequestInfo(r *http.Request, trustProxy bool) requestInfo {
	return requestInfo{
		Context:    domainauth.RequestContext{Hostname: requestHostname(r, trustProxy)},
		Origin:     r.Header.Get("Origin"),
		RemoteAddr: clientIP(r, trustProxy),
	}
}

// requestHostname returns the host cookie scope is resolved against. The
// X-Forwarded-Host header is only honoured behind a trusted proxy.
func requestHostname(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := firstListValue(r.Header.Get("X-Forwarded-Host")); fwd != "" {
			return fwd
		}
	}
	return r.Host
}

// clientIP extracts the client address, stripping the port. X-Forwarded-For and
// X-Real-IP are only consulted behind a trusted proxy.
func clientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := net.ParseIP(firstListValue(r.Header.Get("X-Forwarded-For"))); ip != nil {
			return ip.String()
		}
		if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-IP"))); ip != nil {
			return ip.String()
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func firstListValue(v string) string {
	first, _, _ := strings.Cut(v, ",")
	return strings.TrimSpace(first)
}

// parseIntQuery returns the integer value of a query param or a default.
// It is tolerant of missing/invalid values.
func parseIntQuery(r *http.Request, key string, def int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

// parseLimit reads the "limit" query param and clamps it to [1, maxLimit].
func parseLimit(r *http.Request, defLimit, maxLimit int) int {
	if maxLimit < 1 {
		maxLimit = 1
	}
	lim := parseIntQuery(r, "limit", defLimit)
	if lim < 1 {
		lim = 1
	}
	if lim > maxLimit {
		lim = maxLimit
	}
	return lim
}
