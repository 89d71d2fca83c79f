package httpx

import (
	"net/http"

	domainauth "github.com/target/mmk-sessiongate/internal/domain/auth"
)

// ApplyCookies writes every instruction as a Set-Cookie header. Call it before
// the status line so the cookies ship with the response or not at all.
func ApplyCookies(w http.ResponseWriter, policies []domainauth.CookiePolicy) {
	for _, p := range policies {
		http.SetCookie(w, p.ToHTTPCookie())
	}
}

// noStore keeps session responses out of shared caches.
func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}
